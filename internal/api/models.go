package api

import "benritz/bonds/internal/types"

// AnalyzeRequest is the body of POST /api/v1/analyze and /api/v1/yield.
// face_value and amount default to 100 when omitted.
type AnalyzeRequest struct {
	types.BondSpec
	TaxRate *float64 `json:"tax_rate,omitempty"`
}

// AnalyzeResponse wraps the full valuation of one bond.
type AnalyzeResponse struct {
	ID      string            `json:"id"`
	Spec    types.BondSpec    `json:"spec"`
	TaxRate float64           `json:"tax_rate"`
	Results types.BondResults `json:"results"`
}

// YieldResponse is the solver output without the derived metrics.
type YieldResponse struct {
	ID         string  `json:"id"`
	YieldRate  float64 `json:"yield_rate"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Clamped    bool    `json:"clamped"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
