package api

import (
	"errors"
	"net/http"

	"benritz/bonds/internal/input"
	"benritz/bonds/internal/logging"
	"benritz/bonds/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler serves valuation requests with a fixed set of engine parameters.
type Handler struct {
	params types.Params
	log    logrus.FieldLogger
}

func NewHandler(p types.Params, log logrus.FieldLogger) *Handler {
	return &Handler{params: p, log: log}
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Analyze handles POST /api/v1/analyze
func (h *Handler) Analyze(c *gin.Context) {
	req, p, ok := h.bind(c)
	if !ok {
		return
	}

	id := uuid.NewString()
	log := h.log.WithField("request_id", id)

	r, err := types.Analyze(req.BondSpec, p)
	if err != nil {
		log.WithFields(logging.SpecFields(req.BondSpec)).WithError(err).Info("analysis failed")
		writeError(c, err)
		return
	}

	logging.WarnIfUnconverged(log, req.BondSpec, r)

	c.JSON(http.StatusOK, AnalyzeResponse{
		ID:      id,
		Spec:    req.BondSpec,
		TaxRate: p.TaxRate,
		Results: r,
	})
}

// Yield handles POST /api/v1/yield
func (h *Handler) Yield(c *gin.Context) {
	req, p, ok := h.bind(c)
	if !ok {
		return
	}

	if err := req.BondSpec.Validate(); err != nil {
		writeError(c, err)
		return
	}

	y, err := types.SolveYield(req.BondSpec, p)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, YieldResponse{
		ID:         uuid.NewString(),
		YieldRate:  y.Rate,
		Iterations: y.Iterations,
		Converged:  y.Converged,
		Clamped:    y.Clamped,
	})
}

func (h *Handler) bind(c *gin.Context) (AnalyzeRequest, types.Params, bool) {
	req := AnalyzeRequest{
		BondSpec: types.BondSpec{
			FaceValue: input.DefaultFaceValue,
			Amount:    input.DefaultAmount,
		},
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return req, types.Params{}, false
	}

	p := h.params
	if req.TaxRate != nil {
		p.TaxRate = *req.TaxRate
		if err := p.Validate(); err != nil {
			writeError(c, err)
			return req, p, false
		}
	}

	return req, p, true
}

func writeError(c *gin.Context, err error) {
	if field, ok := types.IsInvalidParameter(err); ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_PARAMETER",
				Message: err.Error(),
				Details: map[string]interface{}{"field": field},
			},
		})
		return
	}

	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, types.ErrDegenerateDerivative):
		code = "DEGENERATE_DERIVATIVE"
	case errors.Is(err, types.ErrNonFiniteYield):
		code = "NON_FINITE_YIELD"
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: code, Message: err.Error()},
		})
		return
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: err.Error()},
	})
}
