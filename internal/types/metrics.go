package types

import (
	"fmt"
	"math"
)

// BasisPoint is one hundredth of one percent.
const BasisPoint = 0.0001

type Metrics struct {
	Duration         float64
	ModifiedDuration float64
	Convexity        float64
	// PresentValue is the discounted sum of the cash flows. At the solved
	// yield it matches the price within the solver tolerance.
	PresentValue float64
}

// CalculateMetrics returns Macaulay duration (years), modified duration and
// convexity of s at rate. rate must be a finite number.
func CalculateMetrics(s BondSpec, rate float64) Metrics {
	base := 1.0 + rate/float64(s.PaymentsPerYear)
	df := 1.0

	var weightedTime, weightedTimeSquared, pvSum float64

	for _, cf := range Schedule(s) {
		df /= base

		pv := cf.Amount * df

		weightedTime += cf.Time * pv
		weightedTimeSquared += cf.Time * cf.Time * pv
		pvSum += pv
	}

	duration := weightedTime / s.Price

	return Metrics{
		Duration:         duration,
		ModifiedDuration: duration / base,
		Convexity:        weightedTimeSquared / (s.Price * base * base),
		PresentValue:     pvSum,
	}
}

// BondResults is the full analysis of a BondSpec.
type BondResults struct {
	YieldRate        float64 `json:"yield_rate"`
	NetYieldRate     float64 `json:"net_yield_rate"`
	Duration         float64 `json:"duration_years"`
	ModifiedDuration float64 `json:"modified_duration"`
	Convexity        float64 `json:"convexity"`

	TotalCoupons       float64 `json:"total_coupons"`
	NetCoupons         float64 `json:"net_coupons"`
	PricePaid          float64 `json:"price_paid"`
	CapitalGain        float64 `json:"capital_gain"`
	NetCapitalGain     float64 `json:"net_capital_gain"`
	NetTotalAtMaturity float64 `json:"net_total_at_maturity"`

	Sensitivity1bp   float64 `json:"sensitivity_1bp"`
	Sensitivity100bp float64 `json:"sensitivity_100bp"`

	Converged  bool `json:"converged"`
	Clamped    bool `json:"clamped"`
	Iterations int  `json:"iterations"`
}

// GrossTotalAtMaturity is the redeemed nominal plus the gross coupons.
func (r BondResults) GrossTotalAtMaturity(s BondSpec) float64 {
	return s.Amount + r.TotalCoupons
}

// PriceChange estimates the change in value of the holding for a parallel
// shift of bp basis points.
func (r BondResults) PriceChange(bp float64) float64 {
	return -r.ModifiedDuration * r.PricePaid * bp * BasisPoint
}

// Analyze validates s, solves its yield and derives risk metrics and after tax
// amounts. A best effort yield is reported with Converged unset rather than as
// an error.
func Analyze(s BondSpec, p Params) (BondResults, error) {
	if err := s.Validate(); err != nil {
		return BondResults{}, err
	}

	if err := p.Validate(); err != nil {
		return BondResults{}, err
	}

	y, err := SolveYield(s, p)
	if err != nil {
		return BondResults{}, fmt.Errorf("failed to solve yield: %w", err)
	}

	if math.IsNaN(y.Rate) || math.IsInf(y.Rate, 0) {
		return BondResults{}, ErrNonFiniteYield
	}

	m := CalculateMetrics(s, y.Rate)

	r := BondResults{
		YieldRate:        y.Rate,
		NetYieldRate:     y.Rate * (1 - p.TaxRate),
		Duration:         m.Duration,
		ModifiedDuration: m.ModifiedDuration,
		Convexity:        m.Convexity,
		Converged:        y.Converged,
		Clamped:          y.Clamped,
		Iterations:       y.Iterations,
	}

	couponPerHolding := s.CouponPerPeriod() * s.Amount / s.FaceValue
	r.TotalCoupons = couponPerHolding * float64(s.Payments())
	r.NetCoupons = r.TotalCoupons * (1 - p.TaxRate)

	// losses are neither taxed nor offset against coupon tax
	r.PricePaid = s.Price * s.Amount / 100
	r.CapitalGain = s.Amount - r.PricePaid
	r.NetCapitalGain = r.CapitalGain
	if r.CapitalGain > 0 {
		r.NetCapitalGain = r.CapitalGain * (1 - p.TaxRate)
	}

	r.NetTotalAtMaturity = r.PricePaid + r.NetCoupons + r.NetCapitalGain

	r.Sensitivity1bp = r.PriceChange(1)
	r.Sensitivity100bp = r.PriceChange(100)

	return r, nil
}
