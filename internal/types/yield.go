package types

import (
	"math"
)

// Params holds the tunables of the valuation engine.
type Params struct {
	// TaxRate is the flat rate applied to coupons and positive capital gains.
	TaxRate float64
	// MaxIterations bounds the Newton-Raphson loop.
	MaxIterations int
	// Tolerance is used for both the NPV and the step size convergence tests.
	Tolerance float64
	// MinDerivative is the smallest NPV slope the solver will divide by.
	MinDerivative float64
	// FloorFactor sets the lowest rate the solver may visit, -FloorFactor/PaymentsPerYear.
	FloorFactor float64
}

const (
	DefaultTaxRate       = 0.125
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-9
	DefaultFloorFactor   = 0.9
)

// DefaultMinDerivative is the float64 machine epsilon.
var DefaultMinDerivative = math.Nextafter(1, 2) - 1

func DefaultParams() Params {
	return Params{
		TaxRate:       DefaultTaxRate,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		MinDerivative: DefaultMinDerivative,
		FloorFactor:   DefaultFloorFactor,
	}
}

func (p Params) Validate() error {
	if math.IsNaN(p.TaxRate) || p.TaxRate < 0 || p.TaxRate >= 1 {
		return invalidParameter("tax_rate", "must be in [0, 1)")
	}

	if p.MaxIterations <= 0 {
		return invalidParameter("max_iterations", "must be positive")
	}

	if math.IsNaN(p.Tolerance) || p.Tolerance <= 0 {
		return invalidParameter("tolerance", "must be positive")
	}

	if math.IsNaN(p.MinDerivative) || p.MinDerivative < 0 {
		return invalidParameter("min_derivative", "cannot be negative")
	}

	if math.IsNaN(p.FloorFactor) || p.FloorFactor <= 0 || p.FloorFactor >= 1 {
		return invalidParameter("floor_factor", "must be in (0, 1)")
	}

	return nil
}

// RateFloor is the lowest periodic-compounded annual rate the solver accepts for s.
func (p Params) RateFloor(s BondSpec) float64 {
	return -p.FloorFactor / float64(s.PaymentsPerYear)
}

// NPV returns the present value of the cash flows of s discounted at rate,
// less the purchase price. Price is not rescaled by FaceValue.
//
// The discount factor is accumulated period by period rather than raised to a
// power. rate must stay above -PaymentsPerYear.
func NPV(s BondSpec, rate float64) float64 {
	n := s.Payments()
	coupon := s.CouponPerPeriod()
	base := 1.0 + rate/float64(s.PaymentsPerYear)
	df := 1.0
	pv := 0.0

	for i := 1; i <= n; i++ {
		df /= base

		cf := coupon
		if i == n {
			cf += s.FaceValue
		}

		pv += cf * df
	}

	return pv - s.Price
}

// NPVDerivative returns dNPV/drate in closed form, walking the same schedule as NPV.
func NPVDerivative(s BondSpec, rate float64) float64 {
	n := s.Payments()
	q := float64(s.PaymentsPerYear)
	coupon := s.CouponPerPeriod()
	base := 1.0 + rate/q
	df := 1.0
	d := 0.0

	for i := 1; i <= n; i++ {
		df /= base

		cf := coupon
		if i == n {
			cf += s.FaceValue
		}

		d -= (float64(i) * cf * df) / (q * base)
	}

	return d
}

// Yield is the outcome of a yield to maturity solve.
type Yield struct {
	Rate       float64
	Iterations int
	// Converged is false when the iteration budget ran out; Rate is then the
	// last iterate and should be treated as unverified.
	Converged bool
	// Clamped is set when an iterate was raised to the rate floor.
	Clamped bool
}

// Err returns ErrNoConvergence for a best effort yield, nil otherwise.
func (y Yield) Err() error {
	if !y.Converged {
		return ErrNoConvergence
	}
	return nil
}

// SolveYield finds the rate that zeroes NPV using Newton-Raphson seeded at
// the coupon rate.
//
// A near-zero slope fails with ErrDegenerateDerivative. Running out of
// iterations is not an error: the last rate is returned with Converged unset.
func SolveYield(s BondSpec, p Params) (Yield, error) {
	floor := p.RateFloor(s)
	y := Yield{Rate: s.CouponRate}

	for y.Iterations < p.MaxIterations {
		y.Iterations++

		npv := NPV(s, y.Rate)
		if math.Abs(npv) < p.Tolerance {
			y.Converged = true
			return y, nil
		}

		d := NPVDerivative(s, y.Rate)
		if math.Abs(d) < p.MinDerivative {
			return y, ErrDegenerateDerivative
		}

		delta := npv / d
		y.Rate -= delta

		if y.Rate < floor {
			y.Rate = floor
			y.Clamped = true
		}

		if math.Abs(delta) < p.Tolerance {
			y.Converged = true
			return y, nil
		}
	}

	return y, nil
}
