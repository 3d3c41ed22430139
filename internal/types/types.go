package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	MaxMaturityYears   = 100
	MaxPaymentsPerYear = 12
)

// BondSpec describes a plain fixed coupon bond bought at a given price.
//
// Price is quoted per 100 of face value (e.g. 96.24), CouponRate is annual and
// decimal (0.04 for 4%) and Amount is the nominal quantity bought.
//
// NPV compares Price directly with cash flows sized by FaceValue, so a
// FaceValue other than 100 needs Price on the same scale: face 1000 bought at
// 96.24% is Price 962.4, not 96.24.
type BondSpec struct {
	Price           float64 `json:"price" yaml:"price"`
	FaceValue       float64 `json:"face_value" yaml:"face_value"`
	CouponRate      float64 `json:"coupon_rate" yaml:"coupon_rate"`
	MaturityYears   int     `json:"maturity_years" yaml:"maturity_years"`
	PaymentsPerYear int     `json:"payments_per_year" yaml:"payments_per_year"`
	Amount          float64 `json:"amount" yaml:"amount"`
}

// Payments returns the number of coupon payments to maturity.
func (s BondSpec) Payments() int {
	return s.MaturityYears * s.PaymentsPerYear
}

// CouponPerPeriod returns the coupon paid each period on one unit of face value.
func (s BondSpec) CouponPerPeriod() float64 {
	return s.FaceValue * s.CouponRate / float64(s.PaymentsPerYear)
}

// Validate checks every field is inside its domain. It returns an
// *InvalidParameterError naming the first offending field.
func (s BondSpec) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"price", s.Price},
		{"face_value", s.FaceValue},
		{"coupon_rate", s.CouponRate},
		{"amount", s.Amount},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return invalidParameter(f.name, "must be a finite number")
		}
	}

	if s.Price <= 0 {
		return invalidParameter("price", "must be positive")
	}

	if s.FaceValue <= 0 {
		return invalidParameter("face_value", "must be positive")
	}

	if s.CouponRate < 0 {
		return invalidParameter("coupon_rate", "cannot be negative")
	}

	if s.MaturityYears < 1 || s.MaturityYears > MaxMaturityYears {
		return invalidParameter("maturity_years", fmt.Sprintf("must be between 1 and %d years", MaxMaturityYears))
	}

	if s.PaymentsPerYear < 1 || s.PaymentsPerYear > MaxPaymentsPerYear {
		return invalidParameter("payments_per_year", fmt.Sprintf("must be between 1 and %d times a year", MaxPaymentsPerYear))
	}

	if s.Amount <= 0 {
		return invalidParameter("amount", "must be positive")
	}

	return nil
}

// CashFlow is a single scheduled payment of a BondSpec.
type CashFlow struct {
	Period int
	Time   float64
	Amount float64
}

// Schedule lists the payments of s, the last one including the principal.
func Schedule(s BondSpec) []CashFlow {
	n := s.Payments()
	coupon := s.CouponPerPeriod()
	flows := make([]CashFlow, 0, n)

	for i := 1; i <= n; i++ {
		amount := coupon
		if i == n {
			amount += s.FaceValue
		}
		flows = append(flows, CashFlow{
			Period: i,
			Time:   float64(i) / float64(s.PaymentsPerYear),
			Amount: amount,
		})
	}

	return flows
}

// Quote is a market observation of a listed bond. Coupon and QuotedYield are
// percentages as published by the source.
type Quote struct {
	Source         string
	ISIN           string
	Ticker         string
	Desc           string
	Coupon         float64
	CleanPrice     float64
	QuotedYield    float64
	SettlementDate time.Time
	MaturityDate   time.Time
}

func NewUKGilt(source string, settlementDate time.Time) *Quote {
	return &Quote{
		Source:         source,
		SettlementDate: settlementDate,
	}
}

// UK gilts pay semi-annually on a face value of 100.
const (
	GiltFaceValue       = 100.0
	GiltPaymentsPerYear = 2
)

// Spec converts the quote into a BondSpec for a purchase of amount nominal.
// The remaining life is rounded to the nearest whole year, with a minimum of one.
func (q *Quote) Spec(amount float64) (BondSpec, error) {
	if q == nil {
		return BondSpec{}, ErrNilQuote
	}

	if q.SettlementDate.IsZero() {
		return BondSpec{}, ErrInvalidSettlementDate
	}

	if q.MaturityDate.IsZero() {
		return BondSpec{}, ErrInvalidMaturityDate
	}

	years, days, err := MaturityYears(q.SettlementDate, q.MaturityDate)
	if err != nil {
		return BondSpec{}, err
	}

	if days*2 >= 365 {
		years++
	}

	if years < 1 {
		years = 1
	}

	spec := BondSpec{
		Price:           q.CleanPrice,
		FaceValue:       GiltFaceValue,
		CouponRate:      q.Coupon / 100,
		MaturityYears:   years,
		PaymentsPerYear: GiltPaymentsPerYear,
		Amount:          amount,
	}

	return spec, spec.Validate()
}

// MaturityYears splits the time between settlement and maturity into whole
// years and the remaining days.
func MaturityYears(settlementDate, maturityDate time.Time) (int, int, error) {
	if maturityDate.Before(settlementDate) {
		return 0, 0, ErrMaturityDateBeforeSettlement
	}

	years := maturityDate.Year() - settlementDate.Year()

	end := time.Date(maturityDate.Year(), maturityDate.Month(), maturityDate.Day(), 0, 0, 0, 0, maturityDate.Location())
	start := time.Date(maturityDate.Year(), settlementDate.Month(), settlementDate.Day(), 0, 0, 0, 0, maturityDate.Location())

	if start.After(end) {
		years--
		start = start.AddDate(-1, 0, 0)
	}

	days := int(end.Sub(start).Hours() / 24)

	return years, days, nil
}

// InvalidParameterError reports a BondSpec or Params field outside its domain.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error {
	return ErrInvalidParameter
}

func invalidParameter(field, reason string) error {
	return &InvalidParameterError{Field: field, Reason: reason}
}

// IsInvalidParameter reports whether err was caused by a rejected input and
// returns the offending field.
func IsInvalidParameter(err error) (string, bool) {
	var ipe *InvalidParameterError
	if errors.As(err, &ipe) {
		return ipe.Field, true
	}
	return "", false
}

var (
	ErrNilQuote                     = fmt.Errorf("quote is nil")
	ErrDataUnavailable              = fmt.Errorf("data unavailable")
	ErrUnsupportedBond              = fmt.Errorf("unsupported bond")
	ErrMissingSettlementDate        = fmt.Errorf("missing settlement date")
	ErrInvalidTicker                = fmt.Errorf("invalid ticker")
	ErrInvalidCoupon                = fmt.Errorf("invalid coupon")
	ErrInvalidDesc                  = fmt.Errorf("invalid description")
	ErrInvalidMaturityDate          = fmt.Errorf("invalid maturity date")
	ErrInvalidSettlementDate        = fmt.Errorf("invalid settlement date")
	ErrInvalidCleanPrice            = fmt.Errorf("invalid clean price")
	ErrInvalidYieldToMaturity       = fmt.Errorf("invalid yield to maturity")
	ErrMaturityDateBeforeSettlement = fmt.Errorf("maturity date is before settlement date")
	ErrInvalidParameter             = fmt.Errorf("invalid parameter")
	ErrDegenerateDerivative         = fmt.Errorf("Newton-Raphson failed (derivative is too small)")
	ErrNoConvergence                = fmt.Errorf("Newton-Raphson failed to converge within max iterations")
	ErrNonFiniteYield               = fmt.Errorf("yield is not a finite number")
)
