// Package input turns command line flags or interactive answers into a
// validated types.BondSpec.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"benritz/bonds/internal/types"
)

var (
	ErrInputClosed     = fmt.Errorf("input closed")
	ErrMissingRequired = fmt.Errorf("price, coupon, maturity and frequency are required")
	ErrInvalidNumber   = fmt.Errorf("invalid number")
)

// Flag names understood by Resolve.
const (
	FlagPrice     = "price"
	FlagFace      = "face"
	FlagCoupon    = "coupon"
	FlagMaturity  = "maturity"
	FlagFrequency = "frequency"
	FlagAmount    = "amount"
)

var requiredFlags = []string{FlagPrice, FlagCoupon, FlagMaturity, FlagFrequency}

const (
	DefaultFaceValue = 100.0
	DefaultAmount    = 100.0
)

// ParseDecimal parses a number written with either a dot or a comma as the
// decimal separator.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidNumber
	}

	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}

	return f, nil
}

func ParseInt(s string) (int, error) {
	s = strings.TrimSpace(s)

	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}

	return i, nil
}

// Prompter asks for values on Out and reads answers from In, asking again
// until the answer is usable.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", ErrInputClosed
	}

	return strings.TrimSpace(line), nil
}

// Float reads a decimal in [min, max].
func (p *Prompter) Float(prompt string, min, max float64) (float64, error) {
	for {
		line, err := p.readLine(prompt)
		if err != nil {
			return 0, err
		}

		if line == "" {
			fmt.Fprintln(p.out, "Error: please enter a value")
			continue
		}

		v, err := ParseDecimal(line)
		if err != nil {
			fmt.Fprintln(p.out, "Error: please enter a valid number (e.g. 1000 or 1000.50 or 1000,50)")
			continue
		}

		if v < min || v > max {
			fmt.Fprintf(p.out, "Error: the value must be between %g and %g\n", min, max)
			continue
		}

		return v, nil
	}
}

// Int reads an integer in [min, max].
func (p *Prompter) Int(prompt string, min, max int) (int, error) {
	for {
		line, err := p.readLine(prompt)
		if err != nil {
			return 0, err
		}

		if line == "" {
			fmt.Fprintln(p.out, "Error: please enter a value")
			continue
		}

		v, err := ParseInt(line)
		if err != nil {
			fmt.Fprintln(p.out, "Error: please enter a valid whole number")
			continue
		}

		if v < min || v > max {
			fmt.Fprintf(p.out, "Error: the value must be between %d and %d\n", min, max)
			continue
		}

		return v, nil
	}
}

// ReadSpec asks for every field of a bond with a unit face value of 100.
func (p *Prompter) ReadSpec() (types.BondSpec, error) {
	var (
		s   = types.BondSpec{FaceValue: DefaultFaceValue}
		err error
	)

	if s.Amount, err = p.Float("Nominal amount to buy (e.g. 10000): ", 1, 100_000_000); err != nil {
		return s, err
	}

	if s.Price, err = p.Float("Purchase price (percent of nominal, e.g. 96.24): ", 0.01, 200); err != nil {
		return s, err
	}

	if s.CouponRate, err = p.Float("Annual coupon rate (4% is entered as 0.04): ", 0, 1); err != nil {
		return s, err
	}

	if s.MaturityYears, err = p.Int("Maturity (years): ", 1, types.MaxMaturityYears); err != nil {
		return s, err
	}

	if s.PaymentsPerYear, err = p.Int("Coupon frequency (payments per year): ", 1, types.MaxPaymentsPerYear); err != nil {
		return s, err
	}

	return s, nil
}

// Resolve builds a BondSpec from the raw values of the flags that were set.
//
// When nothing was set, or interactive is true, the BondSpec is read from the
// prompter instead. A partial set of required flags is an error.
func Resolve(values map[string]string, interactive bool, p *Prompter) (types.BondSpec, error) {
	if !interactive && !hasAll(values, requiredFlags) {
		if len(values) != 0 {
			return types.BondSpec{}, ErrMissingRequired
		}
		interactive = true
	}

	var (
		s   types.BondSpec
		err error
	)

	if interactive {
		if p == nil {
			return s, ErrInputClosed
		}
		s, err = p.ReadSpec()
		if err != nil {
			return s, err
		}
	} else {
		s, err = fromFlags(values)
		if err != nil {
			return s, err
		}
	}

	return s, s.Validate()
}

func hasAll(values map[string]string, names []string) bool {
	for _, name := range names {
		if _, ok := values[name]; !ok {
			return false
		}
	}
	return true
}

func fromFlags(values map[string]string) (types.BondSpec, error) {
	s := types.BondSpec{
		FaceValue: DefaultFaceValue,
		Amount:    DefaultAmount,
	}

	decimals := []struct {
		name string
		dst  *float64
	}{
		{FlagPrice, &s.Price},
		{FlagFace, &s.FaceValue},
		{FlagCoupon, &s.CouponRate},
		{FlagAmount, &s.Amount},
	}

	for _, d := range decimals {
		raw, ok := values[d.name]
		if !ok {
			continue
		}
		v, err := ParseDecimal(raw)
		if err != nil {
			return s, fmt.Errorf("-%s: %w", d.name, err)
		}
		*d.dst = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{FlagMaturity, &s.MaturityYears},
		{FlagFrequency, &s.PaymentsPerYear},
	}

	for _, i := range ints {
		raw, ok := values[i.name]
		if !ok {
			continue
		}
		v, err := ParseInt(raw)
		if err != nil {
			return s, fmt.Errorf("-%s: %w", i.name, err)
		}
		*i.dst = v
	}

	return s, nil
}
