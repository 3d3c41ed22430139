package report_test

import (
	"bytes"
	"strings"
	"testing"

	"benritz/bonds/internal/collect"
	"benritz/bonds/internal/report"
	"benritz/bonds/internal/types"
)

func TestMoney(t *testing.T) {
	cases := map[float64]string{
		5236.875: "5236.88",
		9624:     "9624.00",
		-0.125:   "-0.13",
		0.004:    "0.00",
	}

	for in, want := range cases {
		if got := report.Money(in); got != want {
			t.Errorf("Money(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestWrite(t *testing.T) {
	s := types.BondSpec{Price: 96.24, FaceValue: 100, CouponRate: 0.0315, MaturityYears: 19, PaymentsPerYear: 1, Amount: 10000}
	p := types.DefaultParams()

	r, err := types.Analyze(s, p)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	report.Write(&buf, s, r, p.TaxRate)
	out := buf.String()

	for _, want := range []string{
		"Net yield: " + report.Percent(r.NetYieldRate) + " (tax 12.5%)",
		"Amount paid: 9624.00",
		"Gross coupons: 5985.00",
		"Net coupons: 5236.88 (taxed at 12.5%)",
		"Gross capital gain: 376.00",
		"Net capital gain: 329.00",
		"Gross total: 15985.00",
		"Net total: 15189.88",
		"Net return: 5565.88",
		"Convexity",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report is missing %q:\n%s", want, out)
		}
	}

	if strings.Contains(out, "Warning") {
		t.Errorf("unexpected convergence warning:\n%s", out)
	}
}

func TestWriteCapitalLossAndWarning(t *testing.T) {
	s := types.BondSpec{Price: 110, FaceValue: 100, CouponRate: 0.05, MaturityYears: 5, PaymentsPerYear: 2, Amount: 1000}
	r := types.BondResults{PricePaid: 1100, CapitalGain: -100, NetCapitalGain: -100, Iterations: 100}

	var buf bytes.Buffer
	report.Write(&buf, s, r, 0.125)
	out := buf.String()

	if !strings.Contains(out, "Capital loss: -100.00 (not taxed)") {
		t.Errorf("missing capital loss line:\n%s", out)
	}
	if !strings.Contains(out, "Warning: yield did not converge after 100 iterations") {
		t.Errorf("missing convergence warning:\n%s", out)
	}
}

func TestWriteBatch(t *testing.T) {
	records := []collect.Record{
		{ISIN: "GB00BTHH2R79", Desc: "4½% Treasury Gilt 2034", Price: 101.23, CouponRate: 0.045, MaturityYears: 9, YieldRate: 0.0432, Converged: true},
		{ISIN: "GB0000000001", Price: 99, Error: "maturity date is before settlement date"},
	}

	var buf bytes.Buffer
	report.WriteBatch(&buf, records)
	out := buf.String()

	for _, want := range []string{"GB00BTHH2R79", "4.32%", "maturity date is before settlement date", "ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("batch table is missing %q:\n%s", want, out)
		}
	}
}
