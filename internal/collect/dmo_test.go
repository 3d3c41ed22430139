package collect

import (
	"errors"
	"testing"
	"time"

	"benritz/bonds/internal/types"
)

func TestParseCouponPercentage(t *testing.T) {
	cases := []struct {
		desc string
		want float64
	}{
		{"0 5/8% Treasury Gilt 2025", 0.625},
		{"2% Treasury Gilt 2025", 2},
		{"3½% Treasury Gilt 2025", 3.5},
		{"4¼% Treasury Gilt 2032", 4.25},
		{"1 3/4% Treasury Gilt 2037", 1.75},
		{"1/8% Treasury Gilt 2028", 0.125},
		{"4.375% Treasury Gilt 2054", 4.375},
	}

	for _, c := range cases {
		got, err := parseCouponPercentage(c.desc)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", c.desc, err)
			continue
		}
		if got != c.want {
			t.Errorf("%q: got %v, want %v", c.desc, got, c.want)
		}
	}

	for _, desc := range []string{"Treasury Gilt 2025", "1/0% Treasury Gilt", ""} {
		if _, err := parseCouponPercentage(desc); !errors.Is(err, types.ErrInvalidCoupon) {
			t.Errorf("%q: got %v, want ErrInvalidCoupon", desc, err)
		}
	}
}

func TestParseDMORow(t *testing.T) {
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	row := []string{"GB00BTHH2R79", "4½% Treasury Gilt 2034", "101.23", "102.10", "", "", "", "07-Sep-2034"}

	cq, err := parseDMORow(date, row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cq.Err != nil {
		t.Fatalf("unexpected row error: %v", cq.Err)
	}

	q := cq.Quote
	if q.ISIN != "GB00BTHH2R79" || q.Coupon != 4.5 || q.CleanPrice != 101.23 {
		t.Errorf("unexpected quote %+v", q)
	}
	if !q.MaturityDate.Equal(time.Date(2034, 9, 7, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("maturity %v", q.MaturityDate)
	}

	s, err := q.Spec(100)
	if err != nil {
		t.Fatalf("unexpected spec error: %v", err)
	}
	if s.MaturityYears != 9 || s.PaymentsPerYear != 2 || s.CouponRate != 0.045 {
		t.Errorf("unexpected spec %+v", s)
	}
}

func TestParseDMORowFailures(t *testing.T) {
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	if _, err := parseDMORow(date, []string{"ISIN", "Description"}); !errors.Is(err, ErrInvalidRow) {
		t.Errorf("short row: got %v", err)
	}

	header := []string{"ISIN Code", "Gilt Name", "Clean Price", "Dirty Price", "", "", "", "Redemption Date"}
	if _, err := parseDMORow(date, header); !errors.Is(err, ErrInvalidRow) {
		t.Errorf("header row: got %v", err)
	}

	linker := []string{"GB0008932666", "4 1/8% Index-linked Treasury Stock 2030", "290.1", "291.0", "", "", "", "22-Jul-2030"}
	if _, err := parseDMORow(date, linker); !errors.Is(err, types.ErrUnsupportedBond) {
		t.Errorf("index-linked row: got %v", err)
	}

	bad := []string{"GB00B128DP45", "4 1/4% Treasury Gilt 2046", "n/a", "", "", "", "", "bad date"}
	cq, err := parseDMORow(date, bad)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(cq.Err, types.ErrInvalidCleanPrice) {
		t.Errorf("got %v, want the first failure (clean price)", cq.Err)
	}

	collected := NewCollectedQuotes(SourceDMO, date)
	collected.AddQuote(cq)
	if len(collected.Failures) != 1 || len(collected.Quotes) != 0 {
		t.Errorf("failed quote not recorded as a failure")
	}
}
