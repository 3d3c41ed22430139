package report

import (
	"fmt"
	"io"
	"strconv"

	"benritz/bonds/internal/collect"
	"benritz/bonds/internal/types"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// Money formats v with two decimals, rounding half away from zero. Float
// noise below 1e-8 is dropped first so 5236.874999999999 prints as 5236.88.
func Money(v float64) string {
	return decimal.NewFromFloat(v).Round(8).StringFixed(2)
}

// Percent formats a decimal rate as a percentage with two decimals.
func Percent(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', 2, 64) + "%"
}

// Write prints a human readable analysis of s.
func Write(w io.Writer, s types.BondSpec, r types.BondResults, taxRate float64) {
	tax := strconv.FormatFloat(taxRate*100, 'f', 1, 64) + "%"

	fmt.Fprintf(w, "\n=== BOND ANALYSIS ===\n")

	fmt.Fprintf(w, "\nYields:\n")
	fmt.Fprintf(w, "  Gross yield: %s\n", Percent(r.YieldRate))
	fmt.Fprintf(w, "  Net yield: %s (tax %s)\n", Percent(r.NetYieldRate), tax)
	if !r.Converged {
		fmt.Fprintf(w, "  Warning: yield did not converge after %d iterations, value is approximate\n", r.Iterations)
	}

	fmt.Fprintf(w, "\nDuration metrics:\n")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append([]string{"Duration (years)", strconv.FormatFloat(r.Duration, 'f', 2, 64)})
	table.Append([]string{"Modified duration", strconv.FormatFloat(r.ModifiedDuration, 'f', 2, 64)})
	table.Append([]string{"Convexity", strconv.FormatFloat(r.Convexity, 'f', 4, 64)})
	table.Render()

	fmt.Fprintf(w, "\nInvestment:\n")
	fmt.Fprintf(w, "  Nominal amount: %s\n", Money(s.Amount))
	fmt.Fprintf(w, "  Purchase price: %.2f%% of nominal\n", s.Price)
	fmt.Fprintf(w, "  Amount paid: %s\n", Money(r.PricePaid))

	fmt.Fprintf(w, "\nAt maturity:\n")
	fmt.Fprintf(w, "  Nominal redeemed: %s\n", Money(s.Amount))
	fmt.Fprintf(w, "  Gross coupons: %s\n", Money(r.TotalCoupons))
	fmt.Fprintf(w, "  Net coupons: %s (taxed at %s)\n", Money(r.NetCoupons), tax)

	switch {
	case r.CapitalGain > 0:
		fmt.Fprintf(w, "  Gross capital gain: %s\n", Money(r.CapitalGain))
		fmt.Fprintf(w, "  Net capital gain: %s (taxed at %s)\n", Money(r.NetCapitalGain), tax)
	case r.CapitalGain < 0:
		fmt.Fprintf(w, "  Capital loss: %s (not taxed)\n", Money(r.CapitalGain))
	}

	fmt.Fprintf(w, "  Gross total: %s\n", Money(r.GrossTotalAtMaturity(s)))
	fmt.Fprintf(w, "  Net total: %s\n", Money(r.NetTotalAtMaturity))
	fmt.Fprintf(w, "  Net return: %s\n", Money(r.NetTotalAtMaturity-r.PricePaid))

	fmt.Fprintf(w, "\nInterest rate sensitivity:\n")
	fmt.Fprintf(w, "  +1 basis point (0.01%%): %s\n", Money(r.Sensitivity1bp))
	fmt.Fprintf(w, "  +100 basis points (1%%): %s\n", Money(r.Sensitivity100bp))
}

// WriteBatch prints one row per analysed record.
func WriteBatch(w io.Writer, records []collect.Record) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ISIN", "Description", "Price", "Coupon", "Years", "Yield", "Net yield", "Duration", "Mod. duration", "Convexity", "Status"})
	table.SetAutoWrapText(false)

	for _, rec := range records {
		status := "ok"
		switch {
		case rec.Error != "":
			status = rec.Error
		case !rec.Converged:
			status = "not converged"
		}

		if rec.Error != "" {
			table.Append([]string{rec.ISIN, rec.Desc, strconv.FormatFloat(rec.Price, 'f', 2, 64), "", "", "", "", "", "", "", status})
			continue
		}

		table.Append([]string{
			rec.ISIN,
			rec.Desc,
			strconv.FormatFloat(rec.Price, 'f', 2, 64),
			Percent(rec.CouponRate),
			strconv.Itoa(rec.MaturityYears),
			Percent(rec.YieldRate),
			Percent(rec.NetYieldRate),
			strconv.FormatFloat(rec.Duration, 'f', 2, 64),
			strconv.FormatFloat(rec.ModifiedDuration, 'f', 2, 64),
			strconv.FormatFloat(rec.Convexity, 'f', 4, 64),
			status,
		})
	}

	table.Render()
}
