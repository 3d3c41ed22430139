package collect

import (
	"benritz/bonds/internal/types"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pbnjay/grate"
	"github.com/sirupsen/logrus"
)

var SourceDMO = "DMO"

// DMOReportURL is the D10B (gilt reference prices) export of the UK Debt
// Management Office.
var DMOReportURL = "https://www.dmo.gov.uk/umbraco/surface/DataExport/GetDataExport?reportCode=D10B&exportFormatValue=xls&parameters="

type DMOCollector struct {
	Client *http.Client
	Log    logrus.FieldLogger
}

func NewDMOCollector(log logrus.FieldLogger) *DMOCollector {
	return &DMOCollector{
		Client: &http.Client{Timeout: time.Minute},
		Log:    log,
	}
}

func (c *DMOCollector) Collect(ctx context.Context, date time.Time) (*CollectedQuotes, error) {
	params := fmt.Sprintf("&Trade Date=%02d-%02d-%04d", date.Day(), date.Month(), date.Year())
	reportURL := DMOReportURL + url.QueryEscape(params)

	log := c.Log.WithField("source", SourceDMO)
	log.WithField("url", reportURL).Info("fetching report")

	path, err := c.download(ctx, reportURL)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	wb, err := grate.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	collected := NewCollectedQuotes(SourceDMO, date)

	sheets, err := wb.List()
	if err != nil {
		return nil, err
	}

	for _, sheetName := range sheets {
		sheet, err := wb.Get(sheetName)
		if err != nil {
			return nil, err
		}

		for sheet.Next() {
			cq, err := parseDMORow(date, sheet.Strings())
			if err != nil {
				continue
			}
			collected.AddQuote(cq)
		}
	}

	if len(collected.Quotes)+len(collected.Failures) == 0 {
		return nil, types.ErrDataUnavailable
	}

	log.WithField("quotes", len(collected.Quotes)).
		WithField("failures", len(collected.Failures)).
		Info("collected quotes")

	return collected, nil
}

func (c *DMOCollector) download(ctx context.Context, reportURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reportURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get data: http %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "gilts-*.xls")
	if err != nil {
		return "", err
	}

	size, err := io.Copy(tmp, resp.Body)
	tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	c.Log.WithField("bytes", size).WithField("path", tmp.Name()).Debug("downloaded report")

	return tmp.Name(), nil
}

func (c *DMOCollector) Source() string {
	return SourceDMO
}

// D10B columns
const (
	dmoColISIN         = 0
	dmoColDesc         = 1
	dmoColCleanPrice   = 2
	dmoColMaturityDate = 7
)

// parseDMORow returns ErrInvalidRow for header and blank rows; problems with
// a gilt row are recorded on the returned quote instead.
func parseDMORow(date time.Time, row []string) (*CollectedQuote, error) {
	if len(row) <= dmoColMaturityDate {
		return nil, ErrInvalidRow
	}

	isin := strings.TrimSpace(row[dmoColISIN])
	if !strings.HasPrefix(isin, "GB") {
		return nil, ErrInvalidRow
	}

	q := types.NewUKGilt(SourceDMO, date)
	q.ISIN = isin
	q.Desc = strings.TrimSpace(row[dmoColDesc])

	// index-linked gilts have inflation adjusted cash flows
	if strings.Contains(strings.ToLower(q.Desc), "index-linked") {
		return nil, types.ErrUnsupportedBond
	}

	cq := &CollectedQuote{Quote: q}

	if coupon, err := parseCouponPercentage(q.Desc); err == nil {
		q.Coupon = coupon
	} else {
		cq.SetError(types.ErrInvalidCoupon)
	}

	if price, err := strconv.ParseFloat(strings.TrimSpace(row[dmoColCleanPrice]), 64); err == nil {
		q.CleanPrice = price
	} else {
		cq.SetError(types.ErrInvalidCleanPrice)
	}

	if ts, err := time.Parse("02-Jan-2006", strings.TrimSpace(row[dmoColMaturityDate])); err == nil {
		q.MaturityDate = ts
	} else {
		cq.SetError(types.ErrInvalidMaturityDate)
	}

	return cq, nil
}

var couponPattern = regexp.MustCompile(`^(\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?|\d[¼½¾])%`)

var vulgarFractions = map[string]string{
	"¼": " 1/4",
	"½": " 1/2",
	"¾": " 3/4",
}

// parseCouponPercentage reads the leading coupon of a gilt description:
//
//	0 5/8% Treasury Gilt 2025
//	2% Treasury Gilt 2025
//	3½% Treasury Gilt 2025
func parseCouponPercentage(desc string) (float64, error) {
	match := couponPattern.FindStringSubmatch(desc)
	if len(match) < 2 {
		return 0, types.ErrInvalidCoupon
	}

	m := match[1]
	for sym, frac := range vulgarFractions {
		if strings.HasSuffix(m, sym) {
			m = strings.TrimSuffix(m, sym) + frac
			break
		}
	}

	parts := strings.Fields(m)
	whole, fraction := "0", parts[len(parts)-1]

	switch {
	case len(parts) == 2:
		whole = parts[0]
	case !strings.Contains(fraction, "/"):
		v, err := strconv.ParseFloat(fraction, 64)
		if err != nil {
			return 0, types.ErrInvalidCoupon
		}
		return v, nil
	}

	w, err := strconv.Atoi(whole)
	if err != nil {
		return 0, types.ErrInvalidCoupon
	}

	f, err := parseFraction(fraction)
	if err != nil {
		return 0, err
	}

	return float64(w) + f, nil
}

func parseFraction(s string) (float64, error) {
	numStr, denStr, ok := strings.Cut(s, "/")
	if !ok {
		return 0, types.ErrInvalidCoupon
	}

	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, types.ErrInvalidCoupon
	}

	den, err := strconv.Atoi(denStr)
	if err != nil || den == 0 {
		return 0, types.ErrInvalidCoupon
	}

	return float64(num) / float64(den), nil
}
