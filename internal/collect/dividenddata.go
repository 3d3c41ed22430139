package collect

import (
	"benritz/bonds/internal/types"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

var (
	SourceDividendData = "DividendData"
)

var DividendDataURL = "https://www.dividenddata.co.uk/uk-gilts-prices-yields.py"

type DividendDataCollector struct {
	URL string
	Log logrus.FieldLogger
}

func NewDividendDataCollector(log logrus.FieldLogger) *DividendDataCollector {
	return &DividendDataCollector{
		URL: DividendDataURL,
		Log: log,
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (c *DividendDataCollector) Collect(ctx context.Context, date time.Time) (*CollectedQuotes, error) {
	x := colly.NewCollector()
	x.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	// the page is refreshed daily but may still show the previous day
	const datePrefix = "Last updated: "
	var dataTs time.Time

	x.OnHTML("label", func(e *colly.HTMLElement) {
		if s, ok := strings.CutPrefix(strings.TrimSpace(e.Text), datePrefix); ok {
			dataTs, _ = time.Parse("02 Jan 2006", s)
		}
	})

	collected := NewCollectedQuotes(SourceDividendData, date)

	x.OnHTML("#mainbody tr", func(e *colly.HTMLElement) {
		if cq := readDividendDataRow(date, e); cq != nil {
			collected.AddQuote(cq)
		}
	})

	log := c.Log.WithField("source", SourceDividendData)
	log.WithField("url", c.URL).Info("fetching prices")

	if err := x.Visit(c.URL); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if dataTs.IsZero() {
		return nil, types.ErrMissingSettlementDate
	}

	if !sameDay(dataTs, date) {
		log.WithField("page_date", dataTs.Format(time.DateOnly)).Warn("prices are not for the requested date")
		return nil, types.ErrDataUnavailable
	}

	log.WithField("quotes", len(collected.Quotes)).
		WithField("failures", len(collected.Failures)).
		Info("collected quotes")

	return collected, nil
}

func (c *DividendDataCollector) Source() string {
	return SourceDividendData
}

const (
	ddColTicker = iota
	ddColDesc
	ddColCoupon
	ddColMaturityDate
	ddColMaturityDuration
	ddColPrice
	ddColMaturityYield
)

func parsePercent(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
}

// readDividendDataRow returns nil for rows without cells (table headers).
func readDividendDataRow(date time.Time, e *colly.HTMLElement) *CollectedQuote {
	q := types.NewUKGilt(SourceDividendData, date)
	cq := &CollectedQuote{Quote: q}
	cells := 0

	e.ForEach("td", func(col int, el *colly.HTMLElement) {
		cells++
		text := strings.TrimSpace(el.Text)

		switch col {
		case ddColTicker:
			q.Ticker = text
			q.ISIN = text
			if q.Ticker == "" {
				cq.SetError(types.ErrInvalidTicker)
			}
		case ddColDesc:
			q.Desc = text
			if q.Desc == "" {
				cq.SetError(types.ErrInvalidDesc)
			}
		case ddColCoupon:
			if coupon, err := parsePercent(text); err == nil {
				q.Coupon = coupon
			} else {
				cq.SetError(types.ErrInvalidCoupon)
			}
		case ddColMaturityDate:
			if ts, err := time.Parse("02-Jan-2006", text); err == nil {
				q.MaturityDate = ts
			} else {
				cq.SetError(types.ErrInvalidMaturityDate)
			}
		case ddColMaturityDuration:
			// derived from the maturity date
		case ddColPrice:
			s := strings.TrimPrefix(strings.TrimPrefix(text, "Â"), "£")
			if price, err := strconv.ParseFloat(s, 64); err == nil {
				q.CleanPrice = price
			} else {
				cq.SetError(types.ErrInvalidCleanPrice)
			}
		case ddColMaturityYield:
			if y, err := parsePercent(text); err == nil {
				q.QuotedYield = y
			} else {
				cq.SetError(types.ErrInvalidYieldToMaturity)
			}
		}
	})

	if cells == 0 {
		return nil
	}

	return cq
}
