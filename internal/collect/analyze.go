package collect

import (
	"time"

	"benritz/bonds/internal/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Record is one analysed bond as stored in parquet.
type Record struct {
	ID              string    `parquet:"id"`
	Source          string    `parquet:"source"`
	ISIN            string    `parquet:"isin"`
	Desc            string    `parquet:"desc"`
	SettlementDate  time.Time `parquet:"settlement_date"`
	Price           float64   `parquet:"price"`
	FaceValue       float64   `parquet:"face_value"`
	CouponRate      float64   `parquet:"coupon_rate"`
	MaturityYears   int       `parquet:"maturity_years"`
	PaymentsPerYear int       `parquet:"payments_per_year"`
	Amount          float64   `parquet:"amount"`
	// QuotedYield is the yield published by the source, in percent, when available.
	QuotedYield float64 `parquet:"quoted_yield"`

	YieldRate          float64 `parquet:"yield_rate"`
	NetYieldRate       float64 `parquet:"net_yield_rate"`
	Duration           float64 `parquet:"duration"`
	ModifiedDuration   float64 `parquet:"modified_duration"`
	Convexity          float64 `parquet:"convexity"`
	NetTotalAtMaturity float64 `parquet:"net_total_at_maturity"`
	Sensitivity1bp     float64 `parquet:"sensitivity_1bp"`
	Converged          bool    `parquet:"converged"`
	Iterations         int     `parquet:"iterations"`
	Error              string  `parquet:"error"`
}

func newRecord(source string, date time.Time, s types.BondSpec) Record {
	return Record{
		ID:              uuid.NewString(),
		Source:          source,
		SettlementDate:  date,
		Price:           s.Price,
		FaceValue:       s.FaceValue,
		CouponRate:      s.CouponRate,
		MaturityYears:   s.MaturityYears,
		PaymentsPerYear: s.PaymentsPerYear,
		Amount:          s.Amount,
	}
}

// analyze fills the results of s into rec. Failures are kept on the record
// rather than dropping the bond from the batch.
func analyze(rec *Record, s types.BondSpec, p types.Params, log logrus.FieldLogger) {
	r, err := types.Analyze(s, p)
	if err != nil {
		rec.Error = err.Error()
		log.WithError(err).WithField("isin", rec.ISIN).Warn("failed to analyse bond")
		return
	}

	if !r.Converged {
		log.WithField("isin", rec.ISIN).
			WithField("iterations", r.Iterations).
			Warn("maximum number of iterations reached while solving the yield")
	}

	rec.YieldRate = r.YieldRate
	rec.NetYieldRate = r.NetYieldRate
	rec.Duration = r.Duration
	rec.ModifiedDuration = r.ModifiedDuration
	rec.Convexity = r.Convexity
	rec.NetTotalAtMaturity = r.NetTotalAtMaturity
	rec.Sensitivity1bp = r.Sensitivity1bp
	rec.Converged = r.Converged
	rec.Iterations = r.Iterations
}

// Analyze values every collected quote as a purchase of amount nominal.
func Analyze(collected *CollectedQuotes, p types.Params, amount float64, log logrus.FieldLogger) *Batch {
	batch := &Batch{
		Source:         collected.Source,
		SettlementDate: collected.SettlementDate,
		Records:        make([]Record, 0, len(collected.Quotes)),
	}

	for _, q := range collected.Quotes {
		s, err := q.Spec(amount)

		rec := newRecord(collected.Source, collected.SettlementDate, s)
		rec.ISIN = q.ISIN
		rec.Desc = q.Desc
		rec.QuotedYield = q.QuotedYield

		if err != nil {
			rec.Error = err.Error()
			log.WithError(err).WithField("isin", q.ISIN).Warn("skipping quote")
		} else {
			analyze(&rec, s, p, log)
		}

		batch.Records = append(batch.Records, rec)
	}

	log.WithFields(logrus.Fields{
		"source":   collected.Source,
		"quotes":   len(collected.Quotes),
		"failures": len(collected.Failures),
	}).Info("analysed collected quotes")

	return batch
}

// AnalyzeSpecs values rows loaded from a spreadsheet.
func AnalyzeSpecs(source string, date time.Time, rows []SpecRow, p types.Params, log logrus.FieldLogger) *Batch {
	batch := &Batch{
		Source:         source,
		SettlementDate: date,
		Records:        make([]Record, 0, len(rows)),
	}

	for _, row := range rows {
		rec := newRecord(source, date, row.Spec)
		rec.ISIN = row.Name

		if row.Err != nil {
			rec.Error = row.Err.Error()
		} else {
			analyze(&rec, row.Spec, p, log)
		}

		batch.Records = append(batch.Records, rec)
	}

	return batch
}
