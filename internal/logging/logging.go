package logging

import (
	"io"
	"os"

	"benritz/bonds/internal/config"
	"benritz/bonds/internal/types"

	"github.com/sirupsen/logrus"
)

// New builds the logger shared by the binaries. Unknown levels fall back to info.
func New(cfg config.LogConfig) *logrus.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

func NewWithOutput(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// SpecFields attaches the inputs of a valuation to a log entry.
func SpecFields(s types.BondSpec) logrus.Fields {
	return logrus.Fields{
		"price":             s.Price,
		"face_value":        s.FaceValue,
		"coupon_rate":       s.CouponRate,
		"maturity_years":    s.MaturityYears,
		"payments_per_year": s.PaymentsPerYear,
		"amount":            s.Amount,
	}
}

// WarnIfUnconverged logs a warning when the yield of r is a best effort value.
func WarnIfUnconverged(log logrus.FieldLogger, s types.BondSpec, r types.BondResults) {
	if r.Converged {
		return
	}
	log.WithFields(SpecFields(s)).
		WithField("iterations", r.Iterations).
		WithField("yield_rate", r.YieldRate).
		Warn("maximum number of iterations reached while solving the yield")
}
