package extractor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jeovahfialho/stock-etl/internal/domain"
	"github.com/jeovahfialho/stock-etl/internal/provider"
	"github.com/jeovahfialho/stock-etl/internal/validation"
	"github.com/jeovahfialho/stock-etl/pkg/errors"
	"github.com/jeovahfialho/stock-etl/pkg/metrics"
)

// DefaultDaysOfHistory is the window used when the caller passes zero.
const DefaultDaysOfHistory = 2

//go:generate mockgen -destination=mock_provider_test.go -package=extractor_test github.com/jeovahfialho/stock-etl/internal/provider Provider

// Validator checks a normalized table.
type Validator interface {
	Validate(table domain.PriceTable) (bool, validation.Report)
}

// Extractor fetches one symbol's recent daily prices, normalizes and
// validates them. Every failure is logged here and returned as an error;
// callers treat any error as "no table for this symbol".
type Extractor struct {
	provider  provider.Provider
	validator Validator
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Extractor)

// WithClock replaces time.Now as the end of the fetch window.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

func New(p provider.Provider, v Validator, logger *zap.Logger, options ...Option) *Extractor {
	e := &Extractor{
		provider:  p,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Fetch returns the validated price table for symbol over the last
// daysOfHistory days.
func (e *Extractor) Fetch(ctx context.Context, symbol string, daysOfHistory int) (table domain.PriceTable, err error) {
	if daysOfHistory <= 0 {
		daysOfHistory = DefaultDaysOfHistory
	}

	defer func() {
		if r := recover(); r != nil {
			table = domain.PriceTable{}
			err = errors.Newf(errors.ErrCodeProviderFetchFailed, "panic while fetching %s: %v", symbol, r)
		}
		if err != nil && !errors.HasCode(err, errors.ErrCodeValidationFailed) {
			e.logger.Error("error fetching data",
				zap.String("symbol", symbol),
				zap.Stringer("code", errors.GetCode(err)),
				zap.Error(err))
		}
	}()

	end := e.now()
	start := end.AddDate(0, 0, -daysOfHistory)

	e.logger.Debug("fetching history",
		zap.String("symbol", symbol),
		zap.String("provider", e.provider.Name()),
		zap.Time("start", start),
		zap.Time("end", end))

	timer := metrics.NewTimer()
	records, err := e.provider.History(ctx, symbol, start, end, provider.IntervalDaily)
	timer.ObserveDuration(metrics.FetchDuration.WithLabelValues(e.provider.Name()))
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeUnknown {
			err = errors.Wrapf(errors.ErrCodeProviderFetchFailed, err, "%s history for %s", e.provider.Name(), symbol)
		}
		return domain.PriceTable{}, err
	}
	if len(records) == 0 {
		// A window with no trading days is a valid, empty table; saving it
		// clears the destination.
		e.logger.Warn("no rows returned",
			zap.String("symbol", symbol),
			zap.Time("start", start),
			zap.Time("end", end))
	}

	table, err = Normalize(symbol, records)
	if err != nil {
		return domain.PriceTable{}, err
	}

	valid, report := e.validator.Validate(table)
	if !valid {
		for _, check := range report.Failed() {
			metrics.RecordValidationFailure(check)
		}
		e.logger.Error("data validation failed",
			zap.String("symbol", symbol),
			zap.Object("report", report))
		return domain.PriceTable{}, errors.Newf(errors.ErrCodeValidationFailed,
			"data validation failed for %s: %s", symbol, report)
	}

	e.logger.Debug("fetched history",
		zap.String("symbol", symbol),
		zap.Int("rows", table.Len()))

	return table, nil
}
