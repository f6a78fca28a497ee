package etl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeovahfialho/stock-etl/internal/config"
	"github.com/jeovahfialho/stock-etl/internal/domain"
	"github.com/jeovahfialho/stock-etl/pkg/metrics"
)

// DefaultSymbols is the symbol list processed when none is configured.
var DefaultSymbols = []string{"AAPL", "GOOGL", "MSFT"}

//go:generate mockgen -package=etl_test -destination=mock_pipeline_test.go -source=pipeline.go Fetcher Saver

// Fetcher returns a validated table for one symbol, or an error it has
// already logged.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, daysOfHistory int) (domain.PriceTable, error)
}

// Saver replaces the destination table.
type Saver interface {
	Save(ctx context.Context, table domain.PriceTable) bool
	SaveAll(ctx context.Context, tables []domain.PriceTable) bool
}

// Summary describes one run.
type Summary struct {
	RunID string
	// Processed symbols were fetched and written.
	Processed []string
	// Skipped symbols produced no table.
	Skipped []string
	// Failed symbols produced a table that could not be written.
	Failed      []string
	RowsWritten int
	Duration    time.Duration
}

// Failures counts symbols that did not reach the destination.
func (s Summary) Failures() int {
	return len(s.Skipped) + len(s.Failed)
}

type Pipeline struct {
	fetcher   Fetcher
	saver     Saver
	symbols   []string
	days      int
	writeMode string
	logger    *zap.Logger
}

type Option func(*Pipeline)

func WithSymbols(symbols ...string) Option {
	return func(p *Pipeline) {
		if len(symbols) > 0 {
			p.symbols = symbols
		}
	}
}

func WithDaysOfHistory(days int) Option {
	return func(p *Pipeline) {
		p.days = days
	}
}

// WithWriteMode selects config.WriteModePerSymbol or config.WriteModeBatch.
func WithWriteMode(mode string) Option {
	return func(p *Pipeline) {
		p.writeMode = mode
	}
}

func NewPipeline(fetcher Fetcher, saver Saver, logger *zap.Logger, options ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:   fetcher,
		saver:     saver,
		symbols:   DefaultSymbols,
		writeMode: config.WriteModePerSymbol,
		logger:    logger,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Run processes every symbol once, in order. A failure on one symbol never
// stops the others.
func (p *Pipeline) Run(ctx context.Context) Summary {
	timer := metrics.NewTimer()
	summary := Summary{RunID: uuid.NewString()}
	logger := p.logger.With(zap.String("run_id", summary.RunID))

	logger.Info("starting run",
		zap.Strings("symbols", p.symbols),
		zap.String("write_mode", p.writeMode))

	var pending []domain.PriceTable
	for _, symbol := range p.symbols {
		if err := ctx.Err(); err != nil {
			logger.Warn("run interrupted", zap.String("symbol", symbol), zap.Error(err))
			summary.Skipped = append(summary.Skipped, symbol)
			metrics.RecordSymbol("skipped")
			continue
		}

		table, err := p.fetcher.Fetch(ctx, symbol, p.days)
		if err != nil {
			summary.Skipped = append(summary.Skipped, symbol)
			metrics.RecordSymbol("skipped")
			continue
		}

		if p.writeMode == config.WriteModeBatch {
			pending = append(pending, table)
			continue
		}

		if p.saver.Save(ctx, table) {
			p.processed(logger, &summary, table)
		} else {
			p.failed(logger, &summary, table.Symbol)
		}
	}

	if len(pending) > 0 && ctx.Err() != nil {
		// Fetched but never written: the destination still holds the previous run.
		for _, table := range pending {
			logger.Warn("run interrupted before batch write", zap.String("symbol", table.Symbol), zap.Error(ctx.Err()))
			summary.Skipped = append(summary.Skipped, table.Symbol)
			metrics.RecordSymbol("skipped")
		}
		pending = nil
	}

	if len(pending) > 0 {
		if p.saver.SaveAll(ctx, pending) {
			for _, table := range pending {
				p.processed(logger, &summary, table)
			}
		} else {
			for _, table := range pending {
				p.failed(logger, &summary, table.Symbol)
			}
		}
	}

	summary.Duration = timer.Elapsed()
	logger.Info("run finished",
		zap.Strings("processed", summary.Processed),
		zap.Strings("skipped", summary.Skipped),
		zap.Strings("failed", summary.Failed),
		zap.Int("rows", summary.RowsWritten),
		zap.Duration("duration", summary.Duration))

	return summary
}

func (p *Pipeline) processed(logger *zap.Logger, summary *Summary, table domain.PriceTable) {
	summary.Processed = append(summary.Processed, table.Symbol)
	summary.RowsWritten += table.Len()
	metrics.RecordSymbol("processed")
	logger.Info("successfully processed",
		zap.String("symbol", table.Symbol),
		zap.Int("rows", table.Len()))
}

func (p *Pipeline) failed(logger *zap.Logger, summary *Summary, symbol string) {
	summary.Failed = append(summary.Failed, symbol)
	metrics.RecordSymbol("failed")
	logger.Error("failed to save data", zap.String("symbol", symbol))
}
