package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/jeovahfialho/stock-etl/internal/domain"
	"github.com/jeovahfialho/stock-etl/pkg/errors"
	"github.com/jeovahfialho/stock-etl/pkg/metrics"
)

const (
	Schema = "stock_data"
	Table  = "daily_prices"
)

var tableIdentifier = pgx.Identifier{Schema, Table}

// Column types follow what a dataframe writer emits for the canonical columns.
var createTableSQL = fmt.Sprintf(`CREATE TABLE %s (
	symbol TEXT,
	date TIMESTAMP,
	open DOUBLE PRECISION,
	high DOUBLE PRECISION,
	low DOUBLE PRECISION,
	close DOUBLE PRECISION,
	volume BIGINT
)`, tableIdentifier.Sanitize())

// Conn is the subset of *pgxpool.Pool the store needs.
//
//go:generate mockgen -package=postgres -destination=mock_conn_test.go -source=price_store.go Conn
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PriceStore owns stock_data.daily_prices. Every write replaces the whole
// table.
type PriceStore struct {
	conn   Conn
	logger *zap.Logger
	sq     sq.StatementBuilderType
}

func NewPriceStore(conn Conn, logger *zap.Logger) *PriceStore {
	return &PriceStore{
		conn:   conn,
		logger: logger,
		sq:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Save replaces the destination table with exactly the rows of table.
func (s *PriceStore) Save(ctx context.Context, table domain.PriceTable) bool {
	return s.SaveAll(ctx, []domain.PriceTable{table})
}

// SaveAll replaces the destination table with the union of tables. It
// reports success as a bool; failures are logged here and never panic.
func (s *PriceStore) SaveAll(ctx context.Context, tables []domain.PriceTable) (ok bool) {
	symbols := make([]string, 0, len(tables))
	for _, t := range tables {
		symbols = append(symbols, t.Symbol)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while saving prices",
				zap.Strings("symbols", symbols),
				zap.Any("panic", r))
			ok = false
		}
	}()

	timer := metrics.NewTimer()
	written, err := s.replace(ctx, tables)
	timer.ObserveDuration(metrics.SaveDuration)
	if err != nil {
		metrics.RecordDatabaseQuery("replace", "error")
		s.logger.Error("error saving data to database",
			zap.Strings("symbols", symbols),
			zap.Error(err))
		return false
	}

	metrics.RecordDatabaseQuery("replace", "success")
	metrics.RecordRowsWritten(int(written))
	s.logger.Debug("replaced destination table",
		zap.String("table", tableIdentifier.Sanitize()),
		zap.Strings("symbols", symbols),
		zap.Int64("rows", written))

	return true
}

func (s *PriceStore) replace(ctx context.Context, tables []domain.PriceTable) (int64, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodePersistFailed, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	statements := []string{
		"CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{Schema}.Sanitize(),
		"DROP TABLE IF EXISTS " + tableIdentifier.Sanitize(),
		createTableSQL,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, errors.Wrapf(errors.ErrCodePersistFailed, err, "failed to execute %q", stmt)
		}
	}

	count, err := tx.CopyFrom(ctx, tableIdentifier, domain.Columns, newPriceSource(tables))
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodePersistFailed, "copy failed", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(errors.ErrCodePersistFailed, "commit failed", err)
	}

	return count, nil
}

// priceSource streams the rows of several tables into CopyFrom.
type priceSource struct {
	rows  []domain.PriceRow
	index int
}

func newPriceSource(tables []domain.PriceTable) *priceSource {
	var rows []domain.PriceRow
	for _, t := range tables {
		rows = append(rows, t.Rows...)
	}
	return &priceSource{rows: rows}
}

func (ps *priceSource) Next() bool {
	ps.index++
	return ps.index <= len(ps.rows)
}

func (ps *priceSource) Values() ([]any, error) {
	if ps.index > len(ps.rows) {
		return nil, nil
	}
	return ps.rows[ps.index-1].Values(), nil
}

func (ps *priceSource) Err() error {
	return nil
}

// Query returns the persisted rows of symbol ordered by date, optionally
// bounded by start and end (inclusive).
func (s *PriceStore) Query(ctx context.Context, symbol string, start, end optional.Option[time.Time]) ([]domain.DailyPrice, error) {
	query, args, err := s.selectPrices(symbol, start, end).ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		metrics.RecordDatabaseQuery("select", "error")
		if missingTable(err) {
			return []domain.DailyPrice{}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query prices", err)
	}

	prices, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.DailyPrice])
	if err != nil {
		metrics.RecordDatabaseQuery("select", "error")
		if missingTable(err) {
			return []domain.DailyPrice{}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan prices", err)
	}

	metrics.RecordDatabaseQuery("select", "success")
	return prices, nil
}

func (s *PriceStore) selectPrices(symbol string, start, end optional.Option[time.Time]) sq.SelectBuilder {
	builder := s.sq.
		Select(
			"symbol", "date",
			"COALESCE(open, 0) AS open",
			"COALESCE(high, 0) AS high",
			"COALESCE(low, 0) AS low",
			"COALESCE(close, 0) AS close",
			"COALESCE(volume, 0) AS volume",
		).
		From(tableIdentifier.Sanitize()).
		Where(sq.Eq{"symbol": symbol}).
		OrderBy("date ASC")

	if start.IsSome() {
		builder = builder.Where(sq.GtOrEq{"date": start.Unwrap()})
	}
	if end.IsSome() {
		builder = builder.Where(sq.LtOrEq{"date": end.Unwrap()})
	}
	return builder
}

// Summary aggregates the persisted rows of symbol. A symbol with no rows
// yields a summary with Days == 0.
func (s *PriceStore) Summary(ctx context.Context, symbol string) (domain.PriceSummary, error) {
	query, args, err := s.selectSummary(symbol).ToSql()
	if err != nil {
		return domain.PriceSummary{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	summary := domain.PriceSummary{Symbol: symbol}
	var first, last *time.Time
	var minLow, maxHigh, avgClose *float64
	var volume *int64
	err = s.conn.QueryRow(ctx, query, args...).Scan(
		&summary.Days, &first, &last, &minLow, &maxHigh, &avgClose, &volume,
	)
	if err != nil {
		metrics.RecordDatabaseQuery("summary", "error")
		if missingTable(err) {
			return summary, nil
		}
		return domain.PriceSummary{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to summarize prices", err)
	}
	metrics.RecordDatabaseQuery("summary", "success")

	if first != nil {
		summary.FirstDate = *first
	}
	if last != nil {
		summary.LastDate = *last
	}
	if minLow != nil {
		summary.MinLow = *minLow
	}
	if maxHigh != nil {
		summary.MaxHigh = *maxHigh
	}
	if avgClose != nil {
		summary.AvgClose = *avgClose
	}
	if volume != nil {
		summary.TotalVolume = *volume
	}
	return summary, nil
}

func (s *PriceStore) selectSummary(symbol string) sq.SelectBuilder {
	return s.sq.
		Select(
			"COUNT(*)",
			"MIN(date)",
			"MAX(date)",
			"MIN(low)",
			"MAX(high)",
			"AVG(close)",
			"SUM(volume)::BIGINT",
		).
		From(tableIdentifier.Sanitize()).
		Where(sq.Eq{"symbol": symbol})
}

// missingTable reports whether err is Postgres' undefined_table, which
// happens before the first successful run.
func missingTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
