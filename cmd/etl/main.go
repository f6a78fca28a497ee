package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/moznion/go-optional"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeovahfialho/stock-etl/internal/config"
	"github.com/jeovahfialho/stock-etl/internal/etl"
	"github.com/jeovahfialho/stock-etl/internal/extractor"
	"github.com/jeovahfialho/stock-etl/internal/httpx"
	"github.com/jeovahfialho/stock-etl/internal/provider"
	"github.com/jeovahfialho/stock-etl/internal/provider/polygon"
	"github.com/jeovahfialho/stock-etl/internal/provider/ratelimit"
	"github.com/jeovahfialho/stock-etl/internal/provider/yahoo"
	"github.com/jeovahfialho/stock-etl/internal/service"
	"github.com/jeovahfialho/stock-etl/internal/storage/cache"
	"github.com/jeovahfialho/stock-etl/internal/storage/postgres"
	"github.com/jeovahfialho/stock-etl/internal/validation"
	"github.com/jeovahfialho/stock-etl/pkg/errors"
	"github.com/jeovahfialho/stock-etl/pkg/logger"
	"github.com/jeovahfialho/stock-etl/pkg/metrics"
)

const metricsJob = "stock_etl"

// errPartialFailure makes the process exit 1 without printing anything
// beyond what the run already logged.
var errPartialFailure = errors.New(errors.ErrCodeUnknown, "one or more symbols failed")

func main() {
	rootCmd := &cobra.Command{
		Use:   "stock-etl",
		Short: "Daily stock price ETL",
		Long: `Fetches recent daily OHLCV bars for a fixed symbol list, validates them
and replaces stock_data.daily_prices in PostgreSQL.
Running without a subcommand performs exactly one pass.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), runETL)
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check database and Redis connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), checkHealth)
		},
	}

	queryCmd := newQueryCmd(func(ctx context.Context, symbol, start, end string) error {
		return withRuntime(ctx, func(ctx context.Context, rt *app) error {
			return queryPrices(ctx, rt, symbol, start, end)
		})
	})

	rootCmd.AddCommand(healthCmd, queryCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if err != errPartialFailure {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// newQueryCmd builds the query subcommand; run receives the symbol and the
// raw date flags.
func newQueryCmd(run func(ctx context.Context, symbol, start, end string) error) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "query [symbol]",
		Short: "Print persisted rows of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], start, end)
		},
	}
	cmd.Flags().StringVarP(&start, "start", "s", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&end, "end", "e", "", "End date (YYYY-MM-DD)")
	return cmd
}

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *postgres.DB
}

// withRuntime loads configuration, builds the logger and opens the
// database before calling fn. Configuration errors stop here, before any
// symbol is processed.
func withRuntime(ctx context.Context, fn func(context.Context, *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close(log)

	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return err
	}
	defer db.Close()

	return fn(ctx, &app{cfg: cfg, logger: log, db: db})
}

func runETL(ctx context.Context, rt *app) error {
	p, err := buildProvider(rt.cfg)
	if err != nil {
		rt.logger.Error("failed to build provider", zap.Error(err))
		return err
	}

	store := postgres.NewPriceStore(rt.db.Pool(), rt.logger)
	ext := extractor.New(p, validation.NewValidator(), rt.logger)
	pipeline := etl.NewPipeline(ext, store, rt.logger,
		etl.WithSymbols(rt.cfg.Symbols...),
		etl.WithDaysOfHistory(rt.cfg.DaysOfHistory),
		etl.WithWriteMode(rt.cfg.WriteMode))

	summary := pipeline.Run(ctx)

	if summary.RowsWritten > 0 {
		invalidateCache(ctx, rt)
	}

	if rt.cfg.PushgatewayURL != "" {
		if err := metrics.Push(ctx, rt.cfg.PushgatewayURL, metricsJob); err != nil {
			rt.logger.Warn("failed to push metrics", zap.String("url", rt.cfg.PushgatewayURL), zap.Error(err))
		}
	}

	if exitCode(summary, rt.cfg.StrictExit) != 0 {
		return errPartialFailure
	}
	return nil
}

// buildProvider returns the configured market-data provider behind the
// minimum-interval limiter.
func buildProvider(cfg *config.Config) (provider.Provider, error) {
	var p provider.Provider
	switch cfg.Provider {
	case config.ProviderYahoo:
		p = yahoo.New(
			yahoo.WithBaseURL(cfg.YahooBaseURL),
			yahoo.WithHTTPClient(httpx.New(cfg.ProviderTimeout)),
		)
	case config.ProviderPolygon:
		client, err := polygon.New(cfg.PolygonAPIKey)
		if err != nil {
			return nil, err
		}
		p = client
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unknown provider %q", cfg.Provider)
	}

	if cfg.ProviderMinInterval > 0 {
		p = ratelimit.New(p, cfg.ProviderMinInterval)
	}
	return p, nil
}

// exitCode is 0 unless strict is set and some symbol did not reach the
// destination.
func exitCode(summary etl.Summary, strict bool) int {
	if strict && summary.Failures() > 0 {
		return 1
	}
	return 0
}

// invalidateCache drops cached API responses after a write. Redis is
// optional; failures are logged only.
func invalidateCache(ctx context.Context, rt *app) {
	redisCache, err := cache.NewRedisCache(ctx, rt.cfg.RedisURL, rt.cfg.CacheTTL)
	if err != nil {
		rt.logger.Debug("redis not available, skipping cache invalidation", zap.Error(err))
		return
	}
	defer redisCache.Close()

	deleted, err := redisCache.DeletePattern(ctx, service.CacheKeyPrefix+"*")
	if err != nil {
		rt.logger.Warn("failed to invalidate cache", zap.Error(err))
		return
	}
	rt.logger.Debug("invalidated cache", zap.Int("keys", deleted))
}

func checkHealth(ctx context.Context, rt *app) error {
	fmt.Print("PostgreSQL: ")
	if err := rt.db.HealthCheck(ctx); err != nil {
		fmt.Printf("error: %v\n", err)
	} else {
		fmt.Println("OK")
	}

	fmt.Print("Redis: ")
	redisCache, err := cache.NewRedisCache(ctx, rt.cfg.RedisURL, rt.cfg.CacheTTL)
	if err != nil {
		fmt.Printf("not available: %v\n", err)
		return nil
	}
	defer redisCache.Close()
	fmt.Println("OK")

	return nil
}

func queryPrices(ctx context.Context, rt *app, symbol, startStr, endStr string) error {
	start, err := parseDate(startStr)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	end, err := parseDate(endStr)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	store := postgres.NewPriceStore(rt.db.Pool(), rt.logger)
	prices, err := store.Query(ctx, symbol, start, end)
	if err != nil {
		return err
	}

	if len(prices) == 0 {
		fmt.Printf("no rows for %s\n", symbol)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "symbol\tdate\topen\thigh\tlow\tclose\tvolume\t")
	for _, p := range prices {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%d\t\n",
			p.Symbol, p.Date.Format(time.DateOnly), p.Open, p.High, p.Low, p.Close, p.Volume)
	}
	return w.Flush()
}

func parseDate(value string) (optional.Option[time.Time], error) {
	if value == "" {
		return optional.None[time.Time](), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return optional.None[time.Time](), err
	}
	return optional.Some(t), nil
}
