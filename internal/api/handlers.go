package api

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jeovahfialho/stock-etl/internal/domain"
	"github.com/jeovahfialho/stock-etl/internal/service"
	"github.com/jeovahfialho/stock-etl/pkg/errors"
)

const version = "1.0.0"

type PriceReader interface {
	GetPrices(ctx context.Context, filter domain.PriceFilter) ([]domain.DailyPrice, bool, error)
	GetSummary(ctx context.Context, symbol string) (domain.PriceSummary, error)
}

type Database interface {
	HealthCheck(ctx context.Context) error
	Stats() *pgxpool.Stat
}

type Cache interface {
	HealthCheck(ctx context.Context) error
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

type Handler struct {
	db     Database
	cache  Cache
	prices PriceReader
	logger *zap.Logger
}

// NewHandler wires the HTTP handlers. cache may be nil when Redis is
// unavailable.
func NewHandler(db Database, cache Cache, prices PriceReader, logger *zap.Logger) *Handler {
	return &Handler{
		db:     db,
		cache:  cache,
		prices: prices,
		logger: logger,
	}
}

// GetPrices godoc
// @Summary Persisted daily prices of a symbol
// @Param symbol path string true "Ticker symbol"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} PricesResponse
// @Router /prices/{symbol} [get]
func (h *Handler) GetPrices(c *fiber.Ctx) error {
	start := time.Now()
	symbol := strings.ToUpper(c.Params("symbol"))

	startDate, err := queryDate(c, "start_date")
	if err != nil {
		return h.errorResponse(c, fiber.StatusBadRequest, "invalid start_date (use YYYY-MM-DD)")
	}
	endDate, err := queryDate(c, "end_date")
	if err != nil {
		return h.errorResponse(c, fiber.StatusBadRequest, "invalid end_date (use YYYY-MM-DD)")
	}
	filter := domain.PriceFilter{Symbol: symbol, StartDate: startDate, EndDate: endDate}

	h.logger.Debug("fetching prices",
		zap.String("symbol", symbol),
		zap.Any("start_date", filter.StartDate),
		zap.Any("end_date", filter.EndDate),
		zap.String("request_id", getRequestID(c)))

	prices, cacheHit, err := h.prices.GetPrices(c.Context(), filter)
	if err != nil {
		return h.serviceError(c, symbol, err)
	}

	if len(prices) == 0 {
		return h.errorResponse(c, fiber.StatusNotFound, fmt.Sprintf("no data found for symbol %s", symbol))
	}

	dtos := make([]PriceDTO, 0, len(prices))
	for _, p := range prices {
		dtos = append(dtos, newPriceDTO(p))
	}

	return c.JSON(PricesResponse{
		Symbol:         symbol,
		Count:          len(dtos),
		Prices:         dtos,
		CacheHit:       cacheHit,
		ProcessingTime: time.Since(start).String(),
	})
}

// GetSummary godoc
// @Summary Aggregates over the persisted prices of a symbol
// @Param symbol path string true "Ticker symbol"
// @Success 200 {object} SummaryResponse
// @Router /prices/{symbol}/summary [get]
func (h *Handler) GetSummary(c *fiber.Ctx) error {
	symbol := strings.ToUpper(c.Params("symbol"))

	summary, err := h.prices.GetSummary(c.Context(), symbol)
	if err != nil {
		return h.serviceError(c, symbol, err)
	}
	if summary.Days == 0 {
		return h.errorResponse(c, fiber.StatusNotFound, fmt.Sprintf("no data found for symbol %s", symbol))
	}

	return c.JSON(newSummaryResponse(summary))
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Version:   version,
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	services := map[string]ServiceHealth{
		"database": checkService(ctx, h.db.HealthCheck),
	}
	if h.cache != nil {
		services["redis"] = checkService(ctx, h.cache.HealthCheck)
	}

	status := "ready"
	for _, s := range services {
		if s.Status != "healthy" {
			status = "not_ready"
			break
		}
	}

	response := HealthResponse{
		Status:    status,
		Version:   version,
		Timestamp: time.Now(),
		Services:  services,
	}

	if status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

func checkService(ctx context.Context, check func(context.Context) error) ServiceHealth {
	start := time.Now()
	if err := check(ctx); err != nil {
		return ServiceHealth{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	}
	return ServiceHealth{
		Status:  "healthy",
		Latency: time.Since(start).String(),
	}
}

func (h *Handler) InvalidateCache(c *fiber.Ctx) error {
	if h.cache == nil {
		return h.errorResponse(c, fiber.StatusServiceUnavailable, "cache not available")
	}

	pattern := c.Params("pattern", "*")
	if !strings.HasPrefix(pattern, service.CacheKeyPrefix) {
		pattern = service.CacheKeyPrefix + pattern
	}

	deleted, err := h.cache.DeletePattern(c.Context(), pattern)
	if err != nil {
		h.logger.Error("failed to invalidate cache", zap.String("pattern", pattern), zap.Error(err))
		return h.errorResponse(c, fiber.StatusInternalServerError, "failed to invalidate cache")
	}

	return c.JSON(CacheInvalidationResponse{
		Status:  "success",
		Pattern: pattern,
		Deleted: deleted,
	})
}

func (h *Handler) GetSystemStats(c *fiber.Ctx) error {
	dbStats := h.db.Stats()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return c.JSON(SystemStatsResponse{
		Database: DatabaseStats{
			ActiveConnections: dbStats.AcquiredConns(),
			IdleConnections:   dbStats.IdleConns(),
			TotalConnections:  dbStats.TotalConns(),
			WaitCount:         dbStats.EmptyAcquireCount(),
			WaitDuration:      dbStats.AcquireDuration().String(),
		},
		API: APIStats{
			MemoryUsed:       fmt.Sprintf("%d MB", m.Alloc/1024/1024),
			ActiveGoroutines: runtime.NumGoroutine(),
		},
	})
}

func (h *Handler) serviceError(c *fiber.Ctx, symbol string, err error) error {
	if errors.HasCode(err, errors.ErrCodeMissingParameter) {
		return h.errorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	h.logger.Error("failed to read prices",
		zap.String("symbol", symbol),
		zap.String("request_id", getRequestID(c)),
		zap.Error(err))
	return h.errorResponse(c, fiber.StatusInternalServerError, "failed to read prices")
}

func (h *Handler) errorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Error:     message,
		Code:      status,
		RequestID: getRequestID(c),
		Timestamp: time.Now(),
	})
}

func queryDate(c *fiber.Ctx, param string) (*time.Time, error) {
	value := c.Query(param)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func getRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestID").(string); ok {
		return id
	}
	return ""
}
