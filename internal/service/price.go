package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/jeovahfialho/stock-etl/internal/domain"
	"github.com/jeovahfialho/stock-etl/pkg/errors"
)

// CacheKeyPrefix prefixes every cached price response. The ETL run
// invalidates CacheKeyPrefix+"*" after a write.
const CacheKeyPrefix = "prices:"

//go:generate mockgen -package=service_test -destination=mock_price_test.go -source=price.go PriceRepository Cache

// PriceRepository reads the destination table.
type PriceRepository interface {
	Query(ctx context.Context, symbol string, start, end optional.Option[time.Time]) ([]domain.DailyPrice, error)
	Summary(ctx context.Context, symbol string) (domain.PriceSummary, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl ...time.Duration) error
}

type PriceService struct {
	repo   PriceRepository
	cache  Cache
	logger *zap.Logger
}

// NewPriceService builds the read side. cache may be nil.
func NewPriceService(repo PriceRepository, cache Cache, logger *zap.Logger) *PriceService {
	return &PriceService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// GetPrices returns the persisted rows matching filter and whether they were
// served from the cache.
func (s *PriceService) GetPrices(ctx context.Context, filter domain.PriceFilter) ([]domain.DailyPrice, bool, error) {
	symbol := strings.ToUpper(strings.TrimSpace(filter.Symbol))
	if symbol == "" {
		return nil, false, errors.New(errors.ErrCodeMissingParameter, "symbol is required")
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, false, errors.New(errors.ErrCodeMissingParameter, "end date is before start date")
	}

	key := PricesCacheKey(symbol, filter.StartDate, filter.EndDate)

	var cached []domain.DailyPrice
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, true, nil
		}
	}

	prices, err := s.repo.Query(ctx, symbol, toOption(filter.StartDate), toOption(filter.EndDate))
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, prices); err != nil {
			s.logger.Warn("failed to cache prices", zap.String("key", key), zap.Error(err))
		}
	}

	return prices, false, nil
}

func (s *PriceService) GetSummary(ctx context.Context, symbol string) (domain.PriceSummary, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.PriceSummary{}, errors.New(errors.ErrCodeMissingParameter, "symbol is required")
	}

	key := fmt.Sprintf("%s%s:summary", CacheKeyPrefix, symbol)

	var cached domain.PriceSummary
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	summary, err := s.repo.Summary(ctx, symbol)
	if err != nil {
		return domain.PriceSummary{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary); err != nil {
			s.logger.Warn("failed to cache summary", zap.String("key", key), zap.Error(err))
		}
	}

	return summary, nil
}

// PricesCacheKey is the cache key of one prices query.
func PricesCacheKey(symbol string, start, end *time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", CacheKeyPrefix, symbol, dateKey(start), dateKey(end))
}

func dateKey(t *time.Time) string {
	if t == nil {
		return "all"
	}
	return t.Format(time.DateOnly)
}

func toOption(t *time.Time) optional.Option[time.Time] {
	if t == nil {
		return optional.None[time.Time]()
	}
	return optional.Some(*t)
}
