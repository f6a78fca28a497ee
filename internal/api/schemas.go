package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jeovahfialho/stock-etl/internal/domain"
)

type PricesRequest struct {
	StartDate *time.Time `query:"start_date" format:"date"`
	EndDate   *time.Time `query:"end_date" format:"date"`
}

type PriceDTO struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

type PricesResponse struct {
	Symbol         string     `json:"symbol"`
	Count          int        `json:"count"`
	Prices         []PriceDTO `json:"prices"`
	CacheHit       bool       `json:"cache_hit,omitempty"`
	ProcessingTime string     `json:"processing_time,omitempty"`
}

type SummaryResponse struct {
	Symbol      string          `json:"symbol"`
	Days        int64           `json:"days"`
	FirstDate   string          `json:"first_date"`
	LastDate    string          `json:"last_date"`
	MinLow      decimal.Decimal `json:"min_low"`
	MaxHigh     decimal.Decimal `json:"max_high"`
	AvgClose    decimal.Decimal `json:"avg_close"`
	PriceRange  decimal.Decimal `json:"price_range"`
	TotalVolume int64           `json:"total_volume"`
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SystemStatsResponse struct {
	Database DatabaseStats `json:"database"`
	API      APIStats      `json:"api"`
}

type DatabaseStats struct {
	ActiveConnections int32  `json:"active_connections"`
	IdleConnections   int32  `json:"idle_connections"`
	TotalConnections  int32  `json:"total_connections"`
	WaitCount         int64  `json:"wait_count"`
	WaitDuration      string `json:"wait_duration"`
}

type APIStats struct {
	MemoryUsed       string `json:"memory_used"`
	ActiveGoroutines int    `json:"active_goroutines"`
}

type CacheInvalidationResponse struct {
	Status  string `json:"status"`
	Pattern string `json:"pattern"`
	Deleted int    `json:"deleted"`
}

type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newPriceDTO(p domain.DailyPrice) PriceDTO {
	return PriceDTO{
		Date:   p.Date.Format(time.DateOnly),
		Open:   decimal.NewFromFloat(p.Open),
		High:   decimal.NewFromFloat(p.High),
		Low:    decimal.NewFromFloat(p.Low),
		Close:  decimal.NewFromFloat(p.Close),
		Volume: p.Volume,
	}
}

func newSummaryResponse(s domain.PriceSummary) SummaryResponse {
	minLow := decimal.NewFromFloat(s.MinLow)
	maxHigh := decimal.NewFromFloat(s.MaxHigh)
	return SummaryResponse{
		Symbol:      s.Symbol,
		Days:        s.Days,
		FirstDate:   s.FirstDate.Format(time.DateOnly),
		LastDate:    s.LastDate.Format(time.DateOnly),
		MinLow:      minLow,
		MaxHigh:     maxHigh,
		AvgClose:    decimal.NewFromFloat(s.AvgClose).Round(4),
		PriceRange:  maxHigh.Sub(minLow),
		TotalVolume: s.TotalVolume,
	}
}
