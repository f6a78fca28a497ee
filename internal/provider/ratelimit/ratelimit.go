package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jeovahfialho/stock-etl/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// A call waits until Interval has elapsed since the previous one finished,
// or returns early if the context is canceled.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func New(p provider.Provider, interval time.Duration) *MinInterval {
	return &MinInterval{P: p, Interval: interval}
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) History(ctx context.Context, symbol string, start, end time.Time, interval string) ([]provider.Record, error) {
	if m.Interval > 0 {
		m.mu.Lock()
		wait := time.Until(m.last.Add(m.Interval))
		m.mu.Unlock()
		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	records, err := m.P.History(ctx, symbol, start, end, interval)
	if m.Interval > 0 {
		m.mu.Lock()
		m.last = time.Now()
		m.mu.Unlock()
	}
	return records, err
}
