package provider

import (
	"context"
	"time"
)

// Field names used by providers in the records they return. These follow the
// provider convention (capitalized) and are renamed by the extractor.
const (
	FieldDate   = "Date"
	FieldOpen   = "Open"
	FieldHigh   = "High"
	FieldLow    = "Low"
	FieldClose  = "Close"
	FieldVolume = "Volume"
)

// IntervalDaily is the only bar interval the pipeline requests.
const IntervalDaily = "1d"

// Record is one provider row keyed by provider field name. A nil value means
// the provider had no data for that cell.
type Record map[string]any

// Provider returns historical bars for one symbol over [start, end).
type Provider interface {
	Name() string
	History(ctx context.Context, symbol string, start, end time.Time, interval string) ([]Record, error)
}
