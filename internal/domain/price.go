package domain

import (
	"time"

	"github.com/guregu/null/v6"
)

// Canonical column names of a PriceTable, in write order.
const (
	ColumnSymbol = "symbol"
	ColumnDate   = "date"
	ColumnOpen   = "open"
	ColumnHigh   = "high"
	ColumnLow    = "low"
	ColumnClose  = "close"
	ColumnVolume = "volume"
)

// Columns is the fixed column order of every PriceTable.
var Columns = []string{
	ColumnSymbol,
	ColumnDate,
	ColumnOpen,
	ColumnHigh,
	ColumnLow,
	ColumnClose,
	ColumnVolume,
}

// PriceRow is one trading day for one symbol. Cells are nullable so that a
// value the provider did not return survives until validation.
type PriceRow struct {
	Symbol null.String `db:"symbol" json:"symbol"`
	Date   null.Time   `db:"date" json:"date"`
	Open   null.Float  `db:"open" json:"open"`
	High   null.Float  `db:"high" json:"high"`
	Low    null.Float  `db:"low" json:"low"`
	Close  null.Float  `db:"close" json:"close"`
	Volume null.Int    `db:"volume" json:"volume"`
}

// Values returns the row cells in Columns order, with nil for null cells.
func (r PriceRow) Values() []any {
	return []any{
		nullableString(r.Symbol),
		r.Date.Ptr(),
		r.Open.Ptr(),
		r.High.Ptr(),
		r.Low.Ptr(),
		r.Close.Ptr(),
		r.Volume.Ptr(),
	}
}

// NullCount returns how many cells of the row are missing. An empty symbol
// counts as missing.
func (r PriceRow) NullCount() int {
	n := 0
	if !r.Symbol.Valid || r.Symbol.String == "" {
		n++
	}
	if !r.Date.Valid {
		n++
	}
	for _, f := range []null.Float{r.Open, r.High, r.Low, r.Close} {
		if !f.Valid {
			n++
		}
	}
	if !r.Volume.Valid {
		n++
	}
	return n
}

// PriceTable is the ordered set of rows fetched for a single symbol.
type PriceTable struct {
	Symbol string     `json:"symbol"`
	Rows   []PriceRow `json:"rows"`
}

func (t PriceTable) Len() int {
	return len(t.Rows)
}

// DailyPrice is a fully populated row as read back from the destination table.
type DailyPrice struct {
	Symbol string    `db:"symbol" json:"symbol"`
	Date   time.Time `db:"date" json:"date"`
	Open   float64   `db:"open" json:"open"`
	High   float64   `db:"high" json:"high"`
	Low    float64   `db:"low" json:"low"`
	Close  float64   `db:"close" json:"close"`
	Volume int64     `db:"volume" json:"volume"`
}

// PriceSummary aggregates the persisted rows of one symbol.
type PriceSummary struct {
	Symbol      string    `json:"symbol"`
	Days        int64     `json:"days"`
	FirstDate   time.Time `json:"first_date"`
	LastDate    time.Time `json:"last_date"`
	MinLow      float64   `json:"min_low"`
	MaxHigh     float64   `json:"max_high"`
	AvgClose    float64   `json:"avg_close"`
	TotalVolume int64     `json:"total_volume"`
}

// PriceFilter narrows a read of the destination table.
type PriceFilter struct {
	Symbol    string
	StartDate *time.Time
	EndDate   *time.Time
}

func nullableString(s null.String) any {
	if !s.Valid {
		return nil
	}
	return s.String
}
