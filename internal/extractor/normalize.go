package extractor

import (
	"encoding/json"
	"math"
	"time"

	"github.com/guregu/null/v6"

	"github.com/jeovahfialho/stock-etl/internal/domain"
	"github.com/jeovahfialho/stock-etl/internal/provider"
	"github.com/jeovahfialho/stock-etl/pkg/errors"
)

// fieldMapping renames provider fields to canonical columns.
var fieldMapping = map[string]string{
	provider.FieldDate:   domain.ColumnDate,
	provider.FieldOpen:   domain.ColumnOpen,
	provider.FieldHigh:   domain.ColumnHigh,
	provider.FieldLow:    domain.ColumnLow,
	provider.FieldClose:  domain.ColumnClose,
	provider.FieldVolume: domain.ColumnVolume,
}

// requiredFields is fieldMapping's key set in a stable order for error messages.
var requiredFields = []string{
	provider.FieldDate,
	provider.FieldOpen,
	provider.FieldHigh,
	provider.FieldLow,
	provider.FieldClose,
	provider.FieldVolume,
}

// Normalize projects provider records onto the canonical seven-column shape,
// stamping symbol on every row. Fields outside the mapping are dropped. A
// missing field or a value of an unexpected type is a malformed response; a
// present nil value becomes a null cell.
func Normalize(symbol string, records []provider.Record) (domain.PriceTable, error) {
	table := domain.PriceTable{
		Symbol: symbol,
		Rows:   make([]domain.PriceRow, 0, len(records)),
	}

	for i, record := range records {
		for _, field := range requiredFields {
			if _, ok := record[field]; !ok {
				return domain.PriceTable{}, errors.Newf(errors.ErrCodeProviderMalformedResponse,
					"record %d for %s is missing field %q (column %s)", i, symbol, field, fieldMapping[field])
			}
		}

		date, err := toTime(record[provider.FieldDate])
		if err != nil {
			return domain.PriceTable{}, malformed(symbol, i, provider.FieldDate, err)
		}

		prices := make([]null.Float, 0, 4)
		for _, field := range []string{provider.FieldOpen, provider.FieldHigh, provider.FieldLow, provider.FieldClose} {
			f, err := toFloat(record[field])
			if err != nil {
				return domain.PriceTable{}, malformed(symbol, i, field, err)
			}
			prices = append(prices, f)
		}

		volume, err := toInt(record[provider.FieldVolume])
		if err != nil {
			return domain.PriceTable{}, malformed(symbol, i, provider.FieldVolume, err)
		}

		table.Rows = append(table.Rows, domain.PriceRow{
			Symbol: null.StringFrom(symbol),
			Date:   date,
			Open:   prices[0],
			High:   prices[1],
			Low:    prices[2],
			Close:  prices[3],
			Volume: volume,
		})
	}

	return table, nil
}

func malformed(symbol string, index int, field string, cause error) error {
	return errors.Wrapf(errors.ErrCodeProviderMalformedResponse, cause, "record %d for %s has bad %q", index, symbol, field)
}

func toTime(v any) (null.Time, error) {
	switch t := v.(type) {
	case nil:
		return null.Time{}, nil
	case time.Time:
		if t.IsZero() {
			return null.Time{}, nil
		}
		return null.TimeFrom(t), nil
	case string:
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			return null.Time{}, err
		}
		return null.TimeFrom(parsed), nil
	default:
		return null.Time{}, errors.Newf(errors.ErrCodeProviderMalformedResponse, "unexpected date type %T", v)
	}
}

func toFloat(v any) (null.Float, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return null.Float{}, nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return null.Float{}, err
		}
		f = parsed
	default:
		return null.Float{}, errors.Newf(errors.ErrCodeProviderMalformedResponse, "unexpected price type %T", v)
	}
	if math.IsNaN(f) {
		return null.Float{}, nil
	}
	return null.FloatFrom(f), nil
}

func toInt(v any) (null.Int, error) {
	switch n := v.(type) {
	case nil:
		return null.Int{}, nil
	case int64:
		return null.IntFrom(n), nil
	case int:
		return null.IntFrom(int64(n)), nil
	case float64:
		if math.IsNaN(n) {
			return null.Int{}, nil
		}
		// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
		if math.IsInf(n, 0) || n >= math.MaxInt64 || n < math.MinInt64 {
			return null.Int{}, errors.Newf(errors.ErrCodeProviderMalformedResponse, "volume %v out of range", n)
		}
		return null.IntFrom(int64(n)), nil
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return null.Int{}, err
		}
		return null.IntFrom(parsed), nil
	default:
		return null.Int{}, errors.Newf(errors.ErrCodeProviderMalformedResponse, "unexpected volume type %T", v)
	}
}
