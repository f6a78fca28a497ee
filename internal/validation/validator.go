package validation

import (
	"sort"
	"strings"

	"github.com/guregu/null/v6"
	"go.uber.org/zap/zapcore"

	"github.com/jeovahfialho/stock-etl/internal/domain"
)

// Check names, fixed set.
const (
	CheckMissingData    = "missing_data"
	CheckNegativePrices = "negative_prices"
	CheckVolume         = "volume_check"
	CheckHighLow        = "high_low_check"
)

// Checks lists every check a Report carries.
var Checks = []string{
	CheckMissingData,
	CheckNegativePrices,
	CheckVolume,
	CheckHighLow,
}

// Report maps check name to its result.
type Report map[string]bool

// Valid is the logical AND of every check.
func (r Report) Valid() bool {
	for _, ok := range r {
		if !ok {
			return false
		}
	}
	return true
}

// Failed returns the names of the failing checks in sorted order.
func (r Report) Failed() []string {
	var failed []string
	for name, ok := range r {
		if !ok {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

func (r Report) String() string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("{")
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		if r[name] {
			sb.WriteString(": true")
		} else {
			sb.WriteString(": false")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// MarshalLogObject lets the report be logged with zap.Object.
func (r Report) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for name, ok := range r {
		enc.AddBool(name, ok)
	}
	return nil
}

// Validator applies the sanity checks to a price table. It holds no state.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every check against table. The table is only read.
func (v *Validator) Validate(table domain.PriceTable) (bool, Report) {
	report := Report{
		CheckMissingData:    true,
		CheckNegativePrices: true,
		CheckVolume:         true,
		CheckHighLow:        true,
	}

	nulls := 0
	for _, row := range table.Rows {
		nulls += row.NullCount()

		if negative(row.Open) || negative(row.High) || negative(row.Low) || negative(row.Close) {
			report[CheckNegativePrices] = false
		}

		if row.Volume.Valid && row.Volume.Int64 < 0 {
			report[CheckVolume] = false
		}

		if row.High.Valid && row.Low.Valid && row.High.Float64 < row.Low.Float64 {
			report[CheckHighLow] = false
		}
	}
	report[CheckMissingData] = nulls == 0

	return report.Valid(), report
}

func negative(f null.Float) bool {
	return f.Valid && f.Float64 < 0
}
