package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	values []float64
}

func (o *recordingObserver) Observe(v float64) {
	o.values = append(o.values, v)
}

func TestTimerObservesDuration(t *testing.T) {
	observer := &recordingObserver{}

	timer := NewTimer()
	time.Sleep(time.Millisecond)
	timer.ObserveDuration(observer)

	require.Len(t, observer.values, 1)
	assert.GreaterOrEqual(t, observer.values[0], time.Millisecond.Seconds())
	assert.GreaterOrEqual(t, timer.Elapsed(), time.Millisecond)
}

func TestRecordHelpersDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordSymbol("processed")
		RecordValidationFailure("high_low_check")
		RecordRowsWritten(2)
		RecordCacheHit()
		RecordCacheMiss()
		RecordDatabaseQuery("select", "success")
	})
}
