package instrument

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures calls for assertions.
type recorder struct {
	Noop
	reports []string
	counts  map[string]int
}

func (r *recorder) Report(reportID string, start, end time.Time) {
	r.reports = append(r.reports, reportID)
}

func (r *recorder) IncreaseCounter(counterID string, increase int) error {
	if err := (Noop{}).IncreaseCounter(counterID, increase); err != nil {
		return err
	}
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[counterID] += increase
	return nil
}

func TestTimeReportsOnce(t *testing.T) {
	rec := &recorder{}
	done := Time(rec, "op.duration")
	done()
	require.Equal(t, []string{"op.duration"}, rec.reports)
}

func TestTimeNilHandle(t *testing.T) {
	assert.NotPanics(t, func() { Time(nil, "op")() })
	assert.NotPanics(t, func() { Count(nil, "op") })
}

func TestCount(t *testing.T) {
	rec := &recorder{}
	Count(rec, "op.calls")
	Count(rec, "op.calls")
	assert.Equal(t, 2, rec.counts["op.calls"])
}

func TestNegativeIncreaseRejected(t *testing.T) {
	assert.Error(t, Noop{}.IncreaseCounter("c", -1))
	assert.NoError(t, Noop{}.IncreaseCounter("c", 0))
	assert.Error(t, NewLogInstrument(nil).IncreaseCounter("c", -5))
}

func TestLogInstrumentAccumulates(t *testing.T) {
	var buf bytes.Buffer
	in := NewLogInstrument(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, in.IncreaseCounter("requests", 2))
	require.NoError(t, in.IncreaseCounter("requests", 3))
	assert.Contains(t, buf.String(), "total=5")

	buf.Reset()
	in.UpdateGauge("load", 1.5)
	in.UpdateGauge("load", -0.5)
	assert.Contains(t, buf.String(), "value=1")

	buf.Reset()
	start := time.Now()
	in.Report("op", start, start.Add(time.Millisecond))
	line := buf.String()
	assert.Contains(t, line, "execution timing")
	assert.True(t, strings.Contains(line, "op"))
}
