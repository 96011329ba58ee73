package instrument

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// LogInstrument is an Instrumentation that writes timings and metric changes
// to a structured logger as they occur. Counters and gauges accumulate
// in-process so each log line carries the running total.
type LogInstrument struct {
	log *slog.Logger

	mu       sync.Mutex
	counters map[string]int
	gauges   map[string]float64
}

// NewLogInstrument creates a log-backed instrument. A nil logger uses the
// default slog logger.
func NewLogInstrument(log *slog.Logger) *LogInstrument {
	if log == nil {
		log = slog.Default()
	}
	return &LogInstrument{
		log:      log,
		counters: make(map[string]int),
		gauges:   make(map[string]float64),
	}
}

func (i *LogInstrument) RegisterReport(reportID string) {
	i.log.Debug("registered report", "id", reportID)
}

func (i *LogInstrument) RegisterCounter(counterID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.counters[counterID]; !ok {
		i.counters[counterID] = 0
	}
}

func (i *LogInstrument) RegisterGauge(gaugeID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.gauges[gaugeID]; !ok {
		i.gauges[gaugeID] = 0
	}
}

func (i *LogInstrument) Report(reportID string, start, end time.Time) {
	i.log.Info("execution timing", "id", reportID, "duration", end.Sub(start))
}

func (i *LogInstrument) IncreaseCounter(counterID string, increase int) error {
	if increase < 0 {
		return fmt.Errorf("counter increase must not be negative, got %d", increase)
	}
	i.mu.Lock()
	i.counters[counterID] += increase
	total := i.counters[counterID]
	i.mu.Unlock()

	i.log.Info("counter increased", "id", counterID, "increase", increase, "total", total)
	return nil
}

func (i *LogInstrument) UpdateGauge(gaugeID string, delta float64) {
	i.mu.Lock()
	i.gauges[gaugeID] += delta
	value := i.gauges[gaugeID]
	i.mu.Unlock()

	i.log.Info("gauge updated", "id", gaugeID, "delta", delta, "value", value)
}
