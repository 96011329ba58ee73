// Package instrument defines the timing/counter reporting contract used by
// service implementations, plus helpers that wrap a unit of work with an
// explicitly passed instrumentation handle.
package instrument

import (
	"fmt"
	"time"
)

// Instrumentation reports execution timings, counters and gauges.
type Instrumentation interface {
	// RegisterReport registers a new thing that will be timed.
	RegisterReport(reportID string)

	// RegisterCounter registers a new counter.
	RegisterCounter(counterID string)

	// RegisterGauge registers a new gauge.
	RegisterGauge(gaugeID string)

	// Report records one execution timing.
	Report(reportID string, start, end time.Time)

	// IncreaseCounter records a positive change to a counter. A negative
	// increase is rejected.
	IncreaseCounter(counterID string, increase int) error

	// UpdateGauge records a change to a gauge.
	UpdateGauge(gaugeID string, delta float64)
}

// Time starts a timing for the given report id and returns the function that
// records it. A nil handle is allowed and reports nothing.
//
//	defer instrument.Time(in, "fs.put")()
func Time(in Instrumentation, reportID string) func() {
	if in == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		in.Report(reportID, start, time.Now())
	}
}

// Count increments the given counter by one. A nil handle is allowed and
// counts nothing.
func Count(in Instrumentation, counterID string) {
	if in == nil {
		return
	}
	_ = in.IncreaseCounter(counterID, 1)
}

// Noop is an Instrumentation that discards everything.
type Noop struct{}

func (Noop) RegisterReport(string)               {}
func (Noop) RegisterCounter(string)              {}
func (Noop) RegisterGauge(string)                {}
func (Noop) Report(string, time.Time, time.Time) {}
func (Noop) UpdateGauge(string, float64)         {}

func (Noop) IncreaseCounter(_ string, increase int) error {
	if increase < 0 {
		return fmt.Errorf("counter increase must not be negative, got %d", increase)
	}
	return nil
}
