package obs

import "time"

// Label is a key/value pair attached to a measurement.
type Label struct {
	Key   string
	Value string
}

// L is shorthand for Label{Key: key, Value: value}.
func L(key, value string) Label { return Label{Key: key, Value: value} }

// Meter receives counters and histograms. Names are snake_case with a
// subsystem prefix; a given name must always be emitted with the same label
// keys.
type Meter interface {
	Counter(name string, value float64, labels ...Label)
	Histogram(name string, value float64, labels ...Label)
}

// NopMeter discards all measurements.
type NopMeter struct{}

func (NopMeter) Counter(string, float64, ...Label)   {}
func (NopMeter) Histogram(string, float64, ...Label) {}

// ObserveSince records the milliseconds elapsed since start.
func ObserveSince(m Meter, name string, start time.Time, labels ...Label) {
	m.Histogram(name, float64(time.Since(start))/float64(time.Millisecond), labels...)
}
