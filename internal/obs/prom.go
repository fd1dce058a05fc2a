package obs

import (
	"errors"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMeter is a Meter backed by Prometheus collectors. Collectors are
// created on first use of a metric name; the label keys seen on that first
// call fix the label set for the metric. Measurements whose label keys do
// not match are dropped.
type PromMeter struct {
	Registerer prometheus.Registerer
	// Buckets for histograms; prometheus.DefBuckets when nil.
	Buckets []float64

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPromMeter returns a PromMeter registering on reg
// (prometheus.DefaultRegisterer when nil).
func NewPromMeter(reg prometheus.Registerer) *PromMeter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PromMeter{
		Registerer: reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (m *PromMeter) Counter(name string, value float64, labels ...Label) {
	keys, vals := splitLabels(labels)
	m.mu.Lock()
	cv, ok := m.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, keys)
		cv = register(m.Registerer, cv)
		m.counters[name] = cv
	}
	m.mu.Unlock()
	c, err := cv.GetMetricWithLabelValues(vals...)
	if err != nil {
		return
	}
	c.Add(value)
}

func (m *PromMeter) Histogram(name string, value float64, labels ...Label) {
	keys, vals := splitLabels(labels)
	m.mu.Lock()
	hv, ok := m.histograms[name]
	if !ok {
		buckets := m.Buckets
		if buckets == nil {
			buckets = prometheus.DefBuckets
		}
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: name, Buckets: buckets}, keys)
		hv = register(m.Registerer, hv)
		m.histograms[name] = hv
	}
	m.mu.Unlock()
	h, err := hv.GetMetricWithLabelValues(vals...)
	if err != nil {
		return
	}
	h.Observe(value)
}

// register adds c to reg, reusing an identical collector that is already
// registered (e.g. by another meter sharing the registry).
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func splitLabels(labels []Label) (keys, vals []string) {
	sorted := make([]Label, len(labels))
	copy(sorted, labels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	keys = make([]string, len(sorted))
	vals = make([]string, len(sorted))
	for i, l := range sorted {
		keys[i] = l.Key
		vals[i] = l.Value
	}
	return keys, vals
}
