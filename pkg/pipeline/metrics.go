package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType identifies how a metric accumulates.
type MetricType int

const (
	CounterType MetricType = iota
	GaugeType
	HistogramType
)

func (t MetricType) String() string {
	switch t {
	case CounterType:
		return "counter"
	case GaugeType:
		return "gauge"
	case HistogramType:
		return "histogram"
	default:
		return "unknown"
	}
}

// Metric is a single recorded value with its tags.
type Metric struct {
	Name      string
	Type      MetricType
	Value     float64
	Tags      map[string]string
	Timestamp time.Time
	Stats     map[string]float64
}

// MetricSnapshot is a point-in-time copy of every recorded metric.
type MetricSnapshot struct {
	Timestamp time.Time
	Metrics   map[string]Metric
}

// MetricsCollector receives runtime measurements from the engine. A nil
// collector is valid everywhere one is accepted.
type MetricsCollector interface {
	RecordCounter(name string, value int64, tags map[string]string)
	RecordGauge(name string, value float64, tags map[string]string)
	RecordTiming(name string, duration time.Duration, tags map[string]string)
	GetAllMetrics() MetricSnapshot
}

// BasicMetricsCollector keeps metrics in memory. Counters accumulate,
// gauges replace, timings fold into running histogram stats.
type BasicMetricsCollector struct {
	mu      sync.RWMutex
	metrics map[string]Metric
}

// NewBasicMetricsCollector creates an empty in-memory collector.
func NewBasicMetricsCollector() *BasicMetricsCollector {
	return &BasicMetricsCollector{
		metrics: make(map[string]Metric),
	}
}

// RecordCounter adds value to the named counter.
func (c *BasicMetricsCollector) RecordCounter(name string, value int64, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildMetricKey(name, tags)
	current := float64(0)
	if existing, ok := c.metrics[key]; ok && existing.Type == CounterType {
		current = existing.Value
	}
	c.metrics[key] = Metric{
		Name:      name,
		Type:      CounterType,
		Value:     current + float64(value),
		Tags:      copyTags(tags),
		Timestamp: time.Now(),
	}
}

// RecordGauge sets the named gauge to value.
func (c *BasicMetricsCollector) RecordGauge(name string, value float64, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildMetricKey(name, tags)
	c.metrics[key] = Metric{
		Name:      name,
		Type:      GaugeType,
		Value:     value,
		Tags:      copyTags(tags),
		Timestamp: time.Now(),
	}
}

// RecordTiming folds a duration, in milliseconds, into the named
// histogram's count, sum, min, max and avg.
func (c *BasicMetricsCollector) RecordTiming(name string, duration time.Duration, tags map[string]string) {
	value := float64(duration.Nanoseconds()) / 1e6

	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildMetricKey(name, tags)
	stats := map[string]float64{
		"count": 1,
		"sum":   value,
		"min":   value,
		"max":   value,
		"avg":   value,
	}
	if existing, ok := c.metrics[key]; ok && existing.Type == HistogramType {
		stats = existing.Stats
		stats["count"]++
		stats["sum"] += value
		if value < stats["min"] {
			stats["min"] = value
		}
		if value > stats["max"] {
			stats["max"] = value
		}
		stats["avg"] = stats["sum"] / stats["count"]
	}
	c.metrics[key] = Metric{
		Name:      name,
		Type:      HistogramType,
		Value:     value,
		Tags:      copyTags(tags),
		Timestamp: time.Now(),
		Stats:     stats,
	}
}

// GetAllMetrics returns a snapshot of all current metrics.
func (c *BasicMetricsCollector) GetAllMetrics() MetricSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := MetricSnapshot{
		Timestamp: time.Now(),
		Metrics:   make(map[string]Metric, len(c.metrics)),
	}
	for key, metric := range c.metrics {
		snapshot.Metrics[key] = metric
	}
	return snapshot
}

// GetMetric retrieves a specific metric by name and tags.
func (c *BasicMetricsCollector) GetMetric(name string, tags map[string]string) (Metric, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	metric, ok := c.metrics[buildMetricKey(name, tags)]
	return metric, ok
}

// Reset clears all metrics.
func (c *BasicMetricsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = make(map[string]Metric)
}

// buildMetricKey derives a stable key from a name and its tags. Tag keys
// are sorted so equal tag sets always collapse to the same series.
func buildMetricKey(name string, tags map[string]string) string {
	if len(tags) == 0 {
		return name
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		fmt.Fprintf(&b, ",%s=%s", k, tags[k])
	}
	return b.String()
}

func copyTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

var _ MetricsCollector = (*BasicMetricsCollector)(nil)
