package perf

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Monitor keeps a fixed-capacity FIFO history of execution durations plus
// totals over every execution ever recorded. Statistics are computed over the
// retained samples only. A Monitor is safe for concurrent use.
type Monitor struct {
	mu      sync.Mutex
	label   string
	size    int
	samples []time.Duration
	next    int
	runs    int64
	overall time.Duration
	start   time.Time
}

// NewMonitor creates a monitor retaining at most historySize samples.
// A size below one is treated as one.
func NewMonitor(label string, historySize int) *Monitor {
	if historySize < 1 {
		historySize = 1
	}
	return &Monitor{
		label:   label,
		size:    historySize,
		samples: make([]time.Duration, 0, historySize),
	}
}

// Label returns the monitor's label.
func (m *Monitor) Label() string { return m.label }

// Capacity returns the maximum number of retained samples.
func (m *Monitor) Capacity() int { return m.size }

// TrackStart marks the beginning of a timed execution.
func (m *Monitor) TrackStart() {
	m.mu.Lock()
	m.start = time.Now()
	m.mu.Unlock()
}

// TrackEnd records the time elapsed since the last TrackStart.
func (m *Monitor) TrackEnd() time.Duration {
	m.mu.Lock()
	d := time.Since(m.start)
	m.record(d)
	m.mu.Unlock()
	return d
}

// Record adds one execution duration, evicting the oldest sample when the
// history is full.
func (m *Monitor) Record(d time.Duration) {
	m.mu.Lock()
	m.record(d)
	m.mu.Unlock()
}

func (m *Monitor) record(d time.Duration) {
	if len(m.samples) < m.size {
		m.samples = append(m.samples, d)
	} else {
		m.samples[m.next] = d
	}
	m.next = (m.next + 1) % m.size
	m.runs++
	m.overall += d
}

// Len returns the number of retained samples.
func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

// Samples returns the retained samples, oldest first.
func (m *Monitor) Samples() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ordered()
}

func (m *Monitor) ordered() []time.Duration {
	out := make([]time.Duration, 0, len(m.samples))
	if len(m.samples) < m.size {
		return append(out, m.samples...)
	}
	out = append(out, m.samples[m.next:]...)
	return append(out, m.samples[:m.next]...)
}

// Last returns the most recent sample, or zero when nothing was recorded.
func (m *Monitor) Last() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) == 0 {
		return 0
	}
	return m.samples[(m.next-1+m.size)%m.size]
}

// Count returns the number of executions ever recorded.
func (m *Monitor) Count() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

// Overall returns the summed duration of every execution ever recorded.
func (m *Monitor) Overall() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overall
}

// Average returns the mean of the retained samples.
func (m *Monitor) Average() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) == 0 {
		return 0
	}
	return fromSeconds(stat.Mean(seconds(m.samples), nil))
}

// Median returns the median of the retained samples. For an even number of
// samples it is the mean of the two middle values.
func (m *Monitor) Median() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) == 0 {
		return 0
	}
	return fromSeconds(median(seconds(m.samples)))
}

// StdDev returns the sample standard deviation of the retained samples, or
// zero with fewer than two samples.
func (m *Monitor) StdDev() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) < 2 {
		return 0
	}
	return fromSeconds(stat.StdDev(seconds(m.samples), nil))
}

// Stats is a point-in-time summary of a Monitor.
type Stats struct {
	Label    string        `json:"label"`
	Count    int64         `json:"count"`
	Retained int           `json:"retained"`
	Last     time.Duration `json:"last_ns"`
	Average  time.Duration `json:"average_ns"`
	Median   time.Duration `json:"median_ns"`
	StdDev   time.Duration `json:"stddev_ns"`
	Overall  time.Duration `json:"overall_ns"`
}

// Stats returns a consistent summary of the monitor.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	xs := seconds(m.samples)
	s := Stats{
		Label:    m.label,
		Count:    m.runs,
		Retained: len(m.samples),
		Overall:  m.overall,
	}
	if len(m.samples) > 0 {
		s.Last = m.samples[(m.next-1+m.size)%m.size]
	}
	m.mu.Unlock()

	if len(xs) > 0 {
		s.Average = fromSeconds(stat.Mean(xs, nil))
		s.Median = fromSeconds(median(xs))
	}
	if len(xs) > 1 {
		s.StdDev = fromSeconds(stat.StdDev(xs, nil))
	}
	return s
}

// String returns a one-line summary.
func (m *Monitor) String() string {
	s := m.Stats()
	return fmt.Sprintf("%s: run=%d time=%s avg=%s sd=%s", s.Label, s.Count, s.Last, s.Average, s.StdDev)
}

func seconds(ds []time.Duration) []float64 {
	xs := make([]float64, len(ds))
	for i, d := range ds {
		xs[i] = d.Seconds()
	}
	return xs
}

func fromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// median returns the median of xs without modifying it.
func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
