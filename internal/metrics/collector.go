package metrics

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds: 1µs to 60s at 3 significant figures.
const (
	lowestLatency  = 1
	highestLatency = 60_000_000
)

// Millis is a duration that encodes to JSON as fractional milliseconds.
type Millis time.Duration

func (m Millis) String() string { return time.Duration(m).String() }

func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(m)/float64(time.Millisecond), 'f', -1, 64), nil
}

// Latency summarises the query round trips of a batch.
type Latency struct {
	Min  Millis `json:"min_ms"`
	Mean Millis `json:"mean_ms"`
	P50  Millis `json:"p50_ms"`
	P90  Millis `json:"p90_ms"`
	P99  Millis `json:"p99_ms"`
	Max  Millis `json:"max_ms"`
}

// Stats is the row tally of a batch.
type Stats struct {
	Rows       int64            `json:"rows"`
	Failed     int64            `json:"failed"`
	Duration   Millis           `json:"duration_ms"`
	RowsPerSec float64          `json:"rows_per_sec"`
	Latency    Latency          `json:"latency"`
	Failures   map[string]int64 `json:"failures,omitempty"`
}

// FailureCount is one line of a failure breakdown.
type FailureCount struct {
	Category string
	Count    int64
}

// Collector tallies queried rows. It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	hist     *hdrhistogram.Histogram
	rows     int64
	failed   int64
	min      time.Duration
	max      time.Duration
	sum      time.Duration
	failures map[string]int64
}

func NewCollector() *Collector {
	return &Collector{
		hist:     hdrhistogram.New(lowestLatency, highestLatency, 3),
		failures: make(map[string]int64),
	}
}

// RecordRow counts one queried row. A non-nil err marks the row failed and
// files it under its [ErrorCategory].
func (c *Collector) RecordRow(latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rows++
	if err != nil {
		c.failed++
		c.failures[ErrorCategory(err)]++
	}

	us := min(max(latency.Microseconds(), lowestLatency), highestLatency)
	_ = c.hist.RecordValue(us)
	c.sum += latency
	if c.rows == 1 || latency < c.min {
		c.min = latency
	}
	c.max = max(c.max, latency)
}

// Stats snapshots the tally for a batch that ran for elapsed.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Rows:     c.rows,
		Failed:   c.failed,
		Duration: Millis(elapsed),
	}
	if elapsed > 0 {
		s.RowsPerSec = float64(c.rows) / elapsed.Seconds()
	}
	if c.rows == 0 {
		return s
	}

	s.Latency = Latency{
		Min:  Millis(c.min),
		Mean: Millis(c.sum / time.Duration(c.rows)),
		P50:  c.quantile(50),
		P90:  c.quantile(90),
		P99:  c.quantile(99),
		Max:  Millis(c.max),
	}
	if len(c.failures) > 0 {
		s.Failures = make(map[string]int64, len(c.failures))
		for category, n := range c.failures {
			s.Failures[category] = n
		}
	}
	return s
}

func (c *Collector) quantile(q float64) Millis {
	return Millis(time.Duration(c.hist.ValueAtQuantile(q)) * time.Microsecond)
}

// FailureBreakdown lists failure categories, most frequent first.
func (s Stats) FailureBreakdown() []FailureCount {
	out := make([]FailureCount, 0, len(s.Failures))
	for category, n := range s.Failures {
		out = append(out, FailureCount{Category: category, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
