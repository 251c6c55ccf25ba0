package metrics

import (
	"sort"
	"sync"
	"time"
)

// maxLatencySamples bounds the samples kept for percentiles
const maxLatencySamples = 1000

// Summary keeps in-process totals for one surface, independent of any
// exporter. It backs the end-of-session summary printed by long-running
// commands.
type Summary struct {
	mu        sync.Mutex
	started   int64
	succeeded int64
	failed    int64
	abandoned int64
	byKind    map[string]int64
	samples   []time.Duration
}

// Snapshot is a point-in-time copy of a Summary
type Snapshot struct {
	Started   int64            `json:"started"`
	Succeeded int64            `json:"succeeded"`
	Failed    int64            `json:"failed"`
	Abandoned int64            `json:"abandoned"`
	ByKind    map[string]int64 `json:"failures_by_kind,omitempty"`
	Latency   Aggregates       `json:"latency"`
}

// Aggregates holds latency statistics over completed attempts
type Aggregates struct {
	Count int           `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
}

// NewSummary creates an empty summary
func NewSummary() *Summary {
	return &Summary{byKind: make(map[string]int64)}
}

func (s *Summary) addStarted() {
	s.mu.Lock()
	s.started++
	s.mu.Unlock()
}

func (s *Summary) addSucceeded(d time.Duration) {
	s.mu.Lock()
	s.succeeded++
	s.record(d)
	s.mu.Unlock()
}

func (s *Summary) addFailed(kind string, d time.Duration) {
	s.mu.Lock()
	s.failed++
	s.byKind[kind]++
	s.record(d)
	s.mu.Unlock()
}

func (s *Summary) addAbandoned() {
	s.mu.Lock()
	s.abandoned++
	s.mu.Unlock()
}

// record must be called with mu held. Once full, the oldest sample is dropped.
func (s *Summary) record(d time.Duration) {
	if len(s.samples) == maxLatencySamples {
		copy(s.samples, s.samples[1:])
		s.samples = s.samples[:len(s.samples)-1]
	}
	s.samples = append(s.samples, d)
}

// Snapshot returns the current totals
func (s *Summary) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKind := make(map[string]int64, len(s.byKind))
	for k, v := range s.byKind {
		byKind[k] = v
	}

	return Snapshot{
		Started:   s.started,
		Succeeded: s.succeeded,
		Failed:    s.failed,
		Abandoned: s.abandoned,
		ByKind:    byKind,
		Latency:   aggregate(s.samples),
	}
}

func aggregate(samples []time.Duration) Aggregates {
	if len(samples) == 0 {
		return Aggregates{}
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return Aggregates{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Avg:   sum / time.Duration(len(sorted)),
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
	}
}

// percentile interpolates linearly between the two nearest samples
func percentile(sorted []time.Duration, p float64) time.Duration {
	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return time.Duration(float64(sorted[lower])*(1-weight) + float64(sorted[upper])*weight)
}
