package runner

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"yqhp/multitest/pkg/modifier"
)

// 记录范围 1µs ~ 1h，3 位有效数字
const (
	minTrackable = 1
	maxTrackable = int64(time.Hour / time.Microsecond)
)

// Stats aggregates invocation results. Safe for concurrent use.
type Stats struct {
	mu          sync.Mutex
	hist        *hdrhistogram.Histogram
	invocations int
	failures    int
	retries     int
	byKind      map[modifier.FailureKind]int
}

// NewStats creates an empty collector.
func NewStats() *Stats {
	return &Stats{
		hist:   hdrhistogram.New(minTrackable, maxTrackable, 3),
		byKind: make(map[modifier.FailureKind]int),
	}
}

// Record adds one invocation of the unit of work.
func (s *Stats) Record(elapsed time.Duration, err error) {
	us := elapsed.Microseconds()
	if us < minTrackable {
		us = minTrackable
	}
	if us > maxTrackable {
		us = maxTrackable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.hist.RecordValue(us)
	s.invocations++
	if err != nil {
		s.failures++
		s.byKind[modifier.KindOf(err)]++
	}
}

// Hooks returns modifier hooks that feed retry and timeout counts into s.
func (s *Stats) Hooks() modifier.Hooks {
	return modifier.Hooks{
		OnAttempt: func(attempt int, err error) {
			if attempt > 1 {
				s.mu.Lock()
				s.retries++
				s.mu.Unlock()
			}
		},
		OnTimeout: func(pending int) {
			s.mu.Lock()
			s.byKind[modifier.TimeoutFailure]++
			s.mu.Unlock()
		},
	}
}

// Latency 延迟分布（毫秒）
type Latency struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
}

// Snapshot is a point-in-time copy of the collected numbers.
type Snapshot struct {
	Invocations int                          `json:"invocations"`
	Failures    int                          `json:"failures"`
	Retries     int                          `json:"retries"`
	ByKind      map[modifier.FailureKind]int `json:"by_kind,omitempty"`
	Latency     Latency                      `json:"latency_ms"`
}

// Snapshot returns the current numbers.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Invocations: s.invocations,
		Failures:    s.failures,
		Retries:     s.retries,
	}
	if len(s.byKind) > 0 {
		snap.ByKind = make(map[modifier.FailureKind]int, len(s.byKind))
		for k, v := range s.byKind {
			snap.ByKind[k] = v
		}
	}
	if s.hist.TotalCount() > 0 {
		snap.Latency = Latency{
			Min:  usToMs(s.hist.Min()),
			Mean: s.hist.Mean() / 1000,
			P50:  usToMs(s.hist.ValueAtQuantile(50)),
			P90:  usToMs(s.hist.ValueAtQuantile(90)),
			P99:  usToMs(s.hist.ValueAtQuantile(99)),
			Max:  usToMs(s.hist.Max()),
		}
	}
	return snap
}

func usToMs(us int64) float64 {
	return float64(us) / 1000
}
