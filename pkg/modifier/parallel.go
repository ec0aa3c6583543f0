package modifier

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"yqhp/multitest/internal/barrier"
	"yqhp/multitest/pkg/logger"
)

const (
	// DefaultParallelCount 默认并行副本数
	DefaultParallelCount = 10
	// DefaultParallelTimeout 默认并行等待超时
	DefaultParallelTimeout = 10 * time.Second
)

// ReplicaOutcome is the recorded result of one replica.
type ReplicaOutcome struct {
	Index    int           `json:"index"`
	Finished bool          `json:"finished"`
	Elapsed  time.Duration `json:"elapsed"`
	Err      error         `json:"-"`
}

// Report describes one parallel evaluation.
type Report struct {
	RunID    string           `json:"run_id"`
	Replicas int              `json:"replicas"`
	TimedOut bool             `json:"timed_out"`
	Pending  int              `json:"pending"`
	Outcomes []ReplicaOutcome `json:"outcomes"`
}

// Failed returns the number of finished replicas that failed.
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Err combines every replica failure in submission order.
func (r Report) Err() error {
	var err error
	for _, o := range r.Outcomes {
		err = multierr.Append(err, o.Err)
	}
	return err
}

// ParallelCoordinator replays a unit of work on a fixed number of goroutines
// that start together. A coordinator can be evaluated once.
type ParallelCoordinator struct {
	count   int
	timeout time.Duration
	work    Work
	opts    options

	used     atomic.Bool
	finished atomic.Int32

	mu     sync.Mutex
	report Report
}

// NewParallelCoordinator creates a parallel coordinator. count <= 0 falls
// back to DefaultParallelCount. A timeout of zero does not wait at all; a
// negative timeout is treated as zero.
func NewParallelCoordinator(count int, timeout time.Duration, work Work, opts ...Option) *ParallelCoordinator {
	if count <= 0 {
		count = DefaultParallelCount
	}
	if timeout < 0 {
		timeout = 0
	}
	return &ParallelCoordinator{
		count:   count,
		timeout: timeout,
		work:    work,
		opts:    buildOptions(opts),
	}
}

// Count returns the number of replicas.
func (c *ParallelCoordinator) Count() int {
	return c.count
}

// Timeout returns the join deadline.
func (c *ParallelCoordinator) Timeout() time.Duration {
	return c.timeout
}

// Evaluate starts the replicas and waits for them up to the timeout.
//
// On timeout a TimeoutFailure is returned right away; replicas that are
// still running are left running and their outcomes are ignored. Otherwise
// the failure of the lowest submission index is returned, or nil.
func (c *ParallelCoordinator) Evaluate() error {
	if !c.used.CompareAndSwap(false, true) {
		return ErrCoordinatorUsed
	}

	runID := uuid.NewString()
	c.mu.Lock()
	c.report = Report{
		RunID:    runID,
		Replicas: c.count,
		Outcomes: make([]ReplicaOutcome, c.count),
	}
	for i := range c.report.Outcomes {
		c.report.Outcomes[i].Index = i
	}
	c.mu.Unlock()

	logger.Debug("parallel run started",
		zap.String("run_id", runID),
		zap.String("name", c.opts.name),
		zap.Int("replicas", c.count),
		zap.Duration("timeout", c.timeout))

	pool, err := ants.NewPool(c.count,
		ants.WithLogger(poolLogger{runID: runID}),
		ants.WithDisablePurge(true))
	if err != nil {
		return &Failure{Kind: RuntimeFailure, Message: "create worker pool", Cause: err}
	}

	gate := barrier.New(c.count)
	var wg sync.WaitGroup
	for i := 0; i < c.count; i++ {
		idx := i
		wg.Add(1)
		if err := pool.Submit(func() { c.runReplica(idx, gate, &wg) }); err != nil {
			// 提交失败，打破屏障让已提交的副本退出
			wg.Done()
			c.record(idx, &Failure{
				Kind:    RuntimeFailure,
				Message: fmt.Sprintf("submit replica %d", idx),
				Cause:   err,
			}, 0)
			gate.Break()
		}
	}
	// 不再接受新任务，正在运行的副本不受影响
	pool.Release()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	if !c.join(done) {
		pending := c.count - int(c.finished.Load())
		// 仍在屏障处等待的副本直接放弃，已开始的副本继续运行
		gate.Break()

		c.mu.Lock()
		c.report.TimedOut = true
		c.report.Pending = pending
		c.mu.Unlock()

		if h := c.opts.hooks.OnTimeout; h != nil {
			c.opts.callHook("OnTimeout", func() { h(pending) })
		}
		logger.Warn("parallel run timed out, replicas left running",
			zap.String("run_id", runID),
			zap.String("name", c.opts.name),
			zap.Duration("timeout", c.timeout),
			zap.Int("pending", pending))
		return newTimeoutFailure(c.timeout, pending)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range c.report.Outcomes {
		if o.Err != nil {
			logger.Debug("parallel run failed",
				zap.String("run_id", runID),
				zap.Int("index", o.Index),
				zap.Error(o.Err))
			return o.Err
		}
	}
	logger.Debug("parallel run passed", zap.String("run_id", runID))
	return nil
}

// join waits for done or the timeout and reports whether done won.
func (c *ParallelCoordinator) join(done <-chan struct{}) bool {
	if c.timeout == 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		// 与超时同时完成时以完成为准
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

func (c *ParallelCoordinator) runReplica(idx int, gate *barrier.Barrier, wg *sync.WaitGroup) {
	defer wg.Done()

	if err := gate.Await(context.Background()); err != nil {
		c.record(idx, &Failure{
			Kind:    RuntimeFailure,
			Message: fmt.Sprintf("replica %d did not start", idx),
			Cause:   err,
		}, 0)
		return
	}

	start := time.Now()
	var err error
	returned := false
	defer func() {
		if !returned {
			// invoke 已处理 panic，这里只剩 Goexit
			err = newGoexitFailure()
		}
		elapsed := time.Since(start)
		c.record(idx, err, elapsed)
		if h := c.opts.hooks.OnReplicaDone; h != nil {
			c.opts.callHook("OnReplicaDone", func() { h(idx, elapsed, err) })
		}
	}()

	err = invoke(c.work)
	returned = true
}

func (c *ParallelCoordinator) record(idx int, err error, elapsed time.Duration) {
	c.mu.Lock()
	o := &c.report.Outcomes[idx]
	o.Finished = true
	o.Elapsed = elapsed
	o.Err = err
	c.mu.Unlock()
	c.finished.Add(1)
}

// Report returns a snapshot of the last evaluation. Outcomes of replicas that
// were still running at the deadline may change in later snapshots.
func (c *ParallelCoordinator) Report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.report
	r.Outcomes = append([]ReplicaOutcome(nil), c.report.Outcomes...)
	return r
}

// poolLogger routes ants diagnostics to the package logger.
type poolLogger struct {
	runID string
}

func (l poolLogger) Printf(format string, args ...any) {
	logger.Warn(fmt.Sprintf(format, args...), zap.String("run_id", l.runID))
}
