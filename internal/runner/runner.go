package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"yqhp/multitest/pkg/logger"
	"yqhp/multitest/pkg/modifier"
)

// ErrNoCommand is returned when no command is given.
var ErrNoCommand = errors.New("no command to run")

// Options 运行参数
type Options struct {
	Command    []string
	Spec       modifier.Spec
	OutputTail int
}

// Runner runs a command under a modifier spec.
type Runner struct {
	opts  Options
	stats *Stats
	work  modifier.Work
}

// New validates opts and builds the wrapped unit of work.
func New(ctx context.Context, opts Options) (*Runner, error) {
	if len(opts.Command) == 0 {
		return nil, ErrNoCommand
	}
	r := &Runner{opts: opts, stats: NewStats()}

	w, err := modifier.WrapE(
		CommandWork(ctx, opts.Command, opts.OutputTail, r.stats),
		opts.Spec,
		modifier.WithName(opts.Command[0]),
		modifier.WithHooks(r.stats.Hooks()),
	)
	if err != nil {
		return nil, err
	}
	r.work = w
	return r, nil
}

// Summary 运行结果汇总
type Summary struct {
	RunID    string   `json:"run_id"`
	Command  string   `json:"command"`
	Spec     string   `json:"spec"`
	Passed   bool     `json:"passed"`
	Kind     string   `json:"failure_kind,omitempty"`
	Error    string   `json:"error,omitempty"`
	Elapsed  float64  `json:"elapsed_ms"`
	Expected int      `json:"expected_invocations"`
	Stats    Snapshot `json:"stats"`
}

// Run invokes the wrapped work once and summarizes the result.
func (r *Runner) Run() *Summary {
	runID := uuid.NewString()
	spec := r.opts.Spec.Normalize()
	logger.Info("run started",
		zap.String("run_id", runID),
		zap.Strings("command", r.opts.Command),
		zap.String("spec", spec.String()))

	start := time.Now()
	err := r.work()
	elapsed := time.Since(start)

	s := &Summary{
		RunID:    runID,
		Command:  strings.Join(r.opts.Command, " "),
		Spec:     spec.String(),
		Passed:   err == nil,
		Elapsed:  float64(elapsed.Microseconds()) / 1000,
		Expected: spec.Invocations(),
		Stats:    r.stats.Snapshot(),
	}
	if err != nil {
		s.Kind = string(modifier.KindOf(err))
		s.Error = err.Error()
	}

	logger.Info("run finished",
		zap.String("run_id", runID),
		zap.Bool("passed", s.Passed),
		zap.Duration("elapsed", elapsed),
		zap.Int("invocations", s.Stats.Invocations))
	return s
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, s *Summary) error {
	data, err := sonic.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteText writes a human readable summary.
func WriteText(w io.Writer, s *Summary) error {
	status := "PASS"
	if !s.Passed {
		status = "FAIL"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  [%s]\n", status, s.Command, s.Spec)
	fmt.Fprintf(&b, "  invocations: %d (expected %d on success), failures: %d, retries: %d\n",
		s.Stats.Invocations, s.Expected, s.Stats.Failures, s.Stats.Retries)
	l := s.Stats.Latency
	fmt.Fprintf(&b, "  latency ms: min=%.2f p50=%.2f p90=%.2f p99=%.2f max=%.2f\n", l.Min, l.P50, l.P90, l.P99, l.Max)
	fmt.Fprintf(&b, "  elapsed: %.2fms\n", s.Elapsed)
	if !s.Passed {
		fmt.Fprintf(&b, "  error: %s\n", s.Error)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
