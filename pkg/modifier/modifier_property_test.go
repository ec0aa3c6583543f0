package modifier

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestRetryFailsThenSucceeds_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "count")
		k := rapid.IntRange(0, n-1).Draw(t, "failures")

		calls := 0
		err := NewRetryCoordinator(n, func() error {
			calls++
			if calls <= k {
				return errors.New("not yet")
			}
			return nil
		}).Evaluate()

		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if calls != k+1 {
			t.Fatalf("expected %d invocations, got %d", k+1, calls)
		}
	})
}

func TestRetryAlwaysFails_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "count")

		calls := 0
		var last error
		err := NewRetryCoordinator(n, func() error {
			calls++
			last = errors.New("attempt failed")
			return last
		}).Evaluate()

		if calls != n {
			t.Fatalf("expected %d invocations, got %d", n, calls)
		}
		if err != last {
			t.Fatalf("expected last failure %p, got %v", last, err)
		}
	})
}

func TestRepeatAllSucceed_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := rapid.IntRange(1, 50).Draw(t, "count")

		calls := 0
		err := NewRepeatCoordinator(m, func() error {
			calls++
			return nil
		}).Evaluate()

		if err != nil || calls != m {
			t.Fatalf("expected %d successful invocations, got %d (err=%v)", m, calls, err)
		}
	})
}

func TestRepeatStopsAtFailure_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := rapid.IntRange(1, 50).Draw(t, "count")
		j := rapid.IntRange(1, m).Draw(t, "failAt")

		failure := errors.New("iteration failed")
		calls := 0
		err := NewRepeatCoordinator(m, func() error {
			calls++
			if calls == j {
				return failure
			}
			return nil
		}).Evaluate()

		if err != failure {
			t.Fatalf("expected failure from iteration %d, got %v", j, err)
		}
		if calls != j {
			t.Fatalf("expected %d invocations, got %d", j, calls)
		}
	})
}

func TestParallelAllSucceed_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := rapid.IntRange(1, 32).Draw(t, "count")

		var calls atomic.Int32
		err := NewParallelCoordinator(p, 5*time.Second, func() error {
			calls.Add(1)
			return nil
		}).Evaluate()

		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if int(calls.Load()) != p {
			t.Fatalf("expected %d invocations, got %d", p, calls.Load())
		}
	})
}

func TestComposedInvocationCount_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		retry := rapid.IntRange(1, 4).Draw(t, "retry")
		repeat := rapid.IntRange(1, 6).Draw(t, "repeat")
		parallel := rapid.IntRange(1, 8).Draw(t, "parallel")

		var calls atomic.Int32
		spec := NewSpec(WithRetry(retry), WithRepeat(repeat), WithParallel(parallel, 5*time.Second))
		err := Wrap(func() error {
			calls.Add(1)
			return nil
		}, spec)()

		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if int(calls.Load()) != spec.Invocations() {
			t.Fatalf("expected %d invocations, got %d", spec.Invocations(), calls.Load())
		}
	})
}
