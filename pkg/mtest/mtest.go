// Package mtest runs Go test bodies under modifiers.
//
//	func TestCounter(t *testing.T) {
//		mtest.Run(t, modifier.NewSpec(modifier.WithRepeat(5), modifier.WithParallel(20, time.Second)),
//			func(a *mtest.A) {
//				require.NoError(a, counter.Incr())
//			})
//	}
//
// A body receives an *A instead of *testing.T because it may run on many
// goroutines and several times per test. *A satisfies testify's
// assert.TestingT and require.TestingT.
package mtest

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"yqhp/multitest/pkg/logger"
	"yqhp/multitest/pkg/manifest"
	"yqhp/multitest/pkg/modifier"
)

// failNow is the panic value used by A.FailNow to stop the current attempt.
type failNow struct{}

// Body is a test body run once per invocation of the unit of work.
type Body func(a *A)

// A records assertion failures for one invocation of a body.
type A struct {
	name string

	mu     sync.Mutex
	errs   []string
	failed bool
}

// Name returns the name of the test the body belongs to.
func (a *A) Name() string {
	return a.name
}

// Errorf marks the invocation failed and records the message.
func (a *A) Errorf(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs = append(a.errs, fmt.Sprintf(format, args...))
	a.failed = true
}

// FailNow marks the invocation failed and stops it. Only the current
// invocation stops; retries and sibling replicas are unaffected.
func (a *A) FailNow() {
	a.mu.Lock()
	a.failed = true
	a.mu.Unlock()
	panic(failNow{})
}

// Fatalf is Errorf followed by FailNow.
func (a *A) Fatalf(format string, args ...any) {
	a.Errorf(format, args...)
	a.FailNow()
}

// Helper is a no-op kept for testify compatibility.
func (a *A) Helper() {}

// Logf writes to the package logger. Bodies may outlive their test after a
// parallel timeout, so nothing is written to testing.T.
func (a *A) Logf(format string, args ...any) {
	logger.Info(fmt.Sprintf(format, args...), zap.String("test", a.name))
}

// Failed reports whether the invocation has failed.
func (a *A) Failed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failed
}

func (a *A) err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.failed {
		return nil
	}
	if len(a.errs) == 0 {
		return modifier.Logicf("%s failed", a.name)
	}
	return modifier.Logicf("%s", strings.Join(a.errs, "\n"))
}

// Work adapts body to a unit of work. Every call creates a fresh A; failed
// assertions become a LogicFailure and other panics propagate.
func Work(name string, body Body) modifier.Work {
	return func() (err error) {
		a := &A{name: name}
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(failNow); !ok {
					panic(r)
				}
				err = a.err()
			}
		}()
		body(a)
		return a.err()
	}
}

// Run wraps body with spec and runs it once from the calling test.
func Run(t testing.TB, spec modifier.Spec, body Body) {
	t.Helper()
	if err := run(t.Name(), spec, body); err != nil {
		t.Fatal(err)
	}
}

// RunNamed looks the modifiers up in m by the test name. A test without an
// entry runs its body once.
func RunNamed(t testing.TB, m *manifest.Manifest, body Body) {
	t.Helper()
	spec, _ := m.Lookup(t.Name())
	Run(t, spec, body)
}

func run(name string, spec modifier.Spec, body Body) error {
	w, err := modifier.WrapE(Work(name, body), spec, modifier.WithName(name))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return w()
}
