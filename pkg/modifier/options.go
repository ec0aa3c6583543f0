package modifier

import (
	"time"

	"go.uber.org/zap"

	"yqhp/multitest/pkg/logger"
)

// Hooks observe coordinator progress. Every callback is optional and runs
// synchronously on the goroutine that produced the event, so callbacks used
// with Parallel must be safe for concurrent use. A panicking callback is
// logged and otherwise ignored; it never changes an outcome.
type Hooks struct {
	// OnAttempt is called after every retry attempt (1-based).
	OnAttempt func(attempt int, err error)
	// OnIteration is called after every repeat iteration (1-based).
	OnIteration func(iteration int, err error)
	// OnReplicaDone is called when a parallel replica finishes.
	OnReplicaDone func(index int, elapsed time.Duration, err error)
	// OnTimeout is called when a parallel join gives up waiting.
	OnTimeout func(pending int)
}

// Option configures a coordinator.
type Option func(*options)

type options struct {
	name  string
	hooks Hooks
}

// WithName sets the name used in log entries.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithHooks installs observation callbacks.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// callHook runs fn and logs a panic instead of letting it escape.
func (o options) callHook(hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("hook panicked",
				zap.String("hook", hook),
				zap.String("name", o.name),
				zap.Any("panic", r))
		}
	}()
	fn()
}
