package modifier

import (
	"go.uber.org/zap"

	"yqhp/multitest/pkg/logger"
)

// DefaultRetryCount 默认最大尝试次数
const DefaultRetryCount = 3

// RetryCoordinator re-runs a unit of work until it succeeds or the attempt
// budget is spent. Attempts run back to back with no delay.
type RetryCoordinator struct {
	count int
	work  Work
	opts  options
}

// NewRetryCoordinator creates a retry coordinator. count <= 0 falls back to
// DefaultRetryCount.
func NewRetryCoordinator(count int, work Work, opts ...Option) *RetryCoordinator {
	if count <= 0 {
		count = DefaultRetryCount
	}
	return &RetryCoordinator{
		count: count,
		work:  work,
		opts:  buildOptions(opts),
	}
}

// Count returns the attempt budget.
func (c *RetryCoordinator) Count() int {
	return c.count
}

// Evaluate runs the attempts. It returns nil on the first success, otherwise
// the error of the last attempt exactly as the work returned it.
func (c *RetryCoordinator) Evaluate() error {
	var lastErr error
	for attempt := 1; attempt <= c.count; attempt++ {
		lastErr = invoke(c.work)
		if h := c.opts.hooks.OnAttempt; h != nil {
			err := lastErr
			c.opts.callHook("OnAttempt", func() { h(attempt, err) })
		}
		if lastErr == nil {
			return nil
		}
		if logger.IsDebugEnabled() {
			logger.Debug("attempt failed",
				zap.String("name", c.opts.name),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.count),
				zap.Error(lastErr))
		}
	}
	return lastErr
}
