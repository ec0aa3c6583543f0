package modifier

import (
	"go.uber.org/zap"

	"yqhp/multitest/pkg/logger"
)

// RepeatCoordinator runs a unit of work a fixed number of times and stops at
// the first failure.
type RepeatCoordinator struct {
	count int
	work  Work
	opts  options
}

// NewRepeatCoordinator creates a repeat coordinator. Repeat has no default
// count; count < 1 runs the work once.
func NewRepeatCoordinator(count int, work Work, opts ...Option) *RepeatCoordinator {
	if count < 1 {
		count = 1
	}
	return &RepeatCoordinator{
		count: count,
		work:  work,
		opts:  buildOptions(opts),
	}
}

// Count returns the number of iterations.
func (c *RepeatCoordinator) Count() int {
	return c.count
}

// Evaluate runs every iteration in order and returns the first failure
// unchanged. Iterations after a failure are not run.
func (c *RepeatCoordinator) Evaluate() error {
	for i := 1; i <= c.count; i++ {
		err := invoke(c.work)
		if h := c.opts.hooks.OnIteration; h != nil {
			c.opts.callHook("OnIteration", func() { h(i, err) })
		}
		if err != nil {
			logger.Debug("repeat aborted",
				zap.String("name", c.opts.name),
				zap.Int("iteration", i),
				zap.Int("count", c.count),
				zap.Error(err))
			return err
		}
	}
	return nil
}
