package modifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepeatCoordinator_RunsAllIterations(t *testing.T) {
	calls := 0
	err := NewRepeatCoordinator(7, func() error {
		calls++
		return nil
	}).Evaluate()

	require.NoError(t, err)
	assert.Equal(t, 7, calls)
}

func TestRepeatCoordinator_AbortsOnFirstFailure(t *testing.T) {
	failure := errors.New("iteration 3")
	calls := 0
	err := NewRepeatCoordinator(10, func() error {
		calls++
		if calls == 3 {
			return failure
		}
		return nil
	}).Evaluate()

	assert.Same(t, failure, err)
	assert.Equal(t, 3, calls)
}

func TestRepeatCoordinator_CountBelowOne(t *testing.T) {
	c := NewRepeatCoordinator(0, func() error { return nil })
	assert.Equal(t, 1, c.Count())
}

func TestRepeatCoordinator_Panic(t *testing.T) {
	calls := 0
	err := NewRepeatCoordinator(5, func() error {
		calls++
		panic("bad state")
	}).Evaluate()

	assert.True(t, IsRuntime(err))
	assert.Equal(t, 1, calls)
}

func TestRepeatCoordinator_Hooks(t *testing.T) {
	var seen []int
	_ = NewRepeatCoordinator(3, func() error { return nil }, WithHooks(Hooks{
		OnIteration: func(i int, err error) { seen = append(seen, i) },
	})).Evaluate()

	assert.Equal(t, []int{1, 2, 3}, seen)
}
