package runner

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/multitest/pkg/modifier"
)

func TestCommandWork_Success(t *testing.T) {
	stats := NewStats()
	err := CommandWork(context.Background(), []string{"sh", "-c", "exit 0"}, 100, stats)()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Snapshot().Invocations)
}

func TestCommandWork_ExitCode(t *testing.T) {
	err := CommandWork(context.Background(), []string{"sh", "-c", "echo boom; exit 3"}, 100, nil)()
	require.Error(t, err)
	assert.True(t, modifier.IsLogic(err))
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "boom")
}

func TestCommandWork_NotFound(t *testing.T) {
	err := CommandWork(context.Background(), []string{"/definitely/not/here"}, 100, nil)()
	require.Error(t, err)
	assert.True(t, modifier.IsLogic(err))
}

func TestLastBytes(t *testing.T) {
	assert.Equal(t, "", lastBytes([]byte("abc"), 0))
	assert.Equal(t, "bc", lastBytes([]byte("abc"), 2))
	assert.Equal(t, "abc", lastBytes([]byte("abc\n"), 10))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrNoCommand)

	_, err = New(context.Background(), Options{
		Command: []string{"true"},
		Spec:    modifier.NewSpec(modifier.WithRepeat(0)),
	})
	assert.ErrorIs(t, err, modifier.ErrInvalidSpec)
}

func TestRunner_RetryFlakyCommand(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "seen")
	script := `if [ -f "` + marker + `" ]; then exit 0; fi; touch "` + marker + `"; exit 1`

	r, err := New(context.Background(), Options{
		Command:    []string{"sh", "-c", script},
		Spec:       modifier.NewSpec(modifier.WithRetry(3), modifier.WithRepeat(2)),
		OutputTail: 256,
	})
	require.NoError(t, err)

	s := r.Run()
	assert.True(t, s.Passed)
	assert.Equal(t, 3, s.Stats.Invocations)
	assert.Equal(t, 1, s.Stats.Failures)
	assert.Equal(t, 1, s.Stats.Retries)
	assert.Equal(t, 1, s.Stats.ByKind[modifier.LogicFailure])
	assert.Equal(t, 2, s.Expected)
	assert.NotEmpty(t, s.RunID)
}

func TestRunner_Parallel(t *testing.T) {
	r, err := New(context.Background(), Options{
		Command: []string{"sh", "-c", "exit 0"},
		Spec:    modifier.NewSpec(modifier.WithParallel(4, 5*time.Second)),
	})
	require.NoError(t, err)

	s := r.Run()
	assert.True(t, s.Passed)
	assert.Equal(t, 4, s.Stats.Invocations)
	assert.Greater(t, s.Stats.Latency.Max, 0.0)
}

func TestRunner_Timeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := New(ctx, Options{
		Command: []string{"sleep", "5"},
		Spec:    modifier.NewSpec(modifier.WithParallel(2, 100*time.Millisecond)),
	})
	require.NoError(t, err)

	s := r.Run()
	assert.False(t, s.Passed)
	assert.Equal(t, string(modifier.TimeoutFailure), s.Kind)
	assert.Equal(t, 1, s.Stats.ByKind[modifier.TimeoutFailure])
}

func TestWriteSummary(t *testing.T) {
	s := &Summary{
		RunID:    "run-1",
		Command:  "go test ./...",
		Spec:     "repeat=2",
		Passed:   false,
		Kind:     string(modifier.LogicFailure),
		Error:    errors.New("exit status 1").Error(),
		Expected: 2,
		Stats:    Snapshot{Invocations: 1, Failures: 1},
	}

	var text bytes.Buffer
	require.NoError(t, WriteText(&text, s))
	assert.Contains(t, text.String(), "FAIL  go test ./...  [repeat=2]")
	assert.Contains(t, text.String(), "error: exit status 1")

	var js bytes.Buffer
	require.NoError(t, WriteJSON(&js, s))
	var decoded Summary
	require.NoError(t, sonic.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, s.RunID, decoded.RunID)
	assert.Equal(t, s.Stats.Failures, decoded.Stats.Failures)
	assert.False(t, decoded.Passed)
}
