package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/multitest/pkg/modifier"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Run.Format)
	assert.Nil(t, cfg.Run.Timeout)
	assert.True(t, cfg.Run.Spec().IsEmpty())
	assert.NoError(t, NewValidator().Validate(cfg))
}

func TestLoadFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mt.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
logging:
  level: debug
  format: json
run:
  retry: 2
  parallel: 8
  timeout: 3s
  manifest: tests.yaml
`), 0o644))

	cfg, err := NewLoader().WithConfigPath(file).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, "tests.yaml", cfg.Run.Manifest)

	s := cfg.Run.Spec()
	require.NotNil(t, s.Retry)
	assert.Equal(t, 2, s.Retry.Count)
	assert.Nil(t, s.Repeat)
	assert.Equal(t, 8, s.Parallel.Count)
	assert.Equal(t, 3*time.Second, s.Parallel.TimeoutOrDefault())
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MT_LOG_LEVEL", "error")
	t.Setenv("MT_REPEAT", "4")
	t.Setenv("MT_TIMEOUT", "1500")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Run.Repeat)
	require.NotNil(t, cfg.Run.Timeout)
	assert.Equal(t, 1500*time.Millisecond, *cfg.Run.Timeout)
}

func TestCmdOverrides(t *testing.T) {
	cfg, err := NewLoader().WithCmdArgs(map[string]string{
		"run.parallel":   "3",
		"run.timeout":    "250ms",
		"logging.format": "json",
	}).Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Run.Parallel)
	require.NotNil(t, cfg.Run.Timeout)
	assert.Equal(t, 250*time.Millisecond, *cfg.Run.Timeout)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestRunSpec_TimeoutUnsetUsesDefault(t *testing.T) {
	cfg, err := NewLoader().WithCmdArgs(map[string]string{"run.parallel": "2"}).Load()
	require.NoError(t, err)

	s := cfg.Run.Spec()
	require.NotNil(t, s.Parallel)
	assert.Equal(t, modifier.DefaultParallelTimeout, s.Parallel.TimeoutOrDefault())
}

func TestRunSpec_ZeroTimeoutKept(t *testing.T) {
	t.Setenv("MT_TIMEOUT", "0")

	cfg, err := NewLoader().WithCmdArgs(map[string]string{"run.parallel": "2"}).Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Run.Timeout)

	s := cfg.Run.Spec()
	require.NotNil(t, s.Parallel)
	assert.Equal(t, time.Duration(0), s.Parallel.TimeoutOrDefault())

	cfg, err = NewLoader().WithCmdArgs(map[string]string{
		"run.parallel": "2",
		"run.timeout":  "0s",
	}).Load()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Run.Spec().Parallel.TimeoutOrDefault())
}

func TestPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mt.yaml")
	require.NoError(t, os.WriteFile(file, []byte("run:\n  retry: 1\n  repeat: 1\n  parallel: 1\n"), 0o644))
	t.Setenv("MT_REPEAT", "2")
	t.Setenv("MT_PARALLEL", "2")

	cfg, err := NewLoader().
		WithConfigPath(file).
		WithCmdArgs(map[string]string{"run.parallel": "3"}).
		Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Run.Retry)
	assert.Equal(t, 2, cfg.Run.Repeat)
	assert.Equal(t, 3, cfg.Run.Parallel)
}

func TestInvalidValues(t *testing.T) {
	t.Run("bad env int", func(t *testing.T) {
		t.Setenv("MT_RETRY", "many")
		_, err := NewLoader().Load()
		assert.Error(t, err)
	})

	t.Run("unknown path", func(t *testing.T) {
		_, err := NewLoader().WithCmdArgs(map[string]string{"run.nope": "1"}).Load()
		assert.Error(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := NewLoader().WithCmdArgs(map[string]string{
			"run.retry":     "-1",
			"logging.level": "loud",
		}).Load()
		require.Error(t, err)

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Len(t, verrs, 2)
	})
}

func TestSerializeAndParse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Run.Repeat = 9

	data, err := cfg.Serialize()
	require.NoError(t, err)

	parsed, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}
