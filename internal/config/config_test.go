package config_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-taskflow/internal/config"
	"github.com/askiada/go-taskflow/pkg/checkpoint"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path string
	}{
		"empty path":   {path: ""},
		"missing file": {path: filepath.Join(t.TempDir(), "missing.yaml")},
		"empty file":   {path: writeConfig(t, "")},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.Load(tt.path)
			require.NoError(t, err)
			assert.Equal(t, config.Default(), cfg)
		})
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
log_level: debug
checkpoint:
  backend: badger
  badger:
    in_memory: true
    sync_writes: false
draw:
  output: graph.dot
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, config.BackendBadger, cfg.Checkpoint.Backend)
	assert.Equal(t, ".taskflow/checkpoints", cfg.Checkpoint.Dir)
	assert.Equal(t, ".taskflow/badger", cfg.Checkpoint.Badger.Path)
	assert.True(t, cfg.Checkpoint.Badger.InMemory)
	require.NotNil(t, cfg.Checkpoint.Badger.SyncWrites)
	assert.False(t, *cfg.Checkpoint.Badger.SyncWrites)
	assert.Equal(t, "graph.dot", cfg.Draw.Output)

	assert.True(t, *config.Default().Checkpoint.Badger.SyncWrites)
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content   string
		invalidCf bool
	}{
		"unknown field":   {content: "unknown: true"},
		"not yaml":        {content: "log_level: [debug"},
		"unknown backend": {content: "checkpoint:\n  backend: s3", invalidCf: true},
		"unknown level":   {content: "log_level: verbose", invalidCf: true},
		"unknown format":  {content: "log_format: xml", invalidCf: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Load(writeConfig(t, tt.content))
			require.Error(t, err)
			if tt.invalidCf {
				assert.ErrorIs(t, err, config.ErrInvalidConfig)
			}
		})
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TASKFLOW_LOG_LEVEL", "warn")
	t.Setenv("TASKFLOW_CHECKPOINT_BACKEND", "memory")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, config.BackendMemory, cfg.Checkpoint.Backend)
}

func TestLogger(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.LogLevel = "warn"
	cfg.LogFormat = "json"

	buf := &bytes.Buffer{}
	logger, err := cfg.Logger(buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestOpenStrategy(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg config.CheckpointConfig
	}{
		"file":   {cfg: config.CheckpointConfig{Backend: config.BackendFile, Dir: t.TempDir()}},
		"badger": {cfg: config.CheckpointConfig{Backend: config.BackendBadger, Badger: config.BadgerConfig{InMemory: true}}},
		"memory": {cfg: config.CheckpointConfig{Backend: config.BackendMemory}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s, closeFn, err := tt.cfg.OpenStrategy(nil)
			require.NoError(t, err)
			defer func() {
				assert.NoError(t, closeFn())
			}()

			require.NoError(t, s.Save(ctx, "run", checkpoint.Data{"a": "b"}))
			got, ok, err := s.Restore(ctx, "run")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, checkpoint.Data{"a": "b"}, got)
		})
	}

	_, _, err := config.CheckpointConfig{Backend: "s3"}.OpenStrategy(nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
