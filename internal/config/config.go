// Package config loads the taskflow command configuration.
package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-taskflow/pkg/checkpoint"
)

const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	LogLevel   string           `yaml:"log_level"`
	LogFormat  string           `yaml:"log_format"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Draw       DrawConfig       `yaml:"draw"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type CheckpointConfig struct {
	// Backend is one of file, badger or memory.
	Backend string       `yaml:"backend"`
	Dir     string       `yaml:"dir"`
	Badger  BadgerConfig `yaml:"badger"`
}

type BadgerConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
	// SyncWrites is a pointer so that an explicit false overrides the default.
	SyncWrites *bool `yaml:"sync_writes"`
}

type DrawConfig struct {
	// Output is the DOT file written after a run. Nothing is drawn when empty.
	Output string `yaml:"output"`
}

type MetricsConfig struct {
	// Textfile receives the Prometheus metrics after a run. Nothing is written when empty.
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	syncWrites := true

	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Checkpoint: CheckpointConfig{
			Backend: BackendFile,
			Dir:     ".taskflow/checkpoints",
			Badger: BadgerConfig{
				Path:       ".taskflow/badger",
				SyncWrites: &syncWrites,
			},
		},
	}
}

// Load merges the YAML file at path over the defaults, then applies the TASKFLOW_* environment
// variables. An empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, errors.Wrapf(err, "unable to read config file %s", path)
		default:
			fromFile, err := Parse(content)
			if err != nil {
				return cfg, errors.Wrapf(err, "unable to parse config file %s", path)
			}
			err = mergo.Merge(&cfg, fromFile, mergo.WithOverride, mergo.WithoutDereference)
			if err != nil {
				return cfg, errors.Wrap(err, "unable to merge config")
			}
		}
	}

	applyEnv(&cfg)

	err := cfg.Validate()
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Parse decodes a YAML document. Unknown fields are rejected.
func Parse(content []byte) (Config, error) {
	cfg := Config{}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, errors.Wrap(err, "unable to decode yaml")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TASKFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TASKFLOW_CHECKPOINT_BACKEND"); v != "" {
		cfg.Checkpoint.Backend = v
	}
	if v := os.Getenv("TASKFLOW_CHECKPOINT_DIR"); v != "" {
		cfg.Checkpoint.Dir = v
	}
}

// Validate checks the values that cannot be checked by decoding.
func (c Config) Validate() error {
	_, err := c.Level()
	if err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown log format %q", c.LogFormat)
	}
	switch c.Checkpoint.Backend {
	case BackendFile:
		if c.Checkpoint.Dir == "" {
			return errors.Wrap(ErrInvalidConfig, "checkpoint dir is required by the file backend")
		}
	case BackendBadger:
		if !c.Checkpoint.Badger.InMemory && c.Checkpoint.Badger.Path == "" {
			return errors.Wrap(ErrInvalidConfig, "badger path is required unless in memory")
		}
	case BackendMemory:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown checkpoint backend %q", c.Checkpoint.Backend)
	}

	return nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel)))
	if err != nil {
		return level, errors.Wrapf(ErrInvalidConfig, "unknown log level %q", c.LogLevel)
	}

	return level, nil
}

// Logger returns a logger writing to w with the configured level and format.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// OpenStrategy opens the configured checkpoint strategy. The returned function releases it.
func (c CheckpointConfig) OpenStrategy(logger *slog.Logger) (checkpoint.Strategy, func() error, error) {
	noop := func() error { return nil }

	switch c.Backend {
	case BackendFile:
		s, err := checkpoint.NewFileStrategy(c.Dir)
		if err != nil {
			return nil, nil, err
		}

		return s, noop, nil
	case BackendBadger:
		syncWrites := c.Badger.SyncWrites == nil || *c.Badger.SyncWrites
		s, err := checkpoint.OpenBadgerStrategy(checkpoint.BadgerConfig{
			Path:       c.Badger.Path,
			InMemory:   c.Badger.InMemory,
			SyncWrites: syncWrites,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}

		return s, s.Close, nil
	case BackendMemory:
		return checkpoint.NewMemoryStrategy(), noop, nil
	}

	return nil, nil, errors.Wrapf(ErrInvalidConfig, "unknown checkpoint backend %q", c.Backend)
}
