package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "FRAUDSCOPE_"
	envFileVar = envPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FRAUDSCOPE_CONFIG is set
//  3. env (prefix FRAUDSCOPE_; "__" separates nested keys)
func Load(_ context.Context) (*Config, error) {
	return LoadFile(os.Getenv(envFileVar))
}

// LoadFile is Load with an explicit file path; empty skips the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// FRAUDSCOPE_SCORING_WORKERS -> scoring_workers,
	// FRAUDSCOPE_INTERNAL_REPUTATION__WEIGHT -> internal_reputation.weight
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		if s == "CONFIG" {
			return ""
		}
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.ScoringWorkers < 1 || c.AlertWorkers < 1:
		return invalid("worker counts must be positive")
	case c.BatchSize < 1:
		return invalid("batch_size must be positive")
	case c.PollIntervalMS < 1 || c.StatsIntervalMS < 1 || c.ReconcileIntervalMS < 1:
		return invalid("intervals must be positive")
	case c.LowRiskThreshold < 0 || c.HighRiskThreshold > 1 || c.LowRiskThreshold > c.HighRiskThreshold:
		return invalid("thresholds must satisfy 0 <= low <= high <= 1")
	case c.HistoryWindow < 1 || c.VelocityWindow < 1 || c.ReconcileWindow < 1:
		return invalid("windows must be positive")
	case c.MaxListLimit < 1:
		return invalid("max_list_limit must be positive")
	}

	switch c.ClassifierMode {
	case "linear", "forest", "ensemble":
	default:
		return invalid("unknown classifier_mode %q", c.ClassifierMode)
	}
	switch c.StoreDriver {
	case "memory":
	case "sqlite3", "postgres":
		if c.StoreDSN == "" {
			return invalid("store_dsn is required for %s", c.StoreDriver)
		}
	default:
		return invalid("unknown store_driver %q", c.StoreDriver)
	}

	total := 0.0
	if c.InternalReputation.Enabled {
		total += c.InternalReputation.Weight
	}
	for _, s := range c.ReputationSources {
		if s.Name == "" || s.URL == "" {
			return invalid("reputation source needs a name and url")
		}
		if s.Weight < 0 {
			return invalid("reputation source %s has a negative weight", s.Name)
		}
		total += s.Weight
	}
	if c.InternalReputation.Weight < 0 || total > 1+1e-9 {
		return invalid("reputation weights must be non-negative and sum to at most 1, got %.3f", total)
	}
	return nil
}

// Watch reloads path whenever it changes and hands every valid result to
// fn. Invalid edits are reported to onErr and otherwise ignored. The
// watcher stops when ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config), onErr func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatchConfig, err)
	}
	// watch the directory: editors replace files instead of writing them
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: add %s: %w", ErrWatchConfig, path, err)
	}
	target := filepath.Clean(path)
	if onErr == nil {
		onErr = func(error) {}
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				cfg, err := LoadFile(path)
				if err != nil {
					onErr(err)
					continue
				}
				fn(cfg)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				onErr(fmt.Errorf("%w: %w", ErrWatchConfig, err))
			}
		}
	}()
	return nil
}
