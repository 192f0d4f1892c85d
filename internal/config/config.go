package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCompactionThreshold = 100
	DefaultHistoryFile         = "/tmp/MiniKVS.history"
)

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Shell   ShellConfig   `yaml:"shell"`
}

type StorageConfig struct {
	Dir                 string `yaml:"dir"`
	CompactionThreshold int    `yaml:"compaction_threshold"` // redundant records before compaction
	SyncOnWrite         bool   `yaml:"sync_on_write"`        // fsync after every write
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

type ShellConfig struct {
	HistoryFile string `yaml:"history_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir:                 ".",
			CompactionThreshold: DefaultCompactionThreshold,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Shell: ShellConfig{
			HistoryFile: DefaultHistoryFile,
		},
	}
}

// Load reads configuration from path, then applies environment overrides.
// An empty path searches configs/kvs.yaml and kvs.yaml and falls back to
// defaults when neither exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, p := range []string{"configs/kvs.yaml", "kvs.yaml"} {
			data, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", p, err)
			}
			break
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return cfg, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if val := os.Getenv("KVS_DIR"); val != "" {
		cfg.Storage.Dir = val
	}
	if val := os.Getenv("KVS_COMPACTION_THRESHOLD"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("KVS_COMPACTION_THRESHOLD: %w", err)
		}
		cfg.Storage.CompactionThreshold = n
	}
	if val := os.Getenv("KVS_SYNC_ON_WRITE"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("KVS_SYNC_ON_WRITE: %w", err)
		}
		cfg.Storage.SyncOnWrite = b
	}
	if val := os.Getenv("KVS_LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "."
	}
	if cfg.Storage.CompactionThreshold <= 0 {
		cfg.Storage.CompactionThreshold = DefaultCompactionThreshold
	}
	if cfg.Log.Format != "json" {
		cfg.Log.Format = "text"
	}
	if cfg.Shell.HistoryFile == "" {
		cfg.Shell.HistoryFile = DefaultHistoryFile
	}
}

// SlogLevel maps the configured level name onto slog; unknown names mean info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
