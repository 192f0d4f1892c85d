package engine

import (
	"log/slog"

	"github.com/nconghau/MiniKVS/internal/config"
	"github.com/nconghau/MiniKVS/internal/kvs"
)

// Engine is the storage interface used by the front ends.
type Engine interface {
	Set(key, value string) error
	Get(key string) (string, bool, error)
	Remove(key string) error
	Keys() ([]string, error)
	Compact() error
	Stats() (kvs.Stats, error)
	Close() error
}

var _ Engine = (*kvs.Store)(nil)

// Open opens the log-structured store described by cfg.
func Open(cfg *config.Config, logger *slog.Logger) (Engine, error) {
	return kvs.OpenWithConfig(StoreConfig(cfg, logger))
}

// StoreConfig translates the file configuration into store options.
func StoreConfig(cfg *config.Config, logger *slog.Logger) kvs.Config {
	sc := kvs.DefaultConfig(cfg.Storage.Dir)
	if cfg.Storage.CompactionThreshold > 0 {
		sc.CompactionThreshold = cfg.Storage.CompactionThreshold
	}
	sc.SyncOnWrite = cfg.Storage.SyncOnWrite
	sc.Logger = logger
	return sc
}
