package engine

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nconghau/MiniKVS/internal/config"
	"github.com/nconghau/MiniKVS/internal/kvs"
)

func TestStoreConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Dir = "/data/kvs"
	cfg.Storage.CompactionThreshold = 7
	cfg.Storage.SyncOnWrite = true

	sc := StoreConfig(cfg, nil)
	if sc.Dir != "/data/kvs" || sc.CompactionThreshold != 7 || !sc.SyncOnWrite {
		t.Fatalf("unexpected store config: %+v", sc)
	}

	cfg.Storage.CompactionThreshold = 0
	if sc := StoreConfig(cfg, nil); sc.CompactionThreshold != kvs.DefaultCompactionThreshold {
		t.Fatalf("expected default threshold, got %d", sc.CompactionThreshold)
	}
}

func TestOpen(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(cfg, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Set("name", "MiniKVS"); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = Open(cfg, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	val, ok, err := db.Get("name")
	if err != nil || !ok || val != "MiniKVS" {
		t.Fatalf("Get after reopen = %q, %v, %v", val, ok, err)
	}
	if err := db.Remove("missing"); !errors.Is(err, kvs.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}
