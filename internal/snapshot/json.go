// Package snapshot copies the live contents of a store to and from portable
// files: a JSON object of key/value pairs or a SQLite table.
package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Source is anything that can list and read its live keys.
type Source interface {
	Keys() ([]string, error)
	Get(key string) (string, bool, error)
}

// Sink receives restored pairs.
type Sink interface {
	Set(key, value string) error
}

// collect reads every live pair from src. Keys removed between listing and
// reading are skipped.
func collect(src Source) (map[string]string, error) {
	keys, err := src.Keys()
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	pairs := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok, err := src.Get(k)
		if err != nil {
			return nil, fmt.Errorf("get %q: %w", k, err)
		}
		if ok {
			pairs[k] = v
		}
	}
	return pairs, nil
}

// DumpJSON writes all live pairs of src to path as one JSON object and
// returns the number of pairs written.
func DumpJSON(src Source, path string) (int, error) {
	pairs, err := collect(src)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pairs); err != nil {
		return 0, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return 0, err
	}

	slog.Info("Snapshot dumped", "component", "snapshot", "path", path, "keys", len(pairs))
	return len(pairs), nil
}

// RestoreJSON sets every pair of the JSON object stored at path into dst.
func RestoreJSON(dst Sink, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var pairs map[string]string
	if err := json.NewDecoder(f).Decode(&pairs); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}

	n := 0
	for k, v := range pairs {
		if err := dst.Set(k, v); err != nil {
			return n, fmt.Errorf("set %q: %w", k, err)
		}
		n++
	}

	slog.Info("Snapshot restored", "component", "snapshot", "path", path, "keys", n)
	return n, nil
}
