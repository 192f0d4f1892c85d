package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/nconghau/MiniKVS/internal/config"
	"github.com/nconghau/MiniKVS/internal/engine"
)

func newShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()
	db, err := engine.Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var out bytes.Buffer
	return &shell{db: db, out: &out}, &out
}

// run executes line and returns what it printed.
func (sh *shell) run(t *testing.T, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	if !sh.exec(line) {
		t.Fatalf("%q ended the shell", line)
	}
	return out.String()
}

func TestShellCommands(t *testing.T) {
	sh, out := newShell(t)

	if got := sh.run(t, out, "get user:1"); got != "Key not found\n" {
		t.Fatalf("get missing: %q", got)
	}
	if got := sh.run(t, out, "set user:1 Alice Smith"); got != "OK\n" {
		t.Fatalf("set: %q", got)
	}
	if got := sh.run(t, out, "  GET   user:1  "); got != "Alice Smith\n" {
		t.Fatalf("get: %q", got)
	}
	sh.run(t, out, "set user:2 Bob")
	sh.run(t, out, "set order:1 42")

	if got := sh.run(t, out, "keys user:"); got != "user:1\nuser:2\n" {
		t.Fatalf("keys with prefix: %q", got)
	}
	if got := sh.run(t, out, "rm user:2"); got != "Removed user:2\n" {
		t.Fatalf("rm: %q", got)
	}
	if got := sh.run(t, out, "rm user:2"); got != "Key not found\n" {
		t.Fatalf("rm missing: %q", got)
	}
	if got := sh.run(t, out, "keys nothing"); got != "(no keys)\n" {
		t.Fatalf("keys none: %q", got)
	}
	if got := sh.run(t, out, "set"); !strings.HasPrefix(got, "Usage: set") {
		t.Fatalf("set usage: %q", got)
	}
	if got := sh.run(t, out, "set onlykey"); !strings.HasPrefix(got, "Usage: set") {
		t.Fatalf("set usage with key: %q", got)
	}
	if got := sh.run(t, out, "frobnicate"); got != "Unknown command: frobnicate\n" {
		t.Fatalf("unknown: %q", got)
	}
	if got := sh.run(t, out, "compact"); got != "Compaction complete\n" {
		t.Fatalf("compact: %q", got)
	}
	if got := sh.run(t, out, "stats"); !strings.Contains(got, "(active 1)") {
		t.Fatalf("stats after compact: %q", got)
	}
	if got := sh.run(t, out, "get user:1"); got != "Alice Smith\n" {
		t.Fatalf("get after compact: %q", got)
	}

	out.Reset()
	if sh.exec("exit") {
		t.Fatal("exit should stop the shell")
	}
}

func TestShellSnapshots(t *testing.T) {
	sh, out := newShell(t)
	sh.run(t, out, "set a 1")
	sh.run(t, out, "set b two words")

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "dump.json")
	sqlitePath := filepath.Join(dir, "dump.sqlite")

	if got := sh.run(t, out, "dump "+jsonPath); got != "Dumped 2 keys to "+jsonPath+"\n" {
		t.Fatalf("dump: %q", got)
	}
	if got := sh.run(t, out, "export "+sqlitePath); got != "Exported 2 keys to "+sqlitePath+"\n" {
		t.Fatalf("export: %q", got)
	}

	fromJSON, jsonOut := newShell(t)
	if got := fromJSON.run(t, jsonOut, "restore "+jsonPath); got != "Restored 2 keys from "+jsonPath+"\n" {
		t.Fatalf("restore: %q", got)
	}
	if got := fromJSON.run(t, jsonOut, "get b"); got != "two words\n" {
		t.Fatalf("get after restore: %q", got)
	}

	fromSQLite, sqliteOut := newShell(t)
	if got := fromSQLite.run(t, sqliteOut, "import "+sqlitePath); got != "Imported 2 keys from "+sqlitePath+"\n" {
		t.Fatalf("import: %q", got)
	}
	if got := fromSQLite.run(t, sqliteOut, "get a"); got != "1\n" {
		t.Fatalf("get after import: %q", got)
	}

	if got := sh.run(t, out, "restore "+filepath.Join(dir, "missing.json")); !strings.HasPrefix(got, "Restore error:") {
		t.Fatalf("restore missing: %q", got)
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want []string
	}{
		{"", 2, []string{}},
		{"key", 2, []string{"key"}},
		{"key value", 2, []string{"key", "value"}},
		{"key  a value  with spaces", 2, []string{"key", "a value  with spaces"}},
		{"only", 1, []string{"only"}},
	}
	for _, tt := range tests {
		if got := splitArgs(tt.in, tt.n); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitArgs(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

type fakeKeys []string

func (f fakeKeys) Keys() ([]string, error) { return f, nil }

func completions(c completer, line string) ([]string, int) {
	cands, n := c.Do([]rune(line), len([]rune(line)))
	out := make([]string, 0, len(cands))
	for _, r := range cands {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out, n
}

func TestCompleter(t *testing.T) {
	c := completer{db: fakeKeys{"user:1", "user:2", "order:9"}}

	if got, n := completions(c, "co"); !reflect.DeepEqual(got, []string{"mpact"}) || n != 2 {
		t.Errorf("command completion: %q, %d", got, n)
	}
	if got, _ := completions(c, "e"); !reflect.DeepEqual(got, []string{"xit", "xport"}) {
		t.Errorf("ambiguous command completion: %q", got)
	}
	if got, n := completions(c, "get user:"); !reflect.DeepEqual(got, []string{"1", "2"}) || n != 5 {
		t.Errorf("key completion: %q, %d", got, n)
	}
	if got, n := completions(c, "rm "); len(got) != 3 || n != 0 {
		t.Errorf("all keys: %q, %d", got, n)
	}
	if got, _ := completions(c, "dump us"); got != nil && len(got) != 0 {
		t.Errorf("dump should not complete keys: %q", got)
	}
	if got, _ := completions(c, "set user:1 val"); len(got) != 0 {
		t.Errorf("values should not complete: %q", got)
	}
}
