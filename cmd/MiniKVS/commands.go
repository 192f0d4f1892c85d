package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nconghau/MiniKVS/internal/kvs"
	"github.com/nconghau/MiniKVS/internal/snapshot"
)

// Limit on keys printed by the keys command.
const maxKeysToPrint = 1000

// set <key> <value>
func (sh *shell) handleSet(rest string) {
	parts := splitArgs(rest, 2)
	if len(parts) < 2 {
		fmt.Fprintln(sh.out, "Usage: set <key> <value>")
		return
	}
	if err := sh.db.Set(parts[0], parts[1]); err != nil {
		fmt.Fprintln(sh.out, "Set error:", err)
		return
	}
	fmt.Fprintln(sh.out, "OK")
}

// get <key>
func (sh *shell) handleGet(rest string) {
	parts := splitArgs(rest, 1)
	if len(parts) < 1 {
		fmt.Fprintln(sh.out, "Usage: get <key>")
		return
	}
	val, ok, err := sh.db.Get(parts[0])
	if err != nil {
		fmt.Fprintln(sh.out, "Error:", err)
		return
	}
	if !ok {
		fmt.Fprintln(sh.out, "Key not found")
		return
	}
	fmt.Fprintln(sh.out, val)
}

// rm <key>
func (sh *shell) handleRemove(rest string) {
	parts := splitArgs(rest, 1)
	if len(parts) < 1 {
		fmt.Fprintln(sh.out, "Usage: rm <key>")
		return
	}
	if err := sh.db.Remove(parts[0]); err != nil {
		if errors.Is(err, kvs.ErrKeyNotFound) {
			fmt.Fprintln(sh.out, "Key not found")
			return
		}
		fmt.Fprintln(sh.out, "Remove error:", err)
		return
	}
	fmt.Fprintln(sh.out, "Removed", parts[0])
}

// keys [prefix]
func (sh *shell) handleKeys(rest string) {
	prefix := strings.TrimSpace(rest)
	keys, err := sh.db.Keys()
	if err != nil {
		fmt.Fprintln(sh.out, "Error:", err)
		return
	}

	count := 0
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if count >= maxKeysToPrint {
			fmt.Fprintf(sh.out, "... (results truncated at %d)\n", maxKeysToPrint)
			break
		}
		fmt.Fprintln(sh.out, k)
		count++
	}
	if count == 0 {
		fmt.Fprintln(sh.out, "(no keys)")
	}
}

// compact
func (sh *shell) handleCompact() {
	if err := sh.db.Compact(); err != nil {
		fmt.Fprintln(sh.out, "Compact error:", err)
		return
	}
	fmt.Fprintln(sh.out, "Compaction complete")
}

// stats
func (sh *shell) handleStats() {
	st, err := sh.db.Stats()
	if err != nil {
		fmt.Fprintln(sh.out, "Error:", err)
		return
	}
	fmt.Fprintf(sh.out, ColorCyan+"Keys:"+ColorReset+" %d\n", st.Keys)
	fmt.Fprintf(sh.out, ColorCyan+"Generations:"+ColorReset+" %v (active %d)\n", st.Generations, st.ActiveGeneration)
	fmt.Fprintf(sh.out, ColorCyan+"Disk:"+ColorReset+" %d bytes, %d redundant records\n", st.DiskBytes, st.RedundantRecords)
	fmt.Fprintf(sh.out, ColorCyan+"Ops:"+ColorReset+" %d sets, %d gets, %d removes, %d compactions\n",
		st.Sets, st.Gets, st.Removes, st.Compactions)
}

// dump [file.json]
func (sh *shell) handleDump(rest string) {
	file := strings.TrimSpace(rest)
	if file == "" {
		file = fmt.Sprintf("dump_%s.json", time.Now().Format("150405_02012006"))
	}
	n, err := snapshot.DumpJSON(sh.db, file)
	if err != nil {
		fmt.Fprintln(sh.out, "Dump error:", err)
		return
	}
	fmt.Fprintf(sh.out, "Dumped %d keys to %s\n", n, file)
}

// restore <file.json>
func (sh *shell) handleRestore(rest string) {
	parts := splitArgs(rest, 1)
	if len(parts) < 1 {
		fmt.Fprintln(sh.out, "Usage: restore <file.json>")
		return
	}
	n, err := snapshot.RestoreJSON(sh.db, parts[0])
	if err != nil {
		fmt.Fprintln(sh.out, "Restore error:", err)
		return
	}
	fmt.Fprintf(sh.out, "Restored %d keys from %s\n", n, parts[0])
}

// export <file.sqlite>
func (sh *shell) handleExport(rest string) {
	parts := splitArgs(rest, 1)
	if len(parts) < 1 {
		fmt.Fprintln(sh.out, "Usage: export <file.sqlite>")
		return
	}
	n, err := snapshot.ExportSQLite(sh.db, parts[0])
	if err != nil {
		fmt.Fprintln(sh.out, "Export error:", err)
		return
	}
	fmt.Fprintf(sh.out, "Exported %d keys to %s\n", n, parts[0])
}

// import <file.sqlite>
func (sh *shell) handleImport(rest string) {
	parts := splitArgs(rest, 1)
	if len(parts) < 1 {
		fmt.Fprintln(sh.out, "Usage: import <file.sqlite>")
		return
	}
	n, err := snapshot.ImportSQLite(sh.db, parts[0])
	if err != nil {
		fmt.Fprintln(sh.out, "Import error:", err)
		return
	}
	fmt.Fprintf(sh.out, "Imported %d keys from %s\n", n, parts[0])
}

// --- utils ---

// splitArgs splits a string into N parts (N-1 splits); the last part keeps
// its inner whitespace.
func splitArgs(s string, n int) []string {
	parts := make([]string, 0, n)
	for i := 0; i < n-1; i++ {
		idx := strings.IndexAny(s, " \t")
		if idx < 0 {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
			return parts
		}
		parts = append(parts, strings.TrimSpace(s[:idx]))
		s = strings.TrimSpace(s[idx+1:])
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
