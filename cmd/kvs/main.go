package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nconghau/MiniKVS/internal/config"
	"github.com/nconghau/MiniKVS/internal/engine"
	"github.com/nconghau/MiniKVS/internal/kvs"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprint(w, `kvs - log-structured key-value store

Usage:
  kvs [flags] <command> [args]

Commands:
  get <key>            Print the value of key
  set <key> <value>    Store value under key
  rm <key>             Remove key
  compact              Rewrite live records and reclaim space
  stats                Print store statistics

Flags:
`)
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kvs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "", "store directory (default from config, else current directory)")
	configPath := fs.String("config", "", "YAML configuration file")
	verbose := fs.Bool("v", false, "log at the configured level instead of warn")
	fs.Usage = func() {
		usage(stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitUsage
	}
	cmd, cmdArgs := rest[0], rest[1:]

	want := map[string]int{"get": 1, "set": 2, "rm": 1, "compact": 0, "stats": 0}
	n, ok := want[cmd]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		fs.Usage()
		return exitUsage
	}
	if len(cmdArgs) != n {
		fmt.Fprintf(stderr, "%s expects %d argument(s), got %d\n", cmd, n, len(cmdArgs))
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitError
	}
	if *dir != "" {
		cfg.Storage.Dir = *dir
	}
	if !*verbose && cfg.Log.SlogLevel() < slog.LevelWarn {
		cfg.Log.Level = "warn"
	}
	logger := cfg.Log.NewLogger(stderr).With("component", "cli")

	db, err := engine.Open(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open store: %v\n", err)
		return exitError
	}

	code := execute(db, cmd, cmdArgs, stdout, stderr)
	if err := db.Close(); err != nil {
		fmt.Fprintf(stderr, "Close error: %v\n", err)
		if code == exitOK {
			code = exitError
		}
	}
	return code
}

func execute(db engine.Engine, cmd string, args []string, stdout, stderr io.Writer) int {
	switch cmd {
	case "get":
		val, ok, err := db.Get(args[0])
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return exitError
		}
		if !ok {
			fmt.Fprintln(stdout, "Key not found")
			return exitOK
		}
		fmt.Fprintln(stdout, val)

	case "set":
		if err := db.Set(args[0], args[1]); err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return exitError
		}

	case "rm":
		if err := db.Remove(args[0]); err != nil {
			if errors.Is(err, kvs.ErrKeyNotFound) {
				fmt.Fprintln(stdout, "Key not found")
			} else {
				fmt.Fprintln(stderr, "Error:", err)
			}
			return exitError
		}

	case "compact":
		if err := db.Compact(); err != nil {
			fmt.Fprintln(stderr, "Compact error:", err)
			return exitError
		}

	case "stats":
		st, err := db.Stats()
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return exitError
		}
		printStats(stdout, st)
	}
	return exitOK
}

func printStats(w io.Writer, st kvs.Stats) {
	fmt.Fprintf(w, "keys:              %d\n", st.Keys)
	fmt.Fprintf(w, "generations:       %v\n", st.Generations)
	fmt.Fprintf(w, "active generation: %d\n", st.ActiveGeneration)
	fmt.Fprintf(w, "disk bytes:        %d\n", st.DiskBytes)
	fmt.Fprintf(w, "redundant records: %d\n", st.RedundantRecords)
}
