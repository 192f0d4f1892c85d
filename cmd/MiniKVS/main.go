package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/chzyer/readline"
	"github.com/nconghau/MiniKVS/internal/config"
	"github.com/nconghau/MiniKVS/internal/engine"
)

const (
	ColorReset  = "\033[0m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	dir := flag.String("dir", "", "store directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}
	if *dir != "" {
		cfg.Storage.Dir = *dir
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	slog.Info("Starting MiniKVS", "pid", os.Getpid(), "dir", cfg.Storage.Dir)

	db, err := engine.Open(cfg, logger)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		slog.Info("Closing store")
		if err := db.Close(); err != nil {
			slog.Error("Store close error", "error", err)
		}
	}()

	printUsage(os.Stdout)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ColorYellow + "> " + ColorReset,
		HistoryFile:     cfg.Shell.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer{db: db},
	})
	if err != nil {
		slog.Error("Failed to start shell", "error", err)
		return
	}
	defer rl.Close()

	RunCLI(&shell{db: db, out: rl.Stdout()}, rl)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, ColorYellow+"\nMiniKVS - log-structured key-value store"+ColorReset)
	fmt.Fprintf(w, "  Go Version: %s\n", runtime.Version())

	fmt.Fprintln(w, ColorCyan+"\n Commands:"+ColorReset)
	fmt.Fprintln(w, "  set <key> <value>           "+ColorBlue+"# Store a value (rest of line)"+ColorReset)
	fmt.Fprintln(w, "  get <key>                   "+ColorBlue+"# Print a value"+ColorReset)
	fmt.Fprintln(w, "  rm <key>                    "+ColorBlue+"# Remove a key"+ColorReset)
	fmt.Fprintln(w, "  keys [prefix]               "+ColorBlue+"# List live keys"+ColorReset)

	fmt.Fprintln(w, ColorCyan+"\n 🔧 Store Operations:"+ColorReset)
	fmt.Fprintln(w, "  compact                     "+ColorBlue+"# Reclaim space from old records"+ColorReset)
	fmt.Fprintln(w, "  stats                       "+ColorBlue+"# Show store statistics"+ColorReset)
	fmt.Fprintln(w, "  dump [file.json]            "+ColorBlue+"# Export all pairs to a JSON file"+ColorReset)
	fmt.Fprintln(w, "  restore <file.json>         "+ColorBlue+"# Load pairs from a JSON dump"+ColorReset)
	fmt.Fprintln(w, "  export <file.sqlite>        "+ColorBlue+"# Export all pairs to a SQLite table"+ColorReset)
	fmt.Fprintln(w, "  import <file.sqlite>        "+ColorBlue+"# Load pairs from a SQLite export"+ColorReset)
	fmt.Fprintln(w, "  help, exit")
	fmt.Fprintln(w)
}
