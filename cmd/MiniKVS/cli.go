package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/nconghau/MiniKVS/internal/engine"
)

type shell struct {
	db  engine.Engine
	out io.Writer
}

// RunCLI runs the interactive shell for MiniKVS.
func RunCLI(sh *shell, rl *readline.Instance) {
	for {
		line, err := rl.Readline()
		if err != nil {
			// Ctrl+D / Ctrl+C / EOF
			fmt.Fprintln(sh.out)
			return
		}
		if !sh.exec(line) {
			return
		}
	}
}

// exec runs one input line and reports whether the shell should continue.
func (sh *shell) exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	cmd, rest := splitCmdRest(line)
	switch strings.ToLower(cmd) {
	case "set":
		sh.handleSet(rest)
	case "get":
		sh.handleGet(rest)
	case "rm", "remove", "del":
		sh.handleRemove(rest)
	case "keys":
		sh.handleKeys(rest)
	case "compact":
		sh.handleCompact()
	case "stats":
		sh.handleStats()
	case "dump":
		sh.handleDump(rest)
	case "restore":
		sh.handleRestore(rest)
	case "export":
		sh.handleExport(rest)
	case "import":
		sh.handleImport(rest)
	case "help":
		printUsage(sh.out)
	case "exit", "quit":
		fmt.Fprintln(sh.out, "Bye!")
		return false
	default:
		fmt.Fprintln(sh.out, "Unknown command:", cmd)
	}
	return true
}

// splitCmdRest extracts the command (first token) and the rest of the line (raw).
func splitCmdRest(line string) (cmd, rest string) {
	for i, r := range line {
		if r == ' ' || r == '\t' {
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}
