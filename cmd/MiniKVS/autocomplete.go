package main

import (
	"strings"
)

// keyLister is the part of the engine the completer needs.
type keyLister interface {
	Keys() ([]string, error)
}

// completer implements readline.AutoCompleter
type completer struct {
	db keyLister
}

var allCommands = []string{
	"set", "get", "rm", "keys", "compact", "stats",
	"dump", "restore", "export", "import", "help", "exit",
}

// commands whose first argument is an existing key
var cmdsWithKey = map[string]bool{
	"set": true, "get": true, "rm": true, "remove": true, "del": true, "keys": true,
}

// Do is called by chzyer/readline.
// `line` is full buffer as runes, `pos` is cursor position.
// We compute the current token (based on pos) and return completions plus
// the number of chars to replace.
func (c completer) Do(line []rune, pos int) ([][]rune, int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(line) {
		pos = len(line)
	}
	prefix := string(line[:pos])

	fields := strings.Fields(prefix)

	// 0 = command, 1 = key, >=2 = value
	var token string
	var tokenIndex int
	switch {
	case len(fields) == 0:
		token, tokenIndex = "", 0
	case prefix[len(prefix)-1] == ' ' || prefix[len(prefix)-1] == '\t':
		token, tokenIndex = "", len(fields)
	default:
		token, tokenIndex = fields[len(fields)-1], len(fields)-1
	}

	// Candidates are returned as suffixes of token; readline appends them
	// after the typed text.
	switch tokenIndex {
	case 0:
		return matchSuffixes(allCommands, token, true), len([]rune(token))
	case 1:
		if !cmdsWithKey[strings.ToLower(fields[0])] {
			return nil, 0
		}
		keys, err := c.db.Keys()
		if err != nil {
			return nil, 0
		}
		return matchSuffixes(keys, token, false), len([]rune(token))
	default:
		return nil, 0
	}
}

// matchSuffixes returns, for every option starting with prefix, the part
// after the prefix. Command names match case-insensitively.
func matchSuffixes(options []string, prefix string, foldCase bool) [][]rune {
	out := [][]rune{}
	for _, o := range options {
		var ok bool
		if foldCase {
			ok = strings.HasPrefix(strings.ToLower(o), strings.ToLower(prefix))
		} else {
			ok = strings.HasPrefix(o, prefix)
		}
		if ok && len(o) >= len(prefix) {
			out = append(out, []rune(o[len(prefix):]))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
