// Package ignore holds the list of literal strings redacted from generated notes.
package ignore

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type List struct {
	mu      sync.RWMutex
	path    string
	entries []string
	logger  *slog.Logger
}

// Load reads a JSON array of strings from path. A missing or malformed file yields an empty list.
func Load(path string, logger *slog.Logger) *List {
	l := &List{path: path, logger: logger}
	l.Reload()
	return l
}

// New returns a list with fixed entries and no backing file.
func New(entries ...string) *List {
	return &List{entries: entries, logger: slog.Default()}
}

// Reload re-reads the backing file, if any.
func (l *List) Reload() {
	if l.path == "" {
		return
	}
	entries := l.read()

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
}

func (l *List) read() []string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("failed to read ignore list", "path", l.path, "error", err)
		}
		return nil
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.Warn("malformed ignore list, ignoring", "path", l.path, "error", err)
		return nil
	}
	return entries
}

// Apply removes every occurrence of every entry from text, in list order.
func (l *List) Apply(text string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, s := range l.entries {
		if s == "" {
			continue
		}
		text = strings.ReplaceAll(text, s, "")
	}
	return text
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
