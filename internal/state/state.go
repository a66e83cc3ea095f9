package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store tracks, per session id, the last modification timestamp (epoch seconds)
// that was processed. Every update is written through to disk.
type Store struct {
	mu     sync.Mutex
	path   string
	synced map[string]float64
	logger *slog.Logger
}

// Load reads the state file at path. A missing or corrupt file yields an empty store.
func Load(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:   path,
		synced: make(map[string]float64),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read state file, starting empty", "path", path, "error", err)
		}
		return s
	}

	var synced map[string]float64
	if err := json.Unmarshal(data, &synced); err != nil {
		logger.Warn("corrupt state file, starting empty", "path", path, "error", err)
		return s
	}
	if synced != nil {
		s.synced = synced
	}
	return s
}

// ShouldProcess returns true if mtime is newer than what was last recorded for the session.
func (s *Store) ShouldProcess(sessionID string, mtime float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mtime > s.synced[sessionID]
}

// Update records mtime for the session and persists the whole mapping.
// A failed write is logged; the in-memory value is kept either way.
func (s *Store) Update(sessionID string, mtime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.synced[sessionID] = mtime
	if err := s.save(); err != nil {
		s.logger.Error("failed to save state file", "path", s.path, "error", err)
	}
}

// Get returns the recorded timestamp and whether one exists.
func (s *Store) Get(sessionID string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.synced[sessionID]
	return ts, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.synced)
}

// Snapshot returns a copy of the mapping.
func (s *Store) Snapshot() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.synced))
	for k, v := range s.synced {
		out[k] = v
	}
	return out
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s.synced, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	return os.WriteFile(s.path, data, 0o644)
}
