package state

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore_ShouldProcessDefaultsToZero(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"), discardLogger())

	if !s.ShouldProcess("abc", 1) {
		t.Error("unknown session with positive mtime should be processed")
	}
	if s.ShouldProcess("abc", 0) {
		t.Error("mtime 0 is not newer than the default")
	}
}

func TestStore_UpdateThenSameMtimeIsNoop(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"), discardLogger())

	s.Update("abc", 1700000000.25)

	if s.ShouldProcess("abc", 1700000000.25) {
		t.Error("unchanged mtime should not be processed again")
	}
	if s.ShouldProcess("abc", 1699999999) {
		t.Error("older mtime should not be processed")
	}
	if !s.ShouldProcess("abc", 1700000001) {
		t.Error("newer mtime should be processed")
	}
}

func TestStore_PersistsEveryUpdate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	s := Load(path, discardLogger())
	s.Update("one", 10)
	s.Update("two", 20.5)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("state file not written: %v", err)
	}
	var onDisk map[string]float64
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("state file is not a JSON object: %v", err)
	}
	if onDisk["one"] != 10 || onDisk["two"] != 20.5 {
		t.Errorf("unexpected state on disk: %v", onDisk)
	}

	reloaded := Load(path, discardLogger())
	if reloaded.ShouldProcess("two", 20.5) {
		t.Error("reloaded store lost the recorded timestamp")
	}
	if reloaded.Len() != 2 {
		t.Errorf("expected 2 entries after reload, got %d", reloaded.Len())
	}
}

func TestStore_CorruptFileResetsToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := Load(path, discardLogger())
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", s.Len())
	}
	if !s.ShouldProcess("abc", 1) {
		t.Error("expected session to be eligible after reset")
	}
}

func TestStore_SaveFailureKeepsMemoryState(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// The parent of the state path is a regular file, so MkdirAll fails.
	s := Load(filepath.Join(blocker, "state.json"), discardLogger())

	s.Update("abc", 42)

	if ts, ok := s.Get("abc"); !ok || ts != 42 {
		t.Errorf("expected in-memory value 42, got %v (ok=%v)", ts, ok)
	}
	if s.ShouldProcess("abc", 42) {
		t.Error("in-memory state should still suppress reprocessing")
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"), discardLogger())
	s.Update("abc", 1)

	snap := s.Snapshot()
	snap["abc"] = 99

	if ts, _ := s.Get("abc"); ts != 1 {
		t.Errorf("snapshot mutation leaked into store: %v", ts)
	}
}
