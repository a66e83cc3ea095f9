package backfill

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/brainsync/internal/hermes"
	"github.com/MikeSquared-Agency/brainsync/internal/slack"
	"github.com/MikeSquared-Agency/brainsync/internal/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type dispatcher struct {
	write map[string]bool
	calls map[string]float64
}

func (d *dispatcher) dispatch(_ context.Context, id string, ts float64) bool {
	if d.calls == nil {
		d.calls = make(map[string]float64)
	}
	d.calls[id] = ts
	return d.write[id]
}

type countingReloader struct{ n int }

func (c *countingReloader) Reload() { c.n++ }

type fakeEvents struct {
	events []hermes.ScanCompletedEvent
}

func (f *fakeEvents) PublishScanCompleted(ev hermes.ScanCompletedEvent) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeNotifier struct {
	posts []slack.ScanSummary
	err   error
}

func (f *fakeNotifier) PostScanSummary(_ context.Context, s slack.ScanSummary) error {
	f.posts = append(f.posts, s)
	return f.err
}

var epochBase = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// makeSession creates root/id with one file. The directory and the file get the
// given mtimes.
func makeSession(t *testing.T, root, id string, dirTime, fileTime time.Time) {
	t.Helper()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "task.md")
	if err := os.WriteFile(file, []byte("# Task\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(file, fileTime, fileTime); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(dir, dirTime, dirTime); err != nil {
		t.Fatal(err)
	}
}

func epochOf(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func TestSessionMTime_MaxOfDirAndChildren(t *testing.T) {
	root := t.TempDir()
	newer := epochBase.Add(time.Hour)
	makeSession(t, root, "abc", epochBase, newer)

	got, err := SessionMTime(filepath.Join(root, "abc"))
	if err != nil {
		t.Fatal(err)
	}
	if got != epochOf(newer) {
		t.Errorf("expected child mtime %v, got %v", epochOf(newer), got)
	}

	makeSession(t, root, "def", newer, epochBase)
	got, err = SessionMTime(filepath.Join(root, "def"))
	if err != nil {
		t.Fatal(err)
	}
	if got != epochOf(newer) {
		t.Errorf("expected dir mtime %v, got %v", epochOf(newer), got)
	}
}

func TestSessionMTime_CountsHiddenArtifacts(t *testing.T) {
	root := t.TempDir()
	makeSession(t, root, "abc", epochBase, epochBase)
	dir := filepath.Join(root, "abc")

	before, err := SessionMTime(dir)
	if err != nil {
		t.Fatal(err)
	}

	// A hidden markdown file is still an artifact of the session.
	hidden := filepath.Join(dir, ".draft.md")
	if err := os.WriteFile(hidden, []byte("# Draft\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	later := epochBase.Add(time.Hour)
	if err := os.Chtimes(hidden, later, later); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(dir, epochBase, epochBase); err != nil {
		t.Fatal(err)
	}

	after, err := SessionMTime(dir)
	if err != nil {
		t.Fatal(err)
	}
	if after != epochOf(later) {
		t.Errorf("expected hidden child mtime %v, got %v", epochOf(later), after)
	}

	st := state.Load(filepath.Join(t.TempDir(), "state.json"), discardLogger())
	st.Update("abc", before)
	if !st.ShouldProcess("abc", after) {
		t.Error("expected an edit to a hidden artifact to make the session eligible again")
	}
}

func TestRun_CountsAndDispatchesChangedSessions(t *testing.T) {
	root := t.TempDir()
	makeSession(t, root, "written", epochBase, epochBase)
	makeSession(t, root, "noise", epochBase, epochBase)
	makeSession(t, root, "seen", epochBase, epochBase)
	if err := os.WriteFile(filepath.Join(root, "stray.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	st := state.Load(filepath.Join(t.TempDir(), "state.json"), discardLogger())
	st.Update("seen", epochOf(epochBase))

	d := &dispatcher{write: map[string]bool{"written": true}}
	reloader := &countingReloader{}
	r := NewRunner(root, st, reloader, d.dispatch, discardLogger())

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Processed != 1 || sum.Skipped != 1 || sum.Unchanged != 1 || sum.Errors != 0 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if sum.ScanID == uuid.Nil {
		t.Error("expected a scan id")
	}
	if _, ok := d.calls["seen"]; ok {
		t.Error("unchanged session must not be dispatched")
	}
	if d.calls["written"] != epochOf(epochBase) {
		t.Errorf("expected dispatch with session mtime, got %v", d.calls["written"])
	}
	if _, ok := d.calls["stray.md"]; ok {
		t.Error("top-level files are not sessions")
	}
	if reloader.n != 1 {
		t.Errorf("expected ignore list reloaded once, got %d", reloader.n)
	}
}

func TestRun_MissingRoot(t *testing.T) {
	st := state.Load(filepath.Join(t.TempDir(), "state.json"), discardLogger())
	d := &dispatcher{}
	r := NewRunner(filepath.Join(t.TempDir(), "missing"), st, nil, d.dispatch, discardLogger())

	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing root")
	}
	if len(d.calls) != 0 {
		t.Error("expected no dispatch")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	root := t.TempDir()
	makeSession(t, root, "abc", epochBase, epochBase)
	st := state.Load(filepath.Join(t.TempDir(), "state.json"), discardLogger())
	d := &dispatcher{}
	r := NewRunner(root, st, nil, d.dispatch, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(d.calls) != 0 {
		t.Error("expected no dispatch after cancellation")
	}
}

func TestRun_AnnouncesCompletion(t *testing.T) {
	root := t.TempDir()
	makeSession(t, root, "abc", epochBase, epochBase)
	st := state.Load(filepath.Join(t.TempDir(), "state.json"), discardLogger())
	d := &dispatcher{write: map[string]bool{"abc": true}}
	events := &fakeEvents{}
	notifier := &fakeNotifier{err: errors.New("slack down")}

	r := NewRunner(root, st, nil, d.dispatch, discardLogger()).
		WithEvents(events).
		WithNotifier(notifier)

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(events.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.events))
	}
	if ev := events.events[0]; ev.ScanID != sum.ScanID || ev.Processed != 1 {
		t.Errorf("unexpected event %+v", ev)
	}
	if len(notifier.posts) != 1 || notifier.posts[0].Processed != 1 {
		t.Errorf("unexpected slack posts %+v", notifier.posts)
	}
}

func TestRun_QuietScanNotPostedToSlack(t *testing.T) {
	root := t.TempDir()
	makeSession(t, root, "abc", epochBase, epochBase)
	st := state.Load(filepath.Join(t.TempDir(), "state.json"), discardLogger())
	st.Update("abc", epochOf(epochBase))
	d := &dispatcher{}
	notifier := &fakeNotifier{}

	r := NewRunner(root, st, nil, d.dispatch, discardLogger()).WithNotifier(notifier)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(notifier.posts) != 0 {
		t.Errorf("expected no post for a scan with nothing new, got %v", notifier.posts)
	}
}
