// Package backfill runs a full scan of the source root, converting every session
// whose files changed since it was last recorded.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/brainsync/internal/hermes"
	"github.com/MikeSquared-Agency/brainsync/internal/slack"
)

type DispatchFunc func(ctx context.Context, sessionID string, timestamp float64) bool

// Tracker is the slice of the state store a scan consults.
type Tracker interface {
	ShouldProcess(sessionID string, mtime float64) bool
}

type Reloader interface {
	Reload()
}

type Events interface {
	PublishScanCompleted(ev hermes.ScanCompletedEvent) error
}

type Notifier interface {
	PostScanSummary(ctx context.Context, s slack.ScanSummary) error
}

// Summary counts the outcome of one scan.
type Summary struct {
	ScanID    uuid.UUID
	Processed int // note written
	Skipped   int // dispatched, nothing written
	Unchanged int // timestamp not newer than recorded
	Errors    int // session could not be inspected
	Duration  time.Duration
}

// Runner orchestrates a full scan.
type Runner struct {
	root     string
	state    Tracker
	ignore   Reloader
	dispatch DispatchFunc
	logger   *slog.Logger

	events   Events
	notifier Notifier
}

// NewRunner creates a scan runner. ignore may be nil.
func NewRunner(root string, state Tracker, ignore Reloader, dispatch DispatchFunc, logger *slog.Logger) *Runner {
	return &Runner{
		root:     root,
		state:    state,
		ignore:   ignore,
		dispatch: dispatch,
		logger:   logger,
	}
}

// WithEvents publishes a completion event after each scan.
func (r *Runner) WithEvents(e Events) *Runner {
	r.events = e
	return r
}

// WithNotifier posts a summary to Slack after each scan that wrote or failed anything.
func (r *Runner) WithNotifier(n Notifier) *Runner {
	r.notifier = n
	return r
}

// Run scans every session directory directly under the root.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	sum := Summary{ScanID: uuid.New()}

	entries, err := os.ReadDir(r.root)
	if err != nil {
		return sum, fmt.Errorf("read source root: %w", err)
	}

	if r.ignore != nil {
		r.ignore.Reload()
	}

	r.logger.Info("full scan started", "scan_id", sum.ScanID, "root", r.root)

	sessions := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			sessions = append(sessions, e.Name())
		}
	}
	sort.Strings(sessions)

	for _, id := range sessions {
		if err := ctx.Err(); err != nil {
			r.logger.Info("full scan interrupted", "scan_id", sum.ScanID)
			sum.Duration = time.Since(start)
			return sum, err
		}

		mtime, err := SessionMTime(filepath.Join(r.root, id))
		if err != nil {
			r.logger.Warn("failed to inspect session", "session_id", id, "error", err)
			sum.Errors++
			continue
		}
		if !r.state.ShouldProcess(id, mtime) {
			sum.Unchanged++
			continue
		}

		if r.dispatch(ctx, id, mtime) {
			sum.Processed++
		} else {
			sum.Skipped++
		}
	}

	sum.Duration = time.Since(start)
	r.logger.Info("full scan complete",
		"scan_id", sum.ScanID,
		"processed", sum.Processed,
		"skipped", sum.Skipped,
		"unchanged", sum.Unchanged,
		"errors", sum.Errors,
		"duration", sum.Duration,
	)
	r.announce(ctx, sum)
	return sum, nil
}

func (r *Runner) announce(ctx context.Context, sum Summary) {
	if r.events != nil {
		err := r.events.PublishScanCompleted(hermes.ScanCompletedEvent{
			ScanID:     sum.ScanID,
			Processed:  sum.Processed,
			Skipped:    sum.Skipped,
			Unchanged:  sum.Unchanged,
			Errors:     sum.Errors,
			FinishedAt: time.Now().UTC(),
		})
		if err != nil {
			r.logger.Error("failed to publish scan completed", "error", err)
		}
	}

	if r.notifier != nil && (sum.Processed > 0 || sum.Errors > 0) {
		err := r.notifier.PostScanSummary(ctx, slack.ScanSummary{
			Processed: sum.Processed,
			Skipped:   sum.Skipped,
			Unchanged: sum.Unchanged,
			Errors:    sum.Errors,
			Duration:  sum.Duration,
		})
		if err != nil {
			r.logger.Warn("failed to post scan summary to Slack", "error", err)
		}
	}
}

// SessionMTime returns the newest modification time, in epoch seconds, of dir and
// its direct children, hidden ones included.
func SessionMTime(dir string) (float64, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, err
	}
	latest := info.ModTime()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			return 0, err
		}
		if fi.ModTime().After(latest) {
			latest = fi.ModTime()
		}
	}
	return float64(latest.UnixNano()) / float64(time.Second), nil
}
