// Package tracker debounces file-system activity per session and dispatches
// settled sessions for conversion, one at a time.
package tracker

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DispatchFunc converts a session, recording timestamp on completion. It reports
// whether a note was written.
type DispatchFunc func(ctx context.Context, sessionID string, timestamp float64) bool

type change struct {
	sessionID string
	at        time.Time
}

type job struct {
	sessionID string
	timestamp float64
}

type Tracker struct {
	root     string
	settle   time.Duration
	interval time.Duration
	dispatch DispatchFunc
	logger   *slog.Logger
	now      func() time.Time

	changes  chan change
	triggers chan string
	done     chan struct{}
	stopOnce sync.Once
	pending  atomic.Int64
}

func New(root string, settle, interval time.Duration, dispatch DispatchFunc, logger *slog.Logger) *Tracker {
	return &Tracker{
		root:     root,
		settle:   settle,
		interval: interval,
		dispatch: dispatch,
		logger:   logger,
		now:      time.Now,
		changes:  make(chan change, 1024),
		triggers: make(chan string, 64),
		done:     make(chan struct{}),
	}
}

func (t *Tracker) OnCreated(path string)  { t.register(path) }
func (t *Tracker) OnModified(path string) { t.register(path) }

func (t *Tracker) register(path string) {
	id, ok := SessionID(t.root, path)
	if !ok {
		return
	}
	select {
	case t.changes <- change{sessionID: id, at: t.now()}:
	case <-t.done:
	}
}

// Trigger queues a session for conversion without waiting for the settle delay.
func (t *Tracker) Trigger(sessionID string) {
	select {
	case t.triggers <- sessionID:
	case <-t.done:
	}
}

// Pending returns the number of sessions waiting to settle.
func (t *Tracker) Pending() int {
	return int(t.pending.Load())
}

// Run owns the pending set until ctx is cancelled. Settled sessions are handed to a
// single worker so conversions never overlap and never block event intake.
func (t *Tracker) Run(ctx context.Context) {
	jobs := make(chan job)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := range jobs {
			t.dispatch(ctx, j.sessionID, j.timestamp)
		}
	}()
	defer func() {
		t.stopOnce.Do(func() { close(t.done) })
		close(jobs)
		wg.Wait()
	}()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	pending := make(pendingSet)
	var queue []job

	for {
		var out chan<- job
		var next job
		if len(queue) > 0 {
			out = jobs
			next = queue[0]
		}

		select {
		case <-ctx.Done():
			return
		case c := <-t.changes:
			pending.touch(c.sessionID, c.at)
		case id := <-t.triggers:
			delete(pending, id)
			queue = enqueue(queue, job{sessionID: id, timestamp: epoch(t.now())})
		case <-ticker.C:
			now := t.now()
			for _, id := range pending.settled(now, t.settle) {
				t.logger.Info("session settled", "session_id", id)
				queue = enqueue(queue, job{sessionID: id, timestamp: epoch(now)})
			}
		case out <- next:
			queue = queue[1:]
		}
		t.pending.Store(int64(len(pending)))
	}
}

// enqueue appends j unless the session is already waiting, in which case the
// queued entry takes the newer timestamp.
func enqueue(queue []job, j job) []job {
	for i := range queue {
		if queue[i].sessionID == j.sessionID {
			queue[i].timestamp = j.timestamp
			return queue
		}
	}
	return append(queue, j)
}

// pendingSet maps a session id to its last change time.
type pendingSet map[string]time.Time

func (p pendingSet) touch(id string, at time.Time) {
	if last, ok := p[id]; ok && last.After(at) {
		return
	}
	p[id] = at
}

// settled removes and returns, sorted, the sessions quiet for longer than delay.
func (p pendingSet) settled(now time.Time, delay time.Duration) []string {
	var ids []string
	for id, last := range p {
		if now.Sub(last) > delay {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		delete(p, id)
	}
	return ids
}

// SessionID returns the session a path belongs to. Only paths at least two
// segments below root (files inside a session directory) qualify.
func SessionID(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		return "", false
	}
	return parts[0], true
}

func epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
