// Package processor runs a session conversion and announces the resulting note.
package processor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/brainsync/internal/converter"
	"github.com/MikeSquared-Agency/brainsync/internal/hermes"
	"github.com/MikeSquared-Agency/brainsync/internal/slack"
	"github.com/MikeSquared-Agency/brainsync/internal/store"
)

type Converter interface {
	Convert(ctx context.Context, sessionID string, timestamp float64) (*converter.Note, bool)
}

type Ledger interface {
	RecordNote(ctx context.Context, rec store.NoteRecord) (uuid.UUID, error)
}

type Events interface {
	PublishNoteSynced(ev hermes.NoteSyncedEvent) error
}

type Notifier interface {
	PostNoteSynced(ctx context.Context, note slack.NoteSummary) (string, error)
}

// Processor fans a written note out to the optional ledger, event bus, and Slack.
// Any of them may be nil.
type Processor struct {
	converter Converter
	ledger    Ledger
	events    Events
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time

	synced atomic.Int64
}

func New(conv Converter, ledger Ledger, events Events, notifier Notifier, logger *slog.Logger) *Processor {
	return &Processor{
		converter: conv,
		ledger:    ledger,
		events:    events,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Dispatch converts sessionID and reports whether a note was written. Fan-out
// failures are logged and never change the result.
func (p *Processor) Dispatch(ctx context.Context, sessionID string, timestamp float64) bool {
	note, ok := p.converter.Convert(ctx, sessionID, timestamp)
	if !ok {
		return false
	}
	p.synced.Add(1)

	if p.ledger != nil {
		id, err := p.ledger.RecordNote(ctx, store.NoteRecord{
			SessionID: note.SessionID,
			Title:     note.Title,
			FileName:  note.FileName,
			Overview:  note.Overview,
			SourceTS:  timestamp,
		})
		if err != nil {
			p.logger.Error("failed to record note", "session_id", sessionID, "error", err)
		} else {
			p.logger.Debug("note recorded", "session_id", sessionID, "note_id", id)
		}
	}

	if p.events != nil {
		ev := hermes.NewNoteSyncedEvent(note.SessionID, note.Title, note.FileName, note.Overview, p.now())
		if err := p.events.PublishNoteSynced(ev); err != nil {
			p.logger.Error("failed to publish note synced", "session_id", sessionID, "error", err)
		}
	}

	if p.notifier != nil {
		_, err := p.notifier.PostNoteSynced(ctx, slack.NoteSummary{
			SessionID: note.SessionID,
			Title:     note.Title,
			File:      note.FileName,
			Overview:  note.Overview,
		})
		if err != nil {
			p.logger.Error("slack post failed", "session_id", sessionID, "error", err)
		}
	}

	return true
}

// Synced returns the number of notes written since start.
func (p *Processor) Synced() int64 {
	return p.synced.Load()
}
