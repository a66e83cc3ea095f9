package hermes

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubjectNoteSynced    = "brainsync.note.synced"
	SubjectScanCompleted = "brainsync.scan.completed"
)

// NoteSyncedEvent is emitted after a session note is written to the notes repository.
type NoteSyncedEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	File      string    `json:"file"`
	Overview  string    `json:"overview"`
	SyncedAt  time.Time `json:"synced_at"`
}

// ScanCompletedEvent summarises one full scan of the source root.
type ScanCompletedEvent struct {
	ScanID     uuid.UUID `json:"scan_id"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Unchanged  int       `json:"unchanged"`
	Errors     int       `json:"errors"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewNoteSyncedEvent(sessionID, title, file, overview string, at time.Time) NoteSyncedEvent {
	return NoteSyncedEvent{
		EventID:   uuid.New(),
		SessionID: sessionID,
		Title:     title,
		File:      file,
		Overview:  overview,
		SyncedAt:  at.UTC(),
	}
}
