package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// NoteRecord is one row of the synced-note ledger.
type NoteRecord struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	FileName  string    `json:"file_name"`
	Overview  string    `json:"overview"`
	SourceTS  float64   `json:"source_ts"`
	CreatedAt time.Time `json:"created_at"`
	SyncedAt  time.Time `json:"synced_at"`
}

// RecordNote upserts a note keyed by file name. A rewrite of an existing file keeps
// its original id and creation time.
func (s *Store) RecordNote(ctx context.Context, rec NoteRecord) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO synced_notes (id, session_id, title, file_name, overview, source_ts, created_at, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (file_name) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			title      = EXCLUDED.title,
			overview   = EXCLUDED.overview,
			source_ts  = EXCLUDED.source_ts,
			synced_at  = now()
		RETURNING id`,
		uuid.New(), rec.SessionID, rec.Title, rec.FileName, rec.Overview, rec.SourceTS,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("record note: %w", err)
	}
	return id, nil
}

// ListNotes returns the most recently synced notes first.
func (s *Store) ListNotes(ctx context.Context, limit int) ([]NoteRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, title, file_name, overview, source_ts, created_at, synced_at
		FROM synced_notes
		ORDER BY synced_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	notes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (NoteRecord, error) {
		var n NoteRecord
		err := row.Scan(&n.ID, &n.SessionID, &n.Title, &n.FileName, &n.Overview, &n.SourceTS, &n.CreatedAt, &n.SyncedAt)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan notes: %w", err)
	}
	return notes, nil
}
