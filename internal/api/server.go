package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/brainsync/internal/store"
)

// Sessions exposes the recorded sync state.
type Sessions interface {
	Len() int
	Snapshot() map[string]float64
}

// Queue accepts sessions for conversion.
type Queue interface {
	Pending() int
	Trigger(sessionID string)
}

// Notes lists the synced-note ledger.
type Notes interface {
	ListNotes(ctx context.Context, limit int) ([]store.NoteRecord, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	sessions Sessions
	queue    Queue
	notes    Notes
	logger   *slog.Logger
}

// NewServer builds the status API. notes may be nil when no ledger is configured.
func NewServer(port int, sessions Sessions, queue Queue, notes Notes, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		sessions: sessions,
		queue:    queue,
		notes:    notes,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1/brainsync", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Get("/sessions", s.listSessions)
		r.Post("/sessions/{id}/sync", s.syncSession)
		r.Get("/notes", s.listNotes)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":            "brainsync",
		"pending":          s.queue.Pending(),
		"tracked_sessions": s.sessions.Len(),
	})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Snapshot())
}

func (s *Server) syncSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || id == "." || id == ".." {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}

	s.queue.Trigger(id)
	s.logger.Info("sync requested", "session_id", id, "request_id", middleware.GetReqID(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": id, "status": "queued"})
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	if s.notes == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ledger not configured"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	notes, err := s.notes.ListNotes(r.Context(), limit)
	if err != nil {
		s.logger.Error("list notes failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list notes failed"})
		return
	}
	if notes == nil {
		notes = []store.NoteRecord{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
