package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// NoteSummary is the part of a synced note shown in a notification.
type NoteSummary struct {
	SessionID string
	Title     string
	File      string
	Overview  string
}

// ScanSummary is the result of a full scan as shown in a notification.
type ScanSummary struct {
	Processed int
	Skipped   int
	Unchanged int
	Errors    int
	Duration  time.Duration
}

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostNoteSynced announces a new note. Returns the message timestamp (ts).
func (p *Poster) PostNoteSynced(ctx context.Context, note NoteSummary) (string, error) {
	text := formatNoteMessage(note)

	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "session `" + note.SessionID + "`",
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}

	p.logger.Info("posted note to slack", "ts", ts, "session_id", note.SessionID)
	return ts, nil
}

// PostScanSummary posts the outcome of a full scan as a standalone message.
func (p *Poster) PostScanSummary(ctx context.Context, s ScanSummary) error {
	_, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    formatScanMessage(s),
	})
	return err
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatNoteMessage(note NoteSummary) string {
	text := fmt.Sprintf("*New note:* %s\n`%s`", note.Title, note.File)
	if note.Overview != "" {
		text += "\n\n" + note.Overview
	}
	return text
}

func formatScanMessage(s ScanSummary) string {
	text := fmt.Sprintf("*Full scan complete* in %s\nProcessed: %d | Skipped: %d | Unchanged: %d",
		s.Duration.Round(time.Millisecond), s.Processed, s.Skipped, s.Unchanged)
	if s.Errors > 0 {
		text += fmt.Sprintf(" | Errors: %d", s.Errors)
	}
	return text
}
