// Package converter turns one brain session directory into a single markdown note.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/brainsync/internal/extractor"
)

const minContentLen = 50

var (
	titleRe        = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	defaultTitleRe = regexp.MustCompile(`(?i)^Note[\s-][0-9a-fA-F]+`)
)

var (
	ErrDefaultTitle = errors.New("no heading, default title")
	ErrShortContent = errors.New("content too short")
)

// Options locates the session tree and the note output.
type Options struct {
	SourceRoot    string
	NotesDir      string
	AssetSubdir   string
	RepoBaseURL   string
	RepoBranch    string
	LocalRepoPath string
}

// Recorder persists the timestamp a session was last handled at.
type Recorder interface {
	Update(sessionID string, mtime float64)
}

// Redactor strips sensitive substrings from generated text.
type Redactor interface {
	Apply(text string) string
}

// Publisher commits a written note.
type Publisher interface {
	Publish(ctx context.Context, notePath string) error
}

type Converter struct {
	opts      Options
	state     Recorder
	redactor  Redactor
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a converter. publisher may be nil, in which case notes are only written.
func New(opts Options, state Recorder, redactor Redactor, publisher Publisher, logger *slog.Logger) *Converter {
	return &Converter{
		opts:      opts,
		state:     state,
		redactor:  redactor,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Convert builds and writes the note for sessionID. It reports whether a note was written.
// A non-zero timestamp is recorded once the session has been handled, including when the
// session is rejected as noise; it is not recorded when the note could not be written.
func (c *Converter) Convert(ctx context.Context, sessionID string, timestamp float64) (*Note, bool) {
	dir := filepath.Join(c.opts.SourceRoot, sessionID)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, false
	}

	note, err := c.build(sessionID, dir)
	if err != nil {
		c.logger.Warn("skipped session", "session_id", sessionID, "reason", err)
		c.record(sessionID, timestamp)
		return nil, false
	}

	if err := c.write(note); err != nil {
		c.logger.Error("failed to save note", "session_id", sessionID, "file", note.FileName, "error", err)
		c.discardAssets(note.newAssets)
		return nil, false
	}
	c.logger.Info("note generated", "session_id", sessionID, "file", note.FileName, "title", note.Title)

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, note.Path); err != nil {
			c.logger.Error("failed to commit note", "file", note.FileName, "error", err)
		}
	}

	c.record(sessionID, timestamp)
	return note, true
}

func (c *Converter) build(sessionID, dir string) (*Note, error) {
	set := discoverArtifacts(dir, c.logger)

	walkthrough := set.content(roleWalkthrough)
	plan := set.content(rolePlan)
	task := set.content(roleTask)
	others := set.others()

	lastOther := ""
	if len(others) > 0 {
		lastOther = set.content(others[len(others)-1])
	}

	overview := extractor.SmartExtract([]string{walkthrough, plan, task}, "")
	abstract := extractor.SmartExtract([]string{plan, task, lastOther}, overview)

	var pieces []string
	if plan != "" {
		pieces = append(pieces, "\n### Implementation Plan\n", plan)
	}
	if task != "" {
		pieces = append(pieces, "\n### Task List\n", task)
	}
	for _, base := range others {
		pieces = append(pieces, fmt.Sprintf("\n### %s\n", sectionTitle(base)), set.content(base))
	}
	if walkthrough != "" {
		pieces = append(pieces, "\n### Walkthrough\n", walkthrough)
	}
	content := strings.Join(pieces, "\n")

	var title string
	if loc := titleRe.FindStringSubmatchIndex(content); loc != nil {
		title = strings.TrimSpace(content[loc[2]:loc[3]])
		content = content[:loc[0]] + content[loc[1]:]
	} else {
		title = "Note-" + shortID(sessionID)
	}

	if defaultTitleRe.MatchString(title) {
		return nil, fmt.Errorf("%w: %s", ErrDefaultTitle, title)
	}
	if utf8.RuneCountInString(strings.TrimSpace(content)) < minContentLen {
		return nil, fmt.Errorf("%w: %s", ErrShortContent, title)
	}

	content, images, newAssets := c.relocateImages(content, dir)
	if c.redactor != nil {
		content = c.redactor.Apply(content)
	}
	content = c.rewriteLinks(content)

	now := c.now()
	created := now
	primary, ok := set[roleWalkthrough]
	if !ok {
		primary, ok = set[rolePlan]
	}
	if ok {
		created = createdAt(primary.info)
	}

	if abstract == overview || abstract == extractor.Fallback {
		abstract = AbstractFallback
	}
	if overview == extractor.Fallback {
		overview = title
	}

	name := FileName(title)
	return &Note{
		SessionID: sessionID,
		Title:     title,
		Overview:  overview,
		Abstract:  abstract,
		Content:   content,
		Created:   created,
		Updated:   now,
		FileName:  name,
		Path:      filepath.Join(c.opts.NotesDir, name),
		Images:    images,
		newAssets: newAssets,
	}, nil
}

func (c *Converter) write(note *Note) error {
	if err := os.MkdirAll(c.opts.NotesDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return os.WriteFile(note.Path, []byte(note.Render()), 0o644)
}

func (c *Converter) record(sessionID string, timestamp float64) {
	if timestamp > 0 && c.state != nil {
		c.state.Update(sessionID, timestamp)
	}
}

func (c *Converter) assetDir() string {
	return filepath.Join(c.opts.NotesDir, c.opts.AssetSubdir)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
