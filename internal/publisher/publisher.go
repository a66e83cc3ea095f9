// Package publisher commits generated notes into the notes repository.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// VCS is the narrow slice of version control the publisher needs.
type VCS interface {
	Stage(ctx context.Context, paths ...string) error
	HasPendingChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, message string) error
}

type Publisher struct {
	repoRoot string
	assetDir string
	vcs      VCS
	logger   *slog.Logger
}

// New creates a publisher for the repository at repoRoot. assetDir is staged
// alongside each note when it exists.
func New(repoRoot, assetDir string, vcs VCS, logger *slog.Logger) *Publisher {
	return &Publisher{
		repoRoot: repoRoot,
		assetDir: assetDir,
		vcs:      vcs,
		logger:   logger,
	}
}

// Enabled reports whether the destination is a git working tree.
func (p *Publisher) Enabled() bool {
	_, err := os.Stat(filepath.Join(p.repoRoot, ".git"))
	return err == nil
}

// Publish stages notePath (and the asset directory) and commits if anything is staged.
// Only a failure to stage the note itself is returned; later steps are logged.
func (p *Publisher) Publish(ctx context.Context, notePath string) error {
	if !p.Enabled() {
		return nil
	}

	rel, err := filepath.Rel(p.repoRoot, notePath)
	if err != nil {
		return fmt.Errorf("note outside repository: %w", err)
	}
	if err := p.vcs.Stage(ctx, rel); err != nil {
		return fmt.Errorf("stage note: %w", err)
	}

	if info, err := os.Stat(p.assetDir); err == nil && info.IsDir() {
		if assetRel, err := filepath.Rel(p.repoRoot, p.assetDir); err == nil {
			if err := p.vcs.Stage(ctx, assetRel); err != nil {
				p.logger.Warn("failed to stage assets", "dir", assetRel, "error", err)
			}
		}
	}

	pending, err := p.vcs.HasPendingChanges(ctx)
	if err != nil {
		p.logger.Error("git status failed", "error", err)
		return nil
	}

	name := filepath.Base(notePath)
	if !pending {
		p.logger.Info("no changes to commit", "file", name)
		return nil
	}

	msg := "new note: " + strings.TrimSuffix(name, filepath.Ext(name))
	if err := p.vcs.Commit(ctx, msg); err != nil {
		p.logger.Error("git commit failed", "file", name, "error", err)
		return nil
	}
	p.logger.Info("git commit", "message", msg)
	return nil
}
