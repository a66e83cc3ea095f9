package publisher

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const gitTimeout = 60 * time.Second

// Git runs the git binary inside a repository working tree.
type Git struct {
	Dir string
	Bin string
}

func NewGit(dir string) *Git {
	return &Git{Dir: dir, Bin: "git"}
}

func (g *Git) Stage(ctx context.Context, paths ...string) error {
	_, err := g.run(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

func (g *Git) HasPendingChanges(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (g *Git) Commit(ctx context.Context, message string) error {
	_, err := g.run(ctx, "commit", "-m", message)
	return err
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, g.Bin, args...)
	cmd.Dir = g.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
