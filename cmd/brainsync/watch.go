package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/brainsync/internal/api"
	"github.com/MikeSquared-Agency/brainsync/internal/config"
	"github.com/MikeSquared-Agency/brainsync/internal/tracker"
	"github.com/MikeSquared-Agency/brainsync/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Scan once, then watch for session changes (default)",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if info, err := os.Stat(cfg.SourceRoot); err != nil || !info.IsDir() {
		slog.Error("source root not found", "path", cfg.SourceRoot)
		return fmt.Errorf("source root not found: %s", cfg.SourceRoot)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, cfg)
	defer a.close()

	slog.Info("brainsync starting",
		"source_root", cfg.SourceRoot,
		"notes_dir", cfg.NotesDir(),
		"settle_delay", cfg.SettleDelay(),
		"scan_interval", cfg.ScanInterval(),
	)

	trk := tracker.New(cfg.SourceRoot, cfg.SettleDelay(), cfg.ScanInterval(), a.processor.Dispatch, slog.Default())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		trk.Run(gctx)
		return nil
	})

	if _, err := a.scanner().Run(gctx); err != nil {
		slog.Error("full scan failed", "error", err)
	}

	w, err := watcher.New(cfg.SourceRoot, trk, slog.Default())
	if err != nil {
		stop()
		g.Wait()
		return err
	}
	g.Go(func() error { return w.Run(gctx) })

	if srv := newAPIServer(cfg, a, trk); srv != nil {
		g.Go(func() error {
			serveAPI(gctx, srv)
			return nil
		})
	} else {
		slog.Info("API server disabled")
	}

	err = g.Wait()
	slog.Info("brainsync stopped", "notes_synced", a.processor.Synced())
	return err
}

// newAPIServer returns nil when the API is disabled by a zero port.
func newAPIServer(cfg config.Config, a *app, q api.Queue) *api.Server {
	if cfg.Port == 0 {
		return nil
	}
	var notes api.Notes
	if a.db != nil {
		notes = a.db
	}
	return api.NewServer(cfg.Port, a.state, q, notes, slog.Default())
}

// serveAPI runs srv until ctx is cancelled. A server failure is logged and leaves
// the sync loop running.
func serveAPI(ctx context.Context, srv *api.Server) {
	if err := srv.Run(ctx); err != nil {
		slog.Error("API server error", "error", err)
	}
}
