package main

import (
	"context"
	"log/slog"

	"github.com/MikeSquared-Agency/brainsync/internal/backfill"
	"github.com/MikeSquared-Agency/brainsync/internal/config"
	"github.com/MikeSquared-Agency/brainsync/internal/converter"
	"github.com/MikeSquared-Agency/brainsync/internal/hermes"
	"github.com/MikeSquared-Agency/brainsync/internal/ignore"
	"github.com/MikeSquared-Agency/brainsync/internal/processor"
	"github.com/MikeSquared-Agency/brainsync/internal/publisher"
	"github.com/MikeSquared-Agency/brainsync/internal/slack"
	"github.com/MikeSquared-Agency/brainsync/internal/state"
	"github.com/MikeSquared-Agency/brainsync/internal/store"
)

// app holds the components shared by every command.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	state     *state.Store
	ignore    *ignore.List
	processor *processor.Processor

	db     *store.Store
	hermes *hermes.Client
	slack  *slack.Poster
}

// newApp wires the pipeline. The ledger, NATS and Slack sinks are connected only
// when configured; a failed connection is logged and the sink left out.
func newApp(ctx context.Context, cfg config.Config) *app {
	logger := slog.Default()
	a := &app{
		cfg:    cfg,
		logger: logger,
		state:  state.Load(cfg.StateFile, logger),
		ignore: ignore.Load(cfg.IgnoreFile, logger),
	}

	var (
		ledger   processor.Ledger
		events   processor.Events
		notifier processor.Notifier
	)

	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
		} else if err := db.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare ledger", "error", err)
			db.Close()
		} else {
			a.db = db
			ledger = db
			logger.Info("database connected")
		}
	}

	if cfg.NatsURL != "" {
		h, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
		} else {
			a.hermes = h
			events = h
			logger.Info("hermes connected", "url", cfg.NatsURL)
		}
	}

	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		a.slack = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)
		notifier = a.slack
	}

	pub := publisher.New(cfg.DestRoot, cfg.AssetDir(), publisher.NewGit(cfg.DestRoot), logger)
	conv := converter.New(converter.Options{
		SourceRoot:    cfg.SourceRoot,
		NotesDir:      cfg.NotesDir(),
		AssetSubdir:   cfg.AssetSubdir,
		RepoBaseURL:   cfg.RepoBaseURL,
		RepoBranch:    cfg.RepoBranch,
		LocalRepoPath: cfg.LocalRepoPath,
	}, a.state, a.ignore, pub, logger)

	a.processor = processor.New(conv, ledger, events, notifier, logger)
	return a
}

func (a *app) scanner() *backfill.Runner {
	r := backfill.NewRunner(a.cfg.SourceRoot, a.state, a.ignore, a.processor.Dispatch, a.logger)
	if a.hermes != nil {
		r.WithEvents(a.hermes)
	}
	if a.slack != nil {
		r.WithNotifier(a.slack)
	}
	return r
}

func (a *app) close() {
	if a.hermes != nil {
		a.hermes.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
