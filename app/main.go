package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lysyi3m/steno-comb/app/cache"
	"github.com/lysyi3m/steno-comb/app/cfg"
	"github.com/lysyi3m/steno-comb/app/database"
	"github.com/lysyi3m/steno-comb/app/discussion"
	"github.com/lysyi3m/steno-comb/app/extraction"
	"github.com/lysyi3m/steno-comb/app/parliament"
	"github.com/lysyi3m/steno-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, appCfg)
	stop()

	os.Exit(code)
}

// app holds the components shared by every subcommand.
type app struct {
	cfg         *cfg.Cfg
	committees  database.CommitteeRepository
	bills       database.BillRepository
	transcripts database.TranscriptRepository
	discussions database.DiscussionRepository
	profiles    *extraction.Profiles
	backend     extraction.Backend
	ingester    *tasks.Ingester
	extractor   *tasks.Extractor
	syncer      *tasks.Syncer
	closers     []func() error
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			slog.Warn("Failed to close resource", "error", err)
		}
	}
}

func run(ctx context.Context, appCfg *cfg.Cfg) int {
	slog.Debug("Starting Steno Comb", "version", appCfg.Version, "command", appCfg.Command)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
		return 1
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return 1
	}
	slog.Debug("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	profileCache := extraction.NewProfileCache(appCfg.ProfilesFile)
	if err := profileCache.Run(); err != nil {
		slog.Error("Failed to load extraction profiles", "file", appCfg.ProfilesFile, "error", err)
		return 1
	}

	a, err := newApp(ctx, appCfg, db, profileCache.Get())
	if err != nil {
		slog.Error("Failed to initialise", "error", err)
		return 1
	}
	defer a.Close()

	switch appCfg.Command {
	case cfg.CommandScrape:
		return a.scrape(ctx)
	case cfg.CommandExtract:
		return a.extract(ctx)
	case cfg.CommandSyncCommittees:
		return a.syncCommittees(ctx)
	case cfg.CommandSyncBills:
		return a.syncBills(ctx)
	case cfg.CommandStats:
		return a.stats()
	case cfg.CommandServe:
		return a.serve(ctx)
	case cfg.CommandCheckDeps:
		return a.checkDeps()
	default:
		slog.Error("Unknown command", "command", appCfg.Command)
		return 1
	}
}

func newApp(ctx context.Context, appCfg *cfg.Cfg, db *database.DB, profiles *extraction.Profiles) (*app, error) {
	if appCfg.GeminiModel != "" {
		profiles.Model = appCfg.GeminiModel
	}

	backend, err := newBackend(ctx, appCfg, profiles)
	if err != nil && !errors.Is(err, extraction.ErrNotConfigured) {
		return nil, err
	}

	a := &app{
		cfg:         appCfg,
		committees:  database.NewCommitteeRepository(db),
		bills:       database.NewBillRepository(db),
		transcripts: database.NewTranscriptRepository(db),
		discussions: database.NewDiscussionRepository(db),
		profiles:    profiles,
		backend:     backend,
	}

	client := parliament.NewClient(appCfg.BaseURL, nil, appCfg.UserAgent, appCfg.HTTPTimeout)
	if appCfg.RedisAddr != "" {
		if responseCache, err := cache.NewCache(ctx, appCfg.RedisAddr, appCfg.CacheTTL); err != nil {
			slog.Warn("Archive cache disabled", "addr", appCfg.RedisAddr, "error", err)
		} else {
			client.WithCache(responseCache)
			a.closers = append(a.closers, responseCache.Close)
		}
	}

	invoker := extraction.NewInvoker(backend, extraction.NewRatePacer(appCfg.CallInterval), extraction.InvokerConfig{
		MaxAttempts: appCfg.MaxAttempts,
		BaseDelay:   appCfg.RetryBaseDelay,
		OnTransition: func(from, to extraction.State) {
			slog.Debug("Extraction state", "from", from.String(), "to", to.String())
		},
	})
	writer := discussion.NewWriter(a.discussions, discussion.NewMatcher(a.bills), profiles.Model, profiles.Options)

	a.ingester = tasks.NewIngester(client, a.transcripts, appCfg.WorkerCount)
	a.extractor = tasks.NewExtractor(a.transcripts, invoker, writer, profiles, appCfg.WorkerCount)
	a.syncer = tasks.NewSyncer(client, a.committees, a.bills, appCfg.WorkerCount)

	return a, nil
}

// newBackend prefers an external extractor command over the Gemini API.
func newBackend(ctx context.Context, appCfg *cfg.Cfg, profiles *extraction.Profiles) (extraction.Backend, error) {
	if appCfg.ExtractorCommand != "" {
		backend, err := extraction.NewCommandBackend(appCfg.ExtractorCommand, appCfg.GeminiAPIKey, profiles)
		if err != nil {
			return nil, err
		}
		return backend, nil
	}

	backend, err := extraction.NewGeminiBackend(ctx, appCfg.GeminiAPIKey, profiles)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

func (a *app) requireBackend() bool {
	if a.backend != nil {
		return true
	}
	slog.Error("Extraction backend not available", "error", extraction.ErrNotConfigured,
		"hint", "set GEMINI_API_KEY or EXTRACTOR_COMMAND")
	return false
}
