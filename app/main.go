package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rss-curator/app/ai"
	"github.com/lysyi3m/rss-curator/app/api"
	"github.com/lysyi3m/rss-curator/app/cache"
	"github.com/lysyi3m/rss-curator/app/cfg"
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/events"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/ingest"
	"github.com/lysyi3m/rss-curator/app/publish"
	"github.com/lysyi3m/rss-curator/app/registry"
	"github.com/lysyi3m/rss-curator/app/tasks"
)

type app struct {
	cfg          *cfg.Cfg
	db           *database.DB
	items        *database.ItemRepository
	registry     *registry.Registry
	orchestrator *ingest.Orchestrator
	notifier     events.Notifier
	validators   *cache.ValidatorCache
}

func main() {
	config, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if config == nil {
		// Help was shown
		return
	}

	setupLogger(config.Debug)

	if err := run(config); err != nil {
		slog.Error("Command failed", "command", config.Command, "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(config *cfg.Cfg) error {
	db, err := database.Open(config.DBDriver, config.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "driver", db.Driver(), "schema_version", version, "dirty", dirty)

	if config.Command == "migrate" {
		return nil
	}

	a := newApp(config, db)
	defer a.close()

	ctx := context.Background()

	switch config.Command {
	case "feeds list":
		return a.listFeeds(ctx)
	case "feeds add":
		source, err := a.registry.Add(ctx, config.FeedsAdd.URL, config.FeedsAdd.Name)
		if err != nil {
			return err
		}
		fmt.Printf("Added feed %d: %s (%s)\n", source.ID, source.Name, source.URL)
		return nil
	case "feeds remove":
		removed, err := a.registry.Remove(ctx, config.FeedID)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("Feed %d not found\n", config.FeedID)
		}
		return nil
	case "run-cycle":
		a.seed(ctx)
		newItems, err := a.orchestrator.RunCycle(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Ingestion cycle complete: %d new items\n", newItems)
		return nil
	case "serve":
		a.seed(ctx)
		return a.serve()
	default:
		return fmt.Errorf("unknown command: %s", config.Command)
	}
}

func newApp(config *cfg.Cfg, db *database.DB) *app {
	a := &app{
		cfg:   config,
		db:    db,
		items: database.NewItemRepository(db),
	}

	var validators feed.ValidatorStore
	if config.RedisAddr != "" {
		vc, err := cache.NewValidatorCache(config.RedisAddr)
		if err != nil {
			slog.Warn("Redis unavailable, conditional fetch disabled", "addr", config.RedisAddr, "error", err)
		} else {
			a.validators = vc
			validators = vc
		}
	}

	if len(config.KafkaBrokers) > 0 {
		a.notifier = events.NewKafkaNotifier(config.KafkaBrokers, config.KafkaTopic)
	} else {
		a.notifier = events.NopNotifier{}
	}

	fetcher := feed.NewFetcher(&http.Client{}, config.FetchTimeout, config.UserAgent, validators)
	sources := database.NewSourceRepository(db)

	a.registry = registry.New(sources, fetcher, validators)
	a.orchestrator = ingest.NewOrchestrator(sources, fetcher, ingest.NewIngester(a.items), a.notifier, validators)

	return a
}

func (a *app) close() {
	if err := a.notifier.Close(); err != nil {
		slog.Warn("Failed to close notifier", "error", err)
	}
	if a.validators != nil {
		if err := a.validators.Close(); err != nil {
			slog.Warn("Failed to close Redis client", "error", err)
		}
	}
}

// seed registers the default sources when the registry is empty
func (a *app) seed(ctx context.Context) {
	seedList := feed.NewSeedList(a.cfg.FeedsFile)
	if err := seedList.Run(); err != nil {
		slog.Warn("Failed to load seed feeds", "file", a.cfg.FeedsFile, "error", err)
		return
	}

	inserted, err := a.registry.Seed(ctx, seedList.GetSeeds())
	if err != nil {
		slog.Warn("Failed to seed feed sources", "error", err)
		return
	}
	if inserted > 0 {
		slog.Info("Seeded feed sources", "count", inserted, "file", a.cfg.FeedsFile)
	}
}

func (a *app) listFeeds(ctx context.Context) error {
	sources, err := a.registry.List(ctx)
	if err != nil {
		return err
	}

	for _, source := range sources {
		state := "active"
		if !source.Active {
			state = "inactive"
		}
		fmt.Printf("%d\t%s\t%s\t%s\n", source.ID, state, source.Name, source.URL)
	}
	fmt.Printf("%d feed sources\n", len(sources))
	return nil
}

func (a *app) serve() error {
	config := a.cfg

	suggester := ai.NewSuggester(config.OpenAIAPIKey, config.OpenAIModel)
	if !suggester.Configured() {
		slog.Warn("OpenAI API key not set, suggestions fall back to the item summary")
	}

	telegram := publish.NewTelegram(config.TelegramToken, config.TelegramChatID)
	if !telegram.Configured() {
		slog.Warn("Telegram not configured, approvals will fail until TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are set")
	}

	scheduler := tasks.NewScheduler(a.orchestrator, a.items, suggester, tasks.Options{
		Interval:      config.SchedulerInterval,
		WorkerCount:   config.WorkerCount,
		RetentionDays: config.RetentionDays,
		AutoSuggest:   config.AutoSuggest,
	})
	scheduler.Start()
	defer scheduler.Stop()

	deps := api.Deps{
		Registry:  a.registry,
		Items:     a.items,
		Generator: feed.NewGenerator(config.BaseUrl, config.Port, config.Version),
		Runner:    a.orchestrator,
		Suggester: suggester,
		Publisher: telegram,
		DB:        a.db,
		Version:   config.Version,
	}
	if a.validators != nil {
		deps.Cache = a.validators
	}

	server := api.NewServer(api.NewHandler(deps), api.ServerOptions{
		APIAccessKey: config.APIAccessKey,
		RateLimit:    config.RateLimit,
		RateBurst:    config.RateBurst,
	})

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", config.Port, "version", config.Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case serveErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}
