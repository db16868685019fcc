package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/pfrederiksen/athens-bands/internal/config"
	"github.com/pfrederiksen/athens-bands/internal/event"
	"github.com/pfrederiksen/athens-bands/internal/logger"
	"github.com/pfrederiksen/athens-bands/internal/metrics"
	"github.com/pfrederiksen/athens-bands/internal/purge"
	"github.com/pfrederiksen/athens-bands/internal/refresh"
	"github.com/pfrederiksen/athens-bands/internal/scraper"
	"github.com/pfrederiksen/athens-bands/internal/storage"
)

// app holds the components shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	resolver *event.Resolver
	fetcher  *scraper.Fetcher
	builder  *scraper.Builder
	metrics  *metrics.Recorder
	store    storage.Store
	runner   *refresh.Runner
}

// loadConfig reads the config file and sets up the default logger on stderr
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logger.LevelInfo
	}
	if flagVerbose {
		level = logger.LevelDebug
	}
	log := logger.New(level, os.Stderr)
	logger.SetDefault(log)

	return cfg, log, nil
}

// newApp builds the pipeline. withStore opens the configured store.
func newApp(ctx context.Context, withStore bool) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	resolver, err := event.LoadResolver(cfg.Source.Timezone)
	if err != nil {
		return nil, err
	}

	fetcher := scraper.NewFetcher(cfg.Source, scraper.WithLogger(log.With(logger.Fields{"component": "fetcher"})))
	builder := scraper.NewBuilder(fetcher, resolver, cfg.Source.PrimaryURL,
		scraper.WithBuilderLogger(log.With(logger.Fields{"component": "builder"})))

	a := &app{
		cfg:      cfg,
		log:      log,
		resolver: resolver,
		fetcher:  fetcher,
		builder:  builder,
		metrics:  metrics.New(),
	}

	if !withStore {
		return a, nil
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	a.store = store
	a.runner = refresh.NewRunner(builder, store,
		refresh.WithPurger(purge.New(cfg.Purge), cfg.Purge.Tags),
		refresh.WithMetrics(a.metrics),
		refresh.WithLogger(log.With(logger.Fields{"component": "refresh"})),
	)

	return a, nil
}

func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
