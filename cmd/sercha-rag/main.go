// Command sercha-rag is hybrid retrieval and cited question answering over
// a document knowledge base.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/catalog/komga"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	filelinks "github.com/custodia-labs/sercha-rag/internal/adapters/driven/linkstore/file"
	redislinks "github.com/custodia-labs/sercha-rag/internal/adapters/driven/linkstore/redis"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/mongodb"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
	"github.com/custodia-labs/sercha-rag/internal/response"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is normal; variables may come from the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Sync()

	cleanup, err := wire(ctx)
	defer cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cli.SetVersion(version)
	return cli.Execute(ctx)
}

// backend is a pair of retrieval channels over one store.
type backend interface {
	VectorIndex() driven.VectorIndex
	TextIndex() driven.TextIndex
}

// wire builds every service and hands the driving ports to the CLI.
// The returned cleanup is always safe to call.
func wire(ctx context.Context) (func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	configDir, err := file.DefaultDir()
	if err != nil {
		return cleanup, fmt.Errorf("resolve config directory: %w", err)
	}
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return cleanup, fmt.Errorf("open config: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return cleanup, fmt.Errorf("load settings: %w", err)
	}

	collector := metrics.NewCollector("sercha_rag")

	aiResult := ai.Initialise(*settings)
	closers = append(closers, aiResult.Close)
	for _, w := range aiResult.Warnings {
		logger.Warn("%s", w)
	}

	store, closeStore := openBackend(ctx, settings.Backend, configDir)
	closers = append(closers, closeStore)

	linkCache, closeLinks := openLinkCache(ctx, settings.LinkCache, configDir)
	closers = append(closers, closeLinks)

	catalog := komga.NewClient(komga.Config{
		BaseURL:           settings.Catalog.BaseURL,
		Username:          settings.Catalog.Username,
		Password:          settings.Catalog.Password,
		Timeout:           settings.Catalog.Timeout,
		RequestsPerSecond: settings.Catalog.RequestsPerSecond,
	})

	resolver := services.NewCitationResolver(catalog, linkCache, settings.Catalog.Timeout)
	resolver.SetMetrics(collector)

	searchService := services.NewSearchService(
		store.VectorIndex(), store.TextIndex(), aiResult.EmbeddingService, settings.Search,
	)
	searchService.SetFormatter(services.NewResponseFormatter(resolver))
	searchService.SetMetrics(collector)

	registry := response.DefaultRegistry(resolver)
	pipeline, err := registry.BuildPipeline(settings.Response.Processors, nil)
	if err != nil {
		return cleanup, fmt.Errorf("response.processors: %w", err)
	}
	mrkdwn, err := registry.Build(response.ProcessorMrkdwn, nil)
	if err != nil {
		return cleanup, err
	}

	answerService := services.NewAnswerService(searchService, aiResult.LLMService, pipeline, *settings)
	answerService.SetMarkupProcessor(domain.MarkupMrkdwn, mrkdwn)
	answerService.SetMetrics(collector)
	var watchPrompts func(context.Context) error
	if prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts")); err != nil {
		logger.Warn("Prompt overrides unavailable, using built-in prompts: %v", err)
	} else {
		answerService.SetPromptStore(prompts)
		watchPrompts = prompts.Watch
	}

	cli.SetServices(cli.Services{
		Search:       searchService,
		Answer:       answerService,
		Catalog:      services.NewCatalogService(catalog, resolver),
		Settings:     settingsService,
		Metrics:      collector.Handler(),
		WatchPrompts: watchPrompts,
	})
	return cleanup, nil
}

// openBackend opens the configured retrieval backend. When it cannot be
// opened an empty in-memory index stands in, so settings commands still work
// and searches return no results.
func openBackend(ctx context.Context, cfg domain.BackendSettings, configDir string) (backend, func()) {
	switch cfg.Type {
	case domain.BackendMongoDB:
		store, err := mongodb.Connect(ctx, cfg.MongoDB)
		if err == nil {
			return store, func() {
				if err := store.Close(context.Background()); err != nil {
					logger.Warn("Failed to close MongoDB: %v", err)
				}
			}
		}
		logger.Error("MongoDB backend unavailable: %v", err)
	case domain.BackendSQLite:
		path := cfg.SQLite.Path
		if path == "" {
			path = filepath.Join(configDir, "data", "knowledge.db")
		}
		store, err := sqlite.NewStore(path)
		if err == nil {
			return store, func() {
				if err := store.Close(); err != nil {
					logger.Warn("Failed to close SQLite: %v", err)
				}
			}
		}
		logger.Error("SQLite backend unavailable: %v", err)
	default:
		logger.Error("Unknown backend %q", cfg.Type)
	}
	return memory.NewIndex(), func() {}
}

// openLinkCache loads the book link cache from its durable store. The
// returned closer waits for background saves before closing the store, so
// links resolved by a one-shot command are not lost at exit.
func openLinkCache(
	ctx context.Context, cfg domain.LinkCacheSettings, configDir string,
) (*services.BookLinkCache, func()) {
	store, closeStore := openLinkStore(ctx, cfg, configDir)
	cache := services.NewBookLinkCache(ctx, store)
	return cache, func() {
		cache.Wait()
		closeStore()
	}
}

// openLinkStore opens the durable store behind the book link cache.
// Without one, links are cached for the life of the process only.
func openLinkStore(ctx context.Context, cfg domain.LinkCacheSettings, configDir string) (driven.BookLinkStore, func()) {
	if cfg.Backend == domain.LinkCacheRedis {
		store, err := redislinks.NewStore(ctx, redislinks.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
		if err == nil {
			return store, func() { _ = store.Close() }
		}
		logger.Warn("Redis link store unavailable, falling back to file: %v", err)
	}

	path := cfg.Path
	if path == "" {
		path = filepath.Join(configDir, "book_links.json")
	}
	store, err := filelinks.NewStore(path)
	if err != nil {
		logger.Warn("Link store unavailable: %v", err)
		return nil, func() {}
	}
	return store, func() {}
}
