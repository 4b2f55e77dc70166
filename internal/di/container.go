package di

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"
	"github.com/samber/oops"

	analyticsRepo "github.com/reshetovitsme/telegram-pulse/internal/modules/analytics/repository"
	analyticsService "github.com/reshetovitsme/telegram-pulse/internal/modules/analytics/service"
	channelRepo "github.com/reshetovitsme/telegram-pulse/internal/modules/channel/repository"
	dictionaryRepo "github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/repository"
	dictionaryService "github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/service"
	feedService "github.com/reshetovitsme/telegram-pulse/internal/modules/feed/service"
	ingestionService "github.com/reshetovitsme/telegram-pulse/internal/modules/ingestion/service"
	matchingRepo "github.com/reshetovitsme/telegram-pulse/internal/modules/matching/repository"
	matchingService "github.com/reshetovitsme/telegram-pulse/internal/modules/matching/service"
	messageRepo "github.com/reshetovitsme/telegram-pulse/internal/modules/message/repository"
	syncRepo "github.com/reshetovitsme/telegram-pulse/internal/modules/sync/repository"
	syncService "github.com/reshetovitsme/telegram-pulse/internal/modules/sync/service"
	"github.com/reshetovitsme/telegram-pulse/internal/scheduler"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/config"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/persian"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/storage"
	httpServer "github.com/reshetovitsme/telegram-pulse/internal/transport/http"
	"github.com/reshetovitsme/telegram-pulse/internal/transport/messageapi"
)

// Setup initializes the dependency injection container
func Setup(logger *slog.Logger) (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Database
	do.Provide(injector, func(i do.Injector) (*sql.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		db, err := storage.Open(context.Background(), cfg.DatabasePath)
		if err != nil {
			return nil, oops.With("database_path", cfg.DatabasePath, "context", "failed to open database").Wrap(err)
		}
		return db, nil
	})

	// Register Redis client. A missing address disables the page cache;
	// the client stays nil and every consumer treats nil as "no cache".
	do.Provide(injector, func(i do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.RedisAddr == "" {
			return nil, nil
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, continuing without page cache",
				"addr", cfg.RedisAddr, "error", err)
			return nil, nil
		}
		return client, nil
	})

	// Register Repositories
	do.Provide(injector, func(i do.Injector) (channelRepo.Repository, error) {
		return channelRepo.NewSQLite(do.MustInvoke[*sql.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (messageRepo.Repository, error) {
		return messageRepo.NewSQLite(do.MustInvoke[*sql.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (dictionaryRepo.Repository, error) {
		return dictionaryRepo.NewSQLite(do.MustInvoke[*sql.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (matchingRepo.Repository, error) {
		return matchingRepo.NewSQLite(do.MustInvoke[*sql.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (syncRepo.Repository, error) {
		return syncRepo.NewSQLite(do.MustInvoke[*sql.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (analyticsRepo.Repository, error) {
		return analyticsRepo.NewSQLite(do.MustInvoke[*sql.DB](i)), nil
	})

	// Register Normalizer
	do.Provide(injector, func(i do.Injector) (persian.Normalizer, error) {
		return persian.NewNormalizer(true), nil
	})

	// Register Remote API Client
	do.Provide(injector, func(i do.Injector) (*messageapi.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		cache, _ := do.Invoke[*redis.Client](i)
		return messageapi.NewClient(cfg, cache, logger), nil
	})

	// Register Matching Engine
	do.Provide(injector, func(i do.Injector) (*matchingService.Engine, error) {
		words := do.MustInvoke[dictionaryRepo.Repository](i)
		edges := do.MustInvoke[matchingRepo.Repository](i)
		normalizer := do.MustInvoke[persian.Normalizer](i)
		return matchingService.NewEngine(words, edges, normalizer, logger), nil
	})

	// Register Dictionary Service
	do.Provide(injector, func(i do.Injector) (*dictionaryService.Service, error) {
		repo := do.MustInvoke[dictionaryRepo.Repository](i)
		normalizer := do.MustInvoke[persian.Normalizer](i)
		svc := dictionaryService.New(repo, normalizer, logger)
		svc.SetReloader(do.MustInvoke[*matchingService.Engine](i))
		return svc, nil
	})

	// Register Ingestion Service
	do.Provide(injector, func(i do.Injector) (*ingestionService.Service, error) {
		channels := do.MustInvoke[channelRepo.Repository](i)
		messages := do.MustInvoke[messageRepo.Repository](i)
		dictionaries := do.MustInvoke[dictionaryRepo.Repository](i)
		matcher := do.MustInvoke[*matchingService.Engine](i)
		normalizer := do.MustInvoke[persian.Normalizer](i)
		client := do.MustInvoke[*messageapi.Client](i)
		cache, _ := do.Invoke[*redis.Client](i)

		mapper := ingestionService.NewMapper(channels, logger)
		return ingestionService.New(client, mapper, messages, channels, dictionaries, matcher, normalizer, cache, logger), nil
	})

	// Register Sync Service
	do.Provide(injector, func(i do.Injector) (*syncService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		states := do.MustInvoke[syncRepo.Repository](i)
		ingestor := do.MustInvoke[*ingestionService.Service](i)
		return syncService.New(states, ingestor, cfg.SyncBatchSize, cfg.SyncMaxBatches, logger), nil
	})

	// Register Analytics Engine
	do.Provide(injector, func(i do.Injector) (*analyticsService.Engine, error) {
		buckets := do.MustInvoke[analyticsRepo.Repository](i)
		messages := do.MustInvoke[messageRepo.Repository](i)
		channels := do.MustInvoke[channelRepo.Repository](i)
		return analyticsService.NewEngine(buckets, messages, channels, logger), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		channels := do.MustInvoke[channelRepo.Repository](i)
		messages := do.MustInvoke[messageRepo.Repository](i)
		return feedService.New(channels, messages), nil
	})

	// Register Scheduler
	do.Provide(injector, func(i do.Injector) (*scheduler.Scheduler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		syncSvc := do.MustInvoke[*syncService.Service](i)
		analytics := do.MustInvoke[*analyticsService.Engine](i)
		ingestion := do.MustInvoke[*ingestionService.Service](i)

		sched := scheduler.New(logger)
		sched.Register("ingestion", time.Duration(cfg.PollingInterval)*time.Second, func(ctx context.Context) error {
			_, err := ingestion.IngestBatch(ctx, cfg.BatchSize, 0, true, true)
			return err
		})
		sched.Register("auto-sync", 30*time.Minute, func(ctx context.Context) error {
			_, err := syncSvc.AutoSync(ctx, 0, 0)
			return err
		})
		sched.Register("analytics-aggregation", 5*time.Minute, func(ctx context.Context) error {
			_, err := analytics.AggregateLast5Minutes(ctx)
			return err
		})
		sched.Register("cleanup", 24*time.Hour, func(ctx context.Context) error {
			_, err := ingestion.CleanupOlderThan(ctx, cfg.HistoryDays)
			return err
		})
		sched.Register("health-check", 5*time.Minute, func(ctx context.Context) error {
			health := ingestion.HealthCheck(ctx)
			if !health.OK() {
				logger.Warn("health check degraded",
					"storage", health.Storage,
					"remote", health.Remote,
				)
			}
			return nil
		})
		return sched, nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return httpServer.New(
			cfg,
			do.MustInvoke[*syncService.Service](i),
			do.MustInvoke[*analyticsService.Engine](i),
			do.MustInvoke[*dictionaryService.Service](i),
			do.MustInvoke[*ingestionService.Service](i),
			do.MustInvoke[*matchingService.Engine](i),
			do.MustInvoke[*feedService.Service](i),
			logger,
		), nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched, err := do.Invoke[*scheduler.Scheduler](injector); err == nil && sched != nil {
		sched.Stop()
	}
	if server, err := do.Invoke[*httpServer.Server](injector); err == nil && server != nil {
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("HTTP server shutdown failed", "error", err)
		}
	}
	if cache, err := do.Invoke[*redis.Client](injector); err == nil && cache != nil {
		cache.Close()
	}
	if db, err := do.Invoke[*sql.DB](injector); err == nil && db != nil {
		return db.Close()
	}
	return nil
}
