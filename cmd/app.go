package main

import (
	"context"
	"fmt"
	"net/http"

	"interview-tracker/internal/api"
	"interview-tracker/internal/auth"
	"interview-tracker/internal/config"
	"interview-tracker/internal/interview"
	"interview-tracker/internal/logging"
	"interview-tracker/internal/notifier"
	"interview-tracker/internal/storage"
)

// repository 为服务所需的存储加关闭能力。
type repository interface {
	interview.Repository
	Close() error
}

type appDeps struct {
	svc     *interview.Service
	handler http.Handler
}

// buildApp 按配置装配存储、通知与 HTTP 处理器，返回的 cleanup 负责释放连接。
func buildApp(ctx context.Context, cfg config.Config, logger *logging.Logger) (appDeps, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("cleanup failed", "err", err)
			}
		}
	}

	repo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		return appDeps{}, cleanup, err
	}
	closers = append(closers, repo.Close)

	notifiers := notifier.Multi{notifier.NewLogNotifier(logger)}
	if cfg.Redis.URL != "" {
		rdb, err := notifier.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			cleanup()
			return appDeps{}, func() {}, err
		}
		closers = append(closers, rdb.Close)
		notifiers = append(notifiers, notifier.NewRedisNotifier(rdb, cfg.Redis.Channel))
	} else {
		logger.Info("redis notifier disabled: missing url")
	}
	if cfg.Email.Enabled() {
		notifiers = append(notifiers, notifier.NewEmailNotifier(cfg.Email, nil))
	} else {
		logger.Info("email notifier disabled: missing host/port/from/to")
	}

	svc := interview.NewService(repo,
		interview.WithNotifier(notifiers),
		interview.WithLogger(logger.With("component", "interview")),
	)
	handler := api.NewHandler(svc, auth.NewResolver(cfg.Auth), logger.With("component", "api"))

	return appDeps{svc: svc, handler: handler}, cleanup, nil
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig) (repository, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := storage.NewPGStore(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return store, nil
	case config.DriverSQLite, "":
		store, err := storage.NewStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
