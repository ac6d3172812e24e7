package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"interview-tracker/internal/auth"
	"interview-tracker/internal/config"
	"interview-tracker/internal/logging"
)

const defaultTokenTTL = 24 * time.Hour

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level)
	defer func() { _ = logger.Sync() }()

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := printToken(cfg.Auth, os.Args[2:]); err != nil {
			logger.Error("issue token failed", "err", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("init app failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           deps.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("listening", "addr", cfg.Server.Addr, "driver", cfg.Database.Driver)
	if err := runServer(ctx, srv, cfg.Server.ShutdownTimeoutDuration()); err != nil {
		logger.Error("server stopped", "err", err)
	}
}

// httpServer 抽象 http.Server，便于测试替换。
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// runServer 启动服务器，ctx 取消后在超时内优雅关闭。
func runServer(ctx context.Context, srv httpServer, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// printToken 为本地调试签发一个访问令牌：token <owner> [ttl]。
func printToken(cfg auth.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: token <owner> [ttl]")
	}
	ttl := defaultTokenTTL
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("parse ttl: %w", err)
		}
		ttl = d
	}
	token, err := auth.NewResolver(cfg).IssueToken(args[0], ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
