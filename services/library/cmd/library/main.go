package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"settle/internal/usertoken"
	"settle/internal/util"
	"settle/pkg/store"
	"settle/services/library/internal/app"
	"settle/services/library/internal/config"
	"settle/services/library/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(config.ResolvePath())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	if err := run(cfg, sessionTTL, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.FileConfig, sessionTTL time.Duration, logger *slog.Logger) error {
	dataStore, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens, err := usertoken.NewManager(usertoken.Config{
		Secret: cfg.JWTSecret,
		TTL:    sessionTTL,
	})
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}

	appCore, err := app.New(app.Config{
		Store:  dataStore,
		Tokens: tokens,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		TrustedProxyCIDRs:        cfg.TrustedProxyCIDRs,
		CORSAllowedOrigins:       cfg.CORSAllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}
	defer httpServer.Close()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", addr, "storage", cfg.Storage, "rate_limit", cfg.RedisAddr != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(cfg config.FileConfig) (store.Store, func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		slog.Warn("using in-memory storage; data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	default:
		gormStore, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres store: %w", err)
		}
		return gormStore, func() {
			if err := gormStore.Close(); err != nil {
				slog.Warn("close store", "err", err)
			}
		}, nil
	}
}
