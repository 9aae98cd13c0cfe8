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

	"gwi.com/chat-agent/internal/api"
	"gwi.com/chat-agent/internal/config"
	"gwi.com/chat-agent/internal/core"
	"gwi.com/chat-agent/internal/observability"
	"gwi.com/chat-agent/internal/pageanalysis"
	"gwi.com/chat-agent/internal/store"
)

const sweepInterval = time.Minute

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	logger := observability.Init(os.Stdout, cfg.LogLevel)
	if err := cfg.RequireJWTSecret(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize message store
	dsn := cfg.DatabaseURL
	if cfg.StoreBackend == config.StorePostgres {
		dsn = cfg.PostgresURL
	}
	dbStore, err := store.Open(ctx, cfg.StoreBackend, dsn)
	if err != nil {
		logger.Error("failed to initialize store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer dbStore.Close()

	// Initialize response generator
	generator, closeGenerator, err := core.NewGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize generator", "backend", cfg.GeneratorBackend, "error", err)
		os.Exit(1)
	}
	defer closeGenerator()

	analyzer, err := pageanalysis.New(cfg.PageAnalyzer, cfg.PageFetchTimeout)
	if err != nil {
		logger.Error("failed to initialize page analyzer", "error", err)
		os.Exit(1)
	}

	sessions := core.NewSessionManager(dbStore, generator, logger)
	defer sessions.CloseAll()
	chatService := core.NewChatService(dbStore, sessions, analyzer)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService)
	router := api.NewRouter(apiHandler, api.NewRateLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitBurst))

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // a turn waits for the generator
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", serverAddr, "store", cfg.StoreBackend, "generator", cfg.GeneratorBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
		return nil
	})
	g.Go(func() error {
		return sessions.RunSweeper(gctx, sweepInterval, cfg.SessionIdleTTL)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		// Give active connections time to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited gracefully")
}
