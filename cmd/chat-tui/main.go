package main

import (
	"context"
	"fmt"
	"os"

	"gwi.com/chat-agent/internal/config"
	"gwi.com/chat-agent/internal/core"
	"gwi.com/chat-agent/internal/observability"
	"gwi.com/chat-agent/internal/pageanalysis"
	"gwi.com/chat-agent/internal/store"
	"gwi.com/chat-agent/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadConfig()
	cfg := config.AppConfig
	ctx := context.Background()

	// stdout belongs to the UI.
	logFile, err := os.OpenFile("chat-tui.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger := observability.Init(logFile, cfg.LogLevel)

	dsn := cfg.DatabaseURL
	if cfg.StoreBackend == config.StorePostgres {
		dsn = cfg.PostgresURL
	}
	dbStore, err := store.Open(ctx, cfg.StoreBackend, dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer dbStore.Close()

	generator, closeGenerator, err := core.NewGenerator(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %w", err)
	}
	defer closeGenerator()

	analyzer, err := pageanalysis.New(cfg.PageAnalyzer, cfg.PageFetchTimeout)
	if err != nil {
		return err
	}

	sessions := core.NewSessionManager(dbStore, generator, logger)
	defer sessions.CloseAll()
	chatService := core.NewChatService(dbStore, sessions, analyzer)

	user, err := chatService.GetOrCreateUser(ctx, cfg.TUIUser)
	if err != nil {
		return err
	}
	session, err := chatService.StartSession(ctx, user.ID)
	if err != nil {
		return err
	}

	if _, err := tui.NewProgram(chatService, session).Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}
