package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/logger"
	"trade-journal-go/internal/store"
	"trade-journal-go/internal/upstream"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.Strings("wallets", cfg.Journal.Wallets))

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	client := upstream.NewClient(&cfg.Upstream, log)

	cache := journal.NewWalletTradeCache(journal.WithTTL(time.Duration(cfg.Journal.CacheTTLMinutes) * time.Minute))
	loader := journal.NewLoader(client, cache, log, journal.WithPageSize(cfg.Journal.PageSize))
	syncer := journal.NewSyncer(log, loader, store.NewTradeStore(db), cfg.Journal.Wallets,
		time.Duration(cfg.Journal.SyncInterval)*time.Second)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	var status *journal.StatusServer
	if cfg.Journal.StatusPort > 0 {
		status = journal.NewStatusServer(syncer, cfg.Journal.StatusPort, log)
		status.Start()
	}

	syncer.Run(ctx)

	if status != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := status.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop status server", zap.Error(err))
		}
	}

	log.Info("Journal sync has been shut down.")
}
