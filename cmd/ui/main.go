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

	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/logger"
	"trade-journal-go/internal/store"
	"trade-journal-go/internal/upstream"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	legacy, closeLegacy, err := newLegacyStore(cfg.LegacyNotes, db, log)
	if err != nil {
		log.Fatal("Failed to set up legacy note store", zap.Error(err))
	}
	defer closeLegacy()

	client := upstream.NewClient(&cfg.Upstream, log)
	tradeStore := store.NewTradeStore(db)
	cache := journal.NewWalletTradeCache(journal.WithTTL(time.Duration(cfg.Journal.CacheTTLMinutes) * time.Minute))
	loader := journal.NewLoader(client, cache, log, journal.WithPageSize(cfg.Journal.PageSize))
	notes := journal.NewNotesReconciler(tradeStore, legacy, log)
	svc := journal.NewService(loader, client, notes, log)

	apiHandler := NewAPIHandler(log, svc, cfg.Journal.Wallets)
	mux := http.NewServeMux()
	apiHandler.Register(mux)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, stopping web server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Web server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting web server", zap.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Web server failed", zap.Error(err))
	}
	log.Info("Web server stopped.")
}

// newLegacyStore picks the legacy note backend. The returned func releases it.
func newLegacyStore(cfg config.LegacyNotes, db *gorm.DB, log *zap.Logger) (journal.LegacyNoteStore, func(), error) {
	switch cfg.Backend {
	case "", "sqlite":
		return store.NewSQLNoteStore(db), func() {}, nil
	case "redis":
		rs := store.NewRedisNoteStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rs.Ping(ctx); err != nil {
			// Notes still resolve from the trade store; only the legacy tier degrades.
			log.Warn("Redis legacy note store unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		return rs, func() { _ = rs.Close() }, nil
	case "none":
		return nil, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown legacy notes backend %q", cfg.Backend)
	}
}
