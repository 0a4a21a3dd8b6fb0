// Package cli provides common CLI initialization utilities shared by
// cmd/revdash, cmd/revdash-notify and cmd/revdash-import.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"revdash/internal/config"
	"revdash/internal/core"
	"revdash/internal/log"
	"revdash/internal/sheets/memory"
	"revdash/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger at the configured level and makes
// it the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Component = component
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// MustLocation resolves the configured timezone or exits.
func MustLocation(logger *log.Logger, cfg *config.Config) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", log.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}
	return loc
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// Importer receives seeded rows. *storage.SQLiteRepository satisfies it.
type Importer interface {
	Import(ctx context.Context, records []core.TransactionRecord, banks []core.BankAccountRecord) error
}

// ImportResult counts what ImportDataDir wrote.
type ImportResult struct {
	Records      int
	BankAccounts int
}

// ImportDataDir reads records.csv and bank_accounts.csv from dir with the
// same header resolution the memory backend uses and hands them to dst.
func ImportDataDir(ctx context.Context, dst Importer, dir string) (ImportResult, error) {
	store, err := memory.NewFromFiles(dir)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read %s: %w", dir, err)
	}
	records, err := store.FetchRecords(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	banks, err := store.FetchBankAccounts(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	if err := dst.Import(ctx, records, banks); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Records: len(records), BankAccounts: len(banks)}, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT or SIGTERM; cleanup then runs
// with a context bounded by timeout, and done is closed once it returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ended.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
