package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/solatis/fraudkeeper/internal/cache"
	"github.com/solatis/fraudkeeper/internal/core/api"
	"github.com/solatis/fraudkeeper/internal/core/config"
	"github.com/solatis/fraudkeeper/internal/core/db"
	"github.com/solatis/fraudkeeper/internal/core/server"
	"github.com/solatis/fraudkeeper/internal/lifecycle"
	"github.com/solatis/fraudkeeper/internal/metrics"
	"github.com/solatis/fraudkeeper/internal/pipeline"
	"github.com/solatis/fraudkeeper/internal/schema"
	"github.com/solatis/fraudkeeper/internal/store"
	"github.com/solatis/fraudkeeper/internal/types"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP rule and transaction API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := newLogger()
	slog.SetDefault(log)

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Port = port
	}

	if dbURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	var migrationID string
	checkQuery := `SELECT migration_id FROM migrations WHERE migration_id = '001_initial_schema.sql'`
	err = database.Get(&migrationID, database.Rebind(checkQuery))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("migration 001_initial_schema not applied - run 'fraudkeeper migrate' first")
		}
		return fmt.Errorf("failed to check migrations: %w", err)
	}

	queries, err := db.LoadQueries()
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	collector := metrics.New()
	ruleStore := store.NewRuleStore(database, queries)
	transactionStore := store.NewTransactionStore(database, queries)
	eventStore := store.NewFraudEventStore(database, queries)

	ruleCache := cache.New(ruleStore, collector)
	manager := lifecycle.New(ruleStore, schema.New(), ruleCache, cfg.LockTimeout, log)
	pipe := pipeline.New(transactionStore, eventStore, ruleCache, collector, cfg.WorkerLimit, log)

	gin.SetMode(gin.ReleaseMode)
	service, err := api.NewService(database, manager, pipe, eventStore, collector.Handler(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	httpServer, err := server.NewHTTPServer(cfg, service.Router())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	warmCache(ctx, ruleCache, log)
	go refreshCache(ctx, ruleCache, cfg.CacheRefreshInterval, log)

	log.Info("starting fraudkeeper API",
		slog.String("version", Version),
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port))

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		log.Info("shutting down gracefully")
		cancel()
		return httpServer.Shutdown(context.Background())
	}
}

// warmCache preloads the active rule set so the first transaction does not
// pay the miss. A missing active rule at startup is normal for a fresh
// deployment and only logs.
func warmCache(ctx context.Context, ruleCache *cache.ActiveRuleCache, log *slog.Logger) {
	_, err := ruleCache.GetActive(ctx)
	if errors.Is(err, types.ErrActiveRuleNotFound) {
		log.Warn("no active rule set configured yet")
		return
	}
	if err != nil {
		log.Error("cache warm-up failed", slog.String("error", err.Error()))
	}
}

// refreshCache periodically drops and reloads the cached rule set, bounding
// staleness when rules are mutated outside this process.
func refreshCache(ctx context.Context, ruleCache *cache.ActiveRuleCache, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ruleCache.Invalidate()
			if _, err := ruleCache.GetActive(ctx); err != nil && !errors.Is(err, types.ErrActiveRuleNotFound) {
				log.Warn("cache refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}
