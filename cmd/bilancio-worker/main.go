package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/sheets"
	"bilancio/internal/sheets/google"
	"bilancio/internal/storage"
	"bilancio/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: applog.LevelFromEnv(), Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", applog.FieldError, err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connect := func() (*amqp.Client, error) {
		return amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.GoalQueue, cfg.TransactionQueue)
	}

	processor := services.NewClassificationProcessor(repo)
	classifier := worker.NewClassificationWorker(processor)

	// Broker messages can be missed while the worker is down, so
	// reconcile classifications once before consuming.
	if err := processor.Refresh(ctx, 0); err != nil {
		logger.Warn("Startup classification refresh failed", applog.FieldError, err)
	}

	var exporter sheets.TransactionExporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := google.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to build Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = client
	} else {
		logger.Info("GOOGLE_SPREADSHEET_ID not set, export consumer disabled")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqp.ConsumeLoop(ctx, connect, func(ctx context.Context, c *amqp.Client) error {
			logger.Info("Consuming goal change events", "queue", cfg.GoalQueue)
			return c.ConsumeGoalChanges(ctx, classifier.HandleGoalChanged)
		})
	})

	if exporter != nil {
		export := worker.NewExportWorker(repo, exporter)
		g.Go(func() error {
			return amqp.ConsumeLoop(ctx, connect, func(ctx context.Context, c *amqp.Client) error {
				logger.Info("Consuming transaction change events", "queue", cfg.TransactionQueue)
				return c.ConsumeTransactionChanges(ctx, export.HandleTransactionChanged)
			})
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}
