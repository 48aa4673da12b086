// alert-worker consumes budget alert and expense created events from
// the broker and logs them; it stands in for the notification channel
// (mail, chat) a deployment would plug in here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tally/internal/config"
	"tally/internal/events"
	applog "tally/internal/log"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo}).
		WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the alert worker")
		os.Exit(1)
	}

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting alert worker", "queue", cfg.AMQPQueue)
	err = client.Consume(ctx, func(kind string, body []byte) error {
		return handleMessage(ctx, logger, kind, body)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Alert worker stopped")
}

func handleMessage(ctx context.Context, logger *applog.Logger, kind string, body []byte) error {
	switch kind {
	case events.KindBudgetAlert:
		msg, err := events.BudgetAlertFromJSON(body)
		if err != nil {
			return err
		}
		level := slog.LevelWarn
		if msg.Overspent {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "Budget alert",
			applog.FieldUserID, msg.UserID,
			applog.FieldMonth, msg.Month,
			"label", msg.Label,
			"pct", msg.Pct,
			"overspent", msg.Overspent)
		return nil
	case events.KindExpenseCreated:
		msg, err := events.ExpenseCreatedFromJSON(body)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Expense created",
			applog.FieldUserID, msg.UserID,
			applog.FieldExpenseID, msg.ExpenseID,
			applog.FieldAmountCents, msg.AmountCents,
			applog.FieldMonth, msg.Month)
		return nil
	default:
		return fmt.Errorf("unknown message kind %q", kind)
	}
}
