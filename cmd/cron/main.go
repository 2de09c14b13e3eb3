// Package main runs the scheduled maintenance jobs of the billing core.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plans/internal/app"
	"plans/internal/config"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 5 * time.Minute

func main() {
	settings, appLog, err := app.LoadSettings()
	if err != nil {
		log.Fatal(err)
	}

	a, err := app.New(settings, appLog)
	if err != nil {
		appLog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	scheduler := cron.New()

	// Running subscriptions whose billing date passed without a renewal.
	schedule := config.GetEnv("RECONCILE_SCHEDULE", "0 2 * * *")
	_, err = scheduler.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		ids, err := a.Subscriptions.ReconcileExpired(ctx, time.Now())
		if err != nil {
			appLog.Error("expiration reconcile failed", "expired", len(ids), "error", err)
			return
		}
		appLog.Info("expiration reconcile finished", "expired", len(ids))
	})
	if err != nil {
		appLog.Error("invalid RECONCILE_SCHEDULE", "schedule", schedule, "error", err)
		os.Exit(1)
	}

	scheduler.Start()
	appLog.Info("cron started", "reconcile_schedule", schedule)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	<-scheduler.Stop().Done()
}
