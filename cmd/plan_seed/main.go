package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"plans/internal/app"
	"plans/internal/config"
	billingerrors "plans/internal/errors"
	"plans/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run owns every deferred cleanup so main exits only once they ran.
func run() error {
	settings, appLog, err := app.LoadSettings()
	if err != nil {
		return err
	}

	code := os.Getenv("PLAN_CODE")
	name := os.Getenv("PLAN_NAME")
	price := os.Getenv("PLAN_PRICE")
	if code == "" || name == "" || price == "" {
		return errors.New("PLAN_CODE, PLAN_NAME, and PLAN_PRICE must be set in environment")
	}
	amount, err := decimal.NewFromString(price)
	if err != nil {
		return fmt.Errorf("invalid PLAN_PRICE %q: %w", price, err)
	}

	a, err := app.New(settings, appLog)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.Close()

	return seed(context.Background(), a, appLog, &models.Plan{
		Code:              code,
		Name:              name,
		Description:       os.Getenv("PLAN_DESCRIPTION"),
		Price:             amount,
		Currency:          config.GetEnv("PLAN_CURRENCY", models.DefaultPlanCurrency),
		Active:            true,
		Default:           config.GetBoolEnv("PLAN_DEFAULT", false),
		TrialPeriodAmount: config.GetIntEnv("PLAN_TRIAL_AMOUNT", 0),
		TrialPeriodUnit:   os.Getenv("PLAN_TRIAL_UNIT"),
	})
}

func seed(ctx context.Context, a *app.App, appLog *slog.Logger, plan *models.Plan) error {
	_, err := a.Plans.GetByCode(ctx, plan.Code)
	switch {
	case err == nil:
		appLog.Info("plan already exists", "code", plan.Code)
		return nil
	case !errors.Is(err, billingerrors.ErrPlanNotFound):
		return fmt.Errorf("failed to look up plan: %w", err)
	}

	if err := a.Plans.Create(ctx, plan); err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	appLog.Info("plan created", "code", plan.Code, "id", plan.ID, "default", plan.Default)
	return nil
}
