package models

import (
	"strings"
	"time"

	"plans/internal/domain/subscription"
	"plans/internal/validation"

	"github.com/shopspring/decimal"
)

const DefaultPlanCurrency = "EUR"

// Plan is a recurring offer. Code is the plan id known to the processor.
type Plan struct {
	BaseModel
	Code        string          `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name        string          `gorm:"size:30;not null" json:"name"`
	Description string          `gorm:"size:500" json:"description"`
	Active      bool            `gorm:"not null" json:"active"`
	Default     bool            `gorm:"column:is_default;default:false;index" json:"default"`
	Price       decimal.Decimal `gorm:"type:numeric(7,2);not null" json:"price"`
	Currency    string          `gorm:"size:3;default:'EUR'" json:"currency"`

	TrialPeriodAmount   int    `gorm:"default:0" json:"trial_period_amount"`
	TrialPeriodUnit     string `gorm:"size:8" json:"trial_period_unit"`
	BillingPeriodAmount int    `gorm:"default:1" json:"billing_period_amount"`
	BillingPeriodUnit   string `gorm:"size:8;default:'month'" json:"billing_period_unit"`
}

func (p *Plan) TrialPeriod() subscription.Period {
	return subscription.Period{Amount: p.TrialPeriodAmount, Unit: subscription.PeriodUnit(p.TrialPeriodUnit)}
}

// BillingPeriod falls back to one month when the plan declares none.
func (p *Plan) BillingPeriod() subscription.Period {
	period := subscription.Period{Amount: p.BillingPeriodAmount, Unit: subscription.PeriodUnit(p.BillingPeriodUnit)}
	if period.IsZero() {
		return subscription.Monthly
	}
	return period
}

func (p *Plan) HasTrial() bool {
	return !p.TrialPeriod().IsZero()
}

// TrialEnd is start itself for plans without a trial.
func (p *Plan) TrialEnd(start time.Time) time.Time {
	return p.TrialPeriod().AddTo(start)
}

// GrossPrice adds taxPercent to the price, rounded to cents.
func (p *Plan) GrossPrice(taxPercent decimal.Decimal) decimal.Decimal {
	tax := p.Price.Mul(taxPercent).Div(decimal.NewFromInt(100))
	return p.Price.Add(tax).Round(2)
}

// SameTerms reports whether other bills exactly like p. The active and
// default flags are not terms.
func (p *Plan) SameTerms(other *Plan) bool {
	return p.Code == other.Code &&
		p.Name == other.Name &&
		p.Description == other.Description &&
		p.Price.Equal(other.Price) &&
		p.Currency == other.Currency &&
		p.TrialPeriod() == other.TrialPeriod() &&
		p.BillingPeriodAmount == other.BillingPeriodAmount &&
		p.BillingPeriodUnit == other.BillingPeriodUnit
}

// Normalize fills defaults before validation.
func (p *Plan) Normalize() {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.Currency == "" {
		p.Currency = DefaultPlanCurrency
	}
	if p.BillingPeriodAmount == 0 && p.BillingPeriodUnit == "" {
		p.BillingPeriodAmount = subscription.Monthly.Amount
		p.BillingPeriodUnit = string(subscription.Monthly.Unit)
	}
}

func (p *Plan) Validate() error {
	v := validation.New()
	v.Required("code", p.Code)
	v.Check(len(p.Code) <= validation.MaxPlanCodeLength, "code", "must not be longer than 20 characters")
	v.Required("name", p.Name)
	v.Check(len(p.Name) <= validation.MaxPlanNameLength, "name", "must not be longer than 30 characters")
	v.Check(len(p.Description) <= validation.MaxDescriptionLength, "description", "must not be longer than 500 characters")
	v.Price("price", p.Price)
	v.Currency("currency", p.Currency)
	if err := p.TrialPeriod().Validate(); err != nil {
		v.AddError("trial_period", err.Error())
	}
	billing := subscription.Period{Amount: p.BillingPeriodAmount, Unit: subscription.PeriodUnit(p.BillingPeriodUnit)}
	if err := billing.Validate(); err != nil {
		v.AddError("billing_period", err.Error())
	}
	return v.Err()
}
