package subscription

import (
	"fmt"
	"time"
)

// PeriodUnit is the unit of a billing or trial period.
type PeriodUnit string

const (
	PeriodDay   PeriodUnit = "day"
	PeriodMonth PeriodUnit = "month"
)

// Period is an amount of days or months.
type Period struct {
	Amount int
	Unit   PeriodUnit
}

// Monthly is the billing period used when a plan declares none.
var Monthly = Period{Amount: 1, Unit: PeriodMonth}

func (p Period) IsZero() bool {
	return p.Amount <= 0
}

func (p Period) Validate() error {
	if p.Amount < 0 {
		return fmt.Errorf("period amount must not be negative")
	}
	switch p.Unit {
	case PeriodDay, PeriodMonth:
		return nil
	case "":
		if p.Amount == 0 {
			return nil
		}
	}
	return fmt.Errorf("invalid period unit: %q", p.Unit)
}

// AddTo advances t by the period. Month arithmetic clamps to the last day of
// the target month so a subscription started on the 31st bills on the 30th
// (or 28th/29th) in shorter months.
func (p Period) AddTo(t time.Time) time.Time {
	if p.IsZero() {
		return t
	}
	if p.Unit == PeriodDay {
		return t.AddDate(0, 0, p.Amount)
	}

	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(p.Amount), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func (p Period) String() string {
	return fmt.Sprintf("%d %s", p.Amount, p.Unit)
}
