// Package services holds the ledger service that fronts the local store and
// the reminder notifier that announces bills coming due.
package services

import (
	"fmt"
	"time"

	"budget/internal/core"
)

// CadenceChecker decides whether an unpaid reminder inside the notification
// window should be announced again. Each recurrence type has its own cadence.
type CadenceChecker interface {
	// ShouldNotify reports whether a reminder due on due, last announced at
	// lastNotified (zero if never), needs an announcement at now.
	ShouldNotify(lastNotified, now time.Time, due core.Date) bool
}

// DailyChecker repeats once per calendar day. One-off and overdue bills use it.
type DailyChecker struct{}

func (DailyChecker) ShouldNotify(lastNotified, now time.Time, _ core.Date) bool {
	if lastNotified.IsZero() {
		return true
	}
	return lastNotified.In(now.Location()).Format(core.ISOLayout) != now.Format(core.ISOLayout)
}

// WeeklyChecker repeats once seven days have passed.
type WeeklyChecker struct{}

func (WeeklyChecker) ShouldNotify(lastNotified, now time.Time, _ core.Date) bool {
	if lastNotified.IsZero() {
		return true
	}
	return now.Sub(lastNotified).Hours()/24 >= 7
}

// MonthlyChecker announces each occurrence once: a notification sent on or
// before the previous month's due date belongs to the previous occurrence.
type MonthlyChecker struct{}

func (MonthlyChecker) ShouldNotify(lastNotified, now time.Time, due core.Date) bool {
	if lastNotified.IsZero() {
		return true
	}
	return !lastNotified.After(endOfDay(due.AddDate(0, -1, 0)))
}

// YearlyChecker is MonthlyChecker with a one-year period.
type YearlyChecker struct{}

func (YearlyChecker) ShouldNotify(lastNotified, now time.Time, due core.Date) bool {
	if lastNotified.IsZero() {
		return true
	}
	return !lastNotified.After(endOfDay(due.AddDate(-1, 0, 0)))
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-1), time.UTC)
}

// cadences maps recurrence types to checkers; "" covers one-off bills.
var cadences = map[core.RecurrenceType]CadenceChecker{
	"":           DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

func GetCadenceChecker(rt core.RecurrenceType) (CadenceChecker, error) {
	c, ok := cadences[rt]
	if !ok {
		return nil, fmt.Errorf("unknown recurrence type: %s", rt)
	}
	return c, nil
}

// RegisterCadenceChecker adds or replaces the checker for rt.
func RegisterCadenceChecker(rt core.RecurrenceType, c CadenceChecker) {
	cadences[rt] = c
}
