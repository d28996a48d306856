package services

import (
	"testing"
	"time"

	"budget/internal/core"
)

func TestDailyChecker_ShouldNotify(t *testing.T) {
	checker := DailyChecker{}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	due := core.NewDate(2024, 1, 17)

	tests := []struct {
		name         string
		lastNotified time.Time
		want         bool
	}{
		{"never notified - notify", time.Time{}, true},
		{"notified today - skip", time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), false},
		{"notified yesterday - notify", time.Date(2024, 1, 14, 12, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.ShouldNotify(tt.lastNotified, now, due); got != tt.want {
				t.Errorf("DailyChecker.ShouldNotify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDailyChecker_ComparesInLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	// 23:30 UTC on the 14th is already the 15th at UTC+2
	last := time.Date(2024, 1, 14, 23, 30, 0, 0, time.UTC)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, loc)

	if (DailyChecker{}).ShouldNotify(last, now, core.NewDate(2024, 1, 16)) {
		t.Error("expected no notification on the same local day")
	}
}

func TestWeeklyChecker_ShouldNotify(t *testing.T) {
	checker := WeeklyChecker{}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	due := core.NewDate(2024, 1, 17)

	tests := []struct {
		name         string
		lastNotified time.Time
		want         bool
	}{
		{"never notified - notify", time.Time{}, true},
		{"notified 3 days ago - skip", time.Date(2024, 1, 12, 12, 0, 0, 0, time.UTC), false},
		{"notified 7 days ago - notify", time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC), true},
		{"notified 10 days ago - notify", time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.ShouldNotify(tt.lastNotified, now, due); got != tt.want {
				t.Errorf("WeeklyChecker.ShouldNotify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker_ShouldNotify(t *testing.T) {
	checker := MonthlyChecker{}
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	due := core.NewDate(2024, 3, 15)

	tests := []struct {
		name         string
		lastNotified time.Time
		want         bool
	}{
		{"never notified - notify", time.Time{}, true},
		{"notified for this occurrence - skip", time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC), false},
		{"notified on previous due date - notify", time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC), true},
		{"notified last month - notify", time.Date(2024, 2, 12, 9, 0, 0, 0, time.UTC), true},
		{"notified day after previous due - skip", time.Date(2024, 2, 16, 9, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.ShouldNotify(tt.lastNotified, now, due); got != tt.want {
				t.Errorf("MonthlyChecker.ShouldNotify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYearlyChecker_ShouldNotify(t *testing.T) {
	checker := YearlyChecker{}
	now := time.Date(2024, 6, 29, 12, 0, 0, 0, time.UTC)
	due := core.NewDate(2024, 7, 1)

	tests := []struct {
		name         string
		lastNotified time.Time
		want         bool
	}{
		{"never notified - notify", time.Time{}, true},
		{"notified this year - skip", time.Date(2024, 6, 28, 9, 0, 0, 0, time.UTC), false},
		{"notified last year - notify", time.Date(2023, 6, 29, 9, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.ShouldNotify(tt.lastNotified, now, due); got != tt.want {
				t.Errorf("YearlyChecker.ShouldNotify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCadenceChecker(t *testing.T) {
	tests := []struct {
		rt      core.RecurrenceType
		want    CadenceChecker
		wantErr bool
	}{
		{"", DailyChecker{}, false},
		{core.Weekly, WeeklyChecker{}, false},
		{core.Monthly, MonthlyChecker{}, false},
		{core.Yearly, YearlyChecker{}, false},
		{"hourly", nil, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.rt), func(t *testing.T) {
			got, err := GetCadenceChecker(tt.rt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetCadenceChecker(%q) error = %v, wantErr %v", tt.rt, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GetCadenceChecker(%q) = %T, want %T", tt.rt, got, tt.want)
			}
		})
	}
}
