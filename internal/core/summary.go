package core

import "github.com/shopspring/decimal"

// TrendPoint is the expense total of a single day.
type TrendPoint struct {
	Date   Date            `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary is the dashboard view of a set of transactions and reminders.
// Balance and the totals are all-time; the Month* fields and
// CategoryExpenses cover the month containing AsOf.
type Summary struct {
	AsOf              Date                       `json:"as_of"`
	Balance           decimal.Decimal            `json:"balance"`
	TotalIncome       decimal.Decimal            `json:"total_income"`
	TotalExpenses     decimal.Decimal            `json:"total_expenses"`
	MonthIncome       decimal.Decimal            `json:"month_income"`
	MonthExpenses     decimal.Decimal            `json:"month_expenses"`
	CategoryExpenses  map[string]decimal.Decimal `json:"category_expenses"`
	ExpenseTrends     []TrendPoint               `json:"expense_trends"`
	UpcomingReminders []Reminder                 `json:"upcoming_reminders"`
	Skipped           int                        `json:"skipped,omitempty"`
}
