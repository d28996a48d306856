// Package dashboard derives display summaries from raw transactions and
// reminders. It performs no I/O.
package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// Summarize aggregates txs and reminders as of the given date. Balance and
// the totals span all transactions; MonthIncome, MonthExpenses and
// CategoryExpenses cover the calendar month containing asOf. Malformed
// records are skipped and counted in Skipped.
func Summarize(txs []core.Transaction, reminders []core.Reminder, asOf core.Date) core.Summary {
	s := core.Summary{
		AsOf:              asOf,
		Balance:           decimal.Zero,
		TotalIncome:       decimal.Zero,
		TotalExpenses:     decimal.Zero,
		MonthIncome:       decimal.Zero,
		MonthExpenses:     decimal.Zero,
		CategoryExpenses:  map[string]decimal.Decimal{},
		ExpenseTrends:     []core.TrendPoint{},
		UpcomingReminders: []core.Reminder{},
	}

	daily := map[string]*core.TrendPoint{}
	for _, t := range txs {
		if !wellFormed(t) {
			s.Skipped++
			continue
		}
		inMonth := t.Date.SameMonth(asOf)
		s.Balance = s.Balance.Add(t.Signed())

		switch t.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
			if inMonth {
				s.MonthIncome = s.MonthIncome.Add(t.Amount)
			}
		case core.Expense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
			if p, ok := daily[t.Date.ISO()]; ok {
				p.Amount = p.Amount.Add(t.Amount)
			} else {
				daily[t.Date.ISO()] = &core.TrendPoint{Date: t.Date, Amount: t.Amount}
			}
			if inMonth {
				s.MonthExpenses = s.MonthExpenses.Add(t.Amount)
				s.CategoryExpenses[t.Category] = s.CategoryExpenses[t.Category].Add(t.Amount)
			}
		}
	}

	for _, p := range daily {
		s.ExpenseTrends = append(s.ExpenseTrends, *p)
	}
	sort.Slice(s.ExpenseTrends, func(i, j int) bool {
		return s.ExpenseTrends[i].Date.Before(s.ExpenseTrends[j].Date)
	})

	for _, r := range reminders {
		if r.DueDate.IsZero() || core.ValidateAmount(r.Amount) != nil {
			s.Skipped++
			continue
		}
		if !r.IsPaid {
			s.UpcomingReminders = append(s.UpcomingReminders, r)
		}
	}
	sort.SliceStable(s.UpcomingReminders, func(i, j int) bool {
		return s.UpcomingReminders[i].DueDate.Before(s.UpcomingReminders[j].DueDate)
	})

	return s
}

func wellFormed(t core.Transaction) bool {
	return t.Type.Valid() && core.ValidateAmount(t.Amount) == nil && !t.Date.IsZero()
}
