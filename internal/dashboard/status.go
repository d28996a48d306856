package dashboard

import (
	"fmt"
	"math"
	"time"

	"budget/internal/core"
)

type Status int

const (
	Pending Status = iota
	DueToday
	Overdue
	Paid
)

func (s Status) String() string {
	switch s {
	case Paid:
		return "paid"
	case Overdue:
		return "overdue"
	case DueToday:
		return "due_today"
	}
	return "pending"
}

// DaysUntil is the number of days from now until due, rounded up. due is
// taken as midnight in now's location, so a bill due today yields 0 for
// the whole day.
func DaysUntil(due core.Date, now time.Time) int {
	midnight := time.Date(due.Year(), time.Month(due.Month()), due.Day(), 0, 0, 0, 0, now.Location())
	return int(math.Ceil(midnight.Sub(now).Hours() / 24))
}

func Classify(r core.Reminder, now time.Time) Status {
	if r.IsPaid {
		return Paid
	}
	switch days := DaysUntil(r.DueDate, now); {
	case days < 0:
		return Overdue
	case days == 0:
		return DueToday
	}
	return Pending
}

// StatusLabel is the badge text shown next to a bill.
func StatusLabel(r core.Reminder, now time.Time) string {
	switch Classify(r, now) {
	case Paid:
		return "Paid"
	case Overdue:
		return "Overdue"
	case DueToday:
		return "Due Today"
	}
	days := DaysUntil(r.DueDate, now)
	if days == 1 {
		return "1 day left"
	}
	return fmt.Sprintf("%d days left", days)
}
