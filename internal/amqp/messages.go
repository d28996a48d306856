package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Routing keys on the budget exchange.
const (
	RoutingLedgerChanged = "ledger.changed"
	RoutingReminderDue   = "reminder.due"
)

// Event is the envelope of every message on the exchange. Exactly one of
// Change and Reminder is set, matching Kind.
type Event struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Change    *RecordChanged `json:"change,omitempty"`
	Reminder  *ReminderDue   `json:"reminder,omitempty"`
}

// RecordChanged announces a write to the local store. Receivers fetch the
// record themselves; only its identity travels.
type RecordChanged struct {
	Collection string `json:"collection"`
	RecordID   int64  `json:"record_id"`
	Op         string `json:"op"`
}

// ReminderDue announces an unpaid bill inside the notification window.
type ReminderDue struct {
	ReminderID int64  `json:"reminder_id"`
	Title      string `json:"title"`
	Amount     string `json:"amount"`
	DueDate    string `json:"due_date"`
	DaysUntil  int    `json:"days_until"`
	Status     string `json:"status"`
	Recurrence string `json:"recurrence,omitempty"`
}

func NewRecordChanged(collection string, id int64, op string) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      RoutingLedgerChanged,
		Timestamp: time.Now().UTC(),
		Change:    &RecordChanged{Collection: collection, RecordID: id, Op: op},
	}
}

func NewReminderDue(r ReminderDue) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      RoutingReminderDue,
		Timestamp: time.Now().UTC(),
		Reminder:  &r,
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an envelope and checks that its payload matches
// its kind.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	switch {
	case e.Kind == RoutingLedgerChanged && e.Change != nil:
	case e.Kind == RoutingReminderDue && e.Reminder != nil:
	default:
		return Event{}, fmt.Errorf("event %q: kind %q without matching payload", e.ID, e.Kind)
	}
	return e, nil
}
