// Package memory is the in-process fallback used when the durable store
// cannot be opened. It honours the same contract but nothing survives a
// restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/storage"
)

type Store struct {
	mu sync.Mutex

	txs       map[int64]core.Transaction
	cats      map[int64]core.Category
	reminders map[int64]core.Reminder
	settings  map[string][]byte

	// sequences only grow, ClearAll included
	nextTx, nextCat, nextReminder int64

	quota int64
	now   func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		txs:       map[int64]core.Transaction{},
		cats:      map[int64]core.Category{},
		reminders: map[int64]core.Reminder{},
		settings:  map[string][]byte{},
		quota:     core.DefaultQuota,
		now:       time.Now,
	}
}

// NewSeeded returns a store pre-filled with the default categories.
func NewSeeded() *Store {
	s := New()
	for _, c := range core.DefaultCategories() {
		s.nextCat++
		c.ID = s.nextCat
		s.cats[c.ID] = c
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (int64, error) {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTx++
	t.ID = s.nextTx
	t.CreatedAt = s.now().UTC()
	s.txs[t.ID] = t
	return t.ID, nil
}

func (s *Store) Transaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) Transactions(_ context.Context) ([]core.Transaction, error) {
	return s.filterTxs(func(core.Transaction) bool { return true }, false), nil
}

func (s *Store) TransactionsByCategory(_ context.Context, category string) ([]core.Transaction, error) {
	return s.filterTxs(func(t core.Transaction) bool { return t.Category == category }, false), nil
}

func (s *Store) TransactionsByType(_ context.Context, typ core.TransactionType) ([]core.Transaction, error) {
	return s.filterTxs(func(t core.Transaction) bool { return t.Type == typ }, false), nil
}

func (s *Store) TransactionsBetween(_ context.Context, from, to core.Date) ([]core.Transaction, error) {
	return s.filterTxs(func(t core.Transaction) bool {
		return !t.Date.Before(from) && !to.Before(t.Date)
	}, true), nil
}

func (s *Store) UpdateTransaction(_ context.Context, id int64, p core.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, core.ErrNotFound)
	}
	p.Apply(&t)
	t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.txs[id] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) InsertCategory(_ context.Context, c core.Category) (int64, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryNameTaken(c.Name, 0) {
		return 0, fmt.Errorf("%w: category %q already exists", core.ErrConstraintViolation, c.Name)
	}
	s.nextCat++
	c.ID = s.nextCat
	s.cats[c.ID] = c
	return c.ID, nil
}

func (s *Store) Category(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) CategoryByName(_ context.Context, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.Name == name {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("get category %q: %w", name, core.ErrNotFound)
}

func (s *Store) Categories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, id int64, p core.CategoryPatch) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok {
		return core.Category{}, fmt.Errorf("update category %d: %w", id, core.ErrNotFound)
	}
	oldName := c.Name
	p.Apply(&c)
	c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.Name != oldName {
		if s.categoryNameTaken(c.Name, id) {
			return core.Category{}, fmt.Errorf("%w: category %q already exists", core.ErrConstraintViolation, c.Name)
		}
		if refs := s.categoryReferences(oldName); refs > 0 {
			return core.Category{}, fmt.Errorf("%w: category %q is referenced by %d records", core.ErrConstraintViolation, oldName, refs)
		}
	}
	s.cats[id] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[id]; !ok {
		return fmt.Errorf("delete category %d: %w", id, core.ErrNotFound)
	}
	delete(s.cats, id)
	return nil
}

func (s *Store) InsertReminder(_ context.Context, r core.Reminder) (int64, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextReminder++
	r.ID = s.nextReminder
	r.CreatedAt = s.now().UTC()
	s.reminders[r.ID] = r
	return r.ID, nil
}

func (s *Store) Reminder(_ context.Context, id int64) (core.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return core.Reminder{}, fmt.Errorf("get reminder %d: %w", id, core.ErrNotFound)
	}
	return r, nil
}

func (s *Store) Reminders(_ context.Context) ([]core.Reminder, error) {
	return s.filterReminders(func(core.Reminder) bool { return true }, false), nil
}

func (s *Store) RemindersByPaid(_ context.Context, paid bool) ([]core.Reminder, error) {
	return s.filterReminders(func(r core.Reminder) bool { return r.IsPaid == paid }, true), nil
}

func (s *Store) RemindersDueBetween(_ context.Context, from, to core.Date) ([]core.Reminder, error) {
	return s.filterReminders(func(r core.Reminder) bool {
		return !r.DueDate.Before(from) && !to.Before(r.DueDate)
	}, true), nil
}

func (s *Store) UpdateReminder(_ context.Context, id int64, p core.ReminderPatch) (core.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return core.Reminder{}, fmt.Errorf("update reminder %d: %w", id, core.ErrNotFound)
	}
	p.Apply(&r)
	r.Normalize()
	if err := r.Validate(); err != nil {
		return core.Reminder{}, err
	}
	s.reminders[id] = r
	return r, nil
}

func (s *Store) DeleteReminder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[id]; !ok {
		return fmt.Errorf("delete reminder %d: %w", id, core.ErrNotFound)
	}
	delete(s.reminders, id)
	return nil
}

func (s *Store) PutSetting(_ context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty setting key", core.ErrConstraintViolation)
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: setting %q value is not valid JSON", core.ErrConstraintViolation, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Setting(_ context.Context, key string) (core.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	if !ok {
		return core.Setting{}, fmt.Errorf("get setting %q: %w", key, core.ErrNotFound)
	}
	return core.Setting{Key: key, Value: append([]byte(nil), v...)}, nil
}

func (s *Store) Settings(_ context.Context) ([]core.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Setting, 0, len(s.settings))
	for k, v := range s.settings {
		out = append(out, core.Setting{Key: k, Value: append([]byte(nil), v...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) DeleteSetting(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settings[key]; !ok {
		return fmt.Errorf("delete setting %q: %w", key, core.ErrNotFound)
	}
	delete(s.settings, key)
	return nil
}

func (s *Store) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = map[int64]core.Transaction{}
	s.cats = map[int64]core.Category{}
	s.reminders = map[int64]core.Reminder{}
	s.settings = map[string][]byte{}
	return nil
}

// Usage approximates the footprint by the JSON size of every record.
func (s *Store) Usage(_ context.Context) (core.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var used int64
	add := func(v any) {
		if b, err := json.Marshal(v); err == nil {
			used += int64(len(b))
		}
	}
	for _, t := range s.txs {
		add(t)
	}
	for _, c := range s.cats {
		add(c)
	}
	for _, r := range s.reminders {
		add(r)
	}
	for k, v := range s.settings {
		used += int64(len(k) + len(v))
	}
	return core.Usage{Used: used, Quota: s.quota}, nil
}

func (s *Store) categoryNameTaken(name string, except int64) bool {
	for id, c := range s.cats {
		if id != except && c.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) categoryReferences(name string) int {
	n := 0
	for _, t := range s.txs {
		if t.Category == name {
			n++
		}
	}
	for _, r := range s.reminders {
		if r.Category == name {
			n++
		}
	}
	return n
}

// filterTxs returns matches ordered by id, or by date then id when byDate.
func (s *Store) filterTxs(keep func(core.Transaction) bool, byDate bool) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if byDate && !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) filterReminders(keep func(core.Reminder) bool, byDue bool) []core.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if byDue && !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
