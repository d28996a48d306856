// Package calendar implements a month-grid date picker bound to a text
// field. The picker owns its visible month, selected date and openness; the
// UI layer drives it through Open, Close, Navigate and SelectDay and
// observes it through Subscribe.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"budget/internal/core"
)

var (
	ErrInvalidDelta  = errors.New("navigation delta must be -1 or +1")
	ErrDayOutOfRange = errors.New("day outside visible month")
)

// Field is the text input a picker writes into.
type Field interface {
	Value() string
	SetValue(string)
}

// State is a snapshot of a picker. VisibleMonth is zero-based (0 = January).
type State struct {
	VisibleMonth int
	VisibleYear  int
	Selected     core.Date
	Open         bool
}

type EventKind int

const (
	EventOpened EventKind = iota + 1
	EventClosed
	EventNavigated
	EventSelected
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventNavigated:
		return "navigated"
	case EventSelected:
		return "selected"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

type Event struct {
	Kind  EventKind
	State State
}

type Option func(*Picker)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(p *Picker) { p.now = now }
}

// Picker is safe for concurrent use. Listeners run outside the lock, in
// subscription order.
type Picker struct {
	mu        sync.Mutex
	field     Field
	state     State
	now       func() time.Time
	listeners map[int]func(Event)
	nextID    int
	// binding increments on every Bind; unsubscribe funcs from an older
	// binding become no-ops.
	binding int
}

func New(field Field, opts ...Option) *Picker {
	p := &Picker{now: time.Now}
	for _, o := range opts {
		o(p)
	}
	p.Bind(field)
	return p
}

// Bind attaches the picker to field, superseding any previous binding:
// listeners are dropped and the state is derived afresh from the field.
func (p *Picker) Bind(field Field) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.field = field
	p.listeners = map[int]func(Event){}
	p.binding++
	p.state = State{}
	p.syncLocked(true)
}

func (p *Picker) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe registers fn for state events until the returned func is called
// or the picker is re-bound.
func (p *Picker) Subscribe(fn func(Event)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id, binding := p.nextID, p.binding
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.binding == binding {
			delete(p.listeners, id)
		}
	}
}

// Open shows the picker, first re-synchronizing to the field's date when
// the field holds one.
func (p *Picker) Open() {
	p.mu.Lock()
	p.syncLocked(false)
	p.state.Open = true
	ev, fns := p.eventLocked(EventOpened)
	p.mu.Unlock()
	notify(fns, ev)
}

func (p *Picker) Close() {
	p.mu.Lock()
	if !p.state.Open {
		p.mu.Unlock()
		return
	}
	p.state.Open = false
	ev, fns := p.eventLocked(EventClosed)
	p.mu.Unlock()
	notify(fns, ev)
}

func (p *Picker) Toggle() {
	if p.State().Open {
		p.Close()
		return
	}
	p.Open()
}

// PointerDown reports a pointer press; a press outside the picker's bounds
// closes it.
func (p *Picker) PointerDown(inside bool) {
	if !inside {
		p.Close()
	}
}

// Navigate moves the visible month by delta, wrapping across years. The
// selection and openness are untouched.
func (p *Picker) Navigate(delta int) error {
	if delta != -1 && delta != 1 {
		return fmt.Errorf("navigate by %d: %w", delta, ErrInvalidDelta)
	}
	p.mu.Lock()
	p.state.VisibleMonth += delta
	switch {
	case p.state.VisibleMonth < 0:
		p.state.VisibleMonth = 11
		p.state.VisibleYear--
	case p.state.VisibleMonth > 11:
		p.state.VisibleMonth = 0
		p.state.VisibleYear++
	}
	ev, fns := p.eventLocked(EventNavigated)
	p.mu.Unlock()
	notify(fns, ev)
	return nil
}

// SelectDay picks a day of the visible month, writes it into the field as
// MM/DD/YYYY and closes the picker.
func (p *Picker) SelectDay(day int) error {
	p.mu.Lock()
	year, month := p.state.VisibleYear, p.state.VisibleMonth+1
	if day < 1 || day > core.DaysIn(year, month) {
		p.mu.Unlock()
		return fmt.Errorf("select day %d of %04d-%02d: %w", day, year, month, ErrDayOutOfRange)
	}
	p.state.Selected = core.NewDate(year, month, day)
	field := p.field
	ev, fns := p.eventLocked(EventSelected)
	p.mu.Unlock()

	if field != nil {
		field.SetValue(ev.State.Selected.Display())
	}
	notify(fns, ev)
	p.Close()
	return nil
}

// syncLocked derives month, year and selection from the field. When the
// field is not parseable the state is kept, or set to today when reset.
func (p *Picker) syncLocked(reset bool) {
	var d core.Date
	var err error = core.ErrParse
	if p.field != nil {
		d, err = core.ParseDisplay(p.field.Value())
	}
	if err != nil {
		if !reset {
			return
		}
		d = core.DateOf(p.now())
	}
	p.state.Selected = d
	p.state.VisibleYear = d.Year()
	p.state.VisibleMonth = d.Month() - 1
}

func (p *Picker) eventLocked(kind EventKind) (Event, []func(Event)) {
	ids := make([]int, 0, len(p.listeners))
	for id := range p.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), len(ids))
	for i, id := range ids {
		fns[i] = p.listeners[id]
	}
	return Event{Kind: kind, State: p.state}, fns
}

func notify(fns []func(Event), ev Event) {
	for _, fn := range fns {
		fn(ev)
	}
}

// TextField is an in-memory Field.
type TextField struct {
	mu    sync.Mutex
	value string
}

func NewTextField(value string) *TextField {
	return &TextField{value: value}
}

func (f *TextField) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *TextField) SetValue(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
}
