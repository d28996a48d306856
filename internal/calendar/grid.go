package calendar

import (
	"fmt"
	"time"

	"budget/internal/core"
)

var weekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type Cell struct {
	Day      int
	Today    bool
	Selected bool
}

// Class is the CSS class of the cell. A cell that is both today and
// selected renders as selected.
func (c Cell) Class() string {
	switch {
	case c.Selected:
		return "selected"
	case c.Today:
		return "today"
	}
	return ""
}

// Grid is the rendered form of one visible month.
type Grid struct {
	Year  int
	Month int // zero-based, like State.VisibleMonth
	Title string
	// Leading is the number of blank cells before day 1 (0 = Sunday).
	Leading  int
	Weekdays [7]string
	Cells    []Cell
	// Weeks lays Cells out in rows of seven; nil entries are placeholders.
	Weeks [][]*Cell
}

// BuildGrid lays out the month (zero-based) of year, marking today and
// the selected date.
func BuildGrid(year, month int, today, selected core.Date) Grid {
	first := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	g := Grid{
		Year:     year,
		Month:    month,
		Title:    fmt.Sprintf("%s %d", first.Month(), year),
		Leading:  int(first.Weekday()),
		Weekdays: weekdays,
	}

	days := core.DaysIn(year, month+1)
	g.Cells = make([]Cell, days)
	for i := range g.Cells {
		d := core.NewDate(year, month+1, i+1)
		g.Cells[i] = Cell{
			Day:      i + 1,
			Today:    d.Equal(today),
			Selected: d.Equal(selected),
		}
	}

	var row []*Cell
	for i := 0; i < g.Leading; i++ {
		row = append(row, nil)
	}
	for i := range g.Cells {
		row = append(row, &g.Cells[i])
		if len(row) == 7 {
			g.Weeks = append(g.Weeks, row)
			row = nil
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, nil)
		}
		g.Weeks = append(g.Weeks, row)
	}
	return g
}

// Grid returns the grid for the picker's visible month.
func (p *Picker) Grid() Grid {
	p.mu.Lock()
	st, now := p.state, p.now
	p.mu.Unlock()
	return BuildGrid(st.VisibleYear, st.VisibleMonth, core.DateOf(now()), st.Selected)
}
