package calendar

import (
	"testing"

	"budget/internal/core"
)

func TestBuildGridDaysInMonth(t *testing.T) {
	cases := []struct {
		year, month int
		days        int
		leading     int
	}{
		{2024, 1, 29, 4}, // February 2024 starts on Thursday
		{2023, 1, 28, 3}, // February 2023 starts on Wednesday
		{2024, 8, 30, 0}, // September 2024 starts on Sunday
		{2024, 11, 31, 0},
	}
	for _, tc := range cases {
		g := BuildGrid(tc.year, tc.month, core.Date{}, core.Date{})
		if len(g.Cells) != tc.days {
			t.Errorf("%d-%02d: %d cells, want %d", tc.year, tc.month+1, len(g.Cells), tc.days)
		}
		if g.Leading != tc.leading {
			t.Errorf("%d-%02d: leading %d, want %d", tc.year, tc.month+1, g.Leading, tc.leading)
		}
		total := 0
		for _, w := range g.Weeks {
			if len(w) != 7 {
				t.Fatalf("%d-%02d: week of %d cells", tc.year, tc.month+1, len(w))
			}
			for _, c := range w {
				if c != nil {
					total++
				}
			}
		}
		if total != tc.days {
			t.Errorf("%d-%02d: %d cells in weeks, want %d", tc.year, tc.month+1, total, tc.days)
		}
		if g.Weeks[0][g.Leading] == nil || g.Weeks[0][g.Leading].Day != 1 {
			t.Errorf("%d-%02d: day 1 not at offset %d", tc.year, tc.month+1, g.Leading)
		}
	}
}

func TestCellMarks(t *testing.T) {
	d := core.NewDate(2024, 3, 5)
	g := BuildGrid(2024, 2, d, d)
	c := g.Cells[4]
	if !c.Today || !c.Selected {
		t.Fatalf("expected both marks: %+v", c)
	}
	if c.Class() != "selected" {
		t.Fatalf("selected must take priority, got %q", c.Class())
	}
	if g.Cells[3].Class() != "" {
		t.Fatalf("unmarked cell has class %q", g.Cells[3].Class())
	}
	if (Cell{Day: 1, Today: true}).Class() != "today" {
		t.Fatalf("today class missing")
	}
	if g.Title != "March 2024" {
		t.Fatalf("title = %q", g.Title)
	}
}
