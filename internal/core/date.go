package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ISOLayout is the storage and wire form of a calendar date.
	ISOLayout = "2006-01-02"
	// DisplayLayout is the text-field form, fixed regardless of locale.
	DisplayLayout = "01/02/2006"
)

// Date is a calendar date without time of day, held at UTC midnight.
type Date struct {
	time.Time
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrConstraintViolation)
	}
	return nil
}

func (d Date) Day() int {
	return d.Time.Day()
}

func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) Year() int {
	return d.Time.Year()
}

// ISO returns the YYYY-MM-DD form, or "" for the zero date.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(ISOLayout)
}

// Display returns the MM/DD/YYYY form used by text fields.
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DisplayLayout)
}

func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// SameMonth reports whether d falls in the calendar month of o.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// ParseISO parses YYYY-MM-DD. A trailing time part ("2024-03-01T10:00:00")
// is tolerated and dropped, matching what older clients send.
func ParseISO(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i == len(ISOLayout) {
		s = s[:i]
	}
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", ErrParse, s)
	}
	return Date{Time: t}, nil
}

// ParseDisplay parses MM/DD/YYYY; single-digit month and day are accepted.
func ParseDisplay(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("1/2/2006", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not a MM/DD/YYYY date", ErrParse, s)
	}
	return Date{Time: t}, nil
}

// ParseAny accepts either the ISO or the display form.
func ParseAny(s string) (Date, error) {
	if strings.Contains(s, "/") {
		return ParseDisplay(s)
	}
	return ParseISO(s)
}

// DaysIn returns the number of days of the given month (1-12).
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.ISO())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Join(ErrParse, err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseAny(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
