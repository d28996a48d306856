package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budget/internal/core"
)

func newParser(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse(%q): %v", body, err)
	}
	return p
}

func TestRequestBodyParserJSON(t *testing.T) {
	p := newParser(t, `{"amount": 0.1, "title": "  Rent\u0007 ", "recurring": true, "note": null}`)
	if !p.IsJSON() {
		t.Fatal("expected JSON body")
	}
	if got := p.Get("amount"); got != "0.1" {
		t.Errorf("amount = %q, want exact 0.1", got)
	}
	if got := p.Get("title"); got != "Rent" {
		t.Errorf("title = %q, want sanitized", got)
	}
	if b, err := p.GetBool("recurring"); err != nil || !b {
		t.Errorf("recurring = %v, %v", b, err)
	}
	if p.Has("note") || p.Has("missing") {
		t.Error("null and missing keys must not be present")
	}
}

func TestRequestBodyParserForm(t *testing.T) {
	p := newParser(t, "title=Gym&recurring=on&description=")
	if p.IsJSON() {
		t.Fatal("expected form body")
	}
	if !p.Has("description") || p.Get("description") != "" {
		t.Error("empty form value should be present")
	}
	if b, err := p.GetBool("recurring"); err != nil || !b {
		t.Errorf("recurring = %v, %v", b, err)
	}
	if b, err := p.GetBool("absent"); err != nil || b {
		t.Errorf("absent = %v, %v", b, err)
	}
}

func TestRequestBodyParserErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated json", `{"a":`},
		{"array", `[1,2]`},
		{"bad escape", "a=%zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := NewRequestBodyParser(req).Parse()
			if !errors.Is(err, core.ErrParse) {
				t.Errorf("Parse() = %v, want ErrParse", err)
			}
		})
	}

	p := newParser(t, `{"flag":"maybe"}`)
	if _, err := p.GetBool("flag"); !errors.Is(err, core.ErrParse) {
		t.Errorf("GetBool = %v, want ErrParse", err)
	}
}

func TestReminderFromBody(t *testing.T) {
	today := core.NewDate(2024, 3, 15)

	p := newParser(t, `{"title":"Insurance","amount":"120","due_date":"2024-04-01","recurring":true}`)
	r, err := reminderFromBody(p)
	if err != nil {
		t.Fatalf("reminderFromBody: %v", err)
	}
	if !r.Recurring || r.RecurrenceType != core.Monthly {
		t.Errorf("recurrence = %v/%q, want monthly", r.Recurring, r.RecurrenceType)
	}

	p = newParser(t, `{"amount":"-3"}`)
	if _, err := transactionFromBody(p, today); !errors.Is(err, core.ErrConstraintViolation) {
		t.Errorf("negative amount = %v, want constraint violation", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  plain  ":   "plain",
		"a\x00b":      "ab",
		"line\nbreak": "line\nbreak",
		"\ttabbed\t ": "tabbed",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
