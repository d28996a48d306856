package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser reads a JSON object or form-encoded body once and gives
// uniform access to its fields. JSON numbers are kept exact.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. Errors wrap core.ErrParse.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		p.err = fmt.Errorf("%w: read body: %v", core.ErrParse, p.err)
		return p.err
	}

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		p.jsonData = map[string]any{}
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: invalid JSON body: %v", core.ErrParse, err)
		}
		return p.err
	}
	if body[0] == '[' {
		p.err = fmt.Errorf("%w: body must be an object", core.ErrParse)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: invalid form body: %v", core.ErrParse, p.err)
	}
	return p.err
}

// Has reports whether key was sent at all, even with an empty value. A JSON
// null counts as absent.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a trimmed, sanitized string value.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		return sanitizeInput(stringValue(p.jsonData[key]))
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetBool accepts JSON booleans and the form values true/on/1.
func (p *RequestBodyParser) GetBool(key string) (bool, error) {
	if p.jsonData != nil {
		if b, ok := p.jsonData[key].(bool); ok {
			return b, nil
		}
	}
	switch strings.ToLower(p.Get(key)) {
	case "", "false", "off", "0":
		return false, nil
	case "true", "on", "1":
		return true, nil
	}
	return false, fmt.Errorf("%w: %s must be a boolean", core.ErrParse, key)
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", core.ErrParse, raw)
	}
	return id, nil
}

func parseDate(key, raw string) (core.Date, error) {
	d, err := core.ParseAny(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// parseMoney accepts any positive decimal; rounding to cents happens in
// core.ParseAmount.
func parseMoney(key, raw string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// transactionFromBody builds a new transaction. Missing type defaults to
// expense and missing date to today.
func transactionFromBody(p *RequestBodyParser, today core.Date) (core.Transaction, error) {
	t := core.Transaction{
		Type:        core.TransactionType(strings.ToLower(p.Get("type"))),
		Category:    p.Get("category"),
		Description: p.Get("description"),
		Date:        today,
	}
	if t.Type == "" {
		t.Type = core.Expense
	}
	amount, err := parseMoney("amount", p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	t.Amount = amount
	if raw := p.Get("date"); raw != "" {
		if t.Date, err = parseDate("date", raw); err != nil {
			return core.Transaction{}, err
		}
	}
	return t, nil
}

func transactionPatchFromBody(p *RequestBodyParser) (core.TransactionPatch, error) {
	var patch core.TransactionPatch
	if p.Has("type") {
		typ := core.TransactionType(strings.ToLower(p.Get("type")))
		patch.Type = &typ
	}
	if p.Has("amount") {
		amount, err := parseMoney("amount", p.Get("amount"))
		if err != nil {
			return patch, err
		}
		patch.Amount = &amount
	}
	if p.Has("category") {
		v := p.Get("category")
		patch.Category = &v
	}
	if p.Has("description") {
		v := p.Get("description")
		patch.Description = &v
	}
	if p.Has("date") {
		d, err := parseDate("date", p.Get("date"))
		if err != nil {
			return patch, err
		}
		patch.Date = &d
	}
	return patch, nil
}

func categoryFromBody(p *RequestBodyParser) core.Category {
	return core.Category{Name: p.Get("name"), Color: p.Get("color")}
}

func categoryPatchFromBody(p *RequestBodyParser) core.CategoryPatch {
	var patch core.CategoryPatch
	if p.Has("name") {
		v := p.Get("name")
		patch.Name = &v
	}
	if p.Has("color") {
		v := p.Get("color")
		patch.Color = &v
	}
	return patch
}

// reminderFromBody builds a new, unpaid reminder. A recurring reminder
// without a recurrence type is monthly.
func reminderFromBody(p *RequestBodyParser) (core.Reminder, error) {
	r := core.Reminder{
		Title:          p.Get("title"),
		Category:       p.Get("category"),
		WebsiteURL:     p.Get("website_url"),
		RecurrenceType: core.RecurrenceType(strings.ToLower(p.Get("recurrence_type"))),
	}
	var err error
	if r.Amount, err = parseMoney("amount", p.Get("amount")); err != nil {
		return core.Reminder{}, err
	}
	if r.DueDate, err = parseDate("due_date", p.Get("due_date")); err != nil {
		return core.Reminder{}, err
	}
	if r.Recurring, err = p.GetBool("recurring"); err != nil {
		return core.Reminder{}, err
	}
	if r.Recurring && r.RecurrenceType == "" {
		r.RecurrenceType = core.Monthly
	}
	return r, nil
}

func reminderPatchFromBody(p *RequestBodyParser) (core.ReminderPatch, error) {
	var patch core.ReminderPatch
	str := func(key string) *string {
		if !p.Has(key) {
			return nil
		}
		v := p.Get(key)
		return &v
	}
	patch.Title = str("title")
	patch.Category = str("category")
	patch.WebsiteURL = str("website_url")

	if p.Has("amount") {
		amount, err := parseMoney("amount", p.Get("amount"))
		if err != nil {
			return patch, err
		}
		patch.Amount = &amount
	}
	if p.Has("due_date") {
		d, err := parseDate("due_date", p.Get("due_date"))
		if err != nil {
			return patch, err
		}
		patch.DueDate = &d
	}
	for key, dst := range map[string]**bool{"recurring": &patch.Recurring, "is_paid": &patch.IsPaid} {
		if !p.Has(key) {
			continue
		}
		b, err := p.GetBool(key)
		if err != nil {
			return patch, err
		}
		*dst = &b
	}
	if p.Has("recurrence_type") {
		rt := core.RecurrenceType(strings.ToLower(p.Get("recurrence_type")))
		patch.RecurrenceType = &rt
	}
	return patch, nil
}
