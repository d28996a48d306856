// Package remote is the HTTP client for the budget CRUD API. The same API is
// served by `budget serve`, so a local server can stand in for the remote.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budget/internal/core"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// ErrUnavailable marks transport failures and 5xx answers: the caller should
// fall back to local data.
var ErrUnavailable = errors.New("remote API unavailable")

// APIError is a non-2xx answer. It unwraps to the core sentinel matching
// its status so callers can use errors.Is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote API: status %d", e.Status)
	}
	return fmt.Sprintf("remote API: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return core.ErrNotFound
	case e.Status == http.StatusBadRequest:
		return core.ErrParse
	case e.Status == http.StatusUnprocessableEntity || e.Status == http.StatusConflict:
		return core.ErrConstraintViolation
	case e.Status >= 500:
		return ErrUnavailable
	}
	return nil
}

// Client talks JSON to the API rooted at baseURL (e.g. http://host:8000/api).
type Client struct {
	baseURL string
	client  *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 10s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote API URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Transactions(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := c.do(ctx, http.MethodGet, "/budget", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, http.MethodPost, "/budget", t, &out)
	return out, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/budget/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	var out core.Category
	err := c.do(ctx, http.MethodPost, "/categories", cat, &out)
	return out, err
}

func (c *Client) Reminders(ctx context.Context) ([]core.Reminder, error) {
	var out []core.Reminder
	if err := c.do(ctx, http.MethodGet, "/reminders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddReminder(ctx context.Context, r core.Reminder) (core.Reminder, error) {
	var out core.Reminder
	err := c.do(ctx, http.MethodPost, "/reminders", r, &out)
	return out, err
}

// MarkPaid sends the same partial update the web client sends.
func (c *Client) MarkPaid(ctx context.Context, id int64) (core.Reminder, error) {
	var out core.Reminder
	err := c.do(ctx, http.MethodPut, "/reminders/"+strconv.FormatInt(id, 10), map[string]bool{"is_paid": true}, &out)
	return out, err
}

func (c *Client) DeleteReminder(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/reminders/"+strconv.FormatInt(id, 10), nil, nil)
}

// Stats fetches the server-side dashboard summary.
func (c *Client) Stats(ctx context.Context) (core.Summary, error) {
	var out core.Summary
	err := c.do(ctx, http.MethodGet, "/dashboard/stats", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", core.ErrParse, method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
