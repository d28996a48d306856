package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/api", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "://bad"} {
		if _, err := NewClient(raw, 0); err == nil {
			t.Errorf("NewClient(%q) expected error", raw)
		}
	}
}

func TestClient_Transactions(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/budget" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		// amounts arrive as bare numbers from the original server
		w.Write([]byte(`[{"id":1,"type":"expense","amount":12.5,"category":"Shopping","date":"2024-03-02"}]`))
	}))

	txs, err := c.Transactions(context.Background())
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions", len(txs))
	}
	if !txs[0].Amount.Equal(decimal.RequireFromString("12.5")) || txs[0].Date.ISO() != "2024-03-02" {
		t.Errorf("transaction = %+v", txs[0])
	}
}

func TestClient_AddTransactionSendsJSON(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var in core.Transaction
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("decode: %v", err)
		}
		in.ID = 7
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(in)
	}))

	out, err := c.AddTransaction(context.Background(), core.Transaction{
		Type:   core.Income,
		Amount: decimal.NewFromInt(100),
		Date:   core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if out.ID != 7 || out.Type != core.Income {
		t.Errorf("out = %+v", out)
	}
}

func TestClient_MarkPaid(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/reminders/3" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var in map[string]bool
		json.NewDecoder(r.Body).Decode(&in)
		if !in["is_paid"] {
			t.Errorf("body = %v", in)
		}
		w.Write([]byte(`{"id":3,"title":"Rent","amount":"900","due_date":"2024-03-01","category":"Housing","is_paid":true}`))
	}))

	r, err := c.MarkPaid(context.Background(), 3)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if !r.IsPaid {
		t.Error("reminder not marked paid")
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusNotFound, `{"error":"Budget entry not found"}`, core.ErrNotFound},
		{http.StatusUnprocessableEntity, `{"error":"amount must be positive"}`, core.ErrConstraintViolation},
		{http.StatusBadRequest, `not json`, core.ErrParse},
		{http.StatusInternalServerError, ``, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			err := c.DeleteTransaction(context.Background(), 1)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
				t.Errorf("err = %#v, want APIError with status %d", err, tt.status)
			}
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Categories(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestClient_MalformedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"oops"`))
	}))
	if _, err := c.Reminders(context.Background()); !errors.Is(err, core.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}
