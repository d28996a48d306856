package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/calendar"
	"budget/internal/core"
	"budget/internal/services"
	"budget/internal/storage"
	"budget/internal/storage/memory"
)

func testClock() time.Time {
	return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(Options{
		Addr:      ":0",
		Ledger:    services.NewLedgerService(memory.New(), nil),
		UploadDir: t.TempDir(),
		Clock:     testClock,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t)
	const id = "6f1c1d2e-3b4a-4c5d-8e9f-0a1b2c3d4e5f"
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", id)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != id {
		t.Errorf("X-Request-ID = %q, want %q", got, id)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/budget",
		`{"type":"expense","amount":12.5,"category":"Shopping","description":"socks","date":"03/02/2024"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), TriggerLedgerChanged) {
		t.Errorf("missing HX-Trigger, got %q", rr.Header().Get("HX-Trigger"))
	}
	tx := decode[core.Transaction](t, rr)
	if tx.ID == 0 || tx.Date.ISO() != "2024-03-02" || tx.Amount.StringFixed(2) != "12.50" {
		t.Fatalf("created = %+v", tx)
	}

	rr = do(t, srv, http.MethodPut, "/api/budget/1", `{"description":"wool socks"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[core.Transaction](t, rr); got.Description != "wool socks" || got.Category != "Shopping" {
		t.Errorf("updated = %+v", got)
	}

	rr = do(t, srv, http.MethodGet, "/api/budget?category=Shopping", "")
	if got := decode[[]core.Transaction](t, rr); len(got) != 1 {
		t.Errorf("filtered list = %+v", got)
	}

	rr = do(t, srv, http.MethodDelete, "/api/budget/1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, "/api/budget/1", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d, want 404", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/budget", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("list after delete = %s", rr.Body.String())
	}
}

func TestTransactionDefaults(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/budget", `{"amount":"40"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	tx := decode[core.Transaction](t, rr)
	if tx.Type != core.Expense || tx.Category != core.DefaultTransactionCategory || tx.Date.ISO() != "2024-03-15" {
		t.Errorf("defaults not applied: %+v", tx)
	}
}

func TestFormEncodedCreate(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/budget",
		strings.NewReader("type=income&amount=1%2C250&category=Salary&date=2024-03-01"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if tx := decode[core.Transaction](t, rr); tx.Amount.StringFixed(2) != "1250.00" {
		t.Errorf("amount = %s, want 1250.00", tx.Amount)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/budget", strings.NewReader("amount=12%2C34"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("ambiguous comma amount status=%d, want 422", rr.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"zero amount", http.MethodPost, "/api/budget", `{"amount":0}`, http.StatusUnprocessableEntity},
		{"bad type", http.MethodPost, "/api/budget", `{"amount":5,"type":"gift"}`, http.StatusUnprocessableEntity},
		{"bad date", http.MethodPost, "/api/budget", `{"amount":5,"date":"yesterday"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/budget", `{"amount":`, http.StatusBadRequest},
		{"bad id", http.MethodPut, "/api/budget/abc", `{}`, http.StatusBadRequest},
		{"missing record", http.MethodPut, "/api/reminders/42", `{"title":"x"}`, http.StatusNotFound},
		{"bad color", http.MethodPost, "/api/categories", `{"name":"Pets","color":"blue"}`, http.StatusUnprocessableEntity},
		{"wrong method", http.MethodPatch, "/api/budget", ``, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status=%d, want %d (body=%s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/categories", "")
	if got := decode[[]core.Category](t, rr); len(got) != len(core.DefaultCategories()) {
		t.Errorf("defaults = %d categories", len(got))
	}

	rr = do(t, srv, http.MethodPost, "/api/categories", `{"name":"Pets"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if c := decode[core.Category](t, rr); c.Color != core.DefaultCategoryColor {
		t.Errorf("color = %q, want default", c.Color)
	}

	rr = do(t, srv, http.MethodPost, "/api/categories", `{"name":"Pets"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("duplicate status=%d, want 422", rr.Code)
	}

	do(t, srv, http.MethodPost, "/api/budget", `{"amount":3,"category":"Pets"}`)
	rr = do(t, srv, http.MethodPut, "/api/categories/1", `{"name":"Animals"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("rename of referenced category status=%d, want 422", rr.Code)
	}
}

func TestRemindersAndStats(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/reminders",
		`{"title":"Rent","amount":"900","due_date":"2024-03-16","recurring":true}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	view := decode[reminderView](t, rr)
	if view.RecurrenceType != core.Monthly || view.Category != core.DefaultReminderCategory {
		t.Errorf("defaults not applied: %+v", view.Reminder)
	}
	if view.StatusLabel != "1 day left" || view.Status != "pending" {
		t.Errorf("status = %s / %s", view.Status, view.StatusLabel)
	}

	do(t, srv, http.MethodPost, "/api/budget", `{"type":"income","amount":2000,"date":"2024-03-01"}`)
	do(t, srv, http.MethodPost, "/api/budget", `{"type":"expense","amount":150,"category":"Food & Dining","date":"2024-03-05"}`)

	rr = do(t, srv, http.MethodGet, "/api/dashboard/stats", "")
	sum := decode[core.Summary](t, rr)
	if sum.Balance.StringFixed(2) != "1850.00" || len(sum.UpcomingReminders) != 1 {
		t.Fatalf("stats = %+v", sum)
	}

	rr = do(t, srv, http.MethodPost, "/api/reminders/1/paid", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("paid status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[reminderView](t, rr); !got.IsPaid || got.StatusLabel != "Paid" {
		t.Errorf("after paid = %+v", got)
	}

	// the write must invalidate the cached stats
	rr = do(t, srv, http.MethodGet, "/api/dashboard/stats", "")
	if sum := decode[core.Summary](t, rr); len(sum.UpcomingReminders) != 0 {
		t.Errorf("upcoming after payment = %d", len(sum.UpcomingReminders))
	}

	rr = do(t, srv, http.MethodGet, "/api/reminders?paid=false", "")
	if got := decode[[]reminderView](t, rr); len(got) != 0 {
		t.Errorf("unpaid = %d", len(got))
	}
	if srv.cacheHits.Load() != 0 || srv.cacheMisses.Load() != 2 {
		t.Errorf("cache hits/misses = %d/%d", srv.cacheHits.Load(), srv.cacheMisses.Load())
	}
}

func TestStorageUsageAndClear(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/budget", `{"amount":3}`)

	rr := do(t, srv, http.MethodGet, "/api/storage", "")
	u := decode[usageView](t, rr)
	if u.Used <= 0 || u.Quota != core.DefaultQuota || u.QuotaHuman != "500 MiB" {
		t.Errorf("usage = %+v", u)
	}

	rr = do(t, srv, http.MethodDelete, "/api/storage", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("clear status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodPost, "/api/budget", `{"amount":3}`)
	if tx := decode[core.Transaction](t, rr); tx.ID != 2 {
		t.Errorf("id after clear = %d, want 2", tx.ID)
	}
}

func TestCalendarPartial(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/ui/calendar?field=due&value=03/05/2024", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("open status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "March 2024") || !strings.Contains(body, "datepicker open") {
		t.Errorf("unexpected partial: %s", body)
	}

	rr = do(t, srv, http.MethodPost, "/ui/calendar/due/navigate?delta=1", "")
	if !strings.Contains(rr.Body.String(), "April 2024") {
		t.Errorf("navigate did not advance: %s", rr.Body.String())
	}
	rr = do(t, srv, http.MethodPost, "/ui/calendar/due/navigate?delta=2", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("delta=2 status=%d, want 400", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/ui/calendar/due/select?day=7", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("select status=%d body=%s", rr.Code, rr.Body.String())
	}
	if trig := rr.Header().Get("HX-Trigger"); !strings.Contains(trig, `"value":"04/07/2024"`) {
		t.Errorf("HX-Trigger = %q", trig)
	}
	if strings.Contains(rr.Body.String(), "datepicker open") {
		t.Error("picker should close after selection")
	}

	rr = do(t, srv, http.MethodPost, "/ui/calendar/due/select?day=31", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("day 31 of April status=%d, want 422", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/ui/calendar/other/close", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown picker status=%d, want 404", rr.Code)
	}
}

func TestPointerDownClosesOtherPickers(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodGet, "/ui/calendar?field=a", "")
	do(t, srv, http.MethodGet, "/ui/calendar?field=b", "")

	rr := do(t, srv, http.MethodPost, "/ui/pointer?inside=a", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rr.Code)
	}
	a, _ := srv.pickers.Lookup("a")
	b, _ := srv.pickers.Lookup("b")
	if !a.State().Open || b.State().Open {
		t.Errorf("open states a=%v b=%v, want true/false", a.State().Open, b.State().Open)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv := NewServer(Options{
		Ledger:    services.NewLedgerService(memory.New(), nil),
		RateLimit: 2,
		Clock:     testClock,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/budget", `{"amount":1}`); rr.Code != http.StatusCreated {
			t.Fatalf("write %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/budget", `{"amount":1}`)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Errorf("status=%d retry=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
	if rr := do(t, srv, http.MethodGet, "/api/budget", ""); rr.Code != http.StatusOK {
		t.Errorf("reads should not be limited, status=%d", rr.Code)
	}
}

// gatedStore runs hook once, right after the first Transactions read.
type gatedStore struct {
	storage.Store
	hook func()
}

func (g *gatedStore) Transactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := g.Store.Transactions(ctx)
	if hook := g.hook; hook != nil {
		g.hook = nil
		hook()
	}
	return txs, err
}

func TestStatsNotCachedWhenWriteRacesLoad(t *testing.T) {
	store := &gatedStore{Store: memory.New()}
	ledger := services.NewLedgerService(store, nil)
	srv := NewServer(Options{Ledger: ledger, Clock: testClock})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	store.hook = func() {
		_, err := ledger.AddTransaction(context.Background(), core.Transaction{
			Type:     core.Income,
			Amount:   decimal.NewFromInt(1000),
			Category: "Salary",
			Date:     core.NewDate(2024, 3, 10),
		})
		if err != nil {
			t.Errorf("AddTransaction: %v", err)
		}
	}

	// computed from the pre-write snapshot
	rr := do(t, srv, http.MethodGet, "/api/dashboard/stats", "")
	if sum := decode[core.Summary](t, rr); !sum.Balance.IsZero() {
		t.Fatalf("first balance = %s, want 0", sum.Balance)
	}

	rr = do(t, srv, http.MethodGet, "/api/dashboard/stats", "")
	if sum := decode[core.Summary](t, rr); sum.Balance.StringFixed(2) != "1000.00" {
		t.Errorf("balance after write = %s, want 1000.00", sum.Balance)
	}
}

func TestCalendarRegistryIsBounded(t *testing.T) {
	srv := newTestServer(t)
	total := calendar.DefaultRegistryLimit + 50
	for i := 0; i < total; i++ {
		rr := do(t, srv, http.MethodGet, fmt.Sprintf("/ui/calendar?field=f%d", i), "")
		if rr.Code != http.StatusOK {
			t.Fatalf("open f%d status=%d", i, rr.Code)
		}
	}
	if n := srv.pickers.Len(); n != calendar.DefaultRegistryLimit {
		t.Errorf("registry holds %d pickers, want %d", n, calendar.DefaultRegistryLimit)
	}
	if rr := do(t, srv, http.MethodPost, "/ui/calendar/f0/close", ""); rr.Code != http.StatusNotFound {
		t.Errorf("evicted picker status=%d, want 404", rr.Code)
	}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func uploadRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAttachment(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/reminders", `{"title":"Power","amount":"80","due_date":"2024-03-20"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create reminder status=%d", rr.Code)
	}

	big := append(append([]byte{}, pngHeader...), make([]byte, maxUploadBytes)...)
	tests := []struct {
		name     string
		path     string
		filename string
		content  []byte
		want     int
	}{
		{"wrong extension", "/api/reminders/1/upload", "bill.pdf", pngHeader, http.StatusBadRequest},
		{"not png content", "/api/reminders/1/upload", "bill.png", []byte("%PDF-1.4 not an image"), http.StatusBadRequest},
		{"too large", "/api/reminders/1/upload", "bill.png", big, http.StatusRequestEntityTooLarge},
		{"unknown reminder", "/api/reminders/99/upload", "bill.png", pngHeader, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rr, uploadRequest(t, tt.path, tt.filename, tt.content))
			if rr.Code != tt.want {
				t.Errorf("status=%d, want %d (body=%s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	entries, err := os.ReadDir(srv.uploadDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("rejected uploads left files behind: %v", entries)
	}

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, uploadRequest(t, "/api/reminders/1/upload", "../../my bill.png", pngHeader))
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[map[string]string](t, rr)
	const wantURL = "/uploads/reminder_1_my_bill.png"
	if got["attachment_url"] != wantURL {
		t.Errorf("attachment_url = %q, want %q", got["attachment_url"], wantURL)
	}
	saved, err := os.ReadFile(filepath.Join(srv.uploadDir, "reminder_1_my_bill.png"))
	if err != nil || !bytes.Equal(saved, pngHeader) {
		t.Errorf("saved file = %q, %v", saved, err)
	}

	rr = do(t, srv, http.MethodGet, wantURL, "")
	if rr.Code != http.StatusOK || !bytes.Equal(rr.Body.Bytes(), pngHeader) {
		t.Errorf("serve attachment status=%d", rr.Code)
	}

	rem, err := srv.ledger.Store().Reminder(context.Background(), 1)
	if err != nil || rem.AttachmentURL != wantURL {
		t.Errorf("stored reminder = %+v, %v", rem, err)
	}
}

func TestUploadDisabled(t *testing.T) {
	srv := NewServer(Options{Ledger: services.NewLedgerService(memory.New(), nil), Clock: testClock})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, uploadRequest(t, "/api/reminders/1/upload", "bill.png", pngHeader))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status=%d, want 404", rr.Code)
	}
}

func TestSaveUploadRemovesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminder_1_bill.png")
	src := io.MultiReader(bytes.NewReader(pngHeader), iotest.ErrReader(errors.New("connection reset")))

	if err := saveUpload(path, src); err == nil {
		t.Fatal("expected write error")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("partial upload left behind: %v", err)
	}
}

func TestSafeFilename(t *testing.T) {
	tests := map[string]string{
		"bill.png":             "bill.png",
		"../../etc/passwd.png": "passwd.png",
		`..\win\x y.png`:       "x_y.png",
		"..":                   "attachment.png",
	}
	for in, want := range tests {
		if got := safeFilename(in); got != want {
			t.Errorf("safeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
