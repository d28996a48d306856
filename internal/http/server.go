// Package http serves the budget JSON API over the ledger service, the
// dashboard statistics and the server-rendered calendar partial.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"budget/internal/cache"
	"budget/internal/calendar"
	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/services"
)

const (
	requestTimeout   = 7 * time.Second
	defaultRateLimit = 60
)

type Options struct {
	Addr   string
	Ledger *services.LedgerService
	Logger *applog.Logger
	// UploadDir holds reminder attachments. Uploads are disabled when empty.
	UploadDir string
	// RateLimit is the number of writes per client per minute (default 60).
	RateLimit int
	Clock     func() time.Time
}

type Server struct {
	http.Server
	ledger    *services.LedgerService
	logger    *applog.Logger
	pickers   *calendar.Registry
	stats     *cache.LRU[core.Summary]
	caches    *cache.Manager
	limiter   *rateLimiter
	uploadDir string
	now       func() time.Time
	started   time.Time

	// statsGen counts ledger writes; statsMu orders them against stats
	// cache fills.
	statsMu  sync.Mutex
	statsGen uint64

	suspicious   atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	s := &Server{
		ledger:    opts.Ledger,
		logger:    opts.Logger.WithComponent(applog.ComponentHTTP),
		pickers:   calendar.NewRegistry(0, calendar.WithClock(opts.Clock)),
		stats:     cache.NewLRU[core.Summary](32, 5*time.Minute).WithClock(opts.Clock),
		caches:    cache.NewManager(),
		limiter:   newRateLimiter(opts.RateLimit),
		uploadDir: opts.UploadDir,
		now:       opts.Clock,
		started:   opts.Clock(),
	}
	s.limiter.now = opts.Clock
	s.ledger.OnChange(s.invalidateStats)
	s.caches.Register(s.stats)
	s.caches.Register(s.pickers)
	s.caches.Start(context.Background(), 10*time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/budget", s.handleListTransactions)
	mux.HandleFunc("POST /api/budget", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/budget/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/budget/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/reminders", s.handleListReminders)
	mux.HandleFunc("POST /api/reminders", s.handleCreateReminder)
	mux.HandleFunc("PUT /api/reminders/{id}", s.handleUpdateReminder)
	mux.HandleFunc("DELETE /api/reminders/{id}", s.handleDeleteReminder)
	mux.HandleFunc("POST /api/reminders/{id}/paid", s.handleMarkPaid)
	mux.HandleFunc("POST /api/reminders/{id}/upload", s.handleUploadAttachment)
	if s.uploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadDir))))
	}

	mux.HandleFunc("GET /api/dashboard/stats", s.handleDashboardStats)
	mux.HandleFunc("GET /api/storage", s.handleStorageUsage)
	mux.HandleFunc("DELETE /api/storage", s.handleClearStorage)

	mux.HandleFunc("GET /ui/calendar", s.handleCalendar)
	mux.HandleFunc("POST /ui/calendar/{field}/navigate", s.handleCalendarNavigate)
	mux.HandleFunc("POST /ui/calendar/{field}/select", s.handleCalendarSelect)
	mux.HandleFunc("POST /ui/calendar/{field}/close", s.handleCalendarClose)
	mux.HandleFunc("POST /ui/pointer", s.handlePointerDown)

	s.Addr = opts.Addr
	s.Handler = applog.Middleware(s.logger, requestID, extractClientIP)(s.withSecurity(mux))
	s.ReadHeaderTimeout = 10 * time.Second
	return s
}

func (s *Server) invalidateStats() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.statsGen++
	s.stats.Purge()
}

func (s *Server) statsGeneration() uint64 {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.statsGen
}

// cacheStats stores sum unless a write landed since gen was read.
func (s *Server) cacheStats(key string, gen uint64, sum core.Summary) bool {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if s.statsGen != gen {
		return false
	}
	s.stats.Set(key, sum)
	return true
}

// Shutdown stops background goroutines, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withSecurity sets security headers, echoes the request id and rate limits
// writes per client.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w.Header())
		w.Header().Set("X-Request-ID", r.Header.Get("X-Request-ID"))

		clientIP := extractClientIP(r)
		if isSuspicious(r) {
			s.suspicious.Add(1)
			s.logger.WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead && !s.limiter.allow(clientIP) {
			s.logger.WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
				Header("Retry-After", strconv.Itoa(s.limiter.retryAfterSeconds())).
				Write(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestID keeps a well-formed incoming X-Request-ID, otherwise assigns a
// new one and stores it on the request.
func requestID(r *http.Request) string {
	if v := r.Header.Get("X-Request-ID"); v != "" {
		if _, err := uuid.Parse(v); err == nil {
			return v
		}
	}
	id := uuid.NewString()
	r.Header.Set("X-Request-ID", id)
	return id
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the store answers within the request timeout.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}
	if _, err := s.ledger.Store().Usage(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}
	checks["cache"] = map[string]any{
		"stats_entries": s.stats.Size(),
		"hits":          s.cacheHits.Load(),
		"misses":        s.cacheMisses.Load(),
	}
	checks["security"] = map[string]any{
		"rate_limited_clients": s.limiter.activeClients(),
		"rate_limit_hits":      s.limiter.hits.Load(),
		"suspicious_requests":  s.suspicious.Load(),
	}

	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func created(collection string, v any) *ResponseBuilder {
	return NewResponse().Status(http.StatusCreated).TriggerLedgerChanged(collection).JSON(v)
}

func updated(collection string, v any) *ResponseBuilder {
	return NewResponse().TriggerLedgerChanged(collection).JSON(v)
}

func deleted(collection, what string, id int64) *ResponseBuilder {
	return NewResponse().TriggerLedgerChanged(collection).JSON(map[string]string{
		"message": what + " " + strconv.FormatInt(id, 10) + " deleted",
	})
}

func logDebug(ctx context.Context, msg string, args ...any) {
	applog.FromContext(ctx).Log(ctx, slog.LevelDebug, msg, args...)
}
