package http

import (
	"net/http"

	"github.com/dustin/go-humanize"

	"budget/internal/core"
	"budget/internal/services"
)

// handleDashboardStats aggregates the store as of ?date= (default today).
// Results are cached per date until the next write.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	asOf := s.today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := parseDate("date", raw)
		if err != nil {
			FromError(r, err).Write(w)
			return
		}
		asOf = d
	}

	key := asOf.ISO()
	if sum, ok := s.stats.Get(key); ok {
		s.cacheHits.Add(1)
		logDebug(ctx, "Dashboard stats cache hit", "as_of", key)
		NewResponse().JSON(sum).Write(w)
		return
	}
	s.cacheMisses.Add(1)

	gen := s.statsGeneration()
	sum, err := s.ledger.Summary(ctx, asOf)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if sum.Skipped > 0 {
		s.logger.WarnContext(ctx, "Malformed records skipped in summary", "skipped", sum.Skipped, "as_of", key)
	}
	if !s.cacheStats(key, gen, sum) {
		logDebug(ctx, "Ledger changed during stats load, not caching", "as_of", key)
	}
	NewResponse().JSON(sum).Write(w)
}

type usageView struct {
	core.Usage
	UsedHuman  string  `json:"used_human"`
	QuotaHuman string  `json:"quota_human"`
	Percent    float64 `json:"percent"`
}

// handleStorageUsage reports best-effort storage accounting.
func (s *Server) handleStorageUsage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	u, err := s.ledger.Store().Usage(ctx)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewResponse().JSON(newUsageView(u)).Write(w)
}

func newUsageView(u core.Usage) usageView {
	v := usageView{
		Usage:      u,
		UsedHuman:  humanize.IBytes(uint64(max(u.Used, 0))),
		QuotaHuman: humanize.IBytes(uint64(max(u.Quota, 0))),
	}
	if u.Quota > 0 {
		v.Percent = float64(u.Used) / float64(u.Quota) * 100
	}
	return v
}

// handleClearStorage empties every collection. Identifiers keep counting.
func (s *Server) handleClearStorage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.ledger.ClearAll(ctx); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewResponse().TriggerLedgerChanged(services.CollectionSettings).
		JSON(map[string]string{"message": "all data cleared"}).
		Write(w)
}
