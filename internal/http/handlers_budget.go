package http

import (
	"net/http"

	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/services"
)

// handleListTransactions returns every transaction. Optional filters:
// type, category, from and to (inclusive dates).
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	store := s.ledger.Store()
	q := r.URL.Query()

	var (
		txs []core.Transaction
		err error
	)
	switch {
	case q.Get("from") != "" || q.Get("to") != "":
		from, to, perr := dateRange(q.Get("from"), q.Get("to"))
		if perr != nil {
			FromError(r, perr).Write(w)
			return
		}
		txs, err = store.TransactionsBetween(ctx, from, to)
	case q.Get("category") != "":
		txs, err = store.TransactionsByCategory(ctx, sanitizeInput(q.Get("category")))
	case q.Get("type") != "":
		txs, err = store.TransactionsByType(ctx, core.TransactionType(q.Get("type")))
	default:
		txs, err = store.Transactions(ctx)
	}
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewResponse().JSON(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		FromError(r, err).Write(w)
		return
	}
	t, err := transactionFromBody(p, s.today())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	t, err = s.ledger.AddTransaction(ctx, t)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	logDebug(ctx, "Transaction created", applog.NewFields().WithRecord(services.CollectionBudgets, t.ID).Args()...)
	created(services.CollectionBudgets, t).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	id, err := pathID(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		FromError(r, err).Write(w)
		return
	}
	patch, err := transactionPatchFromBody(p)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	t, err := s.ledger.UpdateTransaction(ctx, id, patch)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	updated(services.CollectionBudgets, t).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	id, err := pathID(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if err := s.ledger.DeleteTransaction(ctx, id); err != nil {
		FromError(r, err).Write(w)
		return
	}
	deleted(services.CollectionBudgets, "budget entry", id).Write(w)
}

// dateRange fills an open end with the zero date or a far future one.
func dateRange(fromRaw, toRaw string) (core.Date, core.Date, error) {
	from := core.NewDate(1, 1, 1)
	to := core.NewDate(9999, 12, 31)
	var err error
	if fromRaw != "" {
		if from, err = parseDate("from", fromRaw); err != nil {
			return from, to, err
		}
	}
	if toRaw != "" {
		if to, err = parseDate("to", toRaw); err != nil {
			return from, to, err
		}
	}
	return from, to, nil
}
