package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/dashboard"
	"budget/internal/storage"
)

// Remote is the read side of the remote CRUD API.
type Remote interface {
	Transactions(ctx context.Context) ([]core.Transaction, error)
	Categories(ctx context.Context) ([]core.Category, error)
	Reminders(ctx context.Context) ([]core.Reminder, error)
}

// Controller is the single owner of State. Either collaborator may be nil.
type Controller struct {
	remote Remote
	store  storage.Store

	mu        sync.RWMutex
	state     State
	gen       uint64 // bumped whenever state is replaced
	summaries *cache.LRU[core.Summary]
	now       func() time.Time
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func NewController(remote Remote, store storage.Store, opts ...Option) *Controller {
	c := &Controller{
		remote:    remote,
		store:     store,
		state:     NewState(),
		summaries: cache.NewLRU[core.Summary](16, 5*time.Minute),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.summaries.WithClock(c.now)
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

func (c *Controller) SetPage(name string) error {
	p, err := parsePage(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Page = p
	c.mu.Unlock()
	return nil
}

// Refresh reloads the three collections concurrently. Each falls back from
// the remote API to the local store, then to defaults (categories) or an
// empty set. Only cancellation of ctx fails the refresh.
func (c *Controller) Refresh(ctx context.Context) (Sources, error) {
	var (
		cats      []core.Category
		txs       []core.Transaction
		reminders []core.Reminder
		src       Sources
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, src.Categories = load(gctx, "categories", remoteCall(c.remote, Remote.Categories), localCall(c.store, storage.Store.Categories), core.DefaultCategories)
		return gctx.Err()
	})
	g.Go(func() error {
		txs, src.Transactions = load(gctx, "transactions", remoteCall(c.remote, Remote.Transactions), localCall(c.store, storage.Store.Transactions), nil)
		return gctx.Err()
	})
	g.Go(func() error {
		reminders, src.Reminders = load(gctx, "reminders", remoteCall(c.remote, Remote.Reminders), localCall(c.store, storage.Store.Reminders), nil)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return Sources{}, fmt.Errorf("refresh: %w", err)
	}

	c.mu.Lock()
	c.state.Categories = cats
	c.state.Transactions = txs
	c.state.Reminders = reminders
	c.state.Sources = src
	c.state.RefreshedAt = c.now()
	c.gen++
	c.summaries.Purge()
	c.mu.Unlock()

	slog.InfoContext(ctx, "State refreshed",
		"component", "app",
		"categories", len(cats),
		"categories_source", src.Categories,
		"transactions", len(txs),
		"transactions_source", src.Transactions,
		"reminders", len(reminders),
		"reminders_source", src.Reminders)
	return src, nil
}

// Summary aggregates the in-memory collections as of asOf.
func (c *Controller) Summary(asOf core.Date) core.Summary {
	key := asOf.ISO()
	if s, ok := c.summaries.Get(key); ok {
		return s
	}
	c.mu.RLock()
	gen := c.gen
	s := dashboard.Summarize(c.state.Transactions, c.state.Reminders, asOf)
	c.mu.RUnlock()
	c.storeSummary(key, gen, s)
	return s
}

// storeSummary caches s only if the state it was computed from is still
// current.
func (c *Controller) storeSummary(key string, gen uint64, s core.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.summaries.Set(key, s)
	}
}

// CacheRemote replaces the local store contents with the collections that
// were loaded from the remote API. Local ids are assigned afresh. It is the
// only path from remote data into the local store; nothing is reconciled.
func (c *Controller) CacheRemote(ctx context.Context) error {
	if c.store == nil {
		return fmt.Errorf("%w: no local store", core.ErrStorageUnavailable)
	}
	st := c.State()
	if !st.Sources.AllRemote() {
		return fmt.Errorf("cache remote: state was not loaded from the remote API (%+v)", st.Sources)
	}

	if err := c.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("cache remote: %w", err)
	}
	var errs []error
	for _, cat := range st.Categories {
		if _, err := c.store.InsertCategory(ctx, cat); err != nil {
			errs = append(errs, fmt.Errorf("category %q: %w", cat.Name, err))
		}
	}
	for _, t := range st.Transactions {
		if _, err := c.store.InsertTransaction(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("transaction %d: %w", t.ID, err))
		}
	}
	for _, r := range st.Reminders {
		if _, err := c.store.InsertReminder(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("reminder %d: %w", r.ID, err))
		}
	}

	slog.InfoContext(ctx, "Remote data cached locally",
		"component", "app",
		"categories", len(st.Categories),
		"transactions", len(st.Transactions),
		"reminders", len(st.Reminders),
		"rejected", len(errs))
	return errors.Join(errs...)
}

type fetchFunc[T any] func(context.Context) ([]T, error)

func remoteCall[T any](r Remote, m func(Remote, context.Context) ([]T, error)) fetchFunc[T] {
	if r == nil {
		return nil
	}
	return func(ctx context.Context) ([]T, error) { return m(r, ctx) }
}

func localCall[T any](s storage.Store, m func(storage.Store, context.Context) ([]T, error)) fetchFunc[T] {
	if s == nil {
		return nil
	}
	return func(ctx context.Context) ([]T, error) { return m(s, ctx) }
}

// load tries remote then local. An empty local collection falls through to
// defaults so a fresh install still shows the category set.
func load[T any](ctx context.Context, name string, remote, local fetchFunc[T], defaults func() []T) ([]T, Source) {
	if remote != nil {
		items, err := remote(ctx)
		if err == nil {
			return nonNil(items), SourceRemote
		}
		slog.WarnContext(ctx, "Remote fetch failed, falling back",
			"component", "app", "collection", name, "error", err)
	}
	if local != nil {
		items, err := local(ctx)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "Local store read failed, falling back",
				"component", "app", "collection", name, "error", err)
		case len(items) > 0 || defaults == nil:
			return nonNil(items), SourceLocal
		}
	}
	if defaults != nil {
		return defaults(), SourceDefault
	}
	return []T{}, SourceEmpty
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
