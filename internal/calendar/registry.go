package calendar

import (
	"sync"
	"time"

	"budget/internal/cache"
)

const (
	// DefaultRegistryLimit caps how many pickers a registry keeps.
	DefaultRegistryLimit = 256
	pickerIdleTTL        = time.Hour
)

// Registry hands out one picker per field name. Pickers never share state.
// It keeps at most limit pickers; the least recently used one is dropped
// first, and pickers idle for an hour expire.
type Registry struct {
	mu      sync.Mutex
	pickers *cache.LRU[*Picker]
	opts    []Option
}

// NewRegistry builds a registry of at most limit pickers; limit <= 0 means
// DefaultRegistryLimit.
func NewRegistry(limit int, opts ...Option) *Registry {
	if limit <= 0 {
		limit = DefaultRegistryLimit
	}
	return &Registry{pickers: cache.NewLRU[*Picker](limit, pickerIdleTTL), opts: opts}
}

// Picker returns the picker for name, creating it bound to field on first
// use. A later call with a different field re-binds the existing picker.
func (r *Registry) Picker(name string, field Field) *Picker {
	r.mu.Lock()
	p, ok := r.pickers.Get(name)
	if !ok {
		p = New(field, r.opts...)
	}
	r.pickers.Set(name, p)
	r.mu.Unlock()
	if ok && field != nil && p.boundTo() != field {
		p.Bind(field)
	}
	return p
}

// Lookup returns the picker registered under name, if any.
func (r *Registry) Lookup(name string) (*Picker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pickers.Get(name)
}

func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pickers.Delete(name)
}

func (r *Registry) Len() int {
	return r.pickers.Size()
}

// CleanExpired drops idle pickers so a cache.Manager can sweep the registry.
func (r *Registry) CleanExpired() int {
	return r.pickers.CleanExpired()
}

// PointerDown forwards a document-level pointer press to every open picker.
// insideName is the picker whose bounds contain the pointer, or "".
func (r *Registry) PointerDown(insideName string) {
	for name, p := range r.pickers.Snapshot() {
		p.PointerDown(name == insideName)
	}
}

func (p *Picker) boundTo() Field {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.field
}
