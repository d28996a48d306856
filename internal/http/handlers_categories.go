package http

import (
	"net/http"

	"budget/internal/services"
)

// handleListCategories returns the stored categories, or the default set
// when none exist yet.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	cats, err := s.ledger.Categories(ctx)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewResponse().JSON(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		FromError(r, err).Write(w)
		return
	}
	c, err := s.ledger.AddCategory(ctx, categoryFromBody(p))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	created(services.CollectionCategories, c).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
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
	c, err := s.ledger.UpdateCategory(ctx, id, categoryPatchFromBody(p))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	updated(services.CollectionCategories, c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	id, err := pathID(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if err := s.ledger.DeleteCategory(ctx, id); err != nil {
		FromError(r, err).Write(w)
		return
	}
	deleted(services.CollectionCategories, "category", id).Write(w)
}
