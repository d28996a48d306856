package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"budget/internal/calendar"
	"budget/internal/core"
)

const maxFieldName = 64

func fieldName(raw string) (string, error) {
	name := sanitizeInput(raw)
	if name == "" || len(name) > maxFieldName {
		return "", fmt.Errorf("%w: invalid field name", core.ErrParse)
	}
	return name, nil
}

// handleCalendar opens the picker for ?field=. When ?value= is present the
// picker is re-bound to that text, superseding any earlier binding.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name, err := fieldName(q.Get("field"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	var p *calendar.Picker
	if q.Has("value") {
		p = s.pickers.Picker(name, calendar.NewTextField(sanitizeInput(q.Get("value"))))
	} else if existing, ok := s.pickers.Lookup(name); ok {
		p = existing
	} else {
		p = s.pickers.Picker(name, calendar.NewTextField(""))
	}
	p.Open()
	s.renderPicker(w, r, name, p, nil)
}

func (s *Server) handleCalendarNavigate(w http.ResponseWriter, r *http.Request) {
	name, p, ok := s.lookupPicker(w, r)
	if !ok {
		return
	}
	delta, err := strconv.Atoi(r.URL.Query().Get("delta"))
	if err != nil {
		FromError(r, fmt.Errorf("%w: delta must be -1 or 1", core.ErrParse)).Write(w)
		return
	}
	if err := p.Navigate(delta); err != nil {
		FromError(r, fmt.Errorf("%w: %v", core.ErrParse, err)).Write(w)
		return
	}
	s.renderPicker(w, r, name, p, nil)
}

// handleCalendarSelect writes the chosen day into the field and closes the
// picker. The new text value travels in the date:selected trigger.
func (s *Server) handleCalendarSelect(w http.ResponseWriter, r *http.Request) {
	name, p, ok := s.lookupPicker(w, r)
	if !ok {
		return
	}
	day, err := strconv.Atoi(r.URL.Query().Get("day"))
	if err != nil {
		FromError(r, fmt.Errorf("%w: day must be a number", core.ErrParse)).Write(w)
		return
	}
	if err := p.SelectDay(day); err != nil {
		FromError(r, fmt.Errorf("%w: %v", core.ErrConstraintViolation, err)).Write(w)
		return
	}
	value := p.State().Selected.Display()
	s.renderPicker(w, r, name, p, map[string]string{"field": name, "value": value})
}

func (s *Server) handleCalendarClose(w http.ResponseWriter, r *http.Request) {
	name, p, ok := s.lookupPicker(w, r)
	if !ok {
		return
	}
	p.Close()
	s.renderPicker(w, r, name, p, nil)
}

// handlePointerDown relays a document pointer press; ?inside= names the
// picker under the pointer, if any. Every other open picker closes.
func (s *Server) handlePointerDown(w http.ResponseWriter, r *http.Request) {
	s.pickers.PointerDown(sanitizeInput(r.URL.Query().Get("inside")))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupPicker(w http.ResponseWriter, r *http.Request) (string, *calendar.Picker, bool) {
	name, err := fieldName(r.PathValue("field"))
	if err != nil {
		FromError(r, err).Write(w)
		return "", nil, false
	}
	p, ok := s.pickers.Lookup(name)
	if !ok {
		ErrorResponse(http.StatusNotFound, "no calendar open for field "+strconv.Quote(name)).Write(w)
		return "", nil, false
	}
	return name, p, true
}

func (s *Server) renderPicker(w http.ResponseWriter, r *http.Request, name string, p *calendar.Picker, selected map[string]string) {
	var buf bytes.Buffer
	if err := p.Render(&buf, name); err != nil {
		FromError(r, err).Write(w)
		return
	}
	resp := NewResponse().HTML(buf.Bytes())
	if selected != nil {
		resp.Trigger(TriggerDateSelected, selected)
	}
	resp.Write(w)
}
