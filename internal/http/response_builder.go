package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/remote"
)

// Events announced to htmx clients through HX-Trigger.
const (
	TriggerLedgerChanged = "ledger:changed"
	TriggerDateSelected  = "date:selected"
)

// ResponseBuilder assembles a response: status, headers, HX-Trigger events
// and a JSON or HTML body.
type ResponseBuilder struct {
	statusCode int
	headers    http.Header
	triggers   map[string]any
	body       []byte
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    http.Header{},
		triggers:   map[string]any{},
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers.Set(name, value)
	return b
}

// Trigger adds a named client event with optional data.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

func (b *ResponseBuilder) TriggerLedgerChanged(collection string) *ResponseBuilder {
	return b.Trigger(TriggerLedgerChanged, map[string]string{"collection": collection})
}

// JSON encodes v as the body. Encoding failures turn the response into a
// 500.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("Failed to encode response", "component", "http", "error", err)
		b.statusCode = http.StatusInternalServerError
		b.headers.Set("Content-Type", "application/json")
		b.body = []byte(`{"error":"internal error"}` + "\n")
		return b
	}
	b.headers.Set("Content-Type", "application/json")
	b.body = buf.Bytes()
	return b
}

func (b *ResponseBuilder) HTML(body []byte) *ResponseBuilder {
	b.headers.Set("Content-Type", "text/html; charset=utf-8")
	b.body = body
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, values := range b.headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	if len(b.triggers) > 0 {
		if raw, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(raw))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse builds the {"error": msg} body used by every endpoint.
func ErrorResponse(status int, msg string) *ResponseBuilder {
	return NewResponse().Status(status).JSON(errorBody{Error: msg})
}

// statusFor maps the core error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConstraintViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrStorageUnavailable), errors.Is(err, remote.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// FromError builds the error response for err. Server-side failures are
// logged and their details withheld from the client.
func FromError(r *http.Request, err error) *ResponseBuilder {
	status := statusFor(err)
	msg := err.Error()
	if status >= 500 {
		applog.FromContext(r.Context()).Failure(r.Context(), "Request failed", r.Method, err,
			applog.FieldPath, r.URL.Path)
		msg = http.StatusText(status)
	}
	return ErrorResponse(status, msg)
}
