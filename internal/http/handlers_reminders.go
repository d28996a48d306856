package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"budget/internal/core"
	"budget/internal/dashboard"
	"budget/internal/services"
)

const (
	maxUploadBytes    = 5 << 20
	multipartOverhead = 64 << 10
)

// reminderView adds the derived status to a reminder.
type reminderView struct {
	core.Reminder
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
	DaysUntil   int    `json:"days_until"`
}

func (s *Server) view(r core.Reminder) reminderView {
	now := s.now()
	return reminderView{
		Reminder:    r,
		Status:      dashboard.Classify(r, now).String(),
		StatusLabel: dashboard.StatusLabel(r, now),
		DaysUntil:   dashboard.DaysUntil(r.DueDate, now),
	}
}

// handleListReminders returns all reminders. Optional filters: paid
// (true/false), from and to on the due date.
func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	store := s.ledger.Store()
	q := r.URL.Query()

	var (
		reminders []core.Reminder
		err       error
	)
	switch {
	case q.Get("paid") != "":
		paid, perr := strconv.ParseBool(q.Get("paid"))
		if perr != nil {
			FromError(r, fmt.Errorf("%w: paid must be true or false", core.ErrParse)).Write(w)
			return
		}
		reminders, err = store.RemindersByPaid(ctx, paid)
	case q.Get("from") != "" || q.Get("to") != "":
		from, to, perr := dateRange(q.Get("from"), q.Get("to"))
		if perr != nil {
			FromError(r, perr).Write(w)
			return
		}
		reminders, err = store.RemindersDueBetween(ctx, from, to)
	default:
		reminders, err = store.Reminders(ctx)
	}
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	out := make([]reminderView, len(reminders))
	for i, rem := range reminders {
		out[i] = s.view(rem)
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		FromError(r, err).Write(w)
		return
	}
	rem, err := reminderFromBody(p)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	rem, err = s.ledger.AddReminder(ctx, rem)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	created(services.CollectionReminders, s.view(rem)).Write(w)
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
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
	patch, err := reminderPatchFromBody(p)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	rem, err := s.ledger.UpdateReminder(ctx, id, patch)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	updated(services.CollectionReminders, s.view(rem)).Write(w)
}

// handleMarkPaid marks the reminder paid. Recurring reminders are not
// rolled forward.
func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	id, err := pathID(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	rem, err := s.ledger.MarkPaid(ctx, id, true)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	updated(services.CollectionReminders, s.view(rem)).Write(w)
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	id, err := pathID(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if err := s.ledger.DeleteReminder(ctx, id); err != nil {
		FromError(r, err).Write(w)
		return
	}
	deleted(services.CollectionReminders, "reminder", id).Write(w)
}

// handleUploadAttachment stores a PNG for the reminder and records its URL.
func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if s.uploadDir == "" {
		ErrorResponse(http.StatusNotFound, "uploads are disabled").Write(w)
		return
	}
	id, err := pathID(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if _, err := s.ledger.Store().Reminder(ctx, id); err != nil {
		FromError(r, err).Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			ErrorResponse(http.StatusRequestEntityTooLarge, "file too large (max 5MB)").Write(w)
			return
		}
		ErrorResponse(http.StatusBadRequest, "invalid multipart body").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "no file provided").Write(w)
		return
	}
	defer file.Close()
	if header.Filename == "" {
		ErrorResponse(http.StatusBadRequest, "no file selected").Write(w)
		return
	}
	if header.Size > maxUploadBytes {
		ErrorResponse(http.StatusRequestEntityTooLarge, "file too large (max 5MB)").Write(w)
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".png") {
		ErrorResponse(http.StatusBadRequest, "only PNG files are allowed").Write(w)
		return
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		FromError(r, fmt.Errorf("read upload: %w", err)).Write(w)
		return
	}
	if http.DetectContentType(head[:n]) != "image/png" {
		ErrorResponse(http.StatusBadRequest, "file content is not a PNG image").Write(w)
		return
	}

	name := fmt.Sprintf("reminder_%d_%s", id, safeFilename(header.Filename))
	if err := saveUpload(filepath.Join(s.uploadDir, name), io.MultiReader(bytes.NewReader(head[:n]), file)); err != nil {
		FromError(r, err).Write(w)
		return
	}

	url := "/uploads/" + name
	rem, err := s.ledger.UpdateReminder(ctx, id, core.ReminderPatch{AttachmentURL: &url})
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	updated(services.CollectionReminders, map[string]any{
		"message":        "file uploaded successfully",
		"attachment_url": rem.AttachmentURL,
	}).Write(w)
}

func saveUpload(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close upload: %w", err)
	}
	return nil
}

// safeFilename keeps letters, digits, dot, dash and underscore from the
// base name.
func safeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if strings.Trim(out, "._") == "" {
		return "attachment.png"
	}
	return out
}
