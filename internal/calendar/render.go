package calendar

import (
	"fmt"
	"html/template"
	"io"

	"budget/web"
)

var pickerTemplate = template.Must(template.ParseFS(web.TemplatesFS, "templates/calendar.html"))

type view struct {
	Field string
	Open  bool
	Grid
}

// Render writes the picker as an HTML fragment. field names the bound input
// so the fragment can post selections back to it.
func (p *Picker) Render(w io.Writer, field string) error {
	st := p.State()
	if err := pickerTemplate.ExecuteTemplate(w, "calendar", view{Field: field, Open: st.Open, Grid: p.Grid()}); err != nil {
		return fmt.Errorf("render calendar: %w", err)
	}
	return nil
}
