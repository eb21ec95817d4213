package admin

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// View names rendered by the admin handlers.
const (
	ViewDashboard     = "dashboard"
	ViewLogin         = "login"
	ViewList          = "list"
	ViewDetail        = "detail"
	ViewForm          = "form"
	ViewConfirmDelete = "confirm_delete"
	ViewNotFound      = "not_found"
	ViewError         = "error"
)

var allViews = []string{
	ViewDashboard, ViewLogin, ViewList, ViewDetail,
	ViewForm, ViewConfirmDelete, ViewNotFound, ViewError,
}

// Renderer turns a named view and its context into HTML.
type Renderer interface {
	Render(w io.Writer, view string, data map[string]any) error
}

// TemplateRenderer renders the embedded html/template views. Each view is
// parsed together with the shared layout.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer parses every embedded view.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	r := &TemplateRenderer{templates: make(map[string]*template.Template, len(allViews))}
	for _, view := range allViews {
		tmpl, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+view+".html")
		if err != nil {
			return nil, fmt.Errorf("parse admin view %s: %w", view, err)
		}
		r.templates[view] = tmpl
	}
	return r, nil
}

// Render implements Renderer.
func (r *TemplateRenderer) Render(w io.Writer, view string, data map[string]any) error {
	tmpl, ok := r.templates[view]
	if !ok {
		return fmt.Errorf("unknown admin view %q", view)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}
