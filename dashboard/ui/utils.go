package ui

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"pickup-dispatch/dispatch/dashboard/ui/templates"
	"pickup-dispatch/dispatch/internal/logging"
)

var pages = []string{"auth.html", "volunteer.html", "manager.html"}

var funcMap = template.FuncMap{
	"plural": func(n int, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	},
}

// parseTemplates builds one template set per page: base.html, every partial
// and the page itself.
func parseTemplates() (map[string]*template.Template, error) {
	shared := []string{"base.html"}
	partials, err := fs.Glob(templates.FS, "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}
	shared = append(shared, partials...)

	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		files := append(append([]string{}, shared...), page)
		t, err := template.New(page).Funcs(funcMap).ParseFS(templates.FS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}

// RenderTemplate renders a full page through the base layout
func (h *UIHandler) RenderTemplate(w http.ResponseWriter, page string, data map[string]interface{}) {
	h.execute(w, page, "base", data)
}

// RenderPartial renders one named block of a page (for HTMX responses)
func (h *UIHandler) RenderPartial(w http.ResponseWriter, page, name string, data map[string]interface{}) {
	h.execute(w, page, name, data)
}

func (h *UIHandler) execute(w http.ResponseWriter, page, name string, data map[string]interface{}) {
	t, ok := h.templates[page]
	if !ok {
		http.Error(w, fmt.Sprintf("template %s not found", page), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, name, data); err != nil {
		logging.Error("Error rendering template", "page", page, "block", name, "error", err.Error())
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
