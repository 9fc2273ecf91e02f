// Package templates renders the viewer page and the HTML fragments patched
// into it over Datastar SSE.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"sync"
)

//go:embed fragments/*.html pages/*.html
var embedded embed.FS

// Patterns are the globs parsed from a template file system.
var Patterns = []string{"fragments/*.html", "pages/*.html"}

// Renderer manages the page and fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New parses the templates in fsys.
func New(fsys fs.FS) (*Renderer, error) {
	tmpl, err := parse(fsys)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Embedded returns a renderer over the compiled-in templates.
func Embedded() (*Renderer, error) { return New(embedded) }

func parse(fsys fs.FS) (*template.Template, error) {
	return template.New("").ParseFS(fsys, Patterns...)
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.Execute(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Execute renders a named template to w.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(w, name, data)
}
