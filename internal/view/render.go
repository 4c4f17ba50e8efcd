package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type listPage struct {
	ActingUser string
	Cards      []Card
}

// RenderList writes the card list page.
func (r *Renderer) RenderList(w io.Writer, cards []Card, actingUser string) error {
	if err := r.tmpl.ExecuteTemplate(w, "list.html", listPage{ActingUser: actingUser, Cards: cards}); err != nil {
		return fmt.Errorf("render list: %w", err)
	}
	return nil
}

// RenderDetails writes the detail page.
func (r *Renderer) RenderDetails(w io.Writer, d Details) error {
	if err := r.tmpl.ExecuteTemplate(w, "details.html", d); err != nil {
		return fmt.Errorf("render details: %w", err)
	}
	return nil
}
