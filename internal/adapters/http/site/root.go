// Package site serves the embedded rating frontend.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/okian/ratebook/internal/domain/model"
)

// Error constants
var (
	ErrRender = errors.New("frontend render failed")
)

var indexTemplate = template.Must(template.ParseFS(staticFS, "static/index.html.tmpl"))

type indexData struct {
	model.Domain
	Min, Max int
}

// Register attaches the frontend routes for domain d to mux.
//
//	GET /          -> index page
//	GET /static/*  -> scripts and styles
func Register(_ context.Context, mux *http.ServeMux, d model.Domain) error {
	if mux == nil {
		panic("mux is nil")
	}
	root, err := NewRootHandler(d)
	if err != nil {
		return err
	}
	mux.HandleFunc("GET /{$}", root.HandleRoot)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(FS())))
	return nil
}

// RootHandler serves the index page.
type RootHandler struct {
	page []byte
}

// NewRootHandler renders the index page for d once.
func NewRootHandler(d model.Domain) (*RootHandler, error) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, indexData{Domain: d, Min: model.MinRating, Max: model.MaxRating}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return &RootHandler{page: buf.Bytes()}, nil
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.page)
}
