package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"vision-chat/internal/history"
	"vision-chat/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	Username string
	Flashes  []session.Flash
	History  []history.Entry
}

func render(w http.ResponseWriter, name string, data pageData) error {
	// Rendered into a buffer so a template failure can still produce a 500.
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return CodedError(http.StatusInternalServerError, fmt.Errorf("error rendering %s: %w", name, err))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)
	return err
}
