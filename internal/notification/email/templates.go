package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
}

type pipelineCompletedEmailData struct {
	baseEmailData
	RecipientName  string
	AssetReference string
	Body           string
}

type pipelineCancelledEmailData struct {
	baseEmailData
	RecipientName  string
	AssetReference string
	Reason         string
}

// renderEmailTemplate renders the named child template inside the shared
// base layout and returns the resulting HTML.
func renderEmailTemplate(name string, data any) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
