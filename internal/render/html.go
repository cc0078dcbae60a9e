package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	partialsOnce sync.Once
	partials     *template.Template
	partialsErr  error
)

// Partials returns the parsed "extraction" and "verification" templates.
func Partials() (*template.Template, error) {
	partialsOnce.Do(func() {
		partials, partialsErr = AddPartials(template.New("render"))
	})
	return partials, partialsErr
}

// AddPartials parses the panel templates into t, so page templates can
// invoke them by name.
func AddPartials(t *template.Template) (*template.Template, error) {
	return t.ParseFS(templateFS, "templates/*.html")
}

// ExtractionHTML renders the extraction panel fragment.
func ExtractionHTML(view ExtractionView) (template.HTML, error) {
	return execute("extraction", view)
}

// VerificationHTML renders the verification panel fragment.
func VerificationHTML(view VerificationView) (template.HTML, error) {
	return execute("verification", view)
}

func execute(name string, data any) (template.HTML, error) {
	t, err := Partials()
	if err != nil {
		return "", fmt.Errorf("parse templates: %w", err)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
