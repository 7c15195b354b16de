package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	printer   = message.NewPrinter(language.BrazilianPortuguese)
	templates = template.Must(template.New("").Funcs(template.FuncMap{
		"score": func(v float64) string { return printer.Sprintf("%.1f", v) },
		"km":    func(v float64) string { return printer.Sprintf("%.2f km", v) },
		"count": func(v int) string { return printer.Sprintf("%d", v) },
	}).ParseFS(templateFS, "templates/*.html"))
)

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type matchDigestEmailData struct {
	baseEmailData
	MatchDigest
}

func renderEmailTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
