package server

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
)

// renderLead converts the configured lead markdown to HTML. Raw HTML in
// the source is dropped by goldmark's default renderer.
func renderLead(src string) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
