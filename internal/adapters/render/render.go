// Package render turns flash messages into HTML with html/template.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"flashbox/internal/application/flash"
	domain "flashbox/internal/domain/flash"
)

// ErrTemplateNotFound is returned when no template has the requested name.
var ErrTemplateNotFound = errors.New("render: template not found")

//go:embed templates
var embedded embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is omitted (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Funcs returns the functions available to every flash template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"markdown":  markdown,
		"kindClass": kindClass,
	}
}

func markdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// kindClass maps a kind to CSS classes. Characters outside [a-z0-9_-] are
// dropped so custom kinds cannot break out of the attribute.
func kindClass(kind domain.Kind) string {
	var b strings.Builder
	for _, r := range strings.ToLower(string(kind)) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "hint"
	}
	return "hint hint-" + b.String()
}

// HTMLRenderer renders named templates. A template's name is its path below
// the template root without the ".html" suffix, e.g. "hint/default".
type HTMLRenderer struct {
	set *template.Template
}

var _ flash.Renderer = (*HTMLRenderer)(nil)

// New parses the embedded templates, then those under dir when dir is not
// empty. A file in dir replaces the embedded template of the same name.
// POST: Returns a renderer safe for concurrent use
func New(dir string) (*HTMLRenderer, error) {
	set := template.New("").Funcs(Funcs())

	root, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	if err := parseTree(set, root); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := parseTree(set, os.DirFS(dir)); err != nil {
			return nil, err
		}
	}
	return &HTMLRenderer{set: set}, nil
}

func parseTree(set *template.Template, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(p, ".html")
		if _, err := set.New(name).Parse(string(src)); err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		return nil
	})
}

// Render executes the template called name with bindings.
func (h *HTMLRenderer) Render(name string, bindings map[string]any) (string, error) {
	tpl := h.set.Lookup(name)
	if tpl == nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, bindings); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Names lists the loaded template names.
func (h *HTMLRenderer) Names() []string {
	var names []string
	for _, t := range h.set.Templates() {
		if t.Name() != "" {
			names = append(names, t.Name())
		}
	}
	return names
}

// TemplateRenderer renders one already parsed template, ignoring the
// requested name. It lets a caller hand a template object to Render.
type TemplateRenderer struct {
	tpl *template.Template
}

// NewTemplateRenderer wraps tpl.
// PRE: tpl is parsed
func NewTemplateRenderer(tpl *template.Template) *TemplateRenderer {
	return &TemplateRenderer{tpl: tpl}
}

// Render executes the wrapped template with bindings.
func (t *TemplateRenderer) Render(_ string, bindings map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, bindings); err != nil {
		return "", err
	}
	return buf.String(), nil
}
