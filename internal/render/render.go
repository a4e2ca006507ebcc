// Package render turns page view models into HTML using the embedded
// templates.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"tilepacks.dev/internal/config"
)

//go:embed templates/*.html templates/pages/*.html templates/partials/*.html
var templateFS embed.FS

//go:embed static/*.css
var staticFS embed.FS

// StaticFS returns the embedded stylesheet directory
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Pages
const (
	PageHome      = "home"
	PageTilePacks = "tilepacks"
	PageTilePack  = "tilepack"
	PageTag       = "tag"
	PageUpload    = "upload"
	PageError     = "error"
)

var pageNames = []string{PageHome, PageTilePacks, PageTilePack, PageTag, PageUpload, PageError}

// Page is the data every template receives
type Page struct {
	Site  *config.SiteConfig
	Title string
	Data  any
}

// Renderer executes page templates
type Renderer struct {
	site     *config.SiteConfig
	pages    map[string]*template.Template
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// New parses every page template
func New(site *config.SiteConfig) (*Renderer, error) {
	r := &Renderer{
		site:     site,
		pages:    make(map[string]*template.Template, len(pageNames)),
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   bluemonday.UGCPolicy(),
	}

	funcs := template.FuncMap{
		"markdown": r.Markdown,
		"comma":    humanize.Comma,
		"ago":      func(t time.Time) string { return humanize.Time(t) },
		"ibytes":   func(n int64) string { return humanize.IBytes(uint64(n)) },
		"inc":      func(i int) int { return i + 1 },
	}
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials/*.html",
			"templates/pages/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Markdown renders user-supplied markdown to sanitized HTML
func (r *Renderer) Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}

// Execute writes the named page to w
func (r *Renderer) Execute(w io.Writer, page, title string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return tmpl.ExecuteTemplate(w, "layout", Page{Site: r.site, Title: title, Data: data})
}

// HTML renders a page into a buffer first so a template failure never
// leaves a half-written response.
func (r *Renderer) HTML(w http.ResponseWriter, status int, page, title string, data any) error {
	var buf bytes.Buffer
	if err := r.Execute(&buf, page, title, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
