package api

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gwi.com/toolchat/internal/config"
	"gwi.com/toolchat/internal/core"
	"gwi.com/toolchat/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Raw HTML in model output is escaped; goldmark only passes it through with html.WithUnsafe.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts assistant markdown to HTML.
func RenderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		log.Printf("Markdown conversion error: %v", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// LoadStylesheet returns the contents of the optional stylesheet, or "" when
// path is empty or unreadable.
func LoadStylesheet(path string) template.CSS {
	if path == "" {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return template.CSS(b)
}

var templateFuncs = template.FuncMap{
	"markdown":      RenderMarkdown,
	"severityColor": core.SeverityColor,
}

type views struct {
	pages map[string]*template.Template
}

func parseViews() *views {
	v := &views{pages: make(map[string]*template.Template)}
	for _, name := range []string{"index.html", "chat.html", "reframe.html"} {
		v.pages[name] = template.Must(template.New("layout.html").Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return v
}

// pageData is the single state struct every page is rendered from.
type pageData struct {
	Title      string
	Icon       string
	Stylesheet template.CSS
	Apps       []config.Persona
	Current    string
	HasKey     bool
	Next       string
	Error      string
	Draft      string

	Persona    config.Persona
	Onboarding string
	Turns      []store.Turn

	Analyses       []store.Analysis
	SeverityLabels []string
}

func (v *views) render(w http.ResponseWriter, status int, page string, data pageData) {
	tmpl, ok := v.pages[page]
	if !ok {
		http.Error(w, "Unknown page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.Printf("Error rendering %s: %v", page, err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
