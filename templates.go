package main

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/shape-portfolio/site/internal/imagepath"
)

//go:embed templates/*.html
var templateFS embed.FS

// templates parses the embedded page templates. Each file is addressed by
// its base name, e.g. "index.html".
func (s *server) templates() *template.Template {
	funcs := template.FuncMap{
		"asset":    asset,
		"join":     strings.Join,
		"lines":    func(v []string) string { return strings.Join(v, "\n") },
		"markdown": s.md.MustRender,
		"date":     func(t time.Time) string { return t.Local().Format("Jan 2, 2006 15:04") },
		"excerpt":  excerpt,
		"year":     func() int { return time.Now().Year() },
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

// asset turns a stored path into a URL the browser can load.
func asset(p string) string {
	if p == "" || imagepath.IsRemote(p) {
		return p
	}
	return "/" + strings.TrimPrefix(p, "/")
}

// excerpt shortens s to at most n runes.
func excerpt(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
