package feed

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var pageTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	// Description bodies are assembled by DescriptionHTML, which escapes
	// everything except provider HTML.
	"safe":  func(s string) template.HTML { return template.HTML(s) }, //nolint:gosec // see DescriptionHTML
	"deref": func(s *string) string { return *s },
}).ParseFS(templateFS, "templates/*.html.tmpl"))

// IndexCenter is one center on the index page.
type IndexCenter struct {
	Slug  string
	Name  string
	Zones []IndexZone
}

// IndexZone is one zone link on the index page.
type IndexZone struct {
	Slug       string
	Name       string
	FeedURL    string
	PreviewURL string
}

// PreviewHTML renders a standalone HTML page showing every entry of doc with
// the same body markup the feed carries.
func (b *Builder) PreviewHTML(doc Document) ([]byte, error) {
	data := struct {
		Doc         Document
		GeneratedAt time.Time
	}{doc, b.clock.Now().UTC()}
	return render("preview.html.tmpl", data)
}

// IndexHTML renders the landing page listing every center and zone.
func (b *Builder) IndexHTML(centers []IndexCenter) ([]byte, error) {
	zones := 0
	for _, c := range centers {
		zones += len(c.Zones)
	}
	data := struct {
		Centers      []IndexCenter
		TotalCenters int
		TotalZones   int
		GeneratedAt  time.Time
	}{centers, len(centers), zones, b.clock.Now().UTC()}
	return render("index.html.tmpl", data)
}

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
