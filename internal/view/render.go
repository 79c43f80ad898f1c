package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{"home", "tours", "tour", "notfound"}

type Renderer struct{ pages map[string]*template.Template }

// New parses every page together with the shared layout and partials.
func New() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range pageNames {
		t, err := template.New("layout.html").ParseFS(templateFS,
			"templates/layout.html", "templates/partials.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Static serves the stylesheet and the carousel/reveal scripts.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return http.FileServer(http.FS(sub))
}

type Page struct {
	Title   string
	Active  string // nav item to highlight
	Refresh int    // seconds; >0 adds a meta refresh while the catalog loads
}

// CatalogState is the loading/error part shared by pages listing tours.
type CatalogState struct {
	Loading bool
	Error   string
	Retry   string // path the retry button returns to
}

type HomePage struct {
	Page
	CatalogState
	Slides        []Slide
	Stats         []Stat
	Features      []Feature
	Testimonials  []Testimonial
	Popular       []TourCard
	SlideInterval int64 // milliseconds
}

type ToursPage struct {
	Page
	CatalogState
	Tours      []TourCard
	Categories []string
	Category   string
}

type TourPage struct {
	Page
	Tour TourCard
}

type NotFoundPage struct {
	Page
	Message string
}

func NewHomePage(popular []TourCard, st CatalogState) HomePage {
	p := HomePage{
		Page:          Page{Title: Brand, Active: "home"},
		CatalogState:  st,
		Slides:        HeroSlides,
		Stats:         HeroStats,
		Features:      Features,
		Testimonials:  Testimonials,
		Popular:       popular,
		SlideInterval: SlideInterval.Milliseconds(),
	}
	if st.Loading {
		p.Refresh = 2
	}
	return p
}
