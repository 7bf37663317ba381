package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/sales-dashboard/web/internal/metrics"
	"github.com/sales-dashboard/web/internal/storage/models"
	"github.com/sales-dashboard/web/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static holds the stylesheet and the chat script, rooted at the static dir.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

type ChatPanel struct {
	Provider  string
	Messages  []models.ChatMessage
	Error     string
	MaxLength int
}

type layoutData struct {
	Title   string
	Active  string
	Refresh int
	Page    any
	Chat    ChatPanel
}

type Renderer struct {
	analyze   *template.Template
	dashboard *template.Template
}

func New() (*Renderer, error) {
	analyze, err := parse("analyze.html")
	if err != nil {
		return nil, err
	}
	dashboard, err := parse("dashboard.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{analyze: analyze, dashboard: dashboard}, nil
}

func parse(page string) (*template.Template, error) {
	t, err := template.New(page).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", page, err)
	}
	return t, nil
}

// Analyze writes the Analyze screen. While a submission is in flight the page
// reloads itself every PollSeconds.
func (r *Renderer) Analyze(w io.Writer, page view.AnalyzePage) error {
	data := layoutData{Title: "Analyze", Active: "analyze", Page: page}
	if page.Loading {
		data.Refresh = page.PollSeconds
	}
	if err := execute(w, r.analyze, data); err != nil {
		return err
	}
	metrics.PagesRendered.WithLabelValues("analyze").Inc()
	return nil
}

func (r *Renderer) Dashboard(w io.Writer, page view.DashboardPage, chat ChatPanel) error {
	data := layoutData{Title: "Dashboard", Active: "dashboard", Page: page, Chat: chat}
	if page.Loading || page.Comments.Loading {
		data.Refresh = page.PollSeconds
	}
	if err := execute(w, r.dashboard, data); err != nil {
		return err
	}
	metrics.PagesRendered.WithLabelValues("dashboard").Inc()
	metrics.AlertsShown.Add(float64(len(page.Alerts)))
	return nil
}

// execute buffers the page; a failed render writes nothing.
func execute(w io.Writer, t *template.Template, data layoutData) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
