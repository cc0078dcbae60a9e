// Package web serves the dashboard as server-rendered HTML. Each browser
// gets a session cookie mapped to its own dashboard.Controller.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/dashboard"
	"github.com/joseph-ayodele/ocr-dashboard/internal/editform"
	"github.com/joseph-ayodele/ocr-dashboard/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options tune the HTTP surface.
type Options struct {
	SessionCookie        string
	MaxUploadBytes       int64
	MaxConcurrentUploads int64
	RateLimitEvery       time.Duration
	RateLimitBurst       int
}

// OptionsFromConfig maps the server section of the config.
func OptionsFromConfig(cfg common.ServerConfig) Options {
	return Options{
		SessionCookie:        cfg.SessionCookie,
		MaxUploadBytes:       cfg.MaxUploadBytes,
		MaxConcurrentUploads: cfg.MaxConcurrentUploads,
		RateLimitEvery:       cfg.RateLimitEvery,
		RateLimitBurst:       cfg.RateLimitBurst,
	}
}

func (o Options) withDefaults() Options {
	if o.SessionCookie == "" {
		o.SessionCookie = "ocrdash_session"
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 32 << 20
	}
	if o.MaxConcurrentUploads <= 0 {
		o.MaxConcurrentUploads = 8
	}
	if o.RateLimitEvery <= 0 {
		o.RateLimitEvery = 600 * time.Millisecond // ~100/min
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = 20
	}
	return o
}

// Server holds the dashboard routes and their shared state.
type Server struct {
	opts     Options
	sessions *Registry
	pages    *template.Template
	logger   *slog.Logger

	uploadSem *semaphore.Weighted
	limiters  *sync.Map
}

// NewServer parses the page templates and prepares the session registry.
func NewServer(opts Options, deps dashboard.Deps, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	deps.Logger = logger
	opts = opts.withDefaults()

	pages := template.New("web").Funcs(template.FuncMap{
		// preview data URLs are built by the preview package, never from input
		"dataurl":   func(s string) template.URL { return template.URL(s) },
		"slotLabel": slotLabel,
	})
	pages, err := render.AddPartials(pages)
	if err != nil {
		return nil, fmt.Errorf("parse partials: %w", err)
	}
	pages, err = pages.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse pages: %w", err)
	}

	return &Server{
		opts:      opts,
		sessions:  NewRegistry(opts.SessionCookie, deps, logger),
		pages:     pages,
		logger:    logger,
		uploadSem: semaphore.NewWeighted(opts.MaxConcurrentUploads),
		limiters:  &sync.Map{},
	}, nil
}

// Sessions exposes the registry, mainly for health reporting.
func (s *Server) Sessions() *Registry { return s.sessions }

// Handler returns the routed, wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.withRateLimit(s.handleIndex))
	mux.HandleFunc("POST /mode", s.withRateLimit(s.handleMode))
	mux.HandleFunc("POST /preview", s.withRateLimit(s.handlePreview))
	mux.HandleFunc("POST /upload", s.withRateLimit(s.withUploadLimit(s.handleUpload)))
	mux.HandleFunc("GET /edit", s.withRateLimit(s.handleEditForm))
	mux.HandleFunc("POST /edit", s.withRateLimit(s.handleSaveEdits))
	mux.HandleFunc("GET /export/{format}", s.withRateLimit(s.handleExport))
	mux.HandleFunc("GET /history", s.withRateLimit(s.handleHistory))
	mux.HandleFunc("POST /records/{id}/load", s.withRateLimit(s.handleLoadRecord))

	return s.withRequestContext(s.withLogging(s.withRecovery(mux)))
}

// page is the data for the dashboard template.
type page struct {
	View    dashboard.View
	Modes   []constants.Mode
	Formats []constants.ExportFormat
	Alerts  []dashboard.Notice
	Form    *editform.Form
}

func slotLabel(slot string) string {
	switch slot {
	case constants.SlotFront:
		return "Front image"
	case constants.SlotBack:
		return "Back image"
	}
	return "Document"
}
