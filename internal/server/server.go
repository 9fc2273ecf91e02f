package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-csvmap/internal/api"
	"github.com/joeblew999/plat-csvmap/internal/api/viewer"
	"github.com/joeblew999/plat-csvmap/internal/basemap"
	"github.com/joeblew999/plat-csvmap/internal/logger"
	"github.com/joeblew999/plat-csvmap/internal/templates"
	"github.com/joeblew999/plat-csvmap/internal/tiles"
	"github.com/joeblew999/plat-csvmap/internal/view"
)

// Version is reported by /health and /api/v1/info.
const Version = "1.0.0"

// Defaults applied by New to zero Config fields.
const (
	DefaultSessionTTL  = time.Hour
	DefaultMaxSessions = 256
	DefaultMaxUpload   = 64 << 20
)

// Config holds the server configuration.
type Config struct {
	Host        string
	Port        string
	Registry    *basemap.Registry // nil uses the compiled-in table
	SessionTTL  time.Duration
	MaxSessions int
	MaxUpload   int64
	Renderer    *templates.Renderer // nil uses the compiled-in templates
	TileClient  *http.Client
	Logger      *slog.Logger
}

// Server is the csvmap HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	services *api.Services
	renderer *templates.Renderer
	log      *slog.Logger
}

// New creates a new csvmap server.
func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		cfg.Registry = basemap.Builtin()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = DefaultMaxUpload
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	renderer := cfg.Renderer
	if renderer == nil {
		r, err := templates.Embedded()
		if err != nil {
			return nil, fmt.Errorf("server: parse templates: %w", err)
		}
		renderer = r
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-csvmap API", Version)
	humaConfig.Info.Description = "Local CSV point map viewer: basemap registry, session view state and raster tile gateway."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	services := &api.Services{
		Registry: cfg.Registry,
		Sessions: view.NewSessions(cfg.Registry, cfg.MaxSessions, cfg.SessionTTL, cfg.Logger),
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		services: services,
		renderer: renderer,
		log:      cfg.Logger,
	}
	s.routes()
	s.handler = logger.AccessMiddleware(cfg.Logger)(mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI { return s.humaAPI.OpenAPI() }

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(Version, s.services.Sessions.Len).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.services).RegisterRoutes(s.humaAPI)

	// Control panel SSE routes using Huma + Datastar SDK
	viewer.NewHandler(s.services, s.renderer, s.log, s.config.MaxUpload).RegisterRoutes(s.humaAPI)

	// Raster tile gateway
	gw := tiles.NewGateway(s.config.Registry, s.config.TileClient, s.log)
	s.mux.Handle(tiles.Pattern, gw)
	s.mux.Handle(tiles.PreflightPattern, gw)

	// Page routes
	s.mux.HandleFunc("GET /{$}", s.handleViewer)
}

// handleViewer opens a fresh session and renders the page for it. Every
// page load starts from the initial state.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	sess := s.services.Sessions.Open()
	http.SetCookie(w, &http.Cookie{
		Name:     api.SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	page := templates.NewViewerPage("plat-csvmap", view.ComposePanel(s.config.Registry, sess.State()))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.renderer.Viewer(w, page); err != nil {
		s.log.Error("render viewer", "error", err)
	}
}
