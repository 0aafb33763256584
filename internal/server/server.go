package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/timemachinetv/timemachine/internal/docs"
	"github.com/timemachinetv/timemachine/internal/httputil"
	"github.com/timemachinetv/timemachine/internal/ratelimit"
	"github.com/timemachinetv/timemachine/internal/session"
	"github.com/timemachinetv/timemachine/internal/validate"
)

type Config struct {
	Sessions *session.Store
	BaseURL  string
	// MediaProbe means the server checks media itself; the page then only
	// plays the video and does not report load events.
	MediaProbe bool
	// SubmitLimiter guards submit; a default limiter is used when nil.
	SubmitLimiter *ratelimit.Limiter
	Now           func() time.Time
}

type Server struct {
	router     chi.Router
	sessions   *session.Store
	limiter    *ratelimit.Limiter
	mediaProbe bool
	now        func() time.Time
}

func New(cfg Config) *Server {
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewStore(session.StoreConfig{})
	}
	if cfg.SubmitLimiter == nil {
		cfg.SubmitLimiter = ratelimit.NewLimiter(1, 5)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:     cfg.BaseURL,
		MediaOrigin: originOf(cfg.Sessions.BaseURL()),
	}))

	s := &Server{
		router:     r,
		sessions:   cfg.Sessions,
		limiter:    cfg.SubmitLimiter,
		mediaProbe: cfg.MediaProbe,
		now:        cfg.Now,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/", s.handlePage)
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", s.handleLimits)
	s.router.Get("/api/preview", s.handlePreview)
	s.router.Get("/api/docs", docs.HandleDocs)
	s.router.Get("/api/docs/openapi.yaml", docs.HandleSpec)

	s.router.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.With(s.limiter.Middleware).Post("/submit", s.handleSubmit)
			r.Post("/media", s.handleMediaEvent)
			r.Post("/reset", s.handleReset)
			r.Get("/open", s.handleOpen)
			r.Get("/download", s.handleDownload)
			r.Get("/events", s.handleEvents)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
}
