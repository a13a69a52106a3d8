package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/campushub/ratings/internal/catalog"
	"github.com/campushub/ratings/internal/config"
	"github.com/campushub/ratings/internal/metrics"
	"github.com/campushub/ratings/internal/rating"
	"github.com/campushub/ratings/internal/store"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	store    *store.Store
	courses  rating.SubjectRatings
	notes    rating.SubjectRatings
	catalog  catalog.Client
	validate *validator.Validate
	logger   *log.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes. The store
// may be nil when the service runs on the in-memory backend; health checks
// then skip the database ping.
func New(cfg config.Config, st *store.Store, svc *rating.Service, cat catalog.Client, logger *log.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:      cfg,
		store:    st,
		courses:  svc.Courses(),
		notes:    svc.Notes(),
		catalog:  cat,
		validate: validator.New(),
		logger:   logger,
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())
	s.router.Get("/dimensions", s.handleListDimensions)

	s.router.Route("/courses/{subjectID}/reviews", func(r chi.Router) {
		r.Post("/", s.handleSubmit(s.courses))
		r.Get("/", s.handleAggregate(s.courses))
		r.Get("/me", s.handleMine(s.courses))
		r.Delete("/me", s.handleRemoveMine(s.courses))
		r.Delete("/{raterID}", s.handleModerationRemove(s.courses))
	})

	s.router.Route("/notes/{subjectID}", func(r chi.Router) {
		r.Post("/downloads", s.handleMarkProof(s.notes))
		r.Route("/ratings", func(r chi.Router) {
			r.Post("/", s.handleSubmit(s.notes))
			r.Get("/", s.handleAggregate(s.notes))
			r.Get("/me", s.handleMine(s.notes))
			r.Delete("/me", s.handleRemoveMine(s.notes))
			r.Get("/eligibility", s.handleEligibility(s.notes))
			r.Delete("/{raterID}", s.handleModerationRemove(s.notes))
		})
	})
}

// Start boots the HTTP server asynchronously.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.HealthCheck(ctx); err != nil {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
