package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/Clark-Hu/kmdb-api/internal/config"
	"github.com/Clark-Hu/kmdb-api/internal/logging"
	"github.com/Clark-Hu/kmdb-api/internal/service"
	"github.com/Clark-Hu/kmdb-api/internal/store"
)

type healthResponse struct {
	Status   string       `json:"status"`
	Database store.Health `json:"database"`
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	store    *store.Store
	services *service.Services
	logger   hclog.Logger
	limiter  *clientLimiter
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, services *service.Services, logger hclog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// X-Forwarded-For is client-controlled unless a proxy sets it.
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  logging.Std(logger),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	s := &Server{
		cfg:      cfg,
		store:    st,
		services: services,
		logger:   logger,
		limiter:  newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		router:   r,
	}
	if s.limiter != nil {
		r.Use(s.rateLimit)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondErrors(w, http.StatusNotFound, "Resource not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondErrors(w, http.StatusMethodNotAllowed, "Method "+r.Method+" is not supported for this resource")
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/movies", func(r chi.Router) {
			r.Get("/", s.handleListMovies)
			r.Get("/search", s.handleSearchMovies)
			r.With(s.requireBearer).Post("/", s.handleCreateMovie)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetMovie)
				r.Get("/actors", s.handleMovieActors)
				r.Get("/genres", s.handleMovieGenres)
				r.Group(func(r chi.Router) {
					r.Use(s.requireBearer)
					r.Patch("/", s.handleUpdateMovie)
					r.Delete("/", s.handleDeleteMovie)
					r.Put("/actors/{actorId}", s.handleAssignActor)
					r.Delete("/actors/{actorId}", s.handleRemoveActor)
					r.Put("/genres/{genreId}", s.handleAssignGenre)
					r.Delete("/genres/{genreId}", s.handleRemoveGenre)
				})
			})
		})

		r.Route("/actors", func(r chi.Router) {
			r.Get("/", s.handleListActors)
			r.Get("/search", s.handleSearchActors)
			r.With(s.requireBearer).Post("/", s.handleCreateActor)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetActor)
				r.Get("/movies", s.handleActorMovies)
				r.With(s.requireBearer).Patch("/", s.handleUpdateActor)
				r.With(s.requireBearer).Delete("/", s.handleDeleteActor)
			})
		})

		r.Route("/genres", func(r chi.Router) {
			r.Get("/", s.handleListGenres)
			r.Get("/search", s.handleSearchGenres)
			r.With(s.requireBearer).Post("/", s.handleCreateGenre)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetGenre)
				r.Get("/movies", s.handleGenreMovies)
				r.With(s.requireBearer).Patch("/", s.handleUpdateGenre)
				r.With(s.requireBearer).Delete("/", s.handleDeleteGenre)
			})
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
		ErrorLog:     logging.Std(s.logger),
	}

	if s.limiter != nil {
		go s.limiter.sweep(ctx, time.Minute, 3*time.Minute)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.httpSrv.Addr)
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
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	db, err := s.store.Health(ctx)
	if err != nil {
		s.logger.Warn("health check failed", "error", err)
		s.respondErrors(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: db})
}
