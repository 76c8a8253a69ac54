package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/katharostech/lucky/internal/hook"
)

// Server exposes the daemon over its unit unix socket as a small HTTP API.
// The CLI front-end is the only client.
type Server struct {
	router chi.Router
	logger zerolog.Logger
	daemon *Daemon
}

// NewServer creates a new Server.
func NewServer(logger zerolog.Logger, daemon *Daemon) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger.With().Str("component", "daemon-server").Logger(),
		daemon: daemon,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Get("/hooks", s.handleListHooks)
	s.router.Post("/hooks/{name}/trigger", s.handleTriggerHook)

	s.router.Get("/status", s.handleUnitStatus)
	s.router.Put("/status/{scriptID}", s.handleSetScriptStatus)

	s.router.Post("/stop", s.handleStop)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListHooks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"hooks": s.daemon.Hooks()})
}

func (s *Server) handleTriggerHook(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing hook name")
		return
	}

	result, err := s.daemon.TriggerHook(r.Context(), name)
	if err != nil {
		if errors.Is(err, hook.ErrUnknownHook) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		var execErr *hook.ExecutionError
		if errors.As(err, &execErr) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":  execErr.Error(),
				"output": execErr.Output,
			})
			return
		}

		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUnitStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.daemon.UnitStatus())
}

func (s *Server) handleSetScriptStatus(w http.ResponseWriter, r *http.Request) {
	scriptID := chi.URLParam(r, "scriptID")
	if scriptID == "" {
		writeError(w, http.StatusBadRequest, "missing script ID")
		return
	}

	var status hook.Status
	if err := decodeJSON(r, &status); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.daemon.SetScriptStatus(r.Context(), scriptID, status); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	// Reply before the listener goes away so the client sees a clean response.
	w.WriteHeader(http.StatusAccepted)
	s.daemon.RequestStop()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves the API on the listener until ctx is cancelled or a stop is
// requested, then shuts down gracefully and releases the liveness markers.
func (s *Server) Run(ctx context.Context, l *Listener) error {
	defer l.Close()

	httpServer := &http.Server{Handler: s.router}

	s.logger.Info().Str("socket", l.SocketPath()).Msg("daemon listening")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.daemon.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info().Msg("shutting down daemon")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
