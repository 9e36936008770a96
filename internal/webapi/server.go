// Package webapi is the browser front end: a JSON API over the session store
// and the poster actions.
package webapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nanno-banana-ppdb/internal/poster"
	"nanno-banana-ppdb/internal/session"
)

// The browser keeps one key for the whole local install.
const credentialScope = ""

// KeyStore is the persisted API key the credential endpoints manage.
type KeyStore interface {
	APIKey(ctx context.Context, scope string) (string, error)
	SetAPIKey(ctx context.Context, scope, key string) error
	DeleteAPIKey(ctx context.Context, scope string) error
}

type Options struct {
	Sessions *session.Store
	Poster   *poster.Service
	Keys     KeyStore
	Logger   *slog.Logger
}

type Server struct {
	sessions *session.Store
	poster   *poster.Service
	keys     KeyStore
	logger   *slog.Logger
	router   chi.Router
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		sessions: opts.Sessions,
		poster:   opts.Poster,
		keys:     opts.Keys,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)

		r.Route("/credential", func(r chi.Router) {
			r.Get("/", s.handleGetCredential)
			r.Put("/", s.handlePutCredential)
			r.Delete("/", s.handleDeleteCredential)
		})

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/reset", s.handleReset)

			r.Put("/fields/{field}", s.handleSetField)
			r.Post("/tracks/toggle", s.handleToggleTrack)

			r.Post("/contacts", s.handleAddContact)
			r.Put("/contacts/{index}", s.handleUpdateContact)
			r.Delete("/contacts/{index}", s.handleRemoveContact)

			r.Post("/socials", s.handleAddSocial)
			r.Put("/socials/{index}", s.handleUpdateSocial)
			r.Delete("/socials/{index}", s.handleRemoveSocial)

			r.Get("/prompt", s.handlePrompt)
			r.Get("/envelope", s.handleEnvelope)
			r.Post("/image", s.handleImage)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
