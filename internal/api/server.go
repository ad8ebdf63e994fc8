// Package api assembles the HTTP surface: dashboard reads, Pub/Sub push
// endpoints, the manual-finish proxy, health and Prometheus metrics.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/sortboard/internal/api/handler"
)

type Server struct {
	router *chi.Mux
	logger *zap.Logger

	dashHandler    *handler.DashboardHandler
	actionsHandler *handler.ActionsHandler
	mfHandler      *handler.ManualFinishHandler // nil when upstream is disabled
	metricsHandler http.Handler
}

func NewServer(
	logger *zap.Logger,
	dashH *handler.DashboardHandler,
	actionsH *handler.ActionsHandler,
	mfH *handler.ManualFinishHandler,
	metricsH http.Handler,
) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger.Named("api"),
		dashHandler:    dashH,
		actionsHandler: actionsH,
		mfHandler:      mfH,
		metricsHandler: metricsH,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}

	// Read path polled by the front-end, plus the belt analyser's
	// history line.
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", s.dashHandler.List)
		r.Get("/{key}", s.dashHandler.Get)
		r.Put("/{key}/history", s.dashHandler.SetHistory)
	})

	// Pub/Sub push ingestion.
	r.Route("/actions/pubsub", func(r chi.Router) {
		r.Post("/jobs-action", s.actionsHandler.JobsAction)
		r.Post("/geek-putaway", s.actionsHandler.GeekPutaway)
		r.Post("/pick-order", s.actionsHandler.PickOrder)
	})

	if s.mfHandler != nil {
		r.Get("/manual-finish", s.mfHandler.Get)
	}
}

// ServeHTTP lets Server act as a standard http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
