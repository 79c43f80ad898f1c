package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// requestTimeout leaves room for the render wait on a cold catalog.
const requestTimeout = 15 * time.Second

type Server struct{ mux *chi.Mux }

// New builds the router. trustProxy lets X-Forwarded-For / X-Real-IP name the
// client; only enable it behind a proxy that overwrites those headers.
func New(trustProxy bool) *Server {
	m := chi.NewRouter()

	// middlewares must be registered before any route
	if trustProxy {
		m.Use(chimw.RealIP)
	}
	m.Use(ClientKey(trustProxy))
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(requestTimeout))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
