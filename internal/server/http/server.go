// Package http implements the pubd admin HTTP server.
//
// The admin server is optional and separate from the pub/sub listener. It
// exposes liveness, broker statistics and Go runtime information, and
// optionally pprof.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/brianly1003/pubd/internal/broker"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// StatsProvider reports broker statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (broker.Stats, error)
}

// Server is the admin HTTP server.
type Server struct {
	addr   string
	stats  StatsProvider
	debug  *DebugHandler
	router *mux.Router
	server *http.Server
}

// New creates an admin server on addr. Routes are registered immediately so
// Handler can be used without starting a listener.
func New(addr string, stats StatsProvider, pprofEnabled bool) *Server {
	s := &Server{
		addr:   addr,
		stats:  stats,
		debug:  NewDebugHandler(pprofEnabled),
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	s.debug.Register(s.router)

	return s
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return requestLoggingMiddleware(s.router)
}

// Start binds addr and serves in the background. A bind failure is
// returned; later serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("admin server starting")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("admin server error")
		}
	}()

	return nil
}

// Addr returns the listening address. After Start it carries the real port.
func (s *Server) Addr() string {
	return s.addr
}

// Stop gracefully stops the admin server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("admin server stopping")
	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStats handles GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSONError(w, "broker not running", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	stats, err := s.stats.Stats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to collect broker stats")
		writeJSONError(w, "broker stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// requestLoggingMiddleware logs every request at debug level.
func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("admin request")
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
