// Package server provides the HTTP server of the formcheck application: the
// REST API, the live status WebSocket, the MJPEG preview and /metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/app"
	"github.com/ayusman/formcheck/internal/server/api"
)

const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	App       *app.App
	StaticDir string
	// Registry is served on /metrics when set.
	Registry  *prometheus.Registry
	StreamFPS int
}

// Server represents the HTTP server for the formcheck application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()

	m := config.App.Metrics()
	s.handler = chain(s.mux,
		PanicRecovery(m),
		LogRequest(),
		RequestMetrics(m),
		DrainAndCloseRequest(),
	)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	a := s.config.App

	s.mux.HandleFunc("/api/health", s.handleHealth)

	session := api.NewSessionHandler(a)
	s.mux.Handle("/api/session", session)
	s.mux.Handle("/api/session/", session)
	s.mux.Handle("/api/camera/", api.NewCameraHandler(a))

	movements := api.NewMovementHandler(a)
	s.mux.Handle("/api/movements", movements)
	s.mux.Handle("/api/movements/", movements)
	s.mux.Handle("/api/plugins", api.NewPluginHandler(a.PluginManager()))

	s.mux.Handle("/api/status", NewStatusHandler(a))
	s.mux.Handle("/api/stream", NewStreamHandler(a, s.config.StreamFPS))

	// History, cues and recordings need the store.
	if st := a.Store(); st != nil {
		sets := api.NewSetHandler(st)
		s.mux.Handle("/api/sets", sets)
		s.mux.Handle("/api/sets/", sets)

		cues := api.NewCueHandler(st, a.PluginManager())
		s.mux.Handle("/api/cues", cues)
		s.mux.Handle("/api/cues/", cues)

		recordings := api.NewRecordingHandler(st, a.Rules)
		s.mux.Handle("/api/recordings", recordings)
		s.mux.Handle("/api/recordings/", recordings)
	}

	if s.config.Registry != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.config.Registry, promhttp.HandlerOpts{}))
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := s.config.App.Status()
	response := map[string]interface{}{
		"status":    "ok",
		"uptime":    time.Since(s.start).Round(time.Second).String(),
		"camera":    st.Camera,
		"analyzing": st.Analyzing,
		"movement":  st.Movement,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx so MJPEG streams stop on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof(" > server listening on: [%s]", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Graceful shutdown timed out")
		httpServer.Close()
	}
	<-errCh
	return nil
}
