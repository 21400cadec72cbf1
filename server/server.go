// Package server exposes a running world over HTTP: a Connect control
// service for editing and inspecting logic entities, the metrics
// registry, and a language server for the logic language.
package server

import (
	"errors"
	"net"
	"net/http"

	"github.com/rcrowley/go-metrics"
	"github.com/rcrowley/go-metrics/exp"
	"github.com/tliron/commonlog"

	"github.com/chazu/logicproc/sim"
	"github.com/chazu/logicproc/store"
)

var log = commonlog.GetLogger("logicproc.server")

// MetricsPath serves the metrics registry as JSON.
const MetricsPath = "/debug/metrics"

// Server wraps a running world. All world access goes through one
// Worker.
type Server struct {
	worker *Worker
	mux    *http.ServeMux
	http   *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	store    *store.Store
	registry metrics.Registry
	tickRate float64
}

// WithStore enables Save and Restore against st.
func WithStore(st *store.Store) ServerOption {
	return func(c *serverConfig) { c.store = st }
}

// WithRegistry serves r at MetricsPath. It should be the registry the
// sim was built with.
func WithRegistry(r metrics.Registry) ServerOption {
	return func(c *serverConfig) { c.registry = r }
}

// WithTickRate advances the world hz ticks per second. Without it the
// world only moves on Tick requests.
func WithTickRate(hz float64) ServerOption {
	return func(c *serverConfig) { c.tickRate = hz }
}

// New creates a Server driving s.
func New(s *sim.Sim, opts ...ServerOption) *Server {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	srv := &Server{
		worker: NewWorker(s, cfg.tickRate),
		mux:    http.NewServeMux(),
	}
	srv.http = &http.Server{Handler: srv.mux}

	path, handler := NewControlServiceHandler(NewControlService(srv.worker, cfg.store))
	srv.mux.Handle(path, handler)
	if cfg.registry != nil {
		srv.mux.Handle(MetricsPath, exp.ExpHandler(cfg.registry))
	}
	return srv
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Worker returns the worker that owns the world.
func (s *Server) Worker() *Worker {
	return s.worker
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port". It returns
// nil after Stop.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Noticef("logicproc server listening on %s", addr)
	log.Noticef("  control: http://%s/%s/", addr, ControlServiceName)
	log.Noticef("  metrics: http://%s%s", addr, MetricsPath)
	err = s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts down the HTTP server and the worker.
func (s *Server) Stop() {
	s.http.Close()
	s.worker.Stop()
}
