// Package server exposes inference over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/siegeai/jsonstruct/sink"
)

const maxBodyBytes = 32 << 20

type Server struct {
	router   *mux.Router
	cache    *lru.Cache[string, []byte]
	registry *prometheus.Registry
	metrics  *metrics
	store    sink.Store
	logger   *slog.Logger
	maxBody  int64
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStore keeps a copy of every rendered artifact, keyed by a fresh run id
// that is reported in the X-Jsonstruct-Run header.
func WithStore(store sink.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMaxBodyBytes limits request bodies; larger ones get a 413.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

func New(cacheSize int, opts ...Option) (*Server, error) {
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		router:   mux.NewRouter(),
		cache:    cache,
		registry: reg,
		metrics:  newMetrics(reg),
		logger:   slog.Default(),
		maxBody:  maxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/v1/infer", s.handleInfer()).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth()).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.Use(s.logMiddleware)
}
