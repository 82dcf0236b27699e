package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/tableloop/internal/cache"
	"github.com/torosent/tableloop/internal/looper"
	"github.com/torosent/tableloop/internal/metrics"
	"github.com/torosent/tableloop/internal/table"
	"github.com/torosent/tableloop/internal/tracing"
)

// Config holds server configuration options.
type Config struct {
	Addr           string
	BaseDir        string
	StreamInterval time.Duration
	Propagate      bool // continue traces from incoming W3C headers
	Logger         *slog.Logger
	Tracer         trace.Tracer
}

// Server hosts looper nodes over HTTP.
type Server struct {
	cfg       Config
	cache     *cache.Cache
	collector *metrics.Collector
	logger    *slog.Logger
	tracer    trace.Tracer

	// HTTP server
	server   *http.Server
	listener net.Listener

	mu      sync.RWMutex
	nodes   map[string]*nodeEntry
	started bool
}

// nodeEntry serializes access to one node; a node is not safe for
// concurrent use.
type nodeEntry struct {
	mu   sync.Mutex
	node *looper.Node
}

// New creates a server whose nodes share c. collector may be nil.
func New(cfg Config, c *cache.Cache, collector *metrics.Collector) (*Server, error) {
	if c == nil {
		return nil, errors.New("cache is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Server{
		cfg:       cfg,
		cache:     c,
		collector: collector,
		logger:    cfg.Logger,
		tracer:    cfg.Tracer,
		nodes:     make(map[string]*nodeEntry),
	}, nil
}

// Start listens on the configured address and serves until Stop is called
// or ctx ends.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("server listening", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started || s.server == nil {
		s.mu.Unlock()
		return nil
	}
	srv := s.server
	s.started = false
	s.mu.Unlock()

	// Handlers take the registry lock, so it is released before draining.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

// ListenAddr returns the address the server is listening on, or "" before
// Start.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /nodes", s.handleCreate)
	mux.HandleFunc("GET /nodes", s.handleList)
	mux.HandleFunc("DELETE /nodes/{id}", s.handleDelete)
	mux.HandleFunc("POST /nodes/{id}/tick", s.handleTick)
	mux.HandleFunc("POST /nodes/{id}/reset", s.handleReset)
	mux.HandleFunc("GET /nodes/{id}/ports", s.handlePorts)
	mux.HandleFunc("GET /nodes/{id}/stream", s.handleStream)
	mux.HandleFunc("GET /changed", s.handleChanged)
	mux.HandleFunc("GET /stats", s.handleStats)
	return mux
}

// CreateNode registers a new node and returns its id.
func (s *Server) CreateNode() string {
	node := looper.New(s.cache,
		looper.WithBaseDir(s.cfg.BaseDir),
		looper.WithLogger(s.logger),
		looper.WithTracer(s.tracer),
	)
	s.mu.Lock()
	s.nodes[node.ID()] = &nodeEntry{node: node}
	s.mu.Unlock()
	s.logger.Debug("node created", "node", node.ID())
	return node.ID()
}

func (s *Server) lookup(id string) (*nodeEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.nodes[id]
	return e, ok
}

// tick runs one Process call on the node and records it.
func (s *Server) tick(ctx context.Context, e *nodeEntry, p looper.Params) looper.Output {
	e.mu.Lock()
	out := e.node.Process(ctx, p)
	e.mu.Unlock()
	s.collector.RecordTick(out.TotalRows > 0, out.Complete)
	return out
}

func (s *Server) requestContext(r *http.Request) context.Context {
	if s.cfg.Propagate {
		return tracing.ExtractHTTPHeaders(r.Context(), r.Header)
	}
	return r.Context()
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{"id": s.CreateNode()})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string][]string{"nodes": ids})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	_, ok := s.nodes[id]
	delete(s.nodes, id)
	s.mu.Unlock()
	if !ok {
		http.Error(w, "node not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.Error(w, "node not found", http.StatusNotFound)
		return
	}
	var p looper.Params
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, fmt.Sprintf("invalid params: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.tick(s.requestContext(r), e, p))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.Error(w, "node not found", http.StatusNotFound)
		return
	}
	e.mu.Lock()
	e.node.Reset()
	e.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.Error(w, "node not found", http.StatusNotFound)
		return
	}
	e.mu.Lock()
	ports := e.node.Ports()
	e.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"ports": ports})
}

// handleChanged is the staleness probe. It never loads the table.
func (s *Server) handleChanged(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	resolved, err := looper.ResolvePath(s.cfg.BaseDir, path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := table.ParseFormat(r.URL.Query().Get("format")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mod := s.cache.ModTime(resolved)
	writeJSON(w, http.StatusOK, map[string]any{
		"path":      resolved,
		"changed":   mod.UTC().Format(time.RFC3339Nano),
		"unix_nano": mod.UnixNano(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	count := len(s.nodes)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes":  count,
		"cached": s.cache.Len(),
		"stats":  s.collector.Stats(s.collector.Elapsed()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
