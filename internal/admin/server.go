package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/l1jgo/pooling/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CommandKind identifies an admin request the game loop must act on.
type CommandKind uint8

const (
	CommandReload CommandKind = iota + 1
	CommandSetPooling
)

func (k CommandKind) String() string {
	switch k {
	case CommandReload:
		return "reload"
	case CommandSetPooling:
		return "set_pooling"
	}
	return "unknown"
}

// Command is queued by HTTP handlers and drained by the game loop.
type Command struct {
	Kind    CommandKind
	Enabled bool // CommandSetPooling
}

// Server serves the admin API. Handlers run on net/http goroutines: they
// only read the board and push commands, never touch pools directly.
type Server struct {
	listener net.Listener
	http     *http.Server
	board    *metrics.Board
	commands chan Command
	log      *zap.Logger
}

func NewServer(bindAddr string, board *metrics.Board, prom *prometheus.Registry, queueSize int, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	s := newServer(board, queueSize, log)
	s.listener = ln
	s.http = &http.Server{
		Handler:           s.Router(prom),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func newServer(board *metrics.Board, queueSize int, log *zap.Logger) *Server {
	if queueSize <= 0 {
		queueSize = 32
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		board:    board,
		commands: make(chan Command, queueSize),
		log:      log,
	}
}

// Router builds the chi routes. prom may be nil (no /metrics).
func (s *Server) Router(prom *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Route("/pools", func(r chi.Router) {
		r.Get("/", s.listPools)
		r.Get("/{kind}", s.getPool)
	})
	r.Post("/reload", s.reload)
	r.Put("/pooling", s.setPooling)
	if prom != nil {
		r.Handle("/metrics", promhttp.HandlerFor(prom, promhttp.HandlerOpts{}))
	}
	return r
}

// Serve runs in its own goroutine until Shutdown.
func (s *Server) Serve() {
	s.log.Info("admin server listening", zap.String("addr", s.listener.Addr().String()))
	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("admin server stopped", zap.Error(err))
	}
}

// Commands returns the channel the game loop drains each tick.
func (s *Server) Commands() <-chan Command {
	return s.commands
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// enqueue never blocks an HTTP goroutine on the game loop.
func (s *Server) enqueue(cmd Command) bool {
	select {
	case s.commands <- cmd:
		return true
	default:
		s.log.Warn("admin command queue full, dropping", zap.Stringer("command", cmd.Kind))
		return false
	}
}
