// Package server exposes the daily inventory over HTTP: entry reads and
// writes, export/import, reminder management, an SSE event stream, and the
// operational endpoints (health, status, metrics, help).
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/inventoryd/internal/config"
	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
	"git.home.luguber.info/inful/inventoryd/internal/journal"
	"git.home.luguber.info/inful/inventoryd/internal/metrics"
	"git.home.luguber.info/inful/inventoryd/internal/notify"
	"git.home.luguber.info/inful/inventoryd/internal/reminder"
	"git.home.luguber.info/inful/inventoryd/internal/settings"
	"git.home.luguber.info/inful/inventoryd/internal/store"
	"git.home.luguber.info/inful/inventoryd/internal/version"
)

// Options carries optional server collaborators.
type Options struct {
	// MetricsHandler, when set, is mounted on the configured metrics path.
	MetricsHandler http.Handler
	// Clock defaults to the real clock; injected for tests.
	Clock clockwork.Clock
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server wires the stores and scheduler to HTTP handlers.
type Server struct {
	cfg       *config.Config
	history   *store.HistoryStore
	settings  *settings.Store
	journal   journal.Journal
	scheduler *reminder.Scheduler
	hub       *notify.Hub
	recorder  metrics.Recorder

	clock          clockwork.Clock
	logger         *slog.Logger
	adapter        *ierr.HTTPErrorAdapter
	metricsHandler http.Handler

	httpServer *http.Server
	handler    http.Handler
	startTime  time.Time
}

// New constructs the server. journal and recorder may be nil.
func New(cfg *config.Config, history *store.HistoryStore, st *settings.Store,
	jnl journal.Journal, sched *reminder.Scheduler, hub *notify.Hub,
	rec metrics.Recorder, opts Options) *Server {

	if jnl == nil {
		jnl = journal.Noop{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		cfg:            cfg,
		history:        history,
		settings:       st,
		journal:        jnl,
		scheduler:      sched,
		hub:            hub,
		recorder:       rec,
		clock:          opts.Clock,
		logger:         opts.Logger,
		adapter:        ierr.NewHTTPErrorAdapter(opts.Logger),
		metricsHandler: opts.MetricsHandler,
		startTime:      opts.Clock.Now(),
	}

	chain := Chain(s.logger, s.adapter, s.recorder)
	s.handler = chain(s.routes())

	s.httpServer = &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: s.handler,
		// No global write timeout: /api/events streams indefinitely.
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the full middleware-wrapped handler (used by tests).
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /help", s.handleHelp)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/journal", s.handleJournal)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	mux.HandleFunc("GET /api/entries", s.handleListEntries)
	mux.HandleFunc("GET /api/entries/{date}", s.handleGetEntry)
	mux.HandleFunc("GET /api/entries/{date}/summary", s.handleGetEntrySummary)
	mux.HandleFunc("PUT /api/entries/{date}/answers/{row}", s.handlePutAnswer)
	mux.HandleFunc("DELETE /api/entries", s.handleResetEntries)
	mux.HandleFunc("GET /api/summary/average", s.handleAverageSummary)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	mux.HandleFunc("GET /api/reminder", s.handleGetReminder)
	mux.HandleFunc("PUT /api/reminder", s.handlePutReminder)
	mux.HandleFunc("DELETE /api/reminder", s.handleDeleteReminder)
	mux.HandleFunc("POST /api/reminder/test", s.handleTestReminder)
	mux.HandleFunc("POST /api/reminder/permission", s.handleRequestPermission)

	if s.metricsHandler != nil {
		mux.Handle("GET "+s.cfg.Metrics.Path, s.metricsHandler)
	}

	return mux
}

// Start binds the listener up front so address conflicts surface immediately,
// then serves in the background.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Addr())
	if err != nil {
		return ierr.WrapError(err, ierr.CategoryDaemon, "failed to bind listen address").
			WithContext("addr", s.cfg.Server.Addr()).Build()
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.logger.Info("HTTP server started",
		slog.String("addr", s.cfg.Server.Addr()),
		slog.String("version", version.Version))
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return ierr.WrapError(err, ierr.CategoryDaemon, "http server shutdown").Build()
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
