// Package daemon wires the stores, scheduler, notification sinks and HTTP
// server into one long-running service.
package daemon

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/inventoryd/internal/config"
	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
	"git.home.luguber.info/inful/inventoryd/internal/journal"
	"git.home.luguber.info/inful/inventoryd/internal/logfields"
	"git.home.luguber.info/inful/inventoryd/internal/metrics"
	"git.home.luguber.info/inful/inventoryd/internal/notify"
	"git.home.luguber.info/inful/inventoryd/internal/reminder"
	"git.home.luguber.info/inful/inventoryd/internal/server"
	"git.home.luguber.info/inful/inventoryd/internal/settings"
	"git.home.luguber.info/inful/inventoryd/internal/store"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
)

const (
	shutdownTimeout = 10 * time.Second
	watcherDebounce = 2 * time.Second
	historyDebounce = time.Second
)

// Daemon owns every long-lived component.
type Daemon struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	status     atomic.Value

	history   *store.HistoryStore
	settings  *settings.Store
	journal   journal.Journal
	hub       *notify.Hub
	natsSink  *notify.NATSSink
	fanout    *notify.Fanout
	scheduler *reminder.Scheduler
	recorder  metrics.Recorder
	server    *server.Server

	configWatcher  *FileWatcher
	historyWatcher *FileWatcher
}

// New builds a daemon from config. configPath may be empty (no config file
// watching); logger nil defaults to slog.Default().
func New(cfg *config.Config, configPath string, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, ierr.DaemonError("configuration is required").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Daemon{cfg: cfg, configPath: configPath, logger: logger}
	d.status.Store(StatusStopped)

	history, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	d.history = history

	st, err := settings.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	d.settings = st

	if cfg.Journal.Enabled {
		jnl, err := journal.OpenSQLite(cfg.Journal.Path)
		if err != nil {
			return nil, ierr.WrapError(err, ierr.CategoryStorage, "failed to open journal").
				WithContext("path", cfg.Journal.Path).Build()
		}
		d.journal = jnl
	} else {
		d.journal = journal.Noop{}
	}

	d.hub = notify.NewHub()
	sinks := []notify.Sink{notify.NewSlogSink(logger), d.hub}
	if cfg.NATS.Enabled {
		natsSink, err := notify.NewNATSSink(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			// The sink reconnects on its own; a failed initial connect only
			// loses the channel, not the daemon.
			logger.Warn("NATS sink unavailable", logfields.Error(err))
		} else {
			d.natsSink = natsSink
			sinks = append(sinks, natsSink)
		}
	}
	d.fanout = notify.NewFanout(sinks...)

	d.recorder = metrics.NoopRecorder{}
	var srvOpts server.Options
	if cfg.Metrics.Enabled {
		registry := prom.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(registry)
		srvOpts.MetricsHandler = metrics.HTTPHandler(registry)
	}

	sched, err := reminder.New(d.fanout, d.settings, d.journal, d.recorder, nil)
	if err != nil {
		return nil, err
	}
	d.scheduler = sched

	srvOpts.Logger = logger
	d.server = server.New(cfg, d.history, d.settings, d.journal, d.scheduler, d.hub, d.recorder, srvOpts)

	return d, nil
}

// Run starts every component and blocks until ctx is canceled, then shuts
// down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	d.status.Store(StatusStarting)
	d.logger.Info("Starting daemon",
		slog.String("data_dir", d.cfg.Storage.DataDir),
		slog.String("addr", d.cfg.Server.Addr()))

	d.scheduler.Start(ctx)

	if err := d.initScheduler(ctx); err != nil {
		d.logger.Warn("Reminder scheduling degraded", logfields.Error(err))
	}

	if err := d.server.Start(ctx); err != nil {
		d.status.Store(StatusStopped)
		return err
	}

	d.startWatchers(ctx)
	d.recorder.SetHistoryDays(d.history.Len())

	d.status.Store(StatusRunning)
	d.logger.Info("Daemon running")

	<-ctx.Done()
	return d.shutdown()
}

// initScheduler walks the scheduler through initialization, permission and
// reminder restoration. Failures degrade the reminder feature, never the
// daemon.
func (d *Daemon) initScheduler(ctx context.Context) error {
	if _, err := d.scheduler.Initialize(ctx); err != nil {
		return err
	}
	if _, err := d.scheduler.RequestPermission(ctx); err != nil {
		return err
	}
	return d.scheduler.Restore(ctx)
}

func (d *Daemon) startWatchers(ctx context.Context) {
	historyWatcher, err := NewFileWatcher(d.history.Path(), historyDebounce, func() {
		d.history.Reload()
		d.recorder.SetHistoryDays(d.history.Len())
	})
	if err != nil {
		d.logger.Warn("History watcher unavailable", logfields.Error(err))
	} else if err := historyWatcher.Start(ctx); err != nil {
		d.logger.Warn("History watcher failed to start", logfields.Error(err))
	} else {
		d.historyWatcher = historyWatcher
	}

	if d.configPath == "" {
		return
	}
	configWatcher, err := NewFileWatcher(d.configPath, watcherDebounce, d.reloadConfig)
	if err != nil {
		d.logger.Warn("Config watcher unavailable", logfields.Error(err))
	} else if err := configWatcher.Start(ctx); err != nil {
		d.logger.Warn("Config watcher failed to start", logfields.Error(err))
	} else {
		d.configWatcher = configWatcher
	}
}

// reloadConfig re-reads the config file on change. Listen address and storage
// changes need a restart; the reload only validates and reports.
func (d *Daemon) reloadConfig() {
	newCfg, err := config.Load(d.configPath)
	if err != nil {
		d.logger.Error("Config reload failed", logfields.Error(err))
		return
	}

	if newCfg.Server.Addr() != d.cfg.Server.Addr() {
		d.logger.Warn("Listen address changed; restart required to apply",
			slog.String("new_addr", newCfg.Server.Addr()))
	}
	if newCfg.Storage.DataDir != d.cfg.Storage.DataDir {
		d.logger.Warn("Data directory changed; restart required to apply",
			slog.String("new_data_dir", newCfg.Storage.DataDir))
	}
	d.logger.Info("Configuration reloaded")
}

// Status returns the daemon lifecycle state.
func (d *Daemon) Status() Status {
	return d.status.Load().(Status)
}

func (d *Daemon) shutdown() error {
	d.status.Store(StatusStopping)
	d.logger.Info("Stopping daemon")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if d.configWatcher != nil {
		d.configWatcher.Stop()
	}
	if d.historyWatcher != nil {
		d.historyWatcher.Stop()
	}
	if err := d.server.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := d.scheduler.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if d.natsSink != nil {
		if err := d.natsSink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.journal.Close(); err != nil {
		errs = append(errs, err)
	}

	d.status.Store(StatusStopped)
	if len(errs) > 0 {
		return ierr.WrapError(errs[0], ierr.CategoryDaemon, "shutdown incomplete").Build()
	}
	d.logger.Info("Daemon stopped")
	return nil
}
