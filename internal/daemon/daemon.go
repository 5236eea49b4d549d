// Package daemon runs the background catalog-sync service: periodic
// refresh, config hot-reload, metrics, and optional NATS state events.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/loadkit/internal/catalog"
	"git.home.luguber.info/inful/loadkit/internal/config"
	"git.home.luguber.info/inful/loadkit/internal/fetch"
	"git.home.luguber.info/inful/loadkit/internal/lazyseq"
	"git.home.luguber.info/inful/loadkit/internal/loadable"
	"git.home.luguber.info/inful/loadkit/internal/notify"
	"git.home.luguber.info/inful/loadkit/internal/observability"
	"git.home.luguber.info/inful/loadkit/internal/persist"
	"git.home.luguber.info/inful/loadkit/internal/statestore"
	"git.home.luguber.info/inful/loadkit/internal/transport"
)

// Daemon owns the long-lived wiring: the app state store, the persistence
// and transport collaborators, the interactors, and the list subject the
// refresh job drives.
type Daemon struct {
	cfg         *config.Config
	configPath  string
	app         *statestore.Store[catalog.State]
	store       *persist.Store
	interactors *catalog.Interactors
	listSubject *loadable.Subject[*lazyseq.Sequence[catalog.Country]]
	scheduler   *Scheduler
	watcher     *ConfigWatcher
	metrics     *observability.Metrics
	publisher   *notify.Publisher
	httpSrv     *http.Server
}

// New builds the daemon from configuration.
func New(cfg *config.Config, configPath string) (*Daemon, error) {
	store, err := persist.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	metrics := observability.NewMetrics()
	app := statestore.New(catalog.State{})
	floor, _ := time.ParseDuration(cfg.Loading.MinimumFloor)
	orch := fetch.New(floor, metrics)
	client := transport.New(cfg.API)
	interactors := catalog.NewInteractors(orch, store, client, app)

	scheduler, err := NewScheduler()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	d := &Daemon{
		cfg:         cfg,
		configPath:  configPath,
		app:         app,
		store:       store,
		interactors: interactors,
		listSubject: catalog.NewListSubject(),
		scheduler:   scheduler,
		metrics:     metrics,
	}

	if cfg.NATS.Enabled {
		publisher, err := notify.NewPublisher(cfg.NATS)
		if err != nil {
			slog.Warn("NATS publisher unavailable, state events disabled", "error", err)
		} else {
			d.publisher = publisher
		}
	}

	return d, nil
}

// Run starts all daemon components and blocks until ctx is cancelled,
// then shuts everything down.
func (d *Daemon) Run(ctx context.Context) error {
	watchCh, stopWatch := d.listSubject.Watch()
	go d.forwardStateEvents(watchCh)
	defer stopWatch()

	interval, _ := time.ParseDuration(d.cfg.Daemon.RefreshInterval)
	if _, err := d.scheduler.ScheduleRefresh(interval, func() {
		d.refresh(ctx)
	}); err != nil {
		return err
	}
	d.scheduler.Start()
	defer func() {
		if err := d.scheduler.Stop(); err != nil {
			slog.Warn("Scheduler shutdown failed", "error", err)
		}
	}()

	watcher, err := NewConfigWatcher(d.configPath, d.app, nil)
	if err != nil {
		slog.Warn("Config watcher unavailable", "error", err)
	} else {
		d.watcher = watcher
		if err := watcher.Start(ctx); err != nil {
			slog.Warn("Config watcher failed to start", "error", err)
		}
		defer func() { _ = watcher.Stop() }()
	}

	d.startMetricsServer()
	defer d.stopMetricsServer()

	if d.publisher != nil {
		defer d.publisher.Close()
	}

	// Initial sync so the catalog is available right after startup.
	d.refresh(ctx)

	slog.Info("Daemon running",
		"refresh_interval", d.cfg.Daemon.RefreshInterval,
		"metrics_addr", d.cfg.Daemon.MetricsAddr)
	<-ctx.Done()
	slog.Info("Daemon shutting down")
	return d.store.Close()
}

// refresh forces a catalog refetch and logs the outcome.
func (d *Daemon) refresh(ctx context.Context) {
	result := d.interactors.LoadCountries(ctx, d.listSubject, true)
	if err := result.Err(); err != nil {
		slog.Warn("Catalog refresh failed", "error", err)
		return
	}
	if seq, ok := result.Value().Get(); ok {
		slog.Info("Catalog refreshed", "countries", seq.Len())
	}
}

// forwardStateEvents bridges subject transitions onto NATS.
func (d *Daemon) forwardStateEvents(ch <-chan loadable.Loadable[*lazyseq.Sequence[catalog.Country]]) {
	for state := range ch {
		if d.publisher == nil {
			continue
		}
		var event notify.Event
		switch state.State() {
		case loadable.StateLoaded:
			event = notify.Event{Type: "catalog.refreshed", Entity: "countries"}
		case loadable.StateFailed:
			event = notify.Event{Type: "load.failed", Entity: "countries", Detail: state.Err().Error()}
		default:
			continue
		}
		if err := d.publisher.Publish(event); err != nil {
			slog.Warn("State event publish failed", "error", err)
		}
	}
}

func (d *Daemon) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	d.httpSrv = &http.Server{
		Addr:              d.cfg.Daemon.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := d.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("Metrics server stopped", "error", err)
		}
	}()
}

func (d *Daemon) stopMetricsServer() {
	if d.httpSrv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = d.httpSrv.Shutdown(shutdownCtx)
}
