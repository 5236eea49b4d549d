package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/loadkit/internal/catalog"
	"git.home.luguber.info/inful/loadkit/internal/config"
	"git.home.luguber.info/inful/loadkit/internal/statestore"
)

// ConfigWatcher monitors the configuration file and bumps the config
// revision in the app state on every successful reload. Fields that feed
// already-constructed components (database path, metrics address) need a
// restart; the watcher only logs those.
type ConfigWatcher struct {
	configPath   string
	app          *statestore.Store[catalog.State]
	onReload     func(*config.Config)
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
}

// NewConfigWatcher creates a watcher for the config file at configPath.
func NewConfigWatcher(configPath string, app *statestore.Store[catalog.State], onReload func(*config.Config)) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	return &ConfigWatcher{
		configPath:   absPath,
		app:          app,
		onReload:     onReload,
		watcher:      watcher,
		debounceTime: 2 * time.Second,
	}, nil
}

// Start begins monitoring. Watching the directory is more reliable than
// watching the file itself across editors that replace-on-save.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	if err := cw.watcher.Add(filepath.Dir(cw.configPath)); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}

	slog.Info("Starting configuration watcher", "config_path", cw.configPath)
	go cw.watchLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (cw *ConfigWatcher) Stop() error {
	return cw.watcher.Close()
}

func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.configPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(cw.debounceTime, cw.reload)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Config watcher error", "error", err)
		}
	}
}

func (cw *ConfigWatcher) reload() {
	cfg, err := config.Load(cw.configPath)
	if err != nil {
		slog.Warn("Config reload failed, keeping previous configuration", "error", err)
		return
	}

	cw.app.Update(func(s catalog.State) catalog.State {
		s.ConfigRevision++
		return s
	})
	if cw.onReload != nil {
		cw.onReload(cfg)
	}
	slog.Info("Configuration reloaded",
		"revision", statestore.Get(cw.app, catalog.LensConfigRevision))
}
