package app

import (
	"context"

	"github.com/dshills/querystorm/internal/config"
	"github.com/dshills/querystorm/internal/event"
)

// ReloadPayload is published on event.TopicConfigReloaded.
type ReloadPayload struct {
	Path        string `json:"path"`
	LogLevel    string `json:"log_level"`
	MaxVersions int    `json:"max_versions"`
	Debounce    string `json:"debounce"`
}

// startWatcher watches the configuration file, if one was given.
func (app *Application) startWatcher() error {
	if app.opts.ConfigPath == "" {
		return nil
	}
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.watcher != nil {
		return nil
	}
	w, err := config.Watch(app.configOptions(), config.DefaultReloadDelay, app.applyConfig)
	if err != nil {
		return NewOperationError("watch", app.opts.ConfigPath, err)
	}
	app.watcher = w
	return nil
}

// applyConfig takes over the settings that can change at runtime: the log
// level, the debounce interval and the version cap. Store, server and
// producer settings need a restart.
func (app *Application) applyConfig(cfg *config.Config, err error) {
	if err != nil {
		app.log.Warn("config reload failed, keeping current settings: %v", err)
		return
	}

	app.mu.Lock()
	prev := app.config
	app.config = cfg
	app.mu.Unlock()

	app.log.SetLevel(cfg.LogLevel())
	app.registry.SetDebounce(cfg.Console.Debounce)
	app.registry.SetMaxVersions(cfg.Console.MaxVersions)

	if prev.Store != cfg.Store || prev.Server != cfg.Server || prev.AI != cfg.AI {
		app.log.Warn("store, server and ai settings take effect after restart")
	}
	app.log.Info("config reloaded from %s", app.opts.ConfigPath)

	app.bus.Emit(context.Background(), event.TopicConfigReloaded, ReloadPayload{
		Path:        app.opts.ConfigPath,
		LogLevel:    cfg.Logging.Level,
		MaxVersions: cfg.Console.MaxVersions,
		Debounce:    cfg.Console.Debounce.String(),
	}, "app")
}
