// Package app wires the querystorm components together and manages their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/querystorm/internal/assist"
	"github.com/dshills/querystorm/internal/config"
	"github.com/dshills/querystorm/internal/config/loader"
	"github.com/dshills/querystorm/internal/console"
	"github.com/dshills/querystorm/internal/event"
	"github.com/dshills/querystorm/internal/logging"
	"github.com/dshills/querystorm/internal/server"
	"github.com/dshills/querystorm/internal/store"
	"github.com/dshills/querystorm/internal/tui"
)

// Application is the central coordinator for all querystorm components.
type Application struct {
	mu sync.RWMutex

	// Core infrastructure
	config  *config.Config
	log     *logging.Logger
	bus     *event.Bus
	metrics *Metrics

	// Console components
	store     store.Store
	producers *assist.Set
	registry  *console.Registry
	server    *server.Server

	watcher *config.Watcher

	// State
	running atomic.Bool
	closed  atomic.Bool

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty means defaults
	// and environment only.
	ConfigPath string

	// Overrides are applied on top of every configuration source, keyed by
	// dot path ("server.addr"). Command-line flags end up here.
	Overrides map[string]any

	// Env replaces the QUERYSTORM_ environment loader.
	Env loader.Loader

	// LogOutput is where logs are written. Defaults to stderr.
	LogOutput io.Writer

	// Producers are registered after the configured ones.
	Producers []assist.Producer
}

// New creates a new Application with the given options.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := app.bootstrap(); err != nil {
		app.closeComponents()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Config
	cfg, err := config.Load(app.configOptions())
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.config = cfg

	// 2. Logging
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel()
	if app.opts.LogOutput != nil {
		logCfg.Output = app.opts.LogOutput
	}
	app.log = logging.New(logCfg)

	// 3. Event bus and metrics
	busLog := app.log.WithComponent("event")
	app.bus = event.NewBus(event.WithErrorHandler(func(ev event.Event, err error) {
		busLog.Warn("handler for %s failed: %v", ev.Topic, err)
	}))
	app.metrics = NewMetrics()
	if err := app.metrics.Subscribe(app.bus); err != nil {
		return &InitError{Component: "metrics", Err: err}
	}

	// 4. Store
	st, err := store.Open(context.Background(), cfg.Store)
	if err != nil {
		return &InitError{Component: "store", Err: err}
	}
	app.store = st
	app.log.Info("store backend %s", cfg.Store.Backend)

	// 5. Suggestion producers
	if err := app.loadProducers(); err != nil {
		return &InitError{Component: "assist", Err: err}
	}

	// 6. Console registry
	app.registry = console.NewRegistry(
		console.WithDebounce(cfg.Console.Debounce),
		console.WithMaxVersions(cfg.Console.MaxVersions),
		console.WithSeed(cfg.Console.SeedInitial),
		console.WithLogger(app.log.WithComponent("console")),
		console.WithBus(app.bus),
		console.WithPersister(app.store),
	)

	// 7. HTTP server
	app.server = server.New(server.Config{
		Registry:       app.registry,
		Loader:         app.store,
		Producers:      app.producers,
		Metrics:        app.metrics.Handler(),
		Logger:         app.log,
		RequestTimeout: cfg.AI.Timeout,
	})

	return nil
}

func (app *Application) configOptions() config.Options {
	return config.Options{
		Path:      app.opts.ConfigPath,
		Overrides: app.opts.Overrides,
		Env:       app.opts.Env,
	}
}

// loadProducers registers the configured LLM first so it becomes the
// default, then the Lua scripts, then any producers given in Options.
func (app *Application) loadProducers() error {
	ai := app.config.AI
	app.producers = assist.NewSet()

	if ai.Provider == config.ProviderOpenAI {
		llm, err := assist.NewOpenAI(ai.Model,
			assist.WithTimeout(ai.Timeout),
			assist.WithLLMLogger(app.log),
		)
		if err != nil {
			return fmt.Errorf("openai: %w", err)
		}
		app.producers.Register(llm)
	}

	if ai.ScriptsDir != "" {
		scripts, err := assist.LoadScripts(ai.ScriptsDir)
		if err != nil {
			return err
		}
		for _, s := range scripts {
			app.producers.Register(s)
		}
		app.log.Debug("loaded %d scripts from %s", len(scripts), ai.ScriptsDir)
	}

	for _, p := range app.opts.Producers {
		app.producers.Register(p)
	}
	return nil
}

// Config returns the active configuration.
func (app *Application) Config() *config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.config
}

// Logger returns the root logger.
func (app *Application) Logger() *logging.Logger { return app.log }

// Bus returns the event bus.
func (app *Application) Bus() *event.Bus { return app.bus }

// Metrics returns the metrics collectors.
func (app *Application) Metrics() *Metrics { return app.metrics }

// Registry returns the console registry.
func (app *Application) Registry() *console.Registry { return app.registry }

// Store returns the persistence backend.
func (app *Application) Store() store.Store { return app.store }

// Producers returns the suggestion producers.
func (app *Application) Producers() *assist.Set { return app.producers }

// Server returns the HTTP front end.
func (app *Application) Server() *server.Server { return app.server }

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully. The configuration file, if any, is watched while serving.
func (app *Application) Serve(ctx context.Context) error {
	if app.closed.Load() {
		return ErrClosed
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if err := app.startWatcher(); err != nil {
		app.log.Warn("config watch disabled: %v", err)
	}

	cfg := app.Config()
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start(cfg.Server.Addr)
	}()
	app.log.Info("listening on %s", cfg.Server.Addr)

	select {
	case err := <-errCh:
		if err != nil {
			return NewOperationError("serve", cfg.Server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrShutdownTimeout
		}
		return NewOperationError("shutdown", cfg.Server.Addr, err)
	}
	app.log.Info("server stopped")
	return <-errCh
}

// RunTUI edits console id in the terminal until the user quits or ctx is
// cancelled. Persisted content for id is loaded first. The screen is
// initialised here and finalised on return.
func (app *Application) RunTUI(ctx context.Context, id string, screen tcell.Screen) error {
	if app.closed.Load() {
		return ErrClosed
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	content, _, err := app.store.Load(ctx, id)
	if err != nil {
		return NewOperationError("load", id, err)
	}

	editor := tui.NewEditor(content)
	con, created, err := app.registry.Open(id, editor)
	if err != nil {
		return NewOperationError("open", id, err)
	}
	if !created {
		return NewOperationError("open", id, errors.New("console already open"))
	}
	defer func() {
		if err := app.registry.Close(id); err != nil {
			app.log.Debug("close console %s: %v", id, err)
		}
	}()

	if err := screen.Init(); err != nil {
		return &InitError{Component: "screen", Err: err}
	}
	defer screen.Fini()

	ui := tui.New(screen, tui.Config{
		Console:        con,
		Editor:         editor,
		Producers:      app.producers,
		ScriptProducer: app.scriptProducer(),
		LLMProducer:    app.llmProducer(),
		Logger:         app.log,
		Timeout:        app.Config().AI.Timeout,
	})
	return ui.Run(ctx)
}

// scriptProducer returns the first Lua script's name, if any.
func (app *Application) scriptProducer() string {
	for _, name := range app.producers.Names() {
		p, _ := app.producers.Get(name)
		if _, ok := p.(*assist.Script); ok {
			return name
		}
	}
	return ""
}

func (app *Application) llmProducer() string {
	for _, name := range app.producers.Names() {
		p, _ := app.producers.Get(name)
		if _, ok := p.(*assist.LLM); ok {
			return name
		}
	}
	return ""
}

// Close closes every console, stops the config watcher and closes the
// store. Calling Close more than once is safe.
func (app *Application) Close() error {
	if !app.closed.CompareAndSwap(false, true) {
		return nil
	}
	return app.closeComponents()
}

func (app *Application) closeComponents() error {
	var errs []error
	if app.registry != nil {
		app.registry.CloseAll()
	}
	app.mu.Lock()
	w := app.watcher
	app.watcher = nil
	app.mu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			errs = append(errs, NewOperationError("close", "config watcher", err))
		}
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			errs = append(errs, NewOperationError("close", "store", err))
		}
	}
	return errors.Join(errs...)
}
