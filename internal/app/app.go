package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"warchief/server/internal/abilities"
	"warchief/server/internal/config"
	"warchief/server/internal/macro"
	servernet "warchief/server/internal/net"
	"warchief/server/internal/net/ws"
	"warchief/server/internal/sim"
	"warchief/server/internal/storage"
	"warchief/server/internal/storage/sqlite"
	"warchief/server/internal/storage/yamlfs"
	"warchief/server/internal/telemetry"
	"warchief/server/internal/world"
	"warchief/server/logging"
	loggingSinks "warchief/server/logging/sinks"
)

type Options struct {
	Config config.Config
	Logger telemetry.Logger
	// Stdout receives the console event sink. Nil means os.Stdout.
	Stdout io.Writer
}

// Runtime is the assembled server. Only the loop goroutine may touch Engine
// and World once Loop.Run has started.
type Runtime struct {
	Config   config.Config
	Logger   telemetry.Logger
	Router   *logging.Router
	Counters *telemetry.Counters
	Catalog  *abilities.Catalog
	World    *world.World
	Engine   *macro.Engine
	Loop     *sim.Loop
	Store    storage.Store
	Handler  http.Handler

	watcher *yamlfs.Watcher
	closers []func() error
}

// Build wires every component without starting goroutines other than the
// logging router and the optional file watcher.
func Build(opts Options) (rt *Runtime, err error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	rt = &Runtime{Config: cfg, Logger: logger, Counters: &telemetry.Counters{}}
	defer func() {
		if err != nil {
			rt.Close(context.Background())
			rt = nil
		}
	}()

	logCfg := cfg.Logging()
	sinks, err := rt.buildSinks(logCfg, stdout)
	if err != nil {
		return rt, err
	}
	rt.Router = logging.NewRouter(logging.SystemClock{}, logCfg, nil, sinks)

	rt.Catalog = abilities.DefaultCatalog()
	worldCfg := world.DefaultConfig()
	worldCfg.ManaRegenPerSecond = cfg.ManaRegenPerSecond
	rt.World = world.New(worldCfg)
	caster := abilities.NewCaster(rt.Catalog, rt.World, cfg.GlobalCooldown)
	rt.Engine = macro.NewEngine(macro.EngineConfig{Publisher: rt.Router})

	rt.Loop = sim.NewLoop(
		sim.Core{Engine: rt.Engine, World: rt.World, Cast: caster.Cast},
		cfg.Loop(),
		sim.Deps{Logger: logger, Metrics: rt.Counters, Publisher: rt.Router},
		sim.LoopHooks{
			AfterStep: func(result sim.LoopStepResult) {
				for _, rejected := range result.Rejected {
					logger.Printf("start rejected for %s: %v", rejected.Command.ActorID, rejected.Err)
				}
			},
			OnQueueWarning: func(length int) {
				logger.Printf("[backpressure] command queue length=%d", length)
			},
		},
	)

	backing, err := rt.openStore(cfg)
	if err != nil {
		return rt, err
	}
	rt.Store = storage.Guard(backing, rt.Catalog)

	roster := make(map[string]struct{})
	if cfg.SeedDemo {
		ids, err := seedDemo(rt.World, rt.Store)
		if err != nil {
			return rt, err
		}
		for _, id := range ids {
			roster[id] = struct{}{}
		}
	}

	wsHandler := ws.NewHandler(ws.HandlerConfig{
		Store: rt.Store,
		Loop:  rt.Loop,
		Characters: func(id string) bool {
			_, ok := roster[id]
			return ok
		},
		GCDSeconds: cfg.GlobalCooldown.Seconds(),
		Logger:     logger,
		Metrics:    rt.Counters,
	})
	rt.Handler = servernet.NewHTTPHandler(servernet.HTTPHandlerConfig{
		Runs:        rt.Loop,
		WS:          wsHandler,
		Counters:    rt.Counters,
		TickRate:    cfg.TickRate,
		Abilities:   rt.Catalog.IDs(),
		EnablePprof: cfg.EnablePprof,
	})

	if cfg.StoreDriver == config.StoreYAML && cfg.Watch {
		if err := rt.watch(cfg.StorePath); err != nil {
			return rt, err
		}
	}
	return rt, nil
}

func (rt *Runtime) buildSinks(cfg logging.Config, stdout io.Writer) ([]logging.NamedSink, error) {
	var sinks []logging.NamedSink
	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsole(stdout)})
	}
	if cfg.HasSink("memory") {
		sinks = append(sinks, logging.NamedSink{Name: "memory", Sink: loggingSinks.NewMemory()})
	}
	if cfg.HasSink("json") {
		path := cfg.JSON.FilePath
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open json log: %w", err)
		}
		rt.closers = append(rt.closers, file.Close)
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	return sinks, nil
}

func (rt *Runtime) openStore(cfg config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreYAML:
		store, err := yamlfs.Open(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		store, err := sqlite.Open(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, store.Close)
		return store, nil
	default:
		return storage.NewMemory(), nil
	}
}

// MemorySink returns the in-process event sink when it is enabled.
func (rt *Runtime) MemorySink() *loggingSinks.Memory {
	if rt == nil || rt.Router == nil {
		return nil
	}
	sink, _ := rt.Router.Sink("memory").(*loggingSinks.Memory)
	return sink
}

// Close stops the watcher, flushes the router and releases storage handles.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt == nil {
		return nil
	}
	var errs []error
	if rt.watcher != nil {
		errs = append(errs, rt.watcher.Close())
	}
	if rt.Router != nil {
		errs = append(errs, rt.Router.Close(ctx))
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// Run serves cfg until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	rt, err := Build(opts)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := rt.Close(closeCtx); cerr != nil {
			rt.Logger.Printf("failed to close runtime: %v", cerr)
		}
	}()
	return rt.Serve(ctx)
}

// Serve starts the simulation loop and the HTTP server and blocks until ctx
// is cancelled or the listener fails.
func (rt *Runtime) Serve(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		rt.Loop.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	srv := &http.Server{Addr: rt.Config.ListenAddr, Handler: rt.Handler}
	serveErr := make(chan error, 1)
	go func() {
		rt.Logger.Printf("server listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
