package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/walletbridge/internal/config"
	"github.com/vk/walletbridge/internal/correlator"
	"github.com/vk/walletbridge/internal/ctxlog"
	"github.com/vk/walletbridge/internal/events"
	"github.com/vk/walletbridge/internal/host"
	"github.com/vk/walletbridge/internal/registry"
	"github.com/vk/walletbridge/internal/wallet"
	"github.com/vk/walletbridge/internal/wallet/simulator"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	ctx        context.Context
	logger     *slog.Logger
	config     *config.Model
	correlator *correlator.Store
	dispatcher *events.Dispatcher
	host       *host.Context
	pkg        host.Package
	registry   *registry.Registry

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
	ready      chan struct{}
	readyOnce  sync.Once
	closeOnce  sync.Once
}

// Option customizes NewApp.
type Option func(*options)

type options struct {
	sdk wallet.SDK
	pkg host.Package
}

// WithWallet replaces the simulator with another SDK implementation.
func WithWallet(sdk wallet.SDK) Option {
	return func(o *options) { o.sdk = sdk }
}

// WithPackage replaces the built-in module list.
func WithPackage(pkg host.Package) Option {
	return func(o *options) { o.pkg = pkg }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own logger, correlator and registry.
// Configuration and registry validation failures are startup errors and
// panic; the entrypoint recovers them into an exit code.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) *App {
	if appConfig == nil {
		appConfig = &Config{}
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	// Bootstrap logger for loading; replaced once the file is read.
	bootLogger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), bootLogger)

	cfg := config.Default()
	if appConfig.ConfigPath != "" {
		if loader == nil {
			panic(fmt.Errorf("no loader for configuration file %q", appConfig.ConfigPath))
		}
		loaded, err := loader.Load(ctx, appConfig.ConfigPath)
		if err != nil {
			panic(fmt.Errorf("failed to load configuration: %w", err))
		}
		cfg = loaded
	}
	applyOverrides(cfg, appConfig)
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format, outW)
	ctx = ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	sdk := o.sdk
	if sdk == nil {
		simOpts, err := simulatorOptions(cfg.Wallet.Simulator)
		if err != nil {
			panic(fmt.Errorf("invalid configuration: %w", err))
		}
		sdk = simulator.New(simOpts)
		logger.Debug("Using the in-process wallet simulator.", "latency", cfg.Wallet.Simulator.Latency)
	}

	store := correlator.New()
	dispatcher := events.NewDispatcher(store, nil)
	hc := &host.Context{
		Logger:     logger,
		Correlator: store,
		Events:     dispatcher,
		Wallet:     sdk,
		Settings: host.Settings{
			EvictOnComplete: cfg.Correlator.EvictOnComplete,
			DefaultEndpoint: cfg.Wallet.Endpoint,
		},
	}

	pkg := o.pkg
	if pkg == nil {
		pkg = NewPackage()
	}
	modules := pkg.NativeModules(hc)
	reg, err := registry.New(ctx, modules...)
	if err != nil {
		// A mismatch between module code and its declared methods is a
		// programmer error.
		panic(err)
	}
	logger.Debug("Native modules registered.", "count", len(modules))

	return &App{
		outW:       outW,
		ctx:        ctx,
		logger:     logger,
		config:     cfg,
		correlator: store,
		dispatcher: dispatcher,
		host:       hc,
		pkg:        pkg,
		registry:   reg,
		ready:      make(chan struct{}),
	}
}

func applyOverrides(cfg *config.Model, o *Config) {
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if o.Address != "" {
		cfg.Transport.Address = o.Address
	}
	if o.HealthcheckPort != 0 {
		cfg.Healthcheck.Port = o.HealthcheckPort
	}
	if o.EvictOnComplete {
		cfg.Correlator.EvictOnComplete = true
	}
}

func simulatorOptions(sim config.Simulator) (simulator.Options, error) {
	opts := simulator.Options{Latency: sim.Latency}
	for _, raw := range sim.PinFor {
		kind, err := wallet.ParseWorkflowKind(raw)
		if err != nil {
			return opts, fmt.Errorf("wallet.simulator.pin_for: %w", err)
		}
		opts.PinFor = append(opts.PinFor, kind)
	}
	return opts, nil
}

// Registry returns the capability table.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Correlator returns the interaction store.
func (a *App) Correlator() *correlator.Store {
	return a.correlator
}

// Host returns the context handed to native modules.
func (a *App) Host() *host.Context {
	return a.host
}

// Package returns the module package the registry was built from.
func (a *App) Package() host.Package {
	return a.pkg
}

// Events returns the interaction event dispatcher.
func (a *App) Events() *events.Dispatcher {
	return a.dispatcher
}

// Config returns the effective configuration.
func (a *App) Config() *config.Model {
	return a.config
}

// Close releases every tracked interaction. It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.logger.Debug("Closing application.", "interactions", a.correlator.Len())
		a.correlator.Close(a.ctx)
	})
}
