// Package gateway wires storage, the scheduler, the alert bus, delivery
// channels and the HTTP surface into one long-running process.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/stellarlinkco/mytodo/internal/api"
	"github.com/stellarlinkco/mytodo/internal/app"
	"github.com/stellarlinkco/mytodo/internal/bus"
	"github.com/stellarlinkco/mytodo/internal/channel"
	"github.com/stellarlinkco/mytodo/internal/config"
	"github.com/stellarlinkco/mytodo/internal/metrics"
	"github.com/stellarlinkco/mytodo/internal/notify"
	"github.com/stellarlinkco/mytodo/internal/reminder"
	"github.com/stellarlinkco/mytodo/internal/storage"
	"github.com/stellarlinkco/mytodo/internal/suggest"
	"github.com/stellarlinkco/mytodo/internal/task"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Options for creating a Gateway
type Options struct {
	SignalChan chan os.Signal // for testing signal handling
	Listener   net.Listener   // replaces listening on Gateway.Host:Gateway.Port
	Stdout     io.Writer      // console channel output
	BotFactory channel.BotFactory
	Logger     *zap.Logger
}

// watcher is implemented by backends that can report external edits.
type watcher interface {
	Watch(ctx context.Context, onChange func(key string)) error
}

type Gateway struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      storage.Backend
	bus        *bus.AlertBus
	sched      *notify.Scheduler
	ctrl       *app.Controller
	channels   *channel.ChannelManager
	metrics    *metrics.Collector
	server     *http.Server
	listener   net.Listener
	signalChan chan os.Signal

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		cfg:        cfg,
		logger:     logger,
		listener:   opts.Listener,
		signalChan: opts.SignalChan,
	}

	durations, err := cfg.Scheduler.Durations()
	if err != nil {
		return nil, fmt.Errorf("scheduler config: %w", err)
	}
	pref, err := suggest.ParsePreference(cfg.Suggestions.Preference)
	if err != nil {
		return nil, fmt.Errorf("suggestions config: %w", err)
	}
	catalog, err := suggest.LoadFile(cfg.Suggestions.CatalogPath)
	if err != nil {
		return nil, err
	}

	g.store, err = storage.Open(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	tasks, err := task.NewStore(g.store)
	if err != nil {
		g.store.Close()
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	reminders, err := reminder.NewStore(g.store)
	if err != nil {
		g.store.Close()
		return nil, fmt.Errorf("load food reminders: %w", err)
	}

	g.bus = bus.New(config.DefaultBufSize, logger.Named("bus"))
	g.metrics = metrics.NewCollector()
	g.sched = notify.New(tasks, reminders, g.bus,
		notify.WithDurations(durations),
		notify.WithLogger(logger.Named("notify")),
		notify.WithRecorder(g.metrics),
	)
	g.ctrl = app.New(tasks, reminders, catalog,
		app.WithScheduler(g.sched),
		app.WithBus(g.bus),
		app.WithPreference(pref),
		app.WithLogger(logger.Named("app")),
	)
	g.metrics.RegisterState(
		func() float64 { return float64(tasks.Len()) },
		func() float64 { return float64(tasks.Progress().Completed) },
		func() float64 { return float64(reminders.Len()) },
		func() float64 { return float64(len(g.sched.Pending())) },
	)

	g.channels, err = channel.NewChannelManager(cfg.Channels, g.bus, channel.ManagerOptions{
		Stdout:     opts.Stdout,
		BotFactory: opts.BotFactory,
		Logger:     logger.Named("channel"),
	})
	if err != nil {
		g.store.Close()
		return nil, fmt.Errorf("create channel manager: %w", err)
	}

	g.server = &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g, nil
}

// Handler returns the full HTTP surface: the JSON API, /metrics and, when
// the web UI channel is enabled, its websocket and static page.
func (g *Gateway) Handler() http.Handler {
	r := api.NewServer(g.ctrl,
		api.WithLogger(g.logger.Named("http")),
		api.WithMetrics(g.metrics),
		api.WithPending(g.sched),
		api.WithAllowedOrigins(g.cfg.Gateway.AllowedOrigins...),
	).Router()

	r.Handle("/metrics", g.metrics.Handler())
	if ui := g.channels.WebUI(); ui != nil {
		r.Handle("/ws", ui.Handler())
		r.Handle("/*", ui.StaticHandler())
	}
	return r
}

func (g *Gateway) Controller() *app.Controller { return g.ctrl }

func (g *Gateway) Scheduler() *notify.Scheduler { return g.sched }

// Addr is the address the HTTP server listens on once Run has started.
func (g *Gateway) Addr() string {
	if g.listener == nil {
		return net.JoinHostPort(g.cfg.Gateway.Host, strconv.Itoa(g.cfg.Gateway.Port))
	}
	return g.listener.Addr().String()
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.Dispatch(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		_ = g.Shutdown()
		return fmt.Errorf("start channels: %w", err)
	}
	g.logger.Info("channels started", zap.Strings("channels", g.channels.EnabledChannels()))

	if err := g.sched.Start(ctx); err != nil {
		_ = g.Shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}

	if w, ok := g.store.(watcher); ok {
		if err := w.Watch(ctx, g.reload); err != nil {
			g.logger.Warn("storage watch disabled", zap.Error(err))
		}
	}

	if g.listener == nil {
		ln, err := net.Listen("tcp", g.Addr())
		if err != nil {
			_ = g.Shutdown()
			return fmt.Errorf("listen: %w", err)
		}
		g.listener = ln
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := g.server.Serve(g.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	g.logger.Info("running", zap.String("addr", g.Addr()))

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	var runErr error
	select {
	case sig := <-sigCh:
		g.logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		g.logger.Info("shutting down", zap.Error(ctx.Err()))
	case runErr = <-serveErr:
		g.logger.Error("http server failed", zap.Error(runErr))
	}

	if err := g.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (g *Gateway) reload(key string) {
	if err := g.ctrl.Reload(); err != nil {
		g.logger.Warn("reload after external change", zap.String("key", key), zap.Error(err))
		return
	}
	g.logger.Info("reloaded after external change", zap.String("key", key))
}

// Shutdown stops every service and closes storage. Calls after the first
// return the first result.
func (g *Gateway) Shutdown() error {
	g.shutdownOnce.Do(func() { g.shutdownErr = g.shutdown() })
	return g.shutdownErr
}

func (g *Gateway) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := g.server.Shutdown(ctx); err != nil {
		g.logger.Warn("http shutdown", zap.Error(err))
	}
	g.sched.Stop()
	_ = g.channels.StopAll()
	var err error
	if cerr := g.store.Close(); cerr != nil {
		err = fmt.Errorf("close storage: %w", cerr)
	}
	g.logger.Info("shutdown complete")
	return err
}
