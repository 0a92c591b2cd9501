// Package server builds the console's long-lived components and runs them.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/api"
	"github.com/JakeFAU/crawl-console/internal/backend"
	"github.com/JakeFAU/crawl-console/internal/command"
	"github.com/JakeFAU/crawl-console/internal/config"
	"github.com/JakeFAU/crawl-console/internal/jobs"
	"github.com/JakeFAU/crawl-console/internal/logging"
	"github.com/JakeFAU/crawl-console/internal/publisher"
	"github.com/JakeFAU/crawl-console/internal/report"
	"github.com/JakeFAU/crawl-console/internal/storage"
	"github.com/JakeFAU/crawl-console/internal/stream"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *jobs.Store
	commands *command.Client
	reports  *report.Controller
	exporter *report.Exporter
	stream   *stream.Client
	closers  []namedCloser

	closeOnce sync.Once
}

type namedCloser struct {
	name  string
	close func() error
}

// Build creates the application's dependencies. Export backends are opened
// here so misconfiguration fails at startup.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return NewApp(ctx, cfg, logger)
}

// NewApp wires the components around an existing logger.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("export_backend", cfg.Export.Backend),
	)

	client, err := backend.New(cfg.Backend.BaseURL, &http.Client{Timeout: cfg.BackendTimeout()})
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, store: jobs.NewStore()}
	a.commands = command.New(client, a.store, logger.Named("command"))
	a.reports = report.NewController(report.NewAPI(client), logger.Named("report"))

	if err := a.setupExport(ctx); err != nil {
		a.closeInfrastructure()
		return nil, err
	}

	a.stream = stream.New(
		// No client timeout: the stream body stays open for the life of the connection.
		stream.HTTPDialer{Client: &http.Client{}, URL: cfg.StreamURL()},
		a.store,
		stream.Config{
			ReconnectDelay: cfg.ReconnectDelay(),
			MaxFrameBytes:  cfg.Stream.MaxFrameBytes,
			Logger:         logger.Named("stream"),
		},
	)
	return a, nil
}

func (a *App) setupExport(ctx context.Context) error {
	blobs, closeBlobs, err := storage.Open(ctx, a.cfg.Storage(), a.logger)
	if errors.Is(err, storage.ErrDisabled) {
		a.logger.Info("report export disabled")
		return nil
	}
	if err != nil {
		return err
	}
	a.closers = append(a.closers, namedCloser{"export store", closeBlobs})

	var notify report.Publisher
	pub, closePub, err := publisher.Open(ctx, a.cfg.Publisher(), a.logger)
	switch {
	case errors.Is(err, publisher.ErrDisabled):
	case err != nil:
		return err
	default:
		notify = pub
		a.closers = append(a.closers, namedCloser{"export notifier", closePub})
	}

	a.exporter = report.NewExporter(blobs, notify, report.ExportConfig{
		Backend: a.cfg.Export.Backend,
		Prefix:  a.cfg.Export.Prefix,
		Topic:   a.cfg.PubSub.TopicName,
	}, a.logger.Named("export"))
	a.logger.Info("report export enabled",
		zap.String("backend", a.cfg.Export.Backend),
		zap.Bool("notify", notify != nil),
	)
	return nil
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the live job model.
func (a *App) Store() *jobs.Store { return a.store }

// Commands returns the job command client.
func (a *App) Commands() *command.Client { return a.commands }

// Reports returns the reporting controller.
func (a *App) Reports() *report.Controller { return a.reports }

// Exporter returns the report exporter, or nil when exports are disabled.
func (a *App) Exporter() *report.Exporter { return a.exporter }

// Stream returns the push-channel client.
func (a *App) Stream() *stream.Client { return a.stream }

// Handler builds the HTTP surface over the application's components.
func (a *App) Handler() http.Handler {
	return api.NewServer(api.Deps{
		Store:    a.store,
		Stream:   a.stream,
		Commands: a.commands,
		Reports:  a.reports,
		Exporter: a.exporter,
		Logger:   a.logger.Named("api"),
	}).Handler()
}

// Run starts the stream client and the HTTP server and blocks until the
// context is canceled or SIGINT/SIGTERM arrives. The caller still owns Close.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		_ = a.stream.Run(ctx)
	}()
	go a.reports.LoadSessions(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	<-streamDone
	a.logger.Info("shutdown complete")
	return nil
}

// Close waits for in-flight commands and releases export clients. Calls
// after the first are no-ops.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.commands.Wait()
		a.closeInfrastructure()
		if serr := logging.Sync(a.logger); serr != nil {
			err = fmt.Errorf("sync logger: %w", serr)
		}
	})
	return err
}

func (a *App) closeInfrastructure() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}
