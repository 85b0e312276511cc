package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"folio/internal/catalog"
	"folio/internal/config"
	"folio/internal/dispatch"
	"folio/internal/docstore"
	"folio/internal/pipeline"
	"folio/internal/report"
	"folio/internal/server"
)

// Daemon wires the document store, catalog, dispatchers, and HTTP API into
// one lifecycle and enforces single-instance execution over the data
// directory.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store    *docstore.Store
	catalog  *catalog.Catalog
	receiver *pipeline.Receiver
	uploader *pipeline.Uploader
	api      *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs the daemon and all of its services from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	store, err := docstore.New(cfg.StoreDir())
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	layout := catalog.NewLayout(cfg.GroupsDir())
	cat := catalog.New(store, layout, logger)

	client := dispatch.NewClient(
		time.Duration(cfg.Pipeline.ConnectTimeoutSeconds)*time.Second,
		dispatch.WithRetryMaxAttempts(cfg.Pipeline.MaxAttempts),
		dispatch.WithRetryBackoff(
			time.Duration(cfg.Pipeline.BaseDelayMilliseconds)*time.Millisecond,
			time.Duration(cfg.Pipeline.MaxDelayMilliseconds)*time.Millisecond,
		),
	)
	dispatcher := dispatch.NewDispatcher(cfg, client, logger)

	receiver := pipeline.NewReceiver(cat, dispatcher, logger)
	uploader := pipeline.NewUploader(cat, dispatcher, cfg.Ingest.AllowedExtensions, logger)
	reports := report.NewBuilder(cat, logger)

	api := server.NewAPI(cat, uploader, receiver, reports, logger)
	httpServer := server.New(cfg.Paths.APIBind, api.Router(), logger)

	lockPath := filepath.Join(cfg.Paths.DataDir, "folio.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		catalog:  cat,
		receiver: receiver,
		uploader: uploader,
		api:      httpServer,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and brings up the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another folio daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return err
	}
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("folio daemon started",
		slog.String("lock", d.lockPath),
		slog.String("api", d.api.Addr()))
	return nil
}

// APIAddr reports the bound API address once started.
func (d *Daemon) APIAddr() string {
	return d.api.Addr()
}

// Stop shuts down the API and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", slog.String("error", err.Error()))
	}
	d.running.Store(false)
	d.logger.Info("folio daemon stopped")
}

// Close releases all daemon resources.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}
