package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelforge/internal/api"
	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/notifications"
	"reelforge/internal/orchestrator"
	"reelforge/internal/preflight"
	"reelforge/internal/provider"
	"reelforge/internal/services"
	"reelforge/internal/session"
	"reelforge/internal/store"
)

const defaultAcceptWindow = 250 * time.Millisecond

// Daemon owns the orchestrator for the lifetime of the process.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	gateway  *provider.Gateway
	orch     *orchestrator.Orchestrator
	notifier *notifications.Forwarder
	logHub   *logging.StreamHub
	api      *apiServer

	lockPath     string
	lock         *flock.Flock
	acceptWindow time.Duration

	running atomic.Bool
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	ops     sync.WaitGroup
	checks  []preflight.Result
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithAcceptWindow sets how long an HTTP control request waits for its
// operation before answering 202 Accepted.
func WithAcceptWindow(d time.Duration) Option {
	return func(dm *Daemon) { dm.acceptWindow = d }
}

// WithLogStream exposes hub through GET /api/logs.
func WithLogStream(hub *logging.StreamHub) Option {
	return func(dm *Daemon) { dm.logHub = hub }
}

// WithNotifications forwards session milestones to svc.
func WithNotifications(svc notifications.Service) Option {
	return func(dm *Daemon) {
		dm.notifier = notifications.NewForwarder(dm.cfg, svc, dm.logger)
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, gateway *provider.Gateway, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || st == nil || gateway == nil {
		return nil, errors.New("daemon requires config, store, and provider gateway")
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	d := &Daemon{
		cfg:          cfg,
		logger:       logger,
		store:        st,
		gateway:      gateway,
		lockPath:     cfg.DaemonLockPath(),
		lock:         flock.New(cfg.DaemonLockPath()),
		acceptWindow: defaultAcceptWindow,
	}
	for _, opt := range opts {
		opt(d)
	}

	orchOpts := append(orchestrator.OptionsFromConfig(cfg),
		orchestrator.WithJournal(st),
		orchestrator.WithLogger(logger),
	)
	d.orch = orchestrator.New(gateway, st, orchOpts...)
	if d.notifier != nil {
		d.orch.Subscribe(d.notifier.Handle)
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock, reloads persisted sessions, runs the
// preflight checks, and starts the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelforged instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.ctx, d.cancel = runCtx, cancel
	d.mu.Unlock()

	restored := d.restoreSessions(runCtx)
	d.runPreflight(runCtx)

	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return err
	}

	d.running.Store(true)
	d.logger.Info("reelforge daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Int("sessions_restored", restored),
	)
	return nil
}

// Stop cancels in-flight operations, waits for them to unwind, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	for _, snap := range d.orch.List() {
		_ = d.orch.Cancel(snap.ID)
	}
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()
	d.ops.Wait()
	if d.notifier != nil {
		d.notifier.Wait()
	}
	d.api.stop()

	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.String("lock", d.lockPath),
			logging.Error(err),
		)
	}
	d.running.Store(false)
	d.logger.Info("reelforge daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Orchestrator exposes the session orchestrator.
func (d *Daemon) Orchestrator() *orchestrator.Orchestrator {
	return d.orch
}

// LogStream returns the in-memory log hub, if any.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.logHub
}

// Addr returns the API listener address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() api.DaemonStatus {
	counts := make(map[string]int)
	for _, snap := range d.orch.List() {
		counts[string(snap.Phase)]++
	}
	d.mu.Lock()
	checks := api.FromChecks(d.checks)
	d.mu.Unlock()
	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Sessions:     counts,
		LastEventSeq: d.orch.Events().LastSeq(),
		Checks:       checks,
	}
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return notifications.NewService(d.cfg).TestNotification(ctx)
}

type controlResult struct {
	snap session.Snapshot
	err  error
}

// control runs op on the daemon context, carrying over the request ID of
// reqCtx. It returns the final snapshot when op finishes within the accept
// window, otherwise the current snapshot with pending set.
func (d *Daemon) control(reqCtx context.Context, id, operation string, op func(ctx context.Context) (session.Snapshot, error)) (session.Snapshot, bool, error) {
	ctx := d.baseContext()
	if rid, ok := services.RequestIDFromContext(reqCtx); ok {
		ctx = services.WithRequestID(ctx, rid)
	}
	results := make(chan controlResult, 1)

	d.ops.Add(1)
	go func() {
		defer d.ops.Done()
		snap, err := op(ctx)
		if err != nil && !services.IsCancellation(err) {
			logging.WarnWithContext(
				logging.WithContext(services.WithSessionID(ctx, id), d.logger),
				"control operation failed", "control_failed",
				logging.String("operation", operation),
				logging.String("error_kind", string(services.KindOf(err))),
				logging.Error(err),
			)
		}
		results <- controlResult{snap: snap, err: err}
	}()

	timer := time.NewTimer(d.acceptWindow)
	defer timer.Stop()
	select {
	case r := <-results:
		return r.snap, false, r.err
	case <-timer.C:
		snap, err := d.orch.Snapshot(id)
		return snap, true, err
	}
}

func (d *Daemon) baseContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}

func (d *Daemon) restoreSessions(ctx context.Context) int {
	snaps, err := d.store.LoadSessions(ctx)
	if err != nil {
		logging.ErrorWithContext(d.logger, "failed to load sessions", "session_load_failed",
			logging.String(logging.FieldErrorHint, "check the database under state_dir"),
			logging.Error(err),
		)
		return 0
	}
	restored := 0
	for _, snap := range snaps {
		if _, err := d.orch.Restore(ctx, snap); err != nil {
			logging.WarnWithContext(d.logger, "session not restored", "session_restore_failed",
				logging.String(logging.FieldSessionID, snap.ID),
				logging.String(logging.FieldImpact, "session is skipped until fixed or deleted"),
				logging.Error(err),
			)
			continue
		}
		restored++
	}
	return restored
}

func (d *Daemon) runPreflight(ctx context.Context) {
	results := preflight.RunAll(ctx, d.cfg, preflight.Options{Database: d.store, Providers: d.gateway})
	for _, r := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldImpact, "generation may fail until resolved"),
		)
	}
	d.mu.Lock()
	d.checks = results
	d.mu.Unlock()
}
