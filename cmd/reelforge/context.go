package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/orchestrator"
	"reelforge/internal/provider"
	"reelforge/internal/provider/local"
	"reelforge/internal/services"
	"reelforge/internal/session"
	"reelforge/internal/store"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configFile string
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if exists {
			c.configFile = resolved
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// configPath is the loaded config file, or empty when defaults were used.
func (c *commandContext) configPath() string {
	if _, err := c.ensureConfig(); err != nil {
		return ""
	}
	return c.configFile
}

// workspace is the in-process stack a session command runs against.
type workspace struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	gateway *provider.Gateway
	orch    *orchestrator.Orchestrator
}

func (c *commandContext) openWorkspace() (*workspace, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	outputs := []string{cfg.LogPath()}
	if c.verbose != nil && *c.verbose {
		outputs = append(outputs, "stderr")
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      "json",
		OutputPaths: outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	gateway := local.NewGateway(cfg, logger)
	opts := append(orchestrator.OptionsFromConfig(cfg),
		orchestrator.WithJournal(st),
		orchestrator.WithLogger(logger),
	)
	return &workspace{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		gateway: gateway,
		orch:    orchestrator.New(gateway, st, opts...),
	}, nil
}

func (w *workspace) Close() error {
	return w.store.Close()
}

// resolve looks up the session matching ref in the store without touching
// the orchestrator. ref may be a full ID or a unique prefix of one.
func (w *workspace) resolve(ctx context.Context, ref string) (session.Snapshot, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return session.Snapshot{}, services.Wrap(services.ErrValidation, "", "load session", "session id is required", nil)
	}
	snap, err := w.store.GetSession(ctx, ref)
	if errors.Is(err, services.ErrNotFound) {
		snap, err = w.resolvePrefix(ctx, ref)
	}
	return snap, err
}

// restore re-reads the session and adopts it into the in-process
// orchestrator. Callers hold the session lock, so the journal cannot change
// underneath them.
func (w *workspace) restore(ctx context.Context, id string) (session.Snapshot, error) {
	snap, err := w.store.GetSession(ctx, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return w.orch.Restore(ctx, snap)
}

func (w *workspace) resolvePrefix(ctx context.Context, prefix string) (session.Snapshot, error) {
	all, err := w.store.LoadSessions(ctx)
	if err != nil {
		return session.Snapshot{}, err
	}
	var matches []session.Snapshot
	for _, snap := range all {
		if strings.HasPrefix(snap.ID, prefix) {
			matches = append(matches, snap)
		}
	}
	switch len(matches) {
	case 0:
		return session.Snapshot{}, services.Wrap(services.ErrNotFound, "", "load session", fmt.Sprintf("no session matches %q", prefix), nil)
	case 1:
		return matches[0], nil
	default:
		return session.Snapshot{}, services.Wrap(services.ErrValidation, "", "load session",
			fmt.Sprintf("%q matches %d sessions; use more characters", prefix, len(matches)), nil)
	}
}

// ensureDaemonIdle refuses in-process mutations while reelforged owns the
// sessions.
func ensureDaemonIdle(cfg *config.Config) error {
	fl := flock.New(cfg.DaemonLockPath())
	ok, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("check daemon lock: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrConcurrentOperation, "", "check daemon",
			fmt.Sprintf("reelforged is running; use its API at %s", cfg.Paths.APIBind), nil)
	}
	return fl.Unlock()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
