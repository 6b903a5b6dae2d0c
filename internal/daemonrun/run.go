// Package daemonrun boots the reelforged process: logging, persistence,
// providers, and the daemon lifecycle.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"reelforge/internal/config"
	"reelforge/internal/daemon"
	"reelforge/internal/daemonctl"
	"reelforge/internal/logging"
	"reelforge/internal/notifications"
	"reelforge/internal/provider/local"
	"reelforge/internal/store"
)

const logHubCapacity = 4096

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts reelforged and blocks until SIGINT, SIGTERM, or ctx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logHub := logging.NewStreamHub(logHubCapacity)
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
		Development: opts.Development,
		Hub:         logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logCredentialSnapshot(logger, cfg)
	pidPath := daemonctl.PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open session store", "store_open_failed",
			logging.String(logging.FieldErrorHint, "check state_dir permissions and disk space"),
			logging.Error(err),
		)
		return err
	}

	d, err := daemon.New(cfg, st, local.NewGateway(cfg, logger), logger,
		daemon.WithLogStream(logHub),
		daemon.WithNotifications(notifications.NewService(cfg)),
	)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.String(logging.FieldErrorHint, "check api_bind and that no other reelforged is running"),
			logging.Error(err),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("reelforge daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logCredentialSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("credential snapshot",
		logging.String(logging.FieldEventType, "credential_snapshot"),
		logging.Bool("google_studio_key_present", cfg.Credentials.GoogleStudioKey != ""),
		logging.Bool("youtube_key_present", cfg.Credentials.YouTubeKey != ""),
		logging.Bool("openrouter_key_present", cfg.Credentials.OpenRouterKey != ""),
		logging.Bool("credentials_required", cfg.Workflow.RequireCredentials),
		logging.Bool("notifications_enabled", cfg.Notifications.NtfyTopic != ""),
	)
}
