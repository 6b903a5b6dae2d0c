package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reelforge/internal/logging"
	"reelforge/internal/session"
	"reelforge/internal/sessionlock"
)

type controlFunc func(ctx context.Context, ws *workspace, id string) (session.Snapshot, error)

// runControl resolves the session, takes its lock before loading it, and
// runs fn with SIGINT and SIGTERM mapped to a cancellation of the session's
// running stage.
func runControl(cmd *cobra.Command, ctx *commandContext, ref, operation string, fn controlFunc) error {
	ws, err := ctx.openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ensureDaemonIdle(ws.cfg); err != nil {
		return err
	}
	snap, err := ws.resolve(cmd.Context(), ref)
	if err != nil {
		return err
	}
	lock, err := sessionlock.Acquire(ws.cfg.LockDir(), snap.ID)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logging.WarnWithContext(ws.logger, "failed to release session lock", "session_lock_release_failed",
				logging.String(logging.FieldSessionID, snap.ID),
				logging.Error(err),
			)
		}
	}()
	if _, err := ws.restore(cmd.Context(), snap.ID); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-signals:
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelling "+operation+"...")
			_ = ws.orch.Cancel(snap.ID)
		case <-stop:
		}
	}()

	result, opErr := fn(cmd.Context(), ws, snap.ID)
	if result.ID != "" {
		printSnapshot(cmd.OutOrStdout(), result)
	}
	return opErr
}

func newControlCommands(ctx *commandContext) []*cobra.Command {
	advance := &cobra.Command{
		Use:   "advance <session>",
		Short: "Start generation, or finalize reviewed content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, ctx, args[0], "advance", func(c context.Context, ws *workspace, id string) (session.Snapshot, error) {
				return ws.orch.Advance(c, id)
			})
		},
	}

	regenerate := &cobra.Command{
		Use:   "regenerate <session> <stage>",
		Short: "Regenerate a stage while reviewing content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := session.ParseStageKind(args[1])
			if !ok {
				return fmt.Errorf("unknown stage %q", args[1])
			}
			return runControl(cmd, ctx, args[0], "regenerate", func(c context.Context, ws *workspace, id string) (session.Snapshot, error) {
				return ws.orch.Regenerate(c, id, kind)
			})
		},
	}

	retry := &cobra.Command{
		Use:   "retry <session>",
		Short: "Retry the phase that failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, ctx, args[0], "retry", func(c context.Context, ws *workspace, id string) (session.Snapshot, error) {
				return ws.orch.Retry(c, id)
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset <session>",
		Short: "Discard generated content and return to configuring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, ctx, args[0], "reset", func(c context.Context, ws *workspace, id string) (session.Snapshot, error) {
				return ws.orch.Reset(c, id)
			})
		},
	}

	publish := &cobra.Command{
		Use:   "publish <session>",
		Short: "Publish the final video of a complete session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(cmd, ctx, args[0], "publish", func(c context.Context, ws *workspace, id string) (session.Snapshot, error) {
				return ws.orch.Publish(c, id)
			})
		},
	}

	return []*cobra.Command{advance, regenerate, retry, reset, publish}
}
