package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelforge/internal/daemonctl"
	"reelforge/internal/logs"
	"reelforge/internal/session"
	"reelforge/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and session counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			client, err := logs.NewStreamClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
			if err != nil {
				return err
			}
			reqCtx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			status, err := client.Status(reqCtx)
			if err == nil {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
				for _, phase := range session.AllPhases() {
					if n := status.Sessions[string(phase)]; n > 0 {
						fmt.Fprintln(out, renderStatusLine(label(string(phase)), phaseStatusKind(phase), fmt.Sprint(n), colorize))
					}
				}
				for _, check := range status.Checks {
					if !check.Passed {
						fmt.Fprintln(out, renderStatusLine(check.Name, statusError, check.Detail, colorize))
					}
				}
				return nil
			}
			if !logs.IsAPIUnavailable(err) {
				return err
			}

			detail := "not running"
			if pid := daemonctl.ReadPID(cfg); pid > 0 {
				detail = fmt.Sprintf("not reachable at %s (pid file says %d)", cfg.Paths.APIBind, pid)
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, detail, colorize))

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			counts, err := st.CountByPhase(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderStatusLine("Database", statusInfo, st.Path(), colorize))
			for _, phase := range session.AllPhases() {
				if n := counts[phase]; n > 0 {
					fmt.Fprintln(out, renderStatusLine(label(string(phase)), phaseStatusKind(phase), fmt.Sprint(n), colorize))
				}
			}
			return nil
		},
	}
}
