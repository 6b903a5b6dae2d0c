package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reelforge/internal/api"
	"reelforge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines     int
		follow    bool
		sessionID string
		component string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon logs",
		Long:  "Show logs from a running reelforged. When the daemon is not reachable the log file is read instead.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			out := cmd.OutOrStdout()

			client, err := logs.NewStreamClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
			if err != nil {
				return err
			}
			query := logs.StreamQuery{Limit: lines, Tail: true, SessionID: sessionID, Component: component}
			err = streamLogs(runCtx, client, query, follow, out)
			if err == nil || !logs.IsAPIUnavailable(err) {
				return err
			}
			if sessionID != "" || component != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "daemon not reachable; filters are ignored for the log file")
			}
			return logs.Tail(runCtx, cfg.LogPath(), lines, follow, out)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new lines")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only show lines for this session id")
	cmd.Flags().StringVar(&component, "component", "", "Only show lines from this component")
	return cmd
}

func streamLogs(ctx context.Context, client *logs.StreamClient, query logs.StreamQuery, follow bool, out io.Writer) error {
	for {
		resp, err := client.Fetch(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		for _, evt := range resp.Events {
			fmt.Fprintln(out, formatLogEvent(evt))
		}
		if !follow {
			return nil
		}
		query.Since = resp.Next
		query.Tail = false
		query.Follow = true
		if len(resp.Events) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(200 * time.Millisecond):
			}
		}
	}
}

func formatLogEvent(evt api.LogEvent) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp)
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(evt.Level))
	if evt.Component != "" {
		b.WriteString(" [" + evt.Component + "]")
	}
	if evt.SessionID != "" {
		b.WriteString(" " + shortID(evt.SessionID))
		if evt.Stage != "" {
			b.WriteString("/" + evt.Stage)
		}
	}
	b.WriteString(" " + evt.Message)
	keys := make([]string, 0, len(evt.Fields))
	for k := range evt.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, evt.Fields[k])
	}
	return b.String()
}
