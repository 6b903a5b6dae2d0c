package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelforge/internal/api"
	"reelforge/internal/orchestrator"
	"reelforge/internal/session"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Create, inspect, and manage sessions",
	}
	sessionCmd.AddCommand(newSessionNewCommand(ctx))
	sessionCmd.AddCommand(newSessionListCommand(ctx))
	sessionCmd.AddCommand(newSessionShowCommand(ctx))
	sessionCmd.AddCommand(newSessionConfigureCommand(ctx))
	sessionCmd.AddCommand(newSessionDeleteCommand(ctx))
	return sessionCmd
}

func newSessionNewCommand(ctx *commandContext) *cobra.Command {
	var (
		title    string
		script   string
		duration int
		voice    string
		channel  string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a session from a title or a full script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()
			if err := ensureDaemonIdle(ws.cfg); err != nil {
				return err
			}

			if !cmd.Flags().Changed("duration") {
				duration = ws.cfg.Generation.DefaultDuration
			}
			snap, err := ws.orch.Create(cmd.Context(), orchestrator.CreateInput{
				Title:      title,
				Script:     script,
				Duration:   session.Duration(duration),
				Voice:      session.VoiceID(voice),
				ChannelURL: channel,
			})
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			if snap.Voice == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Pick a voice with `reelforge session configure %s --voice <id>` before advancing.\n", shortID(snap.ID))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Video title; a script is drafted from it when --script is empty")
	cmd.Flags().StringVarP(&script, "script", "s", "", "Full narration script")
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "Video length in seconds (10-120, steps of 10)")
	cmd.Flags().StringVar(&voice, "voice", "", "Narration voice id (see `reelforge voices`)")
	cmd.Flags().StringVar(&channel, "channel", "", "Channel URL to analyse for reference videos")
	return cmd
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	var (
		phaseFlag string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			snaps, err := ws.store.LoadSessions(cmd.Context())
			if err != nil {
				return err
			}
			if phaseFlag != "" {
				phase, ok := session.ParsePhase(phaseFlag)
				if !ok {
					return fmt.Errorf("unknown phase %q", phaseFlag)
				}
				filtered := snaps[:0]
				for _, snap := range snaps {
					if snap.Phase == phase {
						filtered = append(filtered, snap)
					}
				}
				snaps = filtered
			}
			if asJSON {
				return writeJSON(cmd, api.SessionListResponse{Sessions: api.FromSnapshots(snaps)})
			}
			out := cmd.OutOrStdout()
			if len(snaps) == 0 {
				fmt.Fprintln(out, "No sessions")
				return nil
			}
			rows := make([][]string, 0, len(snaps))
			for _, snap := range snaps {
				duration := ""
				if snap.Duration != 0 {
					duration = snap.Duration.Label()
				}
				rows = append(rows, []string{
					shortID(snap.ID),
					truncate(displayTitle(snap), 40),
					label(string(snap.Phase)),
					duration,
					string(snap.Voice),
					formatTimestamp(snap.UpdatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Phase", "Duration", "Voice", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&phaseFlag, "phase", "", "Only list sessions in this phase")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON     bool
		showScript bool
	)
	cmd := &cobra.Command{
		Use:   "show <session>",
		Short: "Show a session and its stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			snap, err := ws.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, api.SessionResponse{Session: api.FromSnapshot(snap)})
			}
			out := cmd.OutOrStdout()
			printSnapshot(out, snap)
			if showScript {
				fmt.Fprintln(out)
				fmt.Fprintln(out, snap.Script)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&showScript, "script", false, "Print the narration script")
	return cmd
}

func newSessionConfigureCommand(ctx *commandContext) *cobra.Command {
	var (
		script   string
		duration int
		voice    string
	)
	cmd := &cobra.Command{
		Use:   "configure <session>",
		Short: "Change script, duration, or voice before generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := orchestrator.ConfigureInput{
				Script:   script,
				Duration: session.Duration(duration),
				Voice:    session.VoiceID(voice),
			}
			return runControl(cmd, ctx, args[0], "configure", func(c context.Context, ws *workspace, id string) (session.Snapshot, error) {
				return ws.orch.Configure(c, id, in)
			})
		},
	}
	cmd.Flags().StringVarP(&script, "script", "s", "", "Replacement narration script")
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "Video length in seconds")
	cmd.Flags().StringVar(&voice, "voice", "", "Narration voice id")
	return cmd
}

func newSessionDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <session>",
		Aliases: []string{"rm"},
		Short:   "Delete a session and all of its artifacts",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var deleted string
			err := runControl(cmd, ctx, args[0], "delete", func(c context.Context, ws *workspace, id string) (session.Snapshot, error) {
				deleted = id
				return session.Snapshot{}, ws.orch.Destroy(c, id)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", deleted)
			return nil
		},
	}
}

func displayTitle(snap session.Snapshot) string {
	if title := strings.TrimSpace(snap.Title); title != "" {
		return title
	}
	first, _, _ := strings.Cut(strings.TrimSpace(snap.Script), "\n")
	return first
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
