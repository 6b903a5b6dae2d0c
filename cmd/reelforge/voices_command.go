package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelforge/internal/session"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List narration voices and selectable durations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			voices := cfg.Voices()
			if len(voices) == 0 {
				voices = session.DefaultVoices()
			}
			rows := make([][]string, 0, len(voices))
			for _, v := range voices {
				rows = append(rows, []string{string(v.ID), v.Name})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"ID", "Voice"}, rows, nil))

			labels := make([]string, 0, len(session.Durations()))
			for _, d := range session.Durations() {
				labels = append(labels, d.Label())
			}
			fmt.Fprintf(out, "Durations: %s\n", strings.Join(labels, ", "))
			return nil
		},
	}
}
