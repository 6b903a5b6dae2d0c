package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelforge/internal/artifact"
	"reelforge/internal/fileutil"
	"reelforge/internal/session"
	"reelforge/internal/textutil"
)

func newArtifactCommand(ctx *commandContext) *cobra.Command {
	artifactCmd := &cobra.Command{
		Use:   "artifact",
		Short: "Inspect and export generated artifacts",
	}
	artifactCmd.AddCommand(newArtifactListCommand(ctx))
	artifactCmd.AddCommand(newArtifactExportCommand(ctx))
	return artifactCmd
}

func newArtifactListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <session>",
		Short: "List stored artifact versions for a session",
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
			var rows [][]string
			for _, kind := range session.AllStages() {
				versions, err := ws.store.Versions(cmd.Context(), snap.ID, kind)
				if err != nil {
					return err
				}
				current := snap.Stage(kind).Version
				for _, v := range versions {
					art, err := ws.store.Get(cmd.Context(), snap.ID, kind, v)
					if err != nil {
						return err
					}
					marker := ""
					if v == current {
						marker = "*"
					}
					rows = append(rows, []string{
						label(string(kind)),
						strconv.Itoa(v) + marker,
						strconv.Itoa(len(art.Items)),
						humanize.Bytes(uint64(art.TotalBytes())),
						formatTimestamp(art.CreatedAt),
					})
				}
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No artifacts stored")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Stage", "Version", "Items", "Size", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			count, bytes, err := ws.store.Usage(cmd.Context(), snap.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d versions, %s total (* marks the current version)\n", count, humanize.Bytes(uint64(bytes)))
			return nil
		},
	}
}

func newArtifactExportCommand(ctx *commandContext) *cobra.Command {
	var (
		version int
		dir     string
	)
	cmd := &cobra.Command{
		Use:   "export <session> <stage>",
		Short: "Write an artifact's payloads to files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := session.ParseStageKind(args[1])
			if !ok {
				return fmt.Errorf("unknown stage %q", args[1])
			}
			ws, err := ctx.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			snap, err := ws.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if version == 0 {
				version = snap.Stage(kind).Version
			}
			if version == 0 {
				return fmt.Errorf("%s has no output yet: %w", kind, artifact.ErrNotFound)
			}
			art, err := ws.store.Get(cmd.Context(), snap.ID, kind, version)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = "."
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create export directory: %w", err)
			}
			out := cmd.OutOrStdout()
			for i, item := range art.Items {
				name := exportName(snap, kind, art.Ref.Version, i, len(art.Items), item.ContentType)
				path := filepath.Join(dir, name)
				if err := fileutil.WriteVerified(path, item.Payload, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintf(out, "Wrote %s (%s)\n", path, humanize.Bytes(uint64(item.Size())))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "Artifact version (default: latest)")
	cmd.Flags().StringVarP(&dir, "dir", "o", "", "Destination directory (default: current directory)")
	return cmd
}

// exportName prefers a token built from the session title and falls back to
// the short session ID.
func exportName(snap session.Snapshot, kind session.StageKind, version, index, total int, contentType string) string {
	prefix := textutil.SanitizeToken(snap.Title)
	if prefix == "" {
		prefix = shortID(snap.ID)
	}
	base := fmt.Sprintf("%s-%s-v%d", prefix, kind, version)
	if total > 1 {
		base = fmt.Sprintf("%s-%d", base, index+1)
	}
	return base + artifact.Extension(contentType)
}
