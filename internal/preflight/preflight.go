package preflight

import (
	"context"

	"reelforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options supplies the runtime collaborators some checks need. Nil fields
// skip the matching check.
type Options struct {
	Database  Pinger
	Providers HealthSource
}

// RunAll executes every preflight check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckCredentials(cfg),
	}
	if opts.Database != nil {
		results = append(results, CheckDatabase(ctx, cfg.DatabasePath(), opts.Database))
	}
	results = append(results, CheckProviders(ctx, opts.Providers)...)
	results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
