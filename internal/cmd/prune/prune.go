// Package prune implements "agent-memory prune" (C10).
package prune

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
	"github.com/chirino/agent-memory/internal/pruning"
)

// Command returns the prune sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "remove stale memories from a scope",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.StringFlag{Name: "scope", Value: "project", Usage: "project, group, or global"},
			&cli.StringFlag{Name: "category", Usage: "restrict pruning to one category"},
			&cli.IntFlag{Name: "older-than-days", Usage: "candidates must be older than this many days"},
			&cli.BoolFlag{Name: "never-accessed", Usage: "candidates must never have been accessed"},
			&cli.BoolFlag{Name: "include-pinned", Usage: "do not exclude pinned memories"},
			&cli.BoolFlag{Name: "dry-run", Usage: "report candidates without deleting them"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			scope, err := cmdutil.ParseScope(cmd.String("scope"))
			if err != nil {
				return err
			}
			category, err := cmdutil.ParseCategory(cmd.String("category"))
			if err != nil {
				return err
			}

			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}

			opts := pruning.FindCandidatesOptions{
				Scope:         scope,
				Category:      category,
				ExcludePinned: !cmd.Bool("include-pinned"),
			}
			if cmd.IsSet("older-than-days") {
				days := int(cmd.Int("older-than-days"))
				opts.OlderThanDays = &days
			}
			if cmd.Bool("never-accessed") {
				opts.NeverAccessed = true
			}

			candidates, err := app.Pruning.FindCandidates(ctx, opts)
			if err != nil {
				return err
			}
			summary := pruning.GetSummary(candidates)

			deleted := 0
			if !cmd.Bool("dry-run") {
				deleted = app.Pruning.Prune(ctx, candidates)
			}

			resultCount := len(candidates)
			app.LogEvent(ctx, "prune", nil, nil, &resultCount, map[string]interface{}{
				"scope": string(scope), "dry_run": cmd.Bool("dry-run"), "deleted": deleted,
			})

			return cmdutil.PrintJSON(map[string]interface{}{
				"candidates": candidates,
				"summary":    summary,
				"dryRun":     cmd.Bool("dry-run"),
				"deleted":    deleted,
			})
		},
	}
}
