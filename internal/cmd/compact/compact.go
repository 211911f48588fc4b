// Package compact implements "agent-memory compact" (C11).
package compact

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
	"github.com/chirino/agent-memory/internal/compaction"
	"github.com/chirino/agent-memory/internal/model"
)

// Command returns the compact sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "compact",
		Usage: "cluster similar memories and replace each cluster with one summary",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.StringFlag{Name: "scope", Value: "project", Usage: "project, group, or global"},
			&cli.StringFlag{Name: "category", Usage: "restrict compaction to one category"},
			&cli.IntFlag{Name: "older-than-days", Usage: "candidates must be older than this many days"},
			&cli.Float64Flag{Name: "similarity-threshold", Usage: "override the configured DBSCAN similarity threshold"},
			&cli.IntFlag{Name: "min-cluster-size", Usage: "override the configured minimum cluster size"},
			&cli.BoolFlag{Name: "dry-run", Usage: "report clusters without compacting them"},
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
			projectPath, err := cmdutil.ResolveProject(cmd)
			if err != nil {
				return err
			}

			opts := compaction.FindClustersOptions{
				Scope:               scope,
				Category:            category,
				SimilarityThreshold: app.Cfg.CompactionSimilarityThreshold,
				MinClusterSize:      app.Cfg.CompactionMinClusterSize,
			}
			if cmd.IsSet("older-than-days") {
				days := int(cmd.Int("older-than-days"))
				opts.OlderThanDays = &days
			}
			if cmd.IsSet("similarity-threshold") {
				opts.SimilarityThreshold = cmd.Float64("similarity-threshold")
			}
			if cmd.IsSet("min-cluster-size") {
				opts.MinClusterSize = int(cmd.Int("min-cluster-size"))
			}

			clusters, err := app.Compaction.FindClusters(ctx, opts)
			if err != nil {
				return err
			}

			// A failure partway through the cluster loop must not discard the
			// clusters already compacted: per-cluster errors are collected
			// and reported alongside whatever succeeded, rather than
			// aborting the batch (spec's compaction partial-progress
			// requirement, mirroring the pruning engine's per-candidate
			// error handling).
			var compacted []*model.Memory
			var clusterErrors []string
			if !cmd.Bool("dry-run") {
				for _, c := range clusters {
					summary, err := app.Compaction.GenerateSummary(ctx, c)
					if err != nil {
						clusterErrors = append(clusterErrors, err.Error())
						continue
					}
					targetProjectPath := ""
					if scope == model.ScopeProject {
						targetProjectPath = projectPath
					}
					m, err := app.Compaction.CompactCluster(ctx, c, summary, scope, targetProjectPath, nil)
					if err != nil {
						clusterErrors = append(clusterErrors, err.Error())
						continue
					}
					compacted = append(compacted, m)
				}
			}

			resultCount := len(compacted)
			app.LogEvent(ctx, "compact", nil, nil, &resultCount, map[string]interface{}{
				"scope": string(scope), "dry_run": cmd.Bool("dry-run"), "errors": len(clusterErrors),
			})

			if err := cmdutil.PrintJSON(map[string]interface{}{
				"clusterSummary": compaction.GetClusterSummary(clusters),
				"compacted":      compacted,
				"errors":         clusterErrors,
				"dryRun":         cmd.Bool("dry-run"),
			}); err != nil {
				return err
			}
			if len(clusterErrors) > 0 {
				return fmt.Errorf("compact: %d of %d clusters failed to compact", len(clusterErrors), len(clusters))
			}
			return nil
		},
	}
}
