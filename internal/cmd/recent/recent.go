// Package recent implements "agent-memory recent decisions|facts", the
// relevance engine's convenience queries.
package recent

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
)

// Command returns the recent sub-command tree.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "recently recorded decisions or facts",
		Commands: []*cli.Command{
			decisionsCommand(),
			factsCommand(),
		},
	}
}

func decisionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "decisions",
		Usage: "decisions recorded in the last N days",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.IntFlag{Name: "days", Value: 7, Usage: "lookback window in days"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum rows returned"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			projectPath, err := cmdutil.ResolveProject(cmd)
			if err != nil {
				return err
			}
			rows, err := app.Relevance.GetRecentDecisions(ctx, projectPath, int(cmd.Int("days")), int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			resultCount := len(rows)
			app.LogEvent(ctx, "recent", strPtr("decisions"), &projectPath, &resultCount, nil)
			return cmdutil.PrintJSON(rows)
		},
	}
}

func factsCommand() *cli.Command {
	return &cli.Command{
		Name:  "facts",
		Usage: "the most recently recorded facts",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum rows returned"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			projectPath, err := cmdutil.ResolveProject(cmd)
			if err != nil {
				return err
			}
			rows, err := app.Relevance.GetRecentFacts(ctx, projectPath, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			resultCount := len(rows)
			app.LogEvent(ctx, "recent", strPtr("facts"), &projectPath, &resultCount, nil)
			return cmdutil.PrintJSON(rows)
		},
	}
}

func strPtr(s string) *string { return &s }
