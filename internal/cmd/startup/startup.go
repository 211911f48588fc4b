// Package startup implements "agent-memory startup": the context an agent
// loads when a session begins (C9's GetStartupContext).
package startup

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
)

// Command returns the startup sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "startup",
		Usage: "load pinned memories and previous-session context for a project",
		Flags: []cli.Flag{cmdutil.ProjectFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			projectPath, err := cmdutil.ResolveProject(cmd)
			if err != nil {
				return err
			}

			sc, err := app.Relevance.GetStartupContext(ctx, projectPath)
			if err != nil {
				return err
			}

			resultCount := len(sc.PinnedMemories) + len(sc.PreviousSessionSummaries)
			app.LogEvent(ctx, "startup", nil, &projectPath, &resultCount, nil)
			return cmdutil.PrintJSON(sc)
		},
	}
}
