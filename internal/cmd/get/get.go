// Package get implements "agent-memory get".
package get

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
)

// Command returns the get sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "fetch a single memory by id",
		ArgsUsage: "<memory-id>",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("get: memory id is required")
			}

			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			projectPath, err := cmdutil.ResolveProject(cmd)
			if err != nil {
				return err
			}

			m, err := app.Store.GetByID(ctx, id, projectPath)
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("get: memory %q not found", id)
			}
			app.Store.RecordAccess(ctx, m.ID, m.Scope, projectPath)

			resultCount := 1
			app.LogEvent(ctx, "get", nil, &projectPath, &resultCount, nil)
			return cmdutil.PrintJSON(m)
		},
	}
}
