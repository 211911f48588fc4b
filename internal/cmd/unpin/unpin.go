// Package unpin implements "agent-memory unpin".
package unpin

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
)

// Command returns the unpin sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "unpin",
		Usage:     "unpin a memory",
		ArgsUsage: "<memory-id>",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.StringFlag{Name: "scope", Value: "project", Usage: "project, group, or global"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("unpin: memory id is required")
			}
			scope, err := cmdutil.ParseScope(cmd.String("scope"))
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

			m, err := app.Store.Unpin(ctx, id, scope, projectPath)
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("unpin: memory %q not found", id)
			}

			app.LogEvent(ctx, "unpin", nil, &projectPath, nil, nil)
			return cmdutil.PrintJSON(m)
		},
	}
}
