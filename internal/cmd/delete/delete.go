// Package deletecmd implements "agent-memory delete".
package deletecmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
	"github.com/chirino/agent-memory/internal/model"
)

// Command returns the delete sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "delete a memory by id",
		ArgsUsage: "<memory-id>",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.StringFlag{Name: "scope", Value: "project", Usage: "project, group, or global"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("delete: memory id is required")
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
			if scope != model.ScopeProject {
				projectPath = ""
			}

			deleted, err := app.Store.Delete(ctx, id, scope, projectPath)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("delete: memory %q not found", id)
			}
			app.Vector.Delete(ctx, id, scope, projectPath)

			app.LogEvent(ctx, "delete", nil, &projectPath, nil, nil)
			return cmdutil.PrintJSON(map[string]interface{}{"deleted": true, "id": id})
		},
	}
}
