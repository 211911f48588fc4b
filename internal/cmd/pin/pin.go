// Package pin implements "agent-memory pin".
package pin

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
)

// Command returns the pin sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "pin",
		Usage:     "pin a memory so it always surfaces at startup",
		ArgsUsage: "<memory-id>",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.StringFlag{Name: "scope", Value: "project", Usage: "project, group, or global"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("pin: memory id is required")
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

			m, err := app.Store.Pin(ctx, id, scope, projectPath)
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("pin: memory %q not found", id)
			}

			app.LogEvent(ctx, "pin", nil, &projectPath, nil, nil)
			return cmdutil.PrintJSON(m)
		},
	}
}
