// Package promote implements "agent-memory promote": moving a
// project-scoped memory up to group or global scope.
package promote

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/vectorstore"
)

// Command returns the promote sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "promote",
		Usage:     "promote a project memory to group or global scope",
		ArgsUsage: "<memory-id>",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.StringFlag{Name: "to-scope", Value: "global", Usage: "group or global"},
			&cli.StringSliceFlag{Name: "group", Usage: "group name (repeatable; required for --to-scope=group)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("promote: memory id is required")
			}
			toScope, err := cmdutil.ParseScope(cmd.String("to-scope"))
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

			m, err := app.Store.Promote(ctx, id, projectPath, toScope, cmd.StringSlice("group"))
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("promote: memory %q not found", id)
			}

			app.Vector.Delete(ctx, m.ID, model.ScopeProject, projectPath)
			if err := app.Vector.Add(ctx, vectorstore.Entry{MemoryID: m.ID, Content: m.Content, Category: m.Category, Groups: m.Groups}, toScope, ""); err != nil {
				return fmt.Errorf("promote: reindex memory: %w", err)
			}

			app.LogEvent(ctx, "promote", nil, &projectPath, nil, map[string]interface{}{"to_scope": string(toScope)})
			return cmdutil.PrintJSON(m)
		},
	}
}
