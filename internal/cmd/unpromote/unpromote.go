// Package unpromote implements "agent-memory unpromote": moving a group-
// or global-scoped memory back down to project scope.
package unpromote

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/vectorstore"
)

// Command returns the unpromote sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "unpromote",
		Usage:     "move a group/global memory back to project scope",
		ArgsUsage: "<memory-id>",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.StringFlag{Name: "from-scope", Value: "global", Usage: "group or global"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("unpromote: memory id is required")
			}
			fromScope, err := cmdutil.ParseScope(cmd.String("from-scope"))
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

			m, err := app.Store.Unpromote(ctx, id, fromScope, projectPath)
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("unpromote: memory %q not found", id)
			}

			app.Vector.Delete(ctx, m.ID, fromScope, "")
			if err := app.Vector.Add(ctx, vectorstore.Entry{MemoryID: m.ID, Content: m.Content, Category: m.Category, Groups: m.Groups}, model.ScopeProject, projectPath); err != nil {
				return fmt.Errorf("unpromote: reindex memory: %w", err)
			}

			app.LogEvent(ctx, "unpromote", nil, &projectPath, nil, map[string]interface{}{"from_scope": string(fromScope)})
			return cmdutil.PrintJSON(m)
		},
	}
}
