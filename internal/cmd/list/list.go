// Package list implements "agent-memory list".
package list

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/store"
)

// Command returns the list sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list memories in a scope",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.StringFlag{Name: "scope", Value: "project", Usage: "project, group, or global"},
			&cli.StringFlag{Name: "category", Usage: "filter to one category"},
			&cli.BoolFlag{Name: "pinned-only", Usage: "only pinned memories"},
			&cli.BoolFlag{Name: "descendants", Usage: "include descendant projects (scope=project only)"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum rows returned"},
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

			opts := store.ListOptions{
				Scope:       scope,
				ProjectPath: projectPath,
				Category:    category,
				PinnedOnly:  cmd.Bool("pinned-only"),
				Limit:       int(cmd.Int("limit")),
			}

			var rows []model.Memory
			if scope == model.ScopeProject && cmd.Bool("descendants") {
				rows, err = app.Store.ListWithDescendants(ctx, opts)
			} else {
				rows, err = app.Store.List(ctx, opts)
			}
			if err != nil {
				return err
			}

			resultCount := len(rows)
			app.LogEvent(ctx, "list", nil, &projectPath, &resultCount, map[string]interface{}{"scope": string(scope)})
			return cmdutil.PrintJSON(rows)
		},
	}
}
