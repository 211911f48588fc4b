// Package save implements "agent-memory save".
package save

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/store"
	"github.com/chirino/agent-memory/internal/vectorstore"
)

// Command returns the save sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "save a new memory",
		ArgsUsage: "<content>",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.StringFlag{Name: "category", Usage: "factual, decision, task_history, or session_summary (auto-detected if omitted)"},
			&cli.StringFlag{Name: "scope", Value: "project", Usage: "project, group, or global"},
			&cli.StringSliceFlag{Name: "group", Usage: "group name (repeatable; required for scope=group)"},
			&cli.BoolFlag{Name: "pinned", Usage: "pin the memory so it always surfaces at startup"},
			&cli.IntFlag{Name: "expires-in-days", Usage: "expire the memory this many days from now"},
			&cli.StringFlag{Name: "source", Value: model.SourceUserExplicit, Usage: "who/what produced this memory"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			content := strings.TrimSpace(cmd.Args().First())
			if content == "" {
				return fmt.Errorf("save: content is required")
			}
			scope, err := cmdutil.ParseScope(cmd.String("scope"))
			if err != nil {
				return err
			}
			category, err := cmdutil.ParseCategory(cmd.String("category"))
			if err != nil {
				return err
			}
			var cat model.Category
			if category != nil {
				cat = *category
			}

			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}

			projectPath := ""
			if scope == model.ScopeProject {
				projectPath, err = cmdutil.ResolveProject(cmd)
				if err != nil {
					return err
				}
			}

			var expiresAt *time.Time
			if days := cmd.Int("expires-in-days"); days > 0 {
				t := time.Now().AddDate(0, 0, int(days))
				expiresAt = &t
			}

			m, err := app.Store.Save(ctx, store.SaveInput{
				Content:     content,
				Category:    cat,
				Scope:       scope,
				ProjectPath: projectPath,
				Pinned:      cmd.Bool("pinned"),
				Source:      cmd.String("source"),
				ExpiresAt:   expiresAt,
				Groups:      model.StringSet(cmd.StringSlice("group")),
			})
			if err != nil {
				return err
			}

			if err := app.Vector.Add(ctx, vectorstore.Entry{
				MemoryID: m.ID, Content: m.Content, Category: m.Category, Groups: m.Groups,
			}, scope, projectPath); err != nil {
				return fmt.Errorf("save: index memory: %w", err)
			}

			resultCount := 1
			var pp *string
			if projectPath != "" {
				pp = &projectPath
			}
			app.LogEvent(ctx, "save", nil, pp, &resultCount, map[string]interface{}{"scope": string(scope), "category": string(m.Category)})

			return cmdutil.PrintJSON(m)
		},
	}
}
