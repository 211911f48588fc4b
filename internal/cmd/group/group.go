// Package group implements "agent-memory group", the workspace-group
// registry CLI (C7).
package group

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
)

// Command returns the group sub-command tree.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "group",
		Usage: "manage workspace groups",
		Commands: []*cli.Command{
			createCommand(),
			deleteCommand(),
			listCommand(),
			addProjectCommand(),
			removeProjectCommand(),
		},
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "create a new, empty group",
		ArgsUsage: "<name>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return fmt.Errorf("group create: name is required")
			}
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			g, err := app.Groups.Create(name)
			if err != nil {
				return err
			}
			app.LogEvent(ctx, "group", strPtr("create"), nil, nil, nil)
			return cmdutil.PrintJSON(g)
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "delete a group",
		ArgsUsage: "<name>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return fmt.Errorf("group delete: name is required")
			}
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			ok, err := app.Groups.Delete(name)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("group delete: group %q not found", name)
			}
			app.LogEvent(ctx, "group", strPtr("delete"), nil, nil, nil)
			return cmdutil.PrintJSON(map[string]interface{}{"deleted": true, "name": name})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list every workspace group",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			groups, err := app.Groups.List()
			if err != nil {
				return err
			}
			resultCount := len(groups)
			app.LogEvent(ctx, "group", strPtr("list"), nil, &resultCount, nil)
			return cmdutil.PrintJSON(groups)
		},
	}
}

func addProjectCommand() *cli.Command {
	return &cli.Command{
		Name:      "add-project",
		Usage:     "add a project to a group",
		ArgsUsage: "<name> <project-path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, path := cmd.Args().Get(0), cmd.Args().Get(1)
			if name == "" || path == "" {
				return fmt.Errorf("group add-project: name and project path are required")
			}
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			g, err := app.Groups.AddProject(name, path)
			if err != nil {
				return err
			}
			app.LogEvent(ctx, "group", strPtr("add-project"), nil, nil, nil)
			return cmdutil.PrintJSON(g)
		},
	}
}

func removeProjectCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove-project",
		Usage:     "remove a project from a group",
		ArgsUsage: "<name> <project-path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, path := cmd.Args().Get(0), cmd.Args().Get(1)
			if name == "" || path == "" {
				return fmt.Errorf("group remove-project: name and project path are required")
			}
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			g, err := app.Groups.RemoveProject(name, path)
			if err != nil {
				return err
			}
			app.LogEvent(ctx, "group", strPtr("remove-project"), nil, nil, nil)
			return cmdutil.PrintJSON(g)
		},
	}
}

func strPtr(s string) *string { return &s }
