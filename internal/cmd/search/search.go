// Package search implements "agent-memory search", the hybrid
// semantic-then-keyword relevance query (C9).
package search

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
	"github.com/chirino/agent-memory/internal/relevance"
)

// Command returns the search sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "search memories relevant to a query",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.IntFlag{Name: "limit", Value: 10, Usage: "maximum results returned"},
			&cli.Float64Flag{Name: "threshold", Usage: "override the configured semantic similarity threshold"},
			&cli.BoolFlag{Name: "no-pinned", Usage: "exclude pinned memories from the result"},
			&cli.StringSliceFlag{Name: "file", Usage: "current file path; its base name is added to the semantic search query (repeatable)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := cmd.Args().First()
			if query == "" {
				return fmt.Errorf("search: query is required")
			}

			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			projectPath, err := cmdutil.ResolveProject(cmd)
			if err != nil {
				return err
			}

			var threshold *float64
			if cmd.IsSet("threshold") {
				t := cmd.Float64("threshold")
				threshold = &t
			}

			result, err := app.Relevance.GetRelevantMemories(ctx, relevance.GetRelevantMemoriesOptions{
				Query:         query,
				CurrentFiles:  cmd.StringSlice("file"),
				ProjectPath:   projectPath,
				Limit:         int(cmd.Int("limit")),
				Threshold:     threshold,
				IncludePinned: !cmd.Bool("no-pinned"),
			})
			if err != nil {
				return err
			}

			resultCount := len(result.AllMemoryIDs())
			app.LogEvent(ctx, "search", nil, &projectPath, &resultCount, map[string]interface{}{"query": query})
			return cmdutil.PrintJSON(result)
		},
	}
}
