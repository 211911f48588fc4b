// Package session implements "agent-memory session", the session
// lifecycle CLI (C8).
package session

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/registry/summarize"
	"github.com/chirino/agent-memory/internal/session"
)

// Command returns the session sub-command tree.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "manage per-project agent sessions",
		Commands: []*cli.Command{
			startCommand(),
			endCommand(),
			summarizeCommand(),
			loadLastCommand(),
			gcCommand(),
			analyzeCommand(),
		},
	}
}

func manager(ctx context.Context, cmd *cli.Command) (*session.Manager, *cmdutil.App, string, error) {
	app, err := cmdutil.Bootstrap(ctx)
	if err != nil {
		return nil, nil, "", err
	}
	projectPath, err := cmdutil.ResolveProject(cmd)
	if err != nil {
		return nil, nil, "", err
	}
	return session.New(app.Cfg, app.Store, app.Vector, projectPath), app, projectPath, nil
}

func startCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "start a new session",
		Flags: []cli.Flag{cmdutil.ProjectFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mgr, app, projectPath, err := manager(ctx, cmd)
			if err != nil {
				return err
			}
			s, err := mgr.StartSession(nil)
			if err != nil {
				return err
			}
			app.LogEvent(ctx, "session", strPtr("start"), &projectPath, nil, nil)
			return cmdutil.PrintJSON(s)
		},
	}
}

func endCommand() *cli.Command {
	return &cli.Command{
		Name:      "end",
		Usage:     "end a session (defaults to the most recent one)",
		ArgsUsage: "[session-id]",
		Flags:     []cli.Flag{cmdutil.ProjectFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mgr, app, projectPath, err := manager(ctx, cmd)
			if err != nil {
				return err
			}
			id := cmd.Args().First()
			if id == "" {
				last, err := mgr.GetLastSession()
				if err != nil {
					return err
				}
				if last != nil {
					id = last.ID
				}
			}
			s, err := mgr.EndSession(id)
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("session end: no matching session")
			}
			app.LogEvent(ctx, "session", strPtr("end"), &projectPath, nil, nil)
			return cmdutil.PrintJSON(s)
		},
	}
}

func summarizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Usage:     "save a session summary memory",
		ArgsUsage: "<content>",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.StringFlag{Name: "session-id", Usage: "session to attribute the summary to (defaults to the most recent one)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			content := cmd.Args().First()
			if content == "" {
				return fmt.Errorf("session summarize: content is required")
			}
			mgr, app, projectPath, err := manager(ctx, cmd)
			if err != nil {
				return err
			}
			sessionID := cmd.String("session-id")
			if sessionID == "" {
				last, err := mgr.GetLastSession()
				if err != nil {
					return err
				}
				if last != nil {
					sessionID = last.ID
				}
			}
			m, err := mgr.AddSummary(ctx, content, sessionID, nil)
			if err != nil {
				return err
			}
			app.LogEvent(ctx, "session", strPtr("summarize"), &projectPath, nil, nil)
			return cmdutil.PrintJSON(m)
		},
	}
}

func loadLastCommand() *cli.Command {
	return &cli.Command{
		Name:  "load-last",
		Usage: "load the previous session's summaries",
		Flags: []cli.Flag{cmdutil.ProjectFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mgr, app, projectPath, err := manager(ctx, cmd)
			if err != nil {
				return err
			}
			summaries, err := mgr.LoadLastSessionContext(ctx)
			if err != nil {
				return err
			}
			resultCount := len(summaries)
			app.LogEvent(ctx, "session", strPtr("load-last"), &projectPath, &resultCount, nil)
			return cmdutil.PrintJSON(summaries)
		},
	}
}

func gcCommand() *cli.Command {
	return &cli.Command{
		Name:  "gc",
		Usage: "delete session records older than a retention window",
		Flags: []cli.Flag{
			cmdutil.ProjectFlag(),
			&cli.IntFlag{Name: "keep-days", Value: 30, Usage: "retention window in days"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mgr, app, projectPath, err := manager(ctx, cmd)
			if err != nil {
				return err
			}
			removed, err := mgr.CleanupOld(int(cmd.Int("keep-days")))
			if err != nil {
				return err
			}
			app.LogEvent(ctx, "session", strPtr("gc"), &projectPath, &removed, nil)
			return cmdutil.PrintJSON(map[string]interface{}{"removed": removed})
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "extract error/cause/fix patterns from a session summary",
		ArgsUsage: "<session-id>",
		Flags:     []cli.Flag{cmdutil.ProjectFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sessionID := cmd.Args().First()
			if sessionID == "" {
				return fmt.Errorf("session analyze: session id is required")
			}
			mgr, app, projectPath, err := manager(ctx, cmd)
			if err != nil {
				return err
			}
			summaries, err := mgr.GetSessionSummaries(ctx, sessionID, 20)
			if err != nil {
				return err
			}

			summarizeLoader, err := summarize.Select(app.Cfg.LLM.Provider)
			if err != nil {
				return err
			}
			summarizer, err := summarizeLoader(config.WithContext(ctx, app.Cfg))
			if err != nil {
				return err
			}

			var patterns []model.Pattern
			for _, s := range summaries {
				found, err := summarizer.ExtractPatterns(ctx, s.Content)
				if err != nil {
					return err
				}
				patterns = append(patterns, found...)
			}

			resultCount := len(patterns)
			app.LogEvent(ctx, "session", strPtr("analyze"), &projectPath, &resultCount, nil)
			return cmdutil.PrintJSON(patterns)
		},
	}
}

func strPtr(s string) *string { return &s }
