// Package stats implements "agent-memory stats commands|search|sessions",
// the usage-analytics CLI over the command event log (C12).
package stats

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmdutil"
	"github.com/chirino/agent-memory/internal/registry/metrics"
)

// Command returns the stats sub-command tree.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "usage analytics over logged command invocations",
		Commands: []*cli.Command{
			commandsCommand(),
			searchCommand(),
			sessionsCommand(),
			metricsCommand(),
		},
	}
}

// metricsCommand prints this invocation's own store-latency histogram in
// Prometheus text exposition format. A fresh agent-memory process starts
// with an empty registry, so this reports only the operations the current
// command performed, not a running server's cumulative counters.
func metricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "store operation latency for this invocation, in Prometheus text format",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}

			out, err := metrics.Gather()
			if err != nil {
				return err
			}
			app.LogEvent(ctx, "stats", strPtr("metrics"), nil, nil, nil)
			fmt.Print(string(out))
			return nil
		},
	}
}

func daysFlag() *cli.IntFlag {
	return &cli.IntFlag{Name: "days", Value: 30, Usage: "lookback window in days"}
}

func commandsCommand() *cli.Command {
	return &cli.Command{
		Name:  "commands",
		Usage: "invocation counts per command",
		Flags: []cli.Flag{daysFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			counts := app.Events.GetCommandCounts(ctx, int(cmd.Int("days")))
			app.LogEvent(ctx, "stats", strPtr("commands"), nil, nil, nil)
			return cmdutil.PrintJSON(counts)
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "search effectiveness (result counts, zero-result rate)",
		Flags: []cli.Flag{daysFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			s := app.Events.GetSearchStats(ctx, int(cmd.Int("days")))
			app.LogEvent(ctx, "stats", strPtr("search"), nil, nil, nil)
			return cmdutil.PrintJSON(s)
		},
	}
}

func sessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "session lifecycle compliance (summarize rate)",
		Flags: []cli.Flag{daysFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := cmdutil.Bootstrap(ctx)
			if err != nil {
				return err
			}
			s := app.Events.GetSessionStats(ctx, int(cmd.Int("days")))
			app.LogEvent(ctx, "stats", strPtr("sessions"), nil, nil, nil)
			return cmdutil.PrintJSON(s)
		},
	}
}

func strPtr(s string) *string { return &s }
