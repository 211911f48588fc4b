package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/cmd/compact"
	deletecmd "github.com/chirino/agent-memory/internal/cmd/delete"
	"github.com/chirino/agent-memory/internal/cmd/get"
	"github.com/chirino/agent-memory/internal/cmd/group"
	"github.com/chirino/agent-memory/internal/cmd/list"
	"github.com/chirino/agent-memory/internal/cmd/pin"
	"github.com/chirino/agent-memory/internal/cmd/promote"
	"github.com/chirino/agent-memory/internal/cmd/prune"
	"github.com/chirino/agent-memory/internal/cmd/recent"
	"github.com/chirino/agent-memory/internal/cmd/save"
	"github.com/chirino/agent-memory/internal/cmd/search"
	"github.com/chirino/agent-memory/internal/cmd/session"
	"github.com/chirino/agent-memory/internal/cmd/startup"
	"github.com/chirino/agent-memory/internal/cmd/stats"
	"github.com/chirino/agent-memory/internal/cmd/unpin"
	"github.com/chirino/agent-memory/internal/cmd/unpromote"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "agent-memory",
		Usage: "persistent memory for coding agents",
		Commands: []*cli.Command{
			save.Command(),
			get.Command(),
			list.Command(),
			search.Command(),
			pin.Command(),
			unpin.Command(),
			promote.Command(),
			unpromote.Command(),
			deletecmd.Command(),
			group.Command(),
			session.Command(),
			prune.Command(),
			compact.Command(),
			startup.Command(),
			recent.Command(),
			stats.Command(),
		},
	}
	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
