// Package cmdutil wires the shared bootstrap every agent-memory
// subcommand needs: load config, open the stores, and write an event-log
// record. No command logic lives here beyond that shared plumbing,
// mirroring the teacher's internal/cmd/serve.go bootstrap split between
// flag parsing and the serve/migrate business logic it delegates to.
package cmdutil

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	// Blank-import every plugin so its init() registers with the relevant
	// registry; Bootstrap then selects by name from config.
	_ "github.com/chirino/agent-memory/internal/plugin/embed/disabled"
	_ "github.com/chirino/agent-memory/internal/plugin/embed/local"
	_ "github.com/chirino/agent-memory/internal/plugin/embed/openai"
	_ "github.com/chirino/agent-memory/internal/plugin/summarize/anthropic"
	_ "github.com/chirino/agent-memory/internal/plugin/summarize/disabled"
	_ "github.com/chirino/agent-memory/internal/plugin/summarize/local"

	"github.com/chirino/agent-memory/internal/compaction"
	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/eventlog"
	"github.com/chirino/agent-memory/internal/groups"
	"github.com/chirino/agent-memory/internal/pruning"
	registryembed "github.com/chirino/agent-memory/internal/registry/embed"
	"github.com/chirino/agent-memory/internal/registry/metrics"
	registrysummarize "github.com/chirino/agent-memory/internal/registry/summarize"
	"github.com/chirino/agent-memory/internal/relevance"
	"github.com/chirino/agent-memory/internal/store"
	"github.com/chirino/agent-memory/internal/vectorstore"
)

// App bundles every core component a CLI command might call into. Built
// once per invocation by the command's Action calling Bootstrap.
type App struct {
	Cfg *config.Config

	Store      *store.Store
	Vector     *vectorstore.Store
	Groups     *groups.Registry
	Events     *eventlog.Log
	Relevance  *relevance.Engine
	Pruning    *pruning.Engine
	Compaction *compaction.Engine

	// InvocationID correlates every CommandEvent row this process logs
	// back to a single CLI call.
	InvocationID string
}

// Bootstrap loads configuration (config.yaml, then AGENT_MEMORY_* env) and
// constructs every core component, selecting the embed/summarize plugin
// named by config.
func Bootstrap(ctx context.Context) (*App, error) {
	metrics.Init()

	base := config.DefaultConfig()
	cfg, err := config.Load(base.ConfigFile())
	if err != nil {
		return nil, err
	}
	ctx = config.WithContext(ctx, &cfg)

	embedLoader, err := registryembed.Select(cfg.Semantic.Provider)
	if err != nil {
		return nil, fmt.Errorf("cmdutil: select embedder: %w", err)
	}
	embedder, err := embedLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("cmdutil: load embedder: %w", err)
	}

	summarizeLoader, err := registrysummarize.Select(cfg.LLM.Provider)
	if err != nil {
		return nil, fmt.Errorf("cmdutil: select summarizer: %w", err)
	}
	summarizer, err := summarizeLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("cmdutil: load summarizer: %w", err)
	}

	st := store.New(&cfg)
	vs := vectorstore.New(&cfg, embedder)
	gr := groups.New(&cfg)
	ev := eventlog.New(&cfg)
	rv := relevance.New(&cfg, st, vs, gr)
	pr := pruning.New(st, vs)
	cp := compaction.New(st, vs, summarizer)

	return &App{
		Cfg:          &cfg,
		Store:        st,
		Vector:       vs,
		Groups:       gr,
		Events:       ev,
		Relevance:    rv,
		Pruning:      pr,
		Compaction:   cp,
		InvocationID: uuid.NewString(),
	}, nil
}

// LogEvent is a thin wrapper so command Actions can log consistently. Every
// row is tagged with the process's InvocationID so events logged by one
// CLI call can be correlated after the fact.
func (a *App) LogEvent(ctx context.Context, command string, subcommand *string, projectPath *string, resultCount *int, metadata map[string]interface{}) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["invocation_id"] = a.InvocationID
	a.Events.Log(ctx, command, subcommand, projectPath, resultCount, metadata)
}
