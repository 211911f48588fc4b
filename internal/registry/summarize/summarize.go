// Package summarize declares the narrow Summarizer capability set used by
// the compaction engine (C11) and session pattern extraction (spec.md §9
// and SPEC_FULL.md §3), plus a plugin registry mirroring the teacher's
// registry packages.
package summarize

import (
	"context"
	"fmt"

	"github.com/chirino/agent-memory/internal/model"
)

// Summarizer turns a set of related memories into one summary, and can
// extract error/cause/fix patterns from free text.
type Summarizer interface {
	// Summarize returns a single summary for the given memory contents,
	// ordered oldest to newest. Returns an error if the call fails; the
	// compaction engine treats that as fatal for the in-flight operation.
	Summarize(ctx context.Context, contents []string) (string, error)
	// ExtractPatterns extracts error-fix patterns from session content.
	// Returns an empty slice (not an error) when none are found.
	ExtractPatterns(ctx context.Context, content string) ([]model.Pattern, error)
	// Name returns the plugin name (e.g. "anthropic", "local").
	Name() string
}

// Loader creates a Summarizer from config.
type Loader func(ctx context.Context) (Summarizer, error)

// Plugin represents a summarizer plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a summarizer plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered summarizer plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named summarizer plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown summarizer %q; valid: %v", name, Names())
}
