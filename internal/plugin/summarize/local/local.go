// Package local implements a dependency-free Summarizer used as the default
// and in tests. It has no language model behind it, so it falls back to
// extractive heuristics: summarize truncates and concatenates, and
// ExtractPatterns returns no patterns (pattern extraction genuinely needs a
// model, per original_source/src/agent_memory/llm.py's LLMProvider).
package local

import (
	"context"
	"fmt"
	"strings"

	"github.com/chirino/agent-memory/internal/model"
	registrysummarize "github.com/chirino/agent-memory/internal/registry/summarize"
)

const maxContentRunes = 200

func init() {
	registrysummarize.Register(registrysummarize.Plugin{
		Name: "local",
		Loader: func(_ context.Context) (registrysummarize.Summarizer, error) {
			return &Summarizer{}, nil
		},
	})
}

type Summarizer struct{}

func (s *Summarizer) Name() string { return "local" }

// Summarize concatenates a truncated form of each memory, oldest first, with
// no model call. Produces a usable but low-quality summary; callers wanting
// real compaction quality should configure an "anthropic" LLM provider.
func (s *Summarizer) Summarize(_ context.Context, contents []string) (string, error) {
	if len(contents) == 0 {
		return "", fmt.Errorf("local summarize: no memories to summarize")
	}
	lines := make([]string, 0, len(contents))
	for _, c := range contents {
		lines = append(lines, "- "+truncate(c, maxContentRunes))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Summarizer) ExtractPatterns(_ context.Context, _ string) ([]model.Pattern, error) {
	return nil, nil
}

func truncate(s string, limit int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit]) + "..."
}

var _ registrysummarize.Summarizer = (*Summarizer)(nil)
