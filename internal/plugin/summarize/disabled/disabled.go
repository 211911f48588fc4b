// Package disabled implements a no-op Summarizer for when compaction and
// pattern extraction are turned off. Adapted from the teacher's
// internal/plugin/embed/disabled, same refuse-everything shape.
package disabled

import (
	"context"
	"fmt"

	"github.com/chirino/agent-memory/internal/model"
	registrysummarize "github.com/chirino/agent-memory/internal/registry/summarize"
)

func init() {
	registrysummarize.Register(registrysummarize.Plugin{
		Name: "none",
		Loader: func(_ context.Context) (registrysummarize.Summarizer, error) {
			return &disabledSummarizer{}, nil
		},
	})
}

type disabledSummarizer struct{}

func (d *disabledSummarizer) Name() string { return "none" }

func (d *disabledSummarizer) Summarize(_ context.Context, _ []string) (string, error) {
	return "", fmt.Errorf("summarization is disabled")
}

func (d *disabledSummarizer) ExtractPatterns(_ context.Context, _ string) ([]model.Pattern, error) {
	return nil, nil
}

var _ registrysummarize.Summarizer = (*disabledSummarizer)(nil)
