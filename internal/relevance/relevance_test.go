package relevance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/groups"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/relevance"
	"github.com/chirino/agent-memory/internal/store"
)

func newTestEngine(t *testing.T) (*relevance.Engine, *store.Store, *groups.Registry, context.Context) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BasePath = t.TempDir()
	ctx := config.WithContext(context.Background(), &cfg)
	st := store.New(&cfg)
	gr := groups.New(&cfg)
	return relevance.New(&cfg, st, nil, gr), st, gr, ctx
}

func TestGetStartupContextIncludesPinned(t *testing.T) {
	e, st, _, ctx := newTestEngine(t)

	m, err := st.Save(ctx, store.SaveInput{
		Content:     "always remember this",
		Category:    model.CategoryFactual,
		Scope:       model.ScopeProject,
		ProjectPath: "/tmp/svc-a",
		Pinned:      true,
	})
	require.NoError(t, err)

	sc, err := e.GetStartupContext(ctx, "/tmp/svc-a")
	require.NoError(t, err)
	require.Len(t, sc.PinnedMemories, 1)
	assert.Equal(t, m.ID, sc.PinnedMemories[0].ID)
	assert.False(t, sc.HasPreviousSession)
}

func TestGetStartupContextIncludesGroupMemories(t *testing.T) {
	e, st, gr, ctx := newTestEngine(t)

	_, err := gr.Create("backend")
	require.NoError(t, err)
	_, err = gr.AddProject("backend", "/tmp/svc-a")
	require.NoError(t, err)

	m, err := st.Save(ctx, store.SaveInput{
		Content:  "shared across the backend group",
		Category: model.CategoryFactual,
		Scope:    model.ScopeGroup,
		Groups:   model.StringSet{"backend"},
	})
	require.NoError(t, err)

	sc, err := e.GetStartupContext(ctx, "/tmp/svc-a")
	require.NoError(t, err)
	require.Len(t, sc.GroupMemories, 1)
	assert.Equal(t, m.ID, sc.GroupMemories[0].ID)
}

func TestGetRelevantMemoriesKeywordFallback(t *testing.T) {
	e, st, _, ctx := newTestEngine(t)

	_, err := st.Save(ctx, store.SaveInput{
		Content:     "we use postgres for storage",
		Category:    model.CategoryDecision,
		Scope:       model.ScopeProject,
		ProjectPath: "/tmp/svc-a",
	})
	require.NoError(t, err)

	result, err := e.GetRelevantMemories(ctx, relevance.GetRelevantMemoriesOptions{
		Query:       "postgres",
		ProjectPath: "/tmp/svc-a",
		Limit:       5,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.KeywordResults)
	assert.Empty(t, result.SemanticResults)
}

func TestScoreMemoryRelevance(t *testing.T) {
	pinned := model.Memory{Pinned: true, Category: model.CategoryDecision, CreatedAt: time.Now(), Content: "use postgres"}
	score := relevance.ScoreMemoryRelevance(pinned, "postgres", nil)
	assert.Greater(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)

	stale := model.Memory{CreatedAt: time.Now().AddDate(0, 0, -30), Content: "irrelevant note"}
	assert.Less(t, relevance.ScoreMemoryRelevance(stale, "", nil), 0.1)
}
