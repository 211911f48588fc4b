package pruning_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/pruning"
	"github.com/chirino/agent-memory/internal/store"
)

func newTestEngine(t *testing.T) (*pruning.Engine, *store.Store, context.Context) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BasePath = t.TempDir()
	ctx := config.WithContext(context.Background(), &cfg)
	st := store.New(&cfg)
	return pruning.New(st, nil), st, ctx
}

func TestFindCandidatesNeverAccessed(t *testing.T) {
	e, st, ctx := newTestEngine(t)

	_, err := st.Save(ctx, store.SaveInput{
		Content:     "stale note",
		Category:    model.CategoryFactual,
		Scope:       model.ScopeGlobal,
	})
	require.NoError(t, err)

	candidates, err := e.FindCandidates(ctx, pruning.FindCandidatesOptions{
		Scope:         model.ScopeGlobal,
		NeverAccessed: true,
		ExcludePinned: true,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Contains(t, candidates[0].Reasons, "never accessed")
}

func TestFindCandidatesExcludesPinned(t *testing.T) {
	e, st, ctx := newTestEngine(t)

	_, err := st.Save(ctx, store.SaveInput{
		Content:  "important",
		Category: model.CategoryFactual,
		Scope:    model.ScopeGlobal,
		Pinned:   true,
	})
	require.NoError(t, err)

	candidates, err := e.FindCandidates(ctx, pruning.FindCandidatesOptions{
		Scope:         model.ScopeGlobal,
		NeverAccessed: true,
		ExcludePinned: true,
	})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFindCandidatesRequiresBothCriteria(t *testing.T) {
	e, st, ctx := newTestEngine(t)

	m, err := st.Save(ctx, store.SaveInput{
		Content:  "accessed recently",
		Category: model.CategoryFactual,
		Scope:    model.ScopeGlobal,
	})
	require.NoError(t, err)
	st.RecordAccess(ctx, m.ID, model.ScopeGlobal, "")

	days := 90
	candidates, err := e.FindCandidates(ctx, pruning.FindCandidatesOptions{
		Scope:         model.ScopeGlobal,
		OlderThanDays: &days,
		NeverAccessed: true,
		ExcludePinned: true,
	})
	require.NoError(t, err)
	assert.Empty(t, candidates, "accessed and recent memory must not match an AND of both criteria")
}

func TestPruneDeletesFromStore(t *testing.T) {
	e, st, ctx := newTestEngine(t)

	m, err := st.Save(ctx, store.SaveInput{
		Content:  "to be pruned",
		Category: model.CategoryFactual,
		Scope:    model.ScopeGlobal,
	})
	require.NoError(t, err)

	candidates := []pruning.Candidate{{Memory: *m, Reasons: []string{"never accessed"}}}
	deleted := e.Prune(ctx, candidates)
	assert.Equal(t, 1, deleted)

	got, err := st.Get(ctx, m.ID, model.ScopeGlobal, "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetSummary(t *testing.T) {
	candidates := []pruning.Candidate{
		{Memory: model.Memory{Scope: model.ScopeGlobal, Category: model.CategoryFactual}, Reasons: []string{"never accessed"}},
		{Memory: model.Memory{Scope: model.ScopeGlobal, Category: model.CategoryDecision, CreatedAt: time.Now()}, Reasons: []string{"older than 90d", "never accessed"}},
	}
	summary := pruning.GetSummary(candidates)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.ByScope[model.ScopeGlobal])
	assert.Equal(t, 2, summary.ByReason["never accessed"])
	assert.Equal(t, 1, summary.ByReason["older than 90d"])
}
