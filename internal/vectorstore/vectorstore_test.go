package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirino/agent-memory/internal/config"
	_ "github.com/chirino/agent-memory/internal/plugin/embed/local"
	"github.com/chirino/agent-memory/internal/model"
	registryembed "github.com/chirino/agent-memory/internal/registry/embed"
	"github.com/chirino/agent-memory/internal/vectorstore"
)

func newTestStore(t *testing.T) (*vectorstore.Store, context.Context) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BasePath = t.TempDir()
	ctx := config.WithContext(context.Background(), &cfg)

	loader, err := registryembed.Select("local")
	require.NoError(t, err)
	embedder, err := loader(ctx)
	require.NoError(t, err)

	return vectorstore.New(&cfg, embedder), ctx
}

func TestAddAndSearch(t *testing.T) {
	s, ctx := newTestStore(t)
	require.True(t, s.IsEnabled())

	err := s.Add(ctx, vectorstore.Entry{
		MemoryID: "mem_aaaaaaaaaaaa",
		Content:  "we decided to use postgres for the primary datastore",
		Category: model.CategoryDecision,
	}, model.ScopeGlobal, "")
	require.NoError(t, err)

	results, err := s.Search(ctx, vectorstore.SearchOptions{
		Query:     "postgres datastore decision",
		Scope:     model.ScopeGlobal,
		Limit:     5,
		Threshold: ptr(0.3),
	})
	require.NoError(t, err)
	if assert.NotEmpty(t, results) {
		assert.Equal(t, "mem_aaaaaaaaaaaa", results[0].MemoryID)
	}
}

func TestGroupFilterRules(t *testing.T) {
	s, ctx := newTestStore(t)
	err := s.Add(ctx, vectorstore.Entry{
		MemoryID: "mem_bbbbbbbbbbbb",
		Content:  "backend team conventions for error handling",
		Category: model.CategoryFactual,
		Groups:   model.StringSet{"backend"},
	}, model.ScopeGroup, "")
	require.NoError(t, err)

	excluded, err := s.Search(ctx, vectorstore.SearchOptions{
		Query:             "backend team conventions",
		Scope:             model.ScopeGlobal,
		Limit:             5,
		ExcludeGroupScope: true,
	})
	require.NoError(t, err)
	assert.Empty(t, excluded)

	included, err := s.Search(ctx, vectorstore.SearchOptions{
		Query:         "backend team conventions",
		Scope:         model.ScopeGlobal,
		Limit:         5,
		IncludeGroups: []string{"backend"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, included)
}

func TestResetDropsRows(t *testing.T) {
	s, ctx := newTestStore(t)
	err := s.Add(ctx, vectorstore.Entry{MemoryID: "mem_cccccccccccc", Content: "temp note", Category: model.CategoryFactual}, model.ScopeGlobal, "")
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx, model.ScopeGlobal, ""))

	results, err := s.Search(ctx, vectorstore.SearchOptions{Query: "temp note", Scope: model.ScopeGlobal, Limit: 5, Threshold: ptr(0.0)})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func ptr(f float64) *float64 { return &f }
