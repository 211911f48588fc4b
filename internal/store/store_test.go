package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, context.Context) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BasePath = t.TempDir()
	ctx := config.WithContext(context.Background(), &cfg)
	return store.New(&cfg), ctx
}

func TestSaveAndGet(t *testing.T) {
	s, ctx := newTestStore(t)

	m, err := s.Save(ctx, store.SaveInput{
		Content: "we decided to use postgres instead of mysql",
		Scope:   model.ScopeProject,
		ProjectPath: "/tmp/project-a",
		Source:  model.SourceUserExplicit,
	})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryDecision, m.Category)
	assert.False(t, m.Pinned)

	got, err := s.Get(ctx, m.ID, model.ScopeProject, "/tmp/project-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.Content, got.Content)
}

func TestSaveGroupScopeRequiresGroups(t *testing.T) {
	s, ctx := newTestStore(t)
	_, err := s.Save(ctx, store.SaveInput{Content: "x", Scope: model.ScopeGroup})
	assert.Error(t, err)
}

func TestSearchKeywordAndAcrossTerms(t *testing.T) {
	s, ctx := newTestStore(t)
	_, err := s.Save(ctx, store.SaveInput{Content: "fixed the race condition in the worker pool", Scope: model.ScopeGlobal, Source: model.SourceAutoSession})
	require.NoError(t, err)
	_, err = s.Save(ctx, store.SaveInput{Content: "the worker pool needs more capacity", Scope: model.ScopeGlobal, Source: model.SourceAutoSession})
	require.NoError(t, err)

	results, err := s.SearchKeyword(ctx, "worker pool", model.ScopeGlobal, "", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.SearchKeyword(ctx, "race worker", model.ScopeGlobal, "", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = s.SearchKeyword(ctx, "   ", model.ScopeGlobal, "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPinUnpin(t *testing.T) {
	s, ctx := newTestStore(t)
	m, err := s.Save(ctx, store.SaveInput{Content: "remember this", Scope: model.ScopeGlobal, Source: model.SourceUserExplicit})
	require.NoError(t, err)

	pinned, err := s.Pin(ctx, m.ID, model.ScopeGlobal, "")
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)

	unpinned, err := s.Unpin(ctx, m.ID, model.ScopeGlobal, "")
	require.NoError(t, err)
	assert.False(t, unpinned.Pinned)
}

func TestGroupMembershipMutations(t *testing.T) {
	s, ctx := newTestStore(t)
	m, err := s.Save(ctx, store.SaveInput{
		Content: "shared across team",
		Scope:   model.ScopeGroup,
		Groups:  model.StringSet{"backend"},
		Source:  model.SourceUserExplicit,
	})
	require.NoError(t, err)

	updated, err := s.AddGroups(ctx, m.ID, []string{"frontend"})
	require.NoError(t, err)
	assert.True(t, updated.Groups.Contains("backend"))
	assert.True(t, updated.Groups.Contains("frontend"))

	_, err = s.RemoveGroups(ctx, m.ID, []string{"backend", "frontend"})
	assert.Error(t, err, "removing every group must fail")

	updated, err = s.RemoveGroups(ctx, m.ID, []string{"frontend"})
	require.NoError(t, err)
	assert.Equal(t, model.StringSet{"backend"}, updated.Groups)
}

func TestListByGroup(t *testing.T) {
	s, ctx := newTestStore(t)

	backend, err := s.Save(ctx, store.SaveInput{
		Content: "backend note",
		Scope:   model.ScopeGroup,
		Groups:  model.StringSet{"backend"},
		Source:  model.SourceUserExplicit,
	})
	require.NoError(t, err)
	_, err = s.Save(ctx, store.SaveInput{
		Content: "frontend note",
		Scope:   model.ScopeGroup,
		Groups:  model.StringSet{"frontend"},
		Source:  model.SourceUserExplicit,
	})
	require.NoError(t, err)

	rows, err := s.ListByGroup(ctx, "backend", false, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, backend.ID, rows[0].ID)

	all, err := s.ListByGroup(ctx, "all", false, nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSetScopeMovesBetweenFiles(t *testing.T) {
	s, ctx := newTestStore(t)
	m, err := s.Save(ctx, store.SaveInput{Content: "project note", Scope: model.ScopeProject, ProjectPath: "/tmp/project-b", Source: model.SourceUserExplicit})
	require.NoError(t, err)

	moved, err := s.Promote(ctx, m.ID, "/tmp/project-b", model.ScopeGlobal, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ScopeGlobal, moved.Scope)

	stillThere, err := s.Get(ctx, m.ID, model.ScopeProject, "/tmp/project-b")
	require.NoError(t, err)
	assert.Nil(t, stillThere)

	global, err := s.Get(ctx, m.ID, model.ScopeGlobal, "")
	require.NoError(t, err)
	require.NotNil(t, global)
}

func TestDeleteReportsWhetherRowExisted(t *testing.T) {
	s, ctx := newTestStore(t)
	m, err := s.Save(ctx, store.SaveInput{Content: "temp", Scope: model.ScopeGlobal, Source: model.SourceUserExplicit})
	require.NoError(t, err)

	ok, err := s.Delete(ctx, m.ID, model.ScopeGlobal, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, m.ID, model.ScopeGlobal, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordAccessNeverFails(t *testing.T) {
	s, ctx := newTestStore(t)
	s.RecordAccess(ctx, "mem_doesnotexist", model.ScopeGlobal, "")
}
