package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/session"
	"github.com/chirino/agent-memory/internal/store"
)

func newTestManager(t *testing.T) (*session.Manager, context.Context) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BasePath = t.TempDir()
	ctx := config.WithContext(context.Background(), &cfg)
	return session.New(&cfg, store.New(&cfg), nil, "/tmp/svc-a"), ctx
}

func TestStartAndEndSession(t *testing.T) {
	m, _ := newTestManager(t)

	s, err := m.StartSession(map[string]interface{}{"agent": "test"})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NotEmpty(t, s.ID)
	assert.Nil(t, s.EndedAt)
	assert.Equal(t, s.ID, m.CurrentSession().ID)

	ended, err := m.EndSession("")
	require.NoError(t, err)
	require.NotNil(t, ended)
	assert.NotNil(t, ended.EndedAt)
	assert.Nil(t, m.CurrentSession())
}

func TestListSessionsMostRecentFirst(t *testing.T) {
	m, _ := newTestManager(t)

	first, err := m.StartSession(nil)
	require.NoError(t, err)
	second, err := m.StartSession(nil)
	require.NoError(t, err)

	sessions, err := m.ListSessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)

	last, err := m.GetLastSession()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, second.ID, last.ID)
}

func TestAddSummaryIncrementsCount(t *testing.T) {
	m, ctx := newTestManager(t)

	s, err := m.StartSession(nil)
	require.NoError(t, err)

	_, err = m.AddSummary(ctx, "did some work", "", nil)
	require.NoError(t, err)

	got, err := m.GetSession(s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.SummaryCount)

	summaries, err := m.GetSessionSummaries(ctx, s.ID, 10)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestShouldSummarizeRespectsConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasePath = t.TempDir()
	cfg.Autosave.SessionSummary = true
	cfg.Autosave.SummaryIntervalMessages = 5
	m := session.New(&cfg, store.New(&cfg), nil, "/tmp/svc-a")

	assert.False(t, m.ShouldSummarize(3))
	assert.True(t, m.ShouldSummarize(5))
	assert.True(t, m.ShouldSummarize(10))

	cfg.Autosave.SessionSummary = false
	assert.False(t, m.ShouldSummarize(5))
}

func TestCleanupOldSessionsKeepsRecent(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.StartSession(nil)
	require.NoError(t, err)

	removed, err := m.CleanupOld(30)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	sessions, err := m.ListSessions(10)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
