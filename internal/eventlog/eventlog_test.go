package eventlog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/eventlog"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func newTestLog(t *testing.T) (*eventlog.Log, context.Context) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BasePath = t.TempDir()
	ctx := config.WithContext(context.Background(), &cfg)
	return eventlog.New(&cfg), ctx
}

func TestLogAndCommandCounts(t *testing.T) {
	l, ctx := newTestLog(t)

	l.Log(ctx, "search", nil, nil, intPtr(3), nil)
	l.Log(ctx, "search", nil, nil, intPtr(0), nil)
	l.Log(ctx, "session", strPtr("start"), nil, nil, nil)

	counts := l.GetCommandCounts(ctx, 30)
	assert.Equal(t, int64(2), counts["search"])
	assert.Equal(t, int64(1), counts["session start"])
}

func TestSearchStats(t *testing.T) {
	l, ctx := newTestLog(t)

	l.Log(ctx, "search", nil, nil, intPtr(4), nil)
	l.Log(ctx, "search", nil, nil, intPtr(0), nil)

	stats := l.GetSearchStats(ctx, 30)
	assert.Equal(t, int64(2), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, 0.5, stats.ZeroResultRate)
}

func TestSessionStatsComplianceRate(t *testing.T) {
	l, ctx := newTestLog(t)

	l.Log(ctx, "startup", nil, nil, nil, nil)
	l.Log(ctx, "session", strPtr("start"), nil, nil, nil)
	l.Log(ctx, "session", strPtr("summarize"), nil, nil, nil)

	stats := l.GetSessionStats(ctx, 30)
	assert.Equal(t, int64(1), stats.StartupCount)
	assert.Equal(t, int64(1), stats.SessionStarts)
	assert.Equal(t, int64(1), stats.SummarizeCount)
	assert.Equal(t, 1.0, stats.SummarizeRate)
}

func TestSessionStatsNoActivity(t *testing.T) {
	l, ctx := newTestLog(t)

	stats := l.GetSessionStats(ctx, 30)
	assert.Equal(t, 0.0, stats.SummarizeRate)
}
