package compaction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirino/agent-memory/internal/compaction"
	"github.com/chirino/agent-memory/internal/config"
	_ "github.com/chirino/agent-memory/internal/plugin/embed/local"
	localsummarize "github.com/chirino/agent-memory/internal/plugin/summarize/local"
	"github.com/chirino/agent-memory/internal/model"
	registryembed "github.com/chirino/agent-memory/internal/registry/embed"
	"github.com/chirino/agent-memory/internal/store"
	"github.com/chirino/agent-memory/internal/vectorstore"
)

func newTestEngine(t *testing.T) (*compaction.Engine, *store.Store, *vectorstore.Store, context.Context) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BasePath = t.TempDir()
	ctx := config.WithContext(context.Background(), &cfg)

	loader, err := registryembed.Select("local")
	require.NoError(t, err)
	embedder, err := loader(ctx)
	require.NoError(t, err)

	st := store.New(&cfg)
	vs := vectorstore.New(&cfg, embedder)
	return compaction.New(st, vs, &localsummarize.Summarizer{}), st, vs, ctx
}

func saveAndIndex(t *testing.T, st *store.Store, vs *vectorstore.Store, ctx context.Context, content string) model.Memory {
	t.Helper()
	m, err := st.Save(ctx, store.SaveInput{Content: content, Category: model.CategoryFactual, Scope: model.ScopeGlobal})
	require.NoError(t, err)
	require.NoError(t, vs.Add(ctx, vectorstore.Entry{MemoryID: m.ID, Content: content, Category: model.CategoryFactual}, model.ScopeGlobal, ""))
	return *m
}

func TestFindClustersGroupsSimilarMemories(t *testing.T) {
	e, st, vs, ctx := newTestEngine(t)

	saveAndIndex(t, st, vs, ctx, "we decided to use postgres for storage")
	saveAndIndex(t, st, vs, ctx, "the team agreed postgres is our storage choice")
	saveAndIndex(t, st, vs, ctx, "postgres was picked as the database")
	saveAndIndex(t, st, vs, ctx, "unrelated note about deployment pipelines")

	clusters, err := e.FindClusters(ctx, compaction.FindClustersOptions{
		Scope:               model.ScopeGlobal,
		SimilarityThreshold: 0.2,
		MinClusterSize:      3,
	})
	require.NoError(t, err)
	if assert.NotEmpty(t, clusters) {
		assert.GreaterOrEqual(t, clusters[0].Size(), 3)
	}
}

func TestCompactClusterReplacesMemories(t *testing.T) {
	e, st, vs, ctx := newTestEngine(t)

	m1 := saveAndIndex(t, st, vs, ctx, "first note about releases")
	m2 := saveAndIndex(t, st, vs, ctx, "second note about releases")

	cluster := compaction.Cluster{Memories: []model.Memory{m1, m2}}
	summary, err := e.GenerateSummary(ctx, cluster)
	require.NoError(t, err)
	require.NotEmpty(t, summary)

	compacted, err := e.CompactCluster(ctx, cluster, summary, model.ScopeGlobal, "", nil)
	require.NoError(t, err)
	assert.Equal(t, model.SourceAutoCompaction, compacted.Source)

	got, err := st.Get(ctx, m1.ID, model.ScopeGlobal, "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetClusterSummary(t *testing.T) {
	clusters := []compaction.Cluster{
		{Memories: []model.Memory{{ID: "mem_a"}, {ID: "mem_b"}, {ID: "mem_c"}}},
	}
	summary := compaction.GetClusterSummary(clusters)
	assert.Equal(t, 1, summary.ClusterCount)
	assert.Equal(t, 3, summary.TotalMemories)
	assert.Equal(t, 3.0, summary.AvgClusterSize)
}
