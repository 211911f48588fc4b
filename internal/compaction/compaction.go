// Package compaction implements the compaction engine (C11, spec.md
// §4.10): clustering similar memories with DBSCAN over cosine distance and
// replacing each cluster with one LLM-generated summary. Grounded on
// original_source/src/agent_memory/compaction.py's CompactionEngine.
package compaction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chirino/agent-memory/internal/model"
	registrysummarize "github.com/chirino/agent-memory/internal/registry/summarize"
	"github.com/chirino/agent-memory/internal/store"
	"github.com/chirino/agent-memory/internal/vectorstore"
)

// ErrEmbeddingRequired is returned when FindClusters is called without a
// vector store that has embeddings enabled.
var ErrEmbeddingRequired = errors.New("compaction: vector store with embeddings required for clustering")

// Cluster is a group of similar memories to be replaced by one summary.
type Cluster struct {
	Memories   []model.Memory
	Embeddings [][]float32
}

// IDs returns the memory IDs in the cluster.
func (c Cluster) IDs() []string {
	ids := make([]string, len(c.Memories))
	for i, m := range c.Memories {
		ids[i] = m.ID
	}
	return ids
}

// Contents returns memory contents ordered oldest to newest.
func (c Cluster) Contents() []string {
	sorted := make([]model.Memory, len(c.Memories))
	copy(sorted, c.Memories)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	contents := make([]string, len(sorted))
	for i, m := range sorted {
		contents[i] = m.Content
	}
	return contents
}

// Size returns the number of memories in the cluster.
func (c Cluster) Size() int { return len(c.Memories) }

// Engine clusters and compacts similar memories.
type Engine struct {
	store       *store.Store
	vectorStore *vectorstore.Store
	summarizer  registrysummarize.Summarizer
}

func New(st *store.Store, vs *vectorstore.Store, summarizer registrysummarize.Summarizer) *Engine {
	return &Engine{store: st, vectorStore: vs, summarizer: summarizer}
}

// FindClustersOptions filters the candidate memories and parameterizes
// DBSCAN.
type FindClustersOptions struct {
	Scope               model.Scope // empty checks project+group+global
	Category            *model.Category
	OlderThanDays       *int
	SimilarityThreshold float64 // default 0.8; distance eps = 1 - threshold
	MinClusterSize      int     // default 3
}

var allScopes = []model.Scope{model.ScopeProject, model.ScopeGroup, model.ScopeGlobal}

// FindClusters selects candidate memories, embeds them, and groups them
// with DBSCAN over cosine distance.
func (e *Engine) FindClusters(ctx context.Context, opts FindClustersOptions) ([]Cluster, error) {
	if e.vectorStore == nil || !e.vectorStore.IsEnabled() || e.vectorStore.Embedder() == nil {
		return nil, ErrEmbeddingRequired
	}

	minClusterSize := opts.MinClusterSize
	if minClusterSize <= 0 {
		minClusterSize = 3
	}
	threshold := opts.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.8
	}

	memories := e.candidateMemories(ctx, opts)
	if len(memories) < minClusterSize {
		return nil, nil
	}

	contents := make([]string, len(memories))
	for i, m := range memories {
		contents[i] = m.Content
	}
	embeddings, err := e.vectorStore.Embedder().EmbedTexts(ctx, contents)
	if err != nil || len(embeddings) == 0 {
		return nil, nil
	}

	eps := 1.0 - threshold
	labels := dbscan(cosineDistanceMatrix(embeddings), eps, minClusterSize)

	byLabel := map[int]*Cluster{}
	order := []int{}
	for i, label := range labels {
		if label == -1 {
			continue
		}
		c, ok := byLabel[label]
		if !ok {
			c = &Cluster{}
			byLabel[label] = c
			order = append(order, label)
		}
		c.Memories = append(c.Memories, memories[i])
		c.Embeddings = append(c.Embeddings, embeddings[i])
	}

	sort.Ints(order)
	clusters := make([]Cluster, 0, len(order))
	for _, label := range order {
		c := byLabel[label]
		if c.Size() >= minClusterSize {
			clusters = append(clusters, *c)
		}
	}
	return clusters, nil
}

func (e *Engine) candidateMemories(ctx context.Context, opts FindClustersOptions) []model.Memory {
	scopes := allScopes
	if opts.Scope != "" {
		scopes = []model.Scope{opts.Scope}
	}

	var cutoff time.Time
	hasCutoff := opts.OlderThanDays != nil
	if hasCutoff {
		cutoff = time.Now().AddDate(0, 0, -*opts.OlderThanDays)
	}

	var memories []model.Memory
	for _, scope := range scopes {
		rows, err := e.store.ListForScope(ctx, scope, opts.Category, 10000)
		if err != nil {
			continue
		}
		for _, m := range rows {
			if hasCutoff && !m.CreatedAt.Before(cutoff) {
				continue
			}
			memories = append(memories, m)
		}
	}
	return memories
}

// GenerateSummary calls the configured Summarizer with the cluster's
// contents, oldest first.
func (e *Engine) GenerateSummary(ctx context.Context, c Cluster) (string, error) {
	return e.summarizer.Summarize(ctx, c.Contents())
}

// CompactCluster replaces a cluster with one new memory holding summary,
// then deletes the originals from both stores. The category of the new
// memory is the most frequent category among the cluster's memories.
func (e *Engine) CompactCluster(ctx context.Context, c Cluster, summary string, targetScope model.Scope, targetProjectPath string, targetGroups []string) (*model.Memory, error) {
	category := majorityCategory(c.Memories)

	metadata := map[string]interface{}{
		"compacted_from": c.IDs(),
		"compacted_at":   time.Now().Format(time.RFC3339),
		"original_count": c.Size(),
	}

	var groups model.StringSet
	if targetScope == model.ScopeGroup {
		groups = model.StringSet(targetGroups)
	}

	newMemory, err := e.store.Save(ctx, store.SaveInput{
		Content:     summary,
		Category:    category,
		Scope:       targetScope,
		ProjectPath: targetProjectPath,
		Source:      model.SourceAutoCompaction,
		Metadata:    metadata,
		Groups:      groups,
	})
	if err != nil {
		return nil, fmt.Errorf("compaction: save compacted memory: %w", err)
	}

	if e.vectorStore != nil && e.vectorStore.IsEnabled() {
		_ = e.vectorStore.Add(ctx, vectorstore.Entry{
			MemoryID: newMemory.ID,
			Content:  summary,
			Category: category,
			Groups:   groups,
		}, targetScope, targetProjectPath)
	}

	for _, m := range c.Memories {
		projectPath := ""
		if m.ProjectPath != nil {
			projectPath = *m.ProjectPath
		}
		if _, err := e.store.Delete(ctx, m.ID, m.Scope, projectPath); err != nil {
			continue
		}
		if e.vectorStore != nil {
			e.vectorStore.Delete(ctx, m.ID, m.Scope, projectPath)
		}
	}

	return newMemory, nil
}

func majorityCategory(memories []model.Memory) model.Category {
	counts := map[model.Category]int{}
	for _, m := range memories {
		counts[m.Category]++
	}
	best := model.CategoryFactual
	bestCount := -1
	for cat, n := range counts {
		if n > bestCount {
			best, bestCount = cat, n
		}
	}
	return best
}

// ClusterInfo previews one cluster for a confirmation prompt.
type ClusterInfo struct {
	Index     int
	Size      int
	MemoryIDs []string
	Previews  []Preview
}

// Preview is a truncated memory shown before compaction.
type Preview struct {
	ID      string
	Content string
}

// ClusterSummary tallies a set of clusters.
type ClusterSummary struct {
	ClusterCount   int
	TotalMemories  int
	AvgClusterSize float64
	Clusters       []ClusterInfo
}

// GetClusterSummary builds a ClusterSummary, truncating previews to 80 runes.
func GetClusterSummary(clusters []Cluster) ClusterSummary {
	if len(clusters) == 0 {
		return ClusterSummary{}
	}

	total := 0
	infos := make([]ClusterInfo, len(clusters))
	for i, c := range clusters {
		total += c.Size()
		previews := make([]Preview, len(c.Memories))
		for j, m := range c.Memories {
			previews[j] = Preview{ID: m.ID, Content: truncate(m.Content, 80)}
		}
		infos[i] = ClusterInfo{Index: i, Size: c.Size(), MemoryIDs: c.IDs(), Previews: previews}
	}

	return ClusterSummary{
		ClusterCount:   len(clusters),
		TotalMemories:  total,
		AvgClusterSize: math.Round(float64(total)/float64(len(clusters))*10) / 10,
		Clusters:       infos,
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
