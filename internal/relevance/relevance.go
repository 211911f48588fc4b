// Package relevance implements the relevance engine (C9, spec.md §4.8):
// startup context assembly, hybrid semantic/keyword retrieval, and an
// advisory relevance score. Grounded on
// original_source/src/agent_memory/relevance.py's RelevanceEngine.
package relevance

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/groups"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/store"
	"github.com/chirino/agent-memory/internal/vectorstore"
)

// StartupContext is the bundle of memories loaded at session start.
type StartupContext struct {
	PinnedMemories           []model.Memory
	GroupMemories            []model.Memory
	HasPreviousSession       bool
	PreviousSessionID        string
	PreviousSessionSummaries []model.Memory
}

// RelevantMemories bundles the results of a hybrid retrieval.
type RelevantMemories struct {
	SemanticResults []vectorstore.SearchResult
	KeywordResults  []model.Memory
	Pinned          []model.Memory
}

// AllMemoryIDs returns the union of every memory ID appearing in r.
func (r RelevantMemories) AllMemoryIDs() map[string]bool {
	ids := map[string]bool{}
	for _, sr := range r.SemanticResults {
		ids[sr.MemoryID] = true
	}
	for _, m := range r.KeywordResults {
		ids[m.ID] = true
	}
	for _, m := range r.Pinned {
		ids[m.ID] = true
	}
	return ids
}

// Engine scores and retrieves memories relevant to the agent's current work.
type Engine struct {
	cfg         *config.Config
	store       *store.Store
	vectorStore *vectorstore.Store // nil disables semantic search
	groups      *groups.Registry   // nil disables group-memory startup assembly
}

func New(cfg *config.Config, st *store.Store, vs *vectorstore.Store, gr *groups.Registry) *Engine {
	return &Engine{cfg: cfg, store: st, vectorStore: vs, groups: gr}
}

// GetStartupContext assembles what should be loaded when a session begins:
// every pinned project+global memory, every group-scoped memory visible to
// a group the project belongs to, plus the most recent session's summaries
// if one exists within the last 7 days.
func (e *Engine) GetStartupContext(ctx context.Context, projectPath string) (*StartupContext, error) {
	sc := &StartupContext{}

	if pinned, err := e.store.ListPinned(ctx, model.ScopeProject, projectPath); err != nil {
		log.Warn("relevance: list pinned project memories failed", "err", err)
	} else {
		sc.PinnedMemories = append(sc.PinnedMemories, pinned...)
	}
	if pinned, err := e.store.ListPinned(ctx, model.ScopeGlobal, ""); err != nil {
		log.Warn("relevance: list pinned global memories failed", "err", err)
	} else {
		sc.PinnedMemories = append(sc.PinnedMemories, pinned...)
	}

	if e.groups != nil {
		projectGroups, err := e.groups.GetGroupsForProject(projectPath)
		if err != nil {
			log.Warn("relevance: get groups for project failed", "err", err)
		} else {
			seen := map[string]bool{}
			for _, g := range projectGroups {
				rows, err := e.store.ListByGroup(ctx, g.Name, false, nil, 100)
				if err != nil {
					log.Warn("relevance: list group memories failed", "group", g.Name, "err", err)
					continue
				}
				for _, m := range rows {
					if seen[m.ID] {
						continue
					}
					seen[m.ID] = true
					sc.GroupMemories = append(sc.GroupMemories, m)
				}
			}
		}
	}

	category := model.CategorySessionSummary
	summaries, err := e.store.List(ctx, store.ListOptions{
		Scope:       model.ScopeProject,
		ProjectPath: projectPath,
		Category:    &category,
		Limit:       10,
	})
	if err != nil {
		log.Warn("relevance: list session summaries failed", "err", err)
		return sc, nil
	}
	if len(summaries) == 0 {
		return sc, nil
	}

	sc.HasPreviousSession = true
	cutoff := time.Now().AddDate(0, 0, -7)
	var latestSessionID string
	for _, s := range summaries {
		if s.CreatedAt.Before(cutoff) {
			continue
		}
		sessionID, _ := s.Metadata["session_id"].(string)
		if sessionID == "" {
			continue
		}
		if latestSessionID == "" {
			latestSessionID = sessionID
		}
		if sessionID == latestSessionID {
			sc.PreviousSessionSummaries = append(sc.PreviousSessionSummaries, s)
		}
	}
	sc.PreviousSessionID = latestSessionID
	return sc, nil
}

// GetRelevantMemoriesOptions configures GetRelevantMemories.
type GetRelevantMemoriesOptions struct {
	Query          string
	CurrentFiles   []string
	ProjectPath    string
	Limit          int
	Threshold      *float64
	IncludePinned  bool
}

// GetRelevantMemories runs a hybrid semantic-then-keyword search, appending
// pinned memories separately so they are never excluded by a low score.
func (e *Engine) GetRelevantMemories(ctx context.Context, opts GetRelevantMemoriesOptions) (*RelevantMemories, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = e.cfg.Relevance.SearchLimit
	}
	threshold := opts.Threshold
	if threshold == nil {
		threshold = &e.cfg.Semantic.Threshold
	}

	searchContext := opts.Query
	if len(opts.CurrentFiles) > 0 {
		names := opts.CurrentFiles
		if len(names) > 5 {
			names = names[:5]
		}
		bases := make([]string, len(names))
		for i, f := range names {
			bases[i] = filepath.Base(f)
		}
		searchContext = opts.Query + " " + strings.Join(bases, " ")
	}

	var semanticResults []vectorstore.SearchResult
	if e.vectorStore != nil && e.vectorStore.IsEnabled() {
		results, err := e.vectorStore.SearchCombined(ctx, searchContext, opts.ProjectPath, limit, threshold, nil, nil)
		if err != nil {
			log.Warn("relevance: semantic search failed", "err", err)
		} else {
			semanticResults = results
		}
	}

	var keywordResults []model.Memory
	if len(semanticResults) < limit {
		remaining := limit - len(semanticResults)
		semanticIDs := map[string]bool{}
		for _, r := range semanticResults {
			semanticIDs[r.MemoryID] = true
		}

		if rows, err := e.store.SearchKeyword(ctx, opts.Query, model.ScopeProject, opts.ProjectPath, remaining); err != nil {
			log.Warn("relevance: keyword search failed", "err", err)
		} else {
			for _, m := range rows {
				if !semanticIDs[m.ID] {
					keywordResults = append(keywordResults, m)
				}
			}
		}

		if e.cfg.Relevance.IncludeGlobal && len(keywordResults) < remaining {
			keywordIDs := map[string]bool{}
			for _, m := range keywordResults {
				keywordIDs[m.ID] = true
			}
			if rows, err := e.store.SearchKeyword(ctx, opts.Query, model.ScopeGlobal, "", remaining-len(keywordResults)); err != nil {
				log.Warn("relevance: global keyword search failed", "err", err)
			} else {
				for _, m := range rows {
					if !semanticIDs[m.ID] && !keywordIDs[m.ID] {
						keywordResults = append(keywordResults, m)
					}
				}
			}
		}
	}

	var pinned []model.Memory
	if opts.IncludePinned {
		if rows, err := e.store.ListPinned(ctx, model.ScopeProject, opts.ProjectPath); err != nil {
			log.Warn("relevance: list pinned project memories failed", "err", err)
		} else {
			pinned = append(pinned, rows...)
		}
		if rows, err := e.store.ListPinned(ctx, model.ScopeGlobal, ""); err != nil {
			log.Warn("relevance: list pinned global memories failed", "err", err)
		} else {
			pinned = append(pinned, rows...)
		}
	}

	return &RelevantMemories{
		SemanticResults: semanticResults,
		KeywordResults:  keywordResults,
		Pinned:          pinned,
	}, nil
}

// GetRecentDecisions returns decision memories created within the last days.
func (e *Engine) GetRecentDecisions(ctx context.Context, projectPath string, days, limit int) ([]model.Memory, error) {
	category := model.CategoryDecision
	rows, err := e.store.List(ctx, store.ListOptions{
		Scope:       model.ScopeProject,
		ProjectPath: projectPath,
		Category:    &category,
		Limit:       limit * 2,
	})
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	var recent []model.Memory
	for _, m := range rows {
		if !m.CreatedAt.Before(cutoff) {
			recent = append(recent, m)
		}
		if len(recent) >= limit {
			break
		}
	}
	return recent, nil
}

// GetRecentFacts returns the most recent factual memories.
func (e *Engine) GetRecentFacts(ctx context.Context, projectPath string, limit int) ([]model.Memory, error) {
	category := model.CategoryFactual
	return e.store.List(ctx, store.ListOptions{
		Scope:       model.ScopeProject,
		ProjectPath: projectPath,
		Category:    &category,
		Limit:       limit,
	})
}

// ScoreMemoryRelevance computes an advisory 0-1 relevance score: 0.6x
// semantic similarity, +0.3 if pinned, +0.1 if a decision, +0.1 scaled by
// recency within 7 days, +0.2 on a literal keyword hit. Capped at 1.0.
func ScoreMemoryRelevance(m model.Memory, query string, semanticScore *float64) float64 {
	score := 0.0
	if semanticScore != nil {
		score = *semanticScore * 0.6
	}
	if m.Pinned {
		score += 0.3
	}
	if m.Category == model.CategoryDecision {
		score += 0.1
	}

	ageDays := time.Since(m.CreatedAt).Hours() / 24
	if ageDays <= 7 {
		score += 0.1 * (1 - ageDays/7)
	}

	if query != "" && strings.Contains(strings.ToLower(m.Content), strings.ToLower(query)) {
		score += 0.2
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}
