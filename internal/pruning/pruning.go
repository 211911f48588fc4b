// Package pruning implements the pruning engine (C10, spec.md §4.9):
// finding stale/unused memories and deleting them from both stores.
// Grounded on original_source/src/agent_memory/pruning.py's PruningEngine.
package pruning

import (
	"context"
	"strconv"
	"time"

	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/store"
	"github.com/chirino/agent-memory/internal/vectorstore"
)

// Candidate is a memory identified for pruning, with the reasons it matched.
type Candidate struct {
	Memory  model.Memory
	Reasons []string
}

// FindCandidatesOptions filters which memories are considered for pruning.
type FindCandidatesOptions struct {
	// Scope restricts the search to one scope; empty checks all three.
	Scope model.Scope

	// OlderThanDays, if non-nil, requires created_at to be at least this
	// many days in the past.
	OlderThanDays *int

	// NeverAccessed requires access_count == 0.
	NeverAccessed bool

	Category *model.Category

	// ExcludePinned skips pinned memories; defaults true at the call site.
	ExcludePinned bool
}

// Engine finds and removes stale or unused memories.
type Engine struct {
	store       *store.Store
	vectorStore *vectorstore.Store // nil disables vector-store cleanup
}

func New(st *store.Store, vs *vectorstore.Store) *Engine {
	return &Engine{store: st, vectorStore: vs}
}

var allScopes = []model.Scope{model.ScopeProject, model.ScopeGroup, model.ScopeGlobal}

// FindCandidates scans the configured scope(s) and returns every memory
// matching opts. When both OlderThanDays and NeverAccessed are set, a
// memory must satisfy both to be returned; otherwise either criterion
// alone qualifies it.
func (e *Engine) FindCandidates(ctx context.Context, opts FindCandidatesOptions) ([]Candidate, error) {
	scopes := allScopes
	if opts.Scope != "" {
		scopes = []model.Scope{opts.Scope}
	}

	now := time.Now()
	var candidates []Candidate

	for _, scope := range scopes {
		memories, err := e.store.ListForScope(ctx, scope, opts.Category, 10000)
		if err != nil {
			continue // a scope with no data yet (e.g. no project files) is not an error
		}

		for _, m := range memories {
			if opts.ExcludePinned && m.Pinned {
				continue
			}

			var reasons []string
			if opts.OlderThanDays != nil {
				age := now.Sub(m.CreatedAt)
				if age >= time.Duration(*opts.OlderThanDays)*24*time.Hour {
					reasons = append(reasons, ageReason(*opts.OlderThanDays))
				}
			}
			if opts.NeverAccessed && m.AccessCount == 0 {
				reasons = append(reasons, "never accessed")
			}

			switch {
			case opts.OlderThanDays != nil && opts.NeverAccessed:
				if len(reasons) >= 2 {
					candidates = append(candidates, Candidate{Memory: m, Reasons: reasons})
				}
			case len(reasons) > 0:
				candidates = append(candidates, Candidate{Memory: m, Reasons: reasons})
			}
		}
	}

	return candidates, nil
}

func ageReason(days int) string {
	return "older than " + strconv.Itoa(days) + "d"
}

// Prune deletes every candidate from the memory store, and best-effort from
// the vector store, returning the number actually deleted.
func (e *Engine) Prune(ctx context.Context, candidates []Candidate) int {
	deleted := 0
	for _, c := range candidates {
		m := c.Memory
		projectPath := ""
		if m.ProjectPath != nil {
			projectPath = *m.ProjectPath
		}
		ok, err := e.store.Delete(ctx, m.ID, m.Scope, projectPath)
		if err != nil || !ok {
			continue
		}
		deleted++

		if e.vectorStore != nil {
			e.vectorStore.Delete(ctx, m.ID, m.Scope, projectPath)
		}
	}
	return deleted
}

// Summary describes a set of candidates, broken down for a confirmation
// prompt before an actual prune runs.
type Summary struct {
	Total      int
	ByScope    map[model.Scope]int
	ByCategory map[model.Category]int
	ByReason   map[string]int
}

// GetSummary tallies candidates by scope, category, and reason.
func GetSummary(candidates []Candidate) Summary {
	s := Summary{
		ByScope:    map[model.Scope]int{},
		ByCategory: map[model.Category]int{},
		ByReason:   map[string]int{},
	}
	for _, c := range candidates {
		s.Total++
		s.ByScope[c.Memory.Scope]++
		s.ByCategory[c.Memory.Category]++
		for _, r := range c.Reasons {
			s.ByReason[r]++
		}
	}
	return s
}
