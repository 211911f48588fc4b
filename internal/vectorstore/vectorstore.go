// Package vectorstore implements the vector store (C6, spec.md §4.5):
// mirrors memories into a per-scope sqlite-vec-backed table and provides
// approximate nearest-neighbour search. Grounded on the teacher's
// internal/plugin/vector/pgvector (raw-SQL distance query, struct-holds-db
// shape) and on github.com/asg017/sqlite-vec-go-bindings, a direct
// dependency the teacher declares in go.mod but never imports anywhere in
// its own source — wired here instead of dropped.
package vectorstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/charmbracelet/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chirino/agent-memory/internal/config"
	registryembed "github.com/chirino/agent-memory/internal/registry/embed"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/pathresolver"
	"github.com/chirino/agent-memory/internal/registry/storeapi"
)

const dbFileName = "vectors.db"

func init() {
	// Registers vec_distance_cosine (and the vec0 module, unused here in
	// favor of a plain table plus the distance function — see DESIGN.md)
	// with the mattn/go-sqlite3 driver gorm.io/driver/sqlite wraps.
	vec.Auto()
}

// Entry is one record to mirror into the vector index.
type Entry struct {
	MemoryID string
	Content  string
	Category model.Category
	Groups   model.StringSet
}

// SearchResult is one scored hit from Search/SearchCombined.
type SearchResult struct {
	MemoryID string
	Content  string
	Category model.Category
	Scope    model.Scope
	Groups   model.StringSet
	Score    float64
}

// SearchOptions parameterizes Search.
type SearchOptions struct {
	Query              string
	Scope              model.Scope
	ProjectPath        string
	Limit              int
	Threshold          *float64
	Category           *model.Category
	IncludeGroups      []string
	ExcludeGroupScope  bool
}

// Store owns a lazily-opened SQLite connection per scope file, mirroring
// internal/store's cache-by-path shape.
type Store struct {
	cfg      *config.Config
	embedder registryembed.Embedder

	mu  sync.Mutex
	dbs map[string]*gorm.DB
}

// New returns a Store that embeds with embedder (nil disables it).
func New(cfg *config.Config, embedder registryembed.Embedder) *Store {
	return &Store{cfg: cfg, embedder: embedder, dbs: map[string]*gorm.DB{}}
}

// IsEnabled reports whether semantic search is configured and a provider is
// available.
func (s *Store) IsEnabled() bool {
	return s.cfg.Semantic.Enabled && s.embedder != nil && s.embedder.ModelName() != "none"
}

// Embedder exposes the configured embedding provider, for callers (such as
// internal/compaction) that need raw embeddings outside the indexed schema.
func (s *Store) Embedder() registryembed.Embedder {
	return s.embedder
}

func (s *Store) pathFor(scope model.Scope, projectPath string) (string, error) {
	switch scope {
	case model.ScopeProject:
		dir, err := pathresolver.ProjectDir(s.cfg, projectPath)
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, dbFileName), nil
	case model.ScopeGroup, model.ScopeGlobal:
		return filepath.Join(s.cfg.GlobalDir(), dbFileName), nil
	default:
		return "", &storeapi.ValidationError{Field: "scope", Message: fmt.Sprintf("invalid scope %q", scope)}
	}
}

func (s *Store) dbFor(scope model.Scope, projectPath string) (*gorm.DB, error) {
	path, err := s.pathFor(scope, projectPath)
	if err != nil {
		return nil, err
	}
	return s.open(path)
}

func (s *Store) open(path string) (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[path]; ok {
		return db, nil
	}
	if err := mkdirAll(filepath.Dir(path)); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open %s: %w", path, err)
	}
	if err := ensureTable(db); err != nil {
		return nil, err
	}
	s.dbs[path] = db
	return db, nil
}

func ensureTable(db *gorm.DB) error {
	return db.Exec(`CREATE TABLE IF NOT EXISTS vectors (
		memory_id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		category TEXT NOT NULL,
		scope TEXT NOT NULL,
		groups TEXT NOT NULL DEFAULT '[]',
		vector BLOB NOT NULL
	)`).Error
}

// Add embeds content and writes one row.
func (s *Store) Add(ctx context.Context, e Entry, scope model.Scope, projectPath string) error {
	return s.AddBatch(ctx, []Entry{e}, scope, projectPath)
}

// AddBatch embeds every entry's content in a single call and writes all rows
// in one transaction.
func (s *Store) AddBatch(ctx context.Context, entries []Entry, scope model.Scope, projectPath string) error {
	if !s.IsEnabled() || len(entries) == 0 {
		return nil
	}
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		return err
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Content
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("vectorstore: embed batch: %w", err)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, e := range entries {
			groupsJSON, err := marshalGroups(e.Groups)
			if err != nil {
				return err
			}
			if err := tx.Exec(
				`INSERT INTO vectors (memory_id, content, category, scope, groups, vector)
				 VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT(memory_id) DO UPDATE SET
					content = excluded.content, category = excluded.category,
					scope = excluded.scope, groups = excluded.groups, vector = excluded.vector`,
				e.MemoryID, e.Content, string(e.Category), string(scope), groupsJSON, encodeVector(vectors[i]),
			).Error; err != nil {
				return fmt.Errorf("vectorstore: insert %s: %w", e.MemoryID, err)
			}
		}
		return nil
	})
}

// Search embeds query, fetches 3*limit nearest neighbors by cosine
// distance, converts to similarity, filters by threshold/category/groups,
// and truncates to limit.
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	if !s.IsEnabled() || strings.TrimSpace(opts.Query) == "" {
		return nil, nil
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	db, err := s.dbFor(opts.Scope, opts.ProjectPath)
	if err != nil {
		return nil, err
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{opts.Query})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: embed query: %w", err)
	}
	queryVec := encodeVector(vectors[0])

	fetch := opts.Limit * 3
	rows, err := db.WithContext(ctx).Raw(
		`SELECT memory_id, content, category, scope, groups,
		        1 - vec_distance_cosine(vector, ?) AS score
		 FROM vectors
		 ORDER BY vec_distance_cosine(vector, ?) ASC
		 LIMIT ?`,
		queryVec, queryVec, fetch,
	).Rows()
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", err)
	}
	defer rows.Close()

	threshold := s.cfg.Semantic.Threshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var groupsJSON string
		var category, scope string
		if err := rows.Scan(&r.MemoryID, &r.Content, &category, &scope, &groupsJSON, &r.Score); err != nil {
			log.Warn("vectorstore: scan search row", "err", err)
			continue
		}
		if r.Score < threshold {
			continue
		}
		r.Category = model.Category(category)
		r.Scope = model.Scope(scope)
		r.Groups = unmarshalGroups(groupsJSON)

		if opts.Category != nil && r.Category != *opts.Category {
			continue
		}
		if !passesGroupFilter(r, opts.ExcludeGroupScope, opts.IncludeGroups) {
			continue
		}
		results = append(results, r)
		if len(results) >= opts.Limit {
			break
		}
	}
	return results, rows.Err()
}

// passesGroupFilter implements the global-leg filter rules from spec.md
// §4.5: non-group rows always pass; group rows are filtered by
// excludeGroupScope / includeGroups.
func passesGroupFilter(r SearchResult, excludeGroupScope bool, includeGroups []string) bool {
	if r.Scope != model.ScopeGroup {
		return true
	}
	if excludeGroupScope {
		return false
	}
	if len(includeGroups) == 0 {
		return false
	}
	if len(includeGroups) == 1 && includeGroups[0] == "all" {
		return true
	}
	for _, name := range includeGroups {
		if r.Groups.Contains(name) {
			return true
		}
	}
	return false
}

// SearchCombined runs a project-scope search (if projectPath is set) and a
// global-scope search, merges, sorts by score DESC, and truncates to limit.
// The global leg excludes group-scoped rows unless includeGroups says
// otherwise (same rules as passesGroupFilter).
func (s *Store) SearchCombined(ctx context.Context, query string, projectPath string, limit int, threshold *float64, category *model.Category, includeGroups []string) ([]SearchResult, error) {
	var all []SearchResult
	if projectPath != "" {
		rows, err := s.Search(ctx, SearchOptions{Query: query, Scope: model.ScopeProject, ProjectPath: projectPath, Limit: limit, Threshold: threshold, Category: category})
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	rows, err := s.Search(ctx, SearchOptions{
		Query:             query,
		Scope:             model.ScopeGlobal,
		Limit:             limit,
		Threshold:         threshold,
		Category:          category,
		IncludeGroups:     includeGroups,
		ExcludeGroupScope: len(includeGroups) == 0,
	})
	if err != nil {
		return nil, err
	}
	all = append(all, rows...)

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Delete removes memoryID's vector row, best-effort.
func (s *Store) Delete(ctx context.Context, memoryID string, scope model.Scope, projectPath string) {
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		log.Warn("vectorstore: delete: open store", "id", memoryID, "err", err)
		return
	}
	if err := db.WithContext(ctx).Exec(`DELETE FROM vectors WHERE memory_id = ?`, memoryID).Error; err != nil {
		log.Warn("vectorstore: delete", "id", memoryID, "err", err)
	}
}

// DeleteByID removes memoryID from the project file (if projectPath is set)
// and the global file, best-effort.
func (s *Store) DeleteByID(ctx context.Context, memoryID string, projectPath string) {
	if projectPath != "" {
		s.Delete(ctx, memoryID, model.ScopeProject, projectPath)
	}
	s.Delete(ctx, memoryID, model.ScopeGlobal, "")
}

// Reset drops and recreates the vectors table for scope.
func (s *Store) Reset(ctx context.Context, scope model.Scope, projectPath string) error {
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(`DROP TABLE IF EXISTS vectors`).Error; err != nil {
		return fmt.Errorf("vectorstore: reset: %w", err)
	}
	return ensureTable(db)
}
