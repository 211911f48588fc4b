// Package store implements the memory store (C5, spec.md §4.4): one SQLite
// file per scope, opened and migrated lazily, exposing the full CRUD and
// hierarchical-read surface. Grounded on the teacher's
// internal/plugin/store/postgres (GORM usage, error wrapping, struct-holds-db
// shape), adapted from a single shared Postgres connection to a
// lazily-opened-and-cached map of per-scope SQLite connections.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chirino/agent-memory/internal/classifier"
	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/idutil"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/pathresolver"
	"github.com/chirino/agent-memory/internal/registry/metrics"
	"github.com/chirino/agent-memory/internal/registry/storeapi"
)

const dbFileName = "memories.db"

// Store owns a lazily-opened SQLite connection per scope file: one per
// project directory, plus a single shared connection for group/global scope.
type Store struct {
	cfg *config.Config

	mu  sync.Mutex
	dbs map[string]*gorm.DB
}

// New returns a Store bound to cfg's storage layout. No files are opened
// until the first operation touches a given scope.
func New(cfg *config.Config) *Store {
	return &Store{cfg: cfg, dbs: map[string]*gorm.DB{}}
}

// pathFor returns the memories.db path for scope (and, for project scope,
// projectPath). Group and global rows share the global file, discriminated
// by the scope column.
func (s *Store) pathFor(scope model.Scope, projectPath string) (string, error) {
	switch scope {
	case model.ScopeProject:
		if projectPath == "" {
			return "", &storeapi.ValidationError{Field: "project_path", Message: "required for scope=project"}
		}
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

// dbFor opens (or returns the cached) connection for scope/projectPath,
// running schema migration on first open.
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
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	s.dbs[path] = db
	return db, nil
}

// SaveInput are the fields accepted by Save. Category is auto-detected from
// Content when empty or invalid (C4).
type SaveInput struct {
	Content     string
	Category    model.Category
	Scope       model.Scope
	ProjectPath string
	Pinned      bool
	Source      string
	Metadata    map[string]interface{}
	ExpiresAt   *time.Time
	Groups      model.StringSet
}

// Save validates in and inserts a new Memory row.
func (s *Store) Save(ctx context.Context, in SaveInput) (*model.Memory, error) {
	defer metrics.Observe("save", time.Now())
	if strings.TrimSpace(in.Content) == "" {
		return nil, &storeapi.ValidationError{Field: "content", Message: "must not be empty"}
	}
	if !in.Scope.Valid() {
		return nil, &storeapi.ValidationError{Field: "scope", Message: fmt.Sprintf("invalid scope %q", in.Scope)}
	}
	if in.Scope == model.ScopeGroup && len(in.Groups) == 0 {
		return nil, &storeapi.ValidationError{Field: "groups", Message: "scope=group requires at least one group"}
	}

	db, err := s.dbFor(in.Scope, in.ProjectPath)
	if err != nil {
		return nil, err
	}

	now := idutil.Now()
	m := &model.Memory{
		ID:        idutil.NewMemoryID(),
		Content:   in.Content,
		Category:  classifier.Normalize(in.Category, in.Content),
		Scope:     in.Scope,
		Pinned:    in.Pinned,
		Groups:    in.Groups,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: in.ExpiresAt,
		Source:    in.Source,
		Metadata:  in.Metadata,
	}
	if m.Groups == nil {
		m.Groups = model.StringSet{}
	}
	if m.Metadata == nil {
		m.Metadata = map[string]interface{}{}
	}
	if in.Scope == model.ScopeProject {
		resolved, err := pathresolver.Resolve(in.ProjectPath)
		if err != nil {
			return nil, err
		}
		m.ProjectPath = &resolved
	}

	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("store: save memory: %w", err)
	}
	return m, nil
}

// Get returns the memory with id in scope/projectPath, or nil if absent.
func (s *Store) Get(ctx context.Context, id string, scope model.Scope, projectPath string) (*model.Memory, error) {
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		return nil, err
	}
	return getByID(ctx, db, id)
}

func getByID(ctx context.Context, db *gorm.DB, id string) (*model.Memory, error) {
	var m model.Memory
	err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get memory: %w", err)
	}
	return &m, nil
}

// GetByID searches the project file (if projectPath is non-empty) then the
// global file, and returns the first match.
func (s *Store) GetByID(ctx context.Context, id string, projectPath string) (*model.Memory, error) {
	if projectPath != "" {
		db, err := s.dbFor(model.ScopeProject, projectPath)
		if err != nil {
			return nil, err
		}
		if m, err := getByID(ctx, db, id); err != nil {
			return nil, err
		} else if m != nil {
			return m, nil
		}
	}
	db, err := s.dbFor(model.ScopeGlobal, "")
	if err != nil {
		return nil, err
	}
	return getByID(ctx, db, id)
}

// ListOptions parameterizes List.
type ListOptions struct {
	Scope          model.Scope
	ProjectPath    string
	Category       *model.Category
	PinnedOnly     bool
	Limit          int
	IncludeExpired bool
}

// List returns memories in scope, ordered by created_at DESC.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]model.Memory, error) {
	defer metrics.Observe("list", time.Now())
	if opts.Limit < 1 {
		return nil, &storeapi.ValidationError{Field: "limit", Message: "must be >= 1"}
	}
	db, err := s.dbFor(opts.Scope, opts.ProjectPath)
	if err != nil {
		return nil, err
	}
	tx := db.WithContext(ctx).Where("scope = ?", opts.Scope)
	if opts.Category != nil {
		tx = tx.Where("category = ?", *opts.Category)
	}
	if opts.PinnedOnly {
		tx = tx.Where("pinned = ?", true)
	}
	if !opts.IncludeExpired {
		tx = tx.Where("expires_at IS NULL OR expires_at > ?", idutil.Now())
	}
	var rows []model.Memory
	if err := tx.Order("created_at DESC").Limit(opts.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list memories: %w", err)
	}
	return rows, nil
}

// ListPinned returns up to 100 pinned memories in scope.
func (s *Store) ListPinned(ctx context.Context, scope model.Scope, projectPath string) ([]model.Memory, error) {
	return s.List(ctx, ListOptions{Scope: scope, ProjectPath: projectPath, PinnedOnly: true, Limit: 100})
}

// ListByGroup returns group-scoped rows, optionally filtered to one group
// name ("" or "all" means no filter).
func (s *Store) ListByGroup(ctx context.Context, name string, pinnedOnly bool, category *model.Category, limit int) ([]model.Memory, error) {
	if limit < 1 {
		return nil, &storeapi.ValidationError{Field: "limit", Message: "must be >= 1"}
	}
	db, err := s.dbFor(model.ScopeGroup, "")
	if err != nil {
		return nil, err
	}
	tx := db.WithContext(ctx).Where("scope = ?", model.ScopeGroup).
		Where("expires_at IS NULL OR expires_at > ?", idutil.Now())
	if pinnedOnly {
		tx = tx.Where("pinned = ?", true)
	}
	if category != nil {
		tx = tx.Where("category = ?", *category)
	}
	if name != "" && name != "all" {
		// groups is serialized as a JSON array of strings (model.Memory.Groups'
		// "serializer:json" tag); matching the quoted literal in SQL avoids
		// fetching a bounded, potentially-incomplete window of rows and
		// filtering client-side.
		tx = tx.Where("groups LIKE ?", `%"`+name+`"%`)
	}
	var rows []model.Memory
	if err := tx.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list by group: %w", err)
	}
	return rows, nil
}

// SearchKeyword performs a case-insensitive, AND-across-terms substring
// search over content. An empty or whitespace-only query returns no results.
func (s *Store) SearchKeyword(ctx context.Context, query string, scope model.Scope, projectPath string, limit int) ([]model.Memory, error) {
	defer metrics.Observe("search_keyword", time.Now())
	terms := keywordTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit < 1 {
		return nil, &storeapi.ValidationError{Field: "limit", Message: "must be >= 1"}
	}
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		return nil, err
	}
	tx := db.WithContext(ctx).Where("scope = ?", scope).
		Where("expires_at IS NULL OR expires_at > ?", idutil.Now())
	for _, t := range terms {
		tx = tx.Where("LOWER(content) LIKE ?", "%"+strings.ToLower(t)+"%")
	}
	var rows []model.Memory
	if err := tx.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: search keyword: %w", err)
	}
	return rows, nil
}

func keywordTerms(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	return strings.Fields(query)
}

// SearchWithGroupsOptions parameterizes SearchWithGroups.
type SearchWithGroupsOptions struct {
	Query          string
	IncludeProject bool
	IncludeGlobal  bool
	IncludeGroups  []string
	ProjectPath    string
	Limit          int
}

// SearchWithGroups merges project, global, and group-scoped keyword search
// results, deduplicated by id and sorted by created_at DESC.
func (s *Store) SearchWithGroups(ctx context.Context, opts SearchWithGroupsOptions) ([]model.Memory, error) {
	defer metrics.Observe("search_with_groups", time.Now())
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	var all []model.Memory
	if opts.IncludeProject && opts.ProjectPath != "" {
		rows, err := s.SearchKeyword(ctx, opts.Query, model.ScopeProject, opts.ProjectPath, opts.Limit)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	if opts.IncludeGlobal {
		rows, err := s.SearchKeyword(ctx, opts.Query, model.ScopeGlobal, "", opts.Limit)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	if len(opts.IncludeGroups) > 0 {
		rows, err := s.SearchKeyword(ctx, opts.Query, model.ScopeGroup, "", opts.Limit*5)
		if err != nil {
			return nil, err
		}
		wantAll := len(opts.IncludeGroups) == 1 && opts.IncludeGroups[0] == "all"
		for _, r := range rows {
			if wantAll || groupsIntersect(r.Groups, opts.IncludeGroups) {
				all = append(all, r)
			}
		}
	}
	return dedupSortTruncate(all, opts.Limit), nil
}

func groupsIntersect(groups model.StringSet, names []string) bool {
	for _, n := range names {
		if groups.Contains(n) {
			return true
		}
	}
	return false
}

// dedupSortTruncate deduplicates by id (first occurrence wins), sorts by
// created_at DESC, and truncates to limit. Shared by the group and
// descendant merge paths (spec.md §4.4).
func dedupSortTruncate(rows []model.Memory, limit int) []model.Memory {
	seen := make(map[string]bool, len(rows))
	deduped := make([]model.Memory, 0, len(rows))
	for _, r := range rows {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		deduped = append(deduped, r)
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].CreatedAt.After(deduped[j].CreatedAt)
	})
	if limit > 0 && len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped
}

// UpdateFields carries the mutable subset of a Memory. At least one field
// must be non-nil.
type UpdateFields struct {
	Content   *string
	Category  *model.Category
	Metadata  map[string]interface{}
	ExpiresAt *time.Time
	ClearExpiresAt bool
}

func (f UpdateFields) empty() bool {
	return f.Content == nil && f.Category == nil && f.Metadata == nil && f.ExpiresAt == nil && !f.ClearExpiresAt
}

// Update applies fields to the memory with id in scope, or returns nil if
// absent.
func (s *Store) Update(ctx context.Context, id string, scope model.Scope, projectPath string, fields UpdateFields) (*model.Memory, error) {
	if fields.empty() {
		return nil, &storeapi.ValidationError{Field: "fields", Message: "at least one field must be provided"}
	}
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		return nil, err
	}
	m, err := getByID(ctx, db, id)
	if err != nil || m == nil {
		return m, err
	}
	if fields.Content != nil {
		m.Content = *fields.Content
	}
	if fields.Category != nil {
		m.Category = *fields.Category
	}
	if fields.Metadata != nil {
		m.Metadata = fields.Metadata
	}
	if fields.ClearExpiresAt {
		m.ExpiresAt = nil
	} else if fields.ExpiresAt != nil {
		m.ExpiresAt = fields.ExpiresAt
	}
	m.UpdatedAt = idutil.Now()
	if err := db.WithContext(ctx).Save(m).Error; err != nil {
		return nil, fmt.Errorf("store: update memory: %w", err)
	}
	return m, nil
}

// Pin sets pinned=true on the memory, or returns nil if absent.
func (s *Store) Pin(ctx context.Context, id string, scope model.Scope, projectPath string) (*model.Memory, error) {
	return s.setPinned(ctx, id, scope, projectPath, true)
}

// Unpin sets pinned=false on the memory, or returns nil if absent.
func (s *Store) Unpin(ctx context.Context, id string, scope model.Scope, projectPath string) (*model.Memory, error) {
	return s.setPinned(ctx, id, scope, projectPath, false)
}

func (s *Store) setPinned(ctx context.Context, id string, scope model.Scope, projectPath string, pinned bool) (*model.Memory, error) {
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		return nil, err
	}
	m, err := getByID(ctx, db, id)
	if err != nil || m == nil {
		return m, err
	}
	m.Pinned = pinned
	m.UpdatedAt = idutil.Now()
	if err := db.WithContext(ctx).Save(m).Error; err != nil {
		return nil, fmt.Errorf("store: set pinned: %w", err)
	}
	return m, nil
}

// AddGroups appends names (deduplicated) to the memory's group set. The
// memory must already be scope=group.
func (s *Store) AddGroups(ctx context.Context, id string, names []string) (*model.Memory, error) {
	return s.mutateGroups(ctx, id, func(current model.StringSet) (model.StringSet, error) {
		result := current
		for _, n := range names {
			if !result.Contains(n) {
				result = append(result, n)
			}
		}
		return result, nil
	})
}

// RemoveGroups removes names from the memory's group set. Cannot leave the
// set empty.
func (s *Store) RemoveGroups(ctx context.Context, id string, names []string) (*model.Memory, error) {
	return s.mutateGroups(ctx, id, func(current model.StringSet) (model.StringSet, error) {
		remove := make(map[string]bool, len(names))
		for _, n := range names {
			remove[n] = true
		}
		result := model.StringSet{}
		for _, g := range current {
			if !remove[g] {
				result = append(result, g)
			}
		}
		if len(result) == 0 {
			return nil, &storeapi.ValidationError{Field: "groups", Message: "cannot remove all groups from a group-scoped memory"}
		}
		return result, nil
	})
}

// SetGroups replaces the memory's group set. Cannot be empty.
func (s *Store) SetGroups(ctx context.Context, id string, names []string) (*model.Memory, error) {
	return s.mutateGroups(ctx, id, func(_ model.StringSet) (model.StringSet, error) {
		if len(names) == 0 {
			return nil, &storeapi.ValidationError{Field: "groups", Message: "set_groups requires at least one group"}
		}
		return model.StringSet(names), nil
	})
}

func (s *Store) mutateGroups(ctx context.Context, id string, mutate func(model.StringSet) (model.StringSet, error)) (*model.Memory, error) {
	db, err := s.dbFor(model.ScopeGroup, "")
	if err != nil {
		return nil, err
	}
	m, err := getByID(ctx, db, id)
	if err != nil || m == nil {
		return m, err
	}
	if m.Scope != model.ScopeGroup {
		return nil, &storeapi.ValidationError{Field: "scope", Message: "group membership operations require scope=group"}
	}
	next, err := mutate(m.Groups)
	if err != nil {
		return nil, err
	}
	m.Groups = next
	m.UpdatedAt = idutil.Now()
	if err := db.WithContext(ctx).Save(m).Error; err != nil {
		return nil, fmt.Errorf("store: update groups: %w", err)
	}
	return m, nil
}

// SetScope moves the memory between scopes. If old and new scope resolve
// to the same file, the row is updated in place; otherwise it is deleted
// from the old file and recreated (same id) in the new one.
func (s *Store) SetScope(ctx context.Context, id string, oldScope model.Scope, oldProjectPath string, newScope model.Scope, newProjectPath string, groups []string) (*model.Memory, error) {
	if !newScope.Valid() {
		return nil, &storeapi.ValidationError{Field: "scope", Message: fmt.Sprintf("invalid scope %q", newScope)}
	}
	if newScope == model.ScopeGroup && len(groups) == 0 {
		return nil, &storeapi.ValidationError{Field: "groups", Message: "scope=group requires at least one group"}
	}

	oldDB, err := s.dbFor(oldScope, oldProjectPath)
	if err != nil {
		return nil, err
	}
	m, err := getByID(ctx, oldDB, id)
	if err != nil || m == nil {
		return m, err
	}

	oldPath, err := s.pathFor(oldScope, oldProjectPath)
	if err != nil {
		return nil, err
	}
	newPath, err := s.pathFor(newScope, newProjectPath)
	if err != nil {
		return nil, err
	}

	m.Scope = newScope
	m.UpdatedAt = idutil.Now()
	if newScope == model.ScopeGroup {
		m.Groups = model.StringSet(groups)
	} else {
		m.Groups = model.StringSet{}
	}
	if newScope == model.ScopeProject {
		resolved, err := pathresolver.Resolve(newProjectPath)
		if err != nil {
			return nil, err
		}
		m.ProjectPath = &resolved
	} else {
		m.ProjectPath = nil
	}

	if oldPath == newPath {
		if err := oldDB.WithContext(ctx).Save(m).Error; err != nil {
			return nil, fmt.Errorf("store: set scope (in place): %w", err)
		}
		return m, nil
	}

	newDB, err := s.dbFor(newScope, newProjectPath)
	if err != nil {
		return nil, err
	}
	if err := newDB.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("store: set scope (create): %w", err)
	}
	if err := oldDB.WithContext(ctx).Where("id = ?", id).Delete(&model.Memory{}).Error; err != nil {
		return nil, fmt.Errorf("store: set scope (delete old): %w", err)
	}
	return m, nil
}

// Promote moves a project-scoped memory to group or global scope.
func (s *Store) Promote(ctx context.Context, id string, fromProjectPath string, toScope model.Scope, toGroups []string) (*model.Memory, error) {
	if toScope == model.ScopeProject {
		return nil, &storeapi.ValidationError{Field: "scope", Message: "promote requires a non-project target scope"}
	}
	return s.SetScope(ctx, id, model.ScopeProject, fromProjectPath, toScope, "", toGroups)
}

// Unpromote moves a global or group-scoped memory back to project scope.
func (s *Store) Unpromote(ctx context.Context, id string, fromScope model.Scope, toProjectPath string) (*model.Memory, error) {
	if fromScope == model.ScopeProject {
		return nil, &storeapi.ValidationError{Field: "scope", Message: "unpromote requires a non-project source scope"}
	}
	return s.SetScope(ctx, id, fromScope, "", model.ScopeProject, toProjectPath, nil)
}

// Delete removes the memory with id in scope, reporting whether a row was
// removed.
func (s *Store) Delete(ctx context.Context, id string, scope model.Scope, projectPath string) (bool, error) {
	defer metrics.Observe("delete", time.Now())
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		return false, err
	}
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&model.Memory{})
	if res.Error != nil {
		return false, fmt.Errorf("store: delete memory: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteByID searches project then global scope and deletes the first match.
func (s *Store) DeleteByID(ctx context.Context, id string, projectPath string) (bool, error) {
	if projectPath != "" {
		ok, err := s.Delete(ctx, id, model.ScopeProject, projectPath)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return s.Delete(ctx, id, model.ScopeGlobal, "")
}

// DeleteMatching deletes every memory in scope whose content matches query
// (same AND-across-terms semantics as SearchKeyword), returning the count.
func (s *Store) DeleteMatching(ctx context.Context, query string, scope model.Scope, projectPath string) (int64, error) {
	terms := keywordTerms(query)
	if len(terms) == 0 {
		return 0, nil
	}
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		return 0, err
	}
	tx := db.WithContext(ctx).Where("scope = ?", scope)
	for _, t := range terms {
		tx = tx.Where("LOWER(content) LIKE ?", "%"+strings.ToLower(t)+"%")
	}
	res := tx.Delete(&model.Memory{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: delete matching: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CleanupExpired removes expired rows from scope, returning the count
// removed.
func (s *Store) CleanupExpired(ctx context.Context, scope model.Scope, projectPath string) (int64, error) {
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).
		Where("scope = ? AND expires_at IS NOT NULL AND expires_at <= ?", scope, idutil.Now()).
		Delete(&model.Memory{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: cleanup expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Reset removes every row in scope, returning the count removed.
func (s *Store) Reset(ctx context.Context, scope model.Scope, projectPath string) (int64, error) {
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Where("scope = ?", scope).Delete(&model.Memory{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: reset: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RecordAccess bumps access_count and last_accessed_at. Best-effort: failures
// are logged, never returned, since callers must not have reads fail a
// command (spec.md §4.4).
func (s *Store) RecordAccess(ctx context.Context, id string, scope model.Scope, projectPath string) {
	db, err := s.dbFor(scope, projectPath)
	if err != nil {
		log.Warn("record access: open store", "id", id, "err", err)
		return
	}
	now := idutil.Now()
	err = db.WithContext(ctx).Model(&model.Memory{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"access_count":     gorm.Expr("access_count + 1"),
			"last_accessed_at": now,
		}).Error
	if err != nil {
		log.Warn("record access: update", "id", id, "err", err)
	}
}

// RecordAccessBatch applies RecordAccess to every id.
func (s *Store) RecordAccessBatch(ctx context.Context, ids []string, scope model.Scope, projectPath string) {
	for _, id := range ids {
		s.RecordAccess(ctx, id, scope, projectPath)
	}
}

// ListWithDescendants runs List against the current project and every
// descendant project file, merges, deduplicates by id, and sorts DESC.
func (s *Store) ListWithDescendants(ctx context.Context, opts ListOptions) ([]model.Memory, error) {
	if opts.ProjectPath == "" {
		return nil, &storeapi.ValidationError{Field: "project_path", Message: "list_with_descendants requires a current project"}
	}
	limit := opts.Limit
	opts.Scope = model.ScopeProject
	rows, err := s.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	descendants, err := pathresolver.Descendants(s.cfg, opts.ProjectPath, s.cfg.DescendantScanLimit)
	if err != nil {
		return nil, err
	}
	for _, d := range descendants {
		dOpts := opts
		dOpts.ProjectPath = d
		dRows, err := s.List(ctx, dOpts)
		if err != nil {
			return nil, err
		}
		rows = append(rows, dRows...)
	}
	return dedupSortTruncate(rows, limit), nil
}

// SearchWithDescendants is the keyword-search analogue of
// ListWithDescendants.
func (s *Store) SearchWithDescendants(ctx context.Context, query string, projectPath string, limit int) ([]model.Memory, error) {
	if projectPath == "" {
		return nil, &storeapi.ValidationError{Field: "project_path", Message: "search_with_descendants requires a current project"}
	}
	rows, err := s.SearchKeyword(ctx, query, model.ScopeProject, projectPath, limit)
	if err != nil {
		return nil, err
	}
	descendants, err := pathresolver.Descendants(s.cfg, projectPath, s.cfg.DescendantScanLimit)
	if err != nil {
		return nil, err
	}
	for _, d := range descendants {
		dRows, err := s.SearchKeyword(ctx, query, model.ScopeProject, d, limit)
		if err != nil {
			return nil, err
		}
		rows = append(rows, dRows...)
	}
	return dedupSortTruncate(rows, limit), nil
}

// ProjectGroup bundles a project's memories for the cross-project
// aggregators; ProjectPath is nil for the global file.
type ProjectGroup struct {
	ProjectPath *string
	Memories    []model.Memory
}

// ProjectStats summarizes one project's memories for get_all_project_stats.
type ProjectStats struct {
	ProjectPath *string
	Count       int64
	PinnedCount int64
}

// ListAllProjects scans base_path/projects/* plus the global file, opening
// each in turn and returning per-project groupings.
func (s *Store) ListAllProjects(ctx context.Context, limit int) ([]ProjectGroup, error) {
	return s.forEachProjectFile(ctx, func(db *gorm.DB, projectPath *string) (ProjectGroup, error) {
		var rows []model.Memory
		tx := db.WithContext(ctx).Order("created_at DESC")
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		if err := tx.Find(&rows).Error; err != nil {
			return ProjectGroup{}, fmt.Errorf("store: list all projects: %w", err)
		}
		return ProjectGroup{ProjectPath: projectPath, Memories: rows}, nil
	})
}

// SearchAllProjects runs SearchKeyword-style matching against every project
// file plus the global file.
func (s *Store) SearchAllProjects(ctx context.Context, query string, limit int) ([]ProjectGroup, error) {
	terms := keywordTerms(query)
	return s.forEachProjectFile(ctx, func(db *gorm.DB, projectPath *string) (ProjectGroup, error) {
		if len(terms) == 0 {
			return ProjectGroup{ProjectPath: projectPath}, nil
		}
		tx := db.WithContext(ctx)
		for _, t := range terms {
			tx = tx.Where("LOWER(content) LIKE ?", "%"+strings.ToLower(t)+"%")
		}
		var rows []model.Memory
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		if err := tx.Order("created_at DESC").Find(&rows).Error; err != nil {
			return ProjectGroup{}, fmt.Errorf("store: search all projects: %w", err)
		}
		return ProjectGroup{ProjectPath: projectPath, Memories: rows}, nil
	})
}

// GetAllProjectStats returns row and pinned counts per project file.
func (s *Store) GetAllProjectStats(ctx context.Context) ([]ProjectStats, error) {
	groups, err := s.forEachProjectFile(ctx, func(db *gorm.DB, projectPath *string) (ProjectGroup, error) {
		var rows []model.Memory
		if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
			return ProjectGroup{}, fmt.Errorf("store: project stats: %w", err)
		}
		return ProjectGroup{ProjectPath: projectPath, Memories: rows}, nil
	})
	if err != nil {
		return nil, err
	}
	stats := make([]ProjectStats, 0, len(groups))
	for _, g := range groups {
		var pinned int64
		for _, m := range g.Memories {
			if m.Pinned {
				pinned++
			}
		}
		stats = append(stats, ProjectStats{ProjectPath: g.ProjectPath, Count: int64(len(g.Memories)), PinnedCount: pinned})
	}
	return stats, nil
}

// forEachProjectFile opens every project's memories.db (via the same
// connection cache as everything else) plus the global file, and applies fn,
// emitting one ProjectGroup per file; nil ProjectPath denotes the global
// file (spec.md §4.4, "Cross-project aggregators").
func (s *Store) forEachProjectFile(ctx context.Context, fn func(db *gorm.DB, projectPath *string) (ProjectGroup, error)) ([]ProjectGroup, error) {
	projectDirs, err := listDirs(s.cfg.ProjectsRoot())
	if err != nil {
		return nil, err
	}

	var groups []ProjectGroup
	for _, dir := range projectDirs {
		back, err := pathresolver.ReadBackReference(dir)
		if err != nil || back == "" {
			continue
		}
		db, err := s.open(filepath.Join(dir, dbFileName))
		if err != nil {
			log.Warn("forEachProjectFile: open project db", "dir", dir, "err", err)
			continue
		}
		path := back
		g, err := fn(db, &path)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	globalDB, err := s.dbFor(model.ScopeGlobal, "")
	if err != nil {
		return nil, err
	}
	g, err := fn(globalDB, nil)
	if err != nil {
		return nil, err
	}
	groups = append(groups, g)
	return groups, nil
}

// ListForScope lists every memory in scope, across every project file when
// scope is project, or from the single shared global file otherwise. Used
// by internal/pruning to scan a whole scope without per-project callers.
func (s *Store) ListForScope(ctx context.Context, scope model.Scope, category *model.Category, limit int) ([]model.Memory, error) {
	if scope != model.ScopeProject {
		return s.List(ctx, ListOptions{Scope: scope, Category: category, Limit: limit, IncludeExpired: true})
	}

	groups, err := s.forEachProjectFile(ctx, func(db *gorm.DB, projectPath *string) (ProjectGroup, error) {
		if projectPath == nil {
			return ProjectGroup{}, nil
		}
		tx := db.WithContext(ctx).Where("scope = ?", model.ScopeProject)
		if category != nil {
			tx = tx.Where("category = ?", *category)
		}
		tx = tx.Order("created_at DESC")
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		var rows []model.Memory
		if err := tx.Find(&rows).Error; err != nil {
			return ProjectGroup{}, fmt.Errorf("store: list for scope: %w", err)
		}
		return ProjectGroup{ProjectPath: projectPath, Memories: rows}, nil
	})
	if err != nil {
		return nil, err
	}

	var all []model.Memory
	for _, g := range groups {
		all = append(all, g.Memories...)
	}
	return all, nil
}
