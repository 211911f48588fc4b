// Package groups implements the workspace group registry (C7, spec.md
// §4.6): a named set of projects persisted in base_path/groups.yaml.
// Grounded on original_source/src/agent_memory/groups.py's GroupManager,
// reshaped around a per-instance cache and an atomic rewrite, in the style
// of the teacher's file-backed config loading.
package groups

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/idutil"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/pathresolver"
	"github.com/chirino/agent-memory/internal/registry/storeapi"
)

// Registry manages workspace groups, caching the parsed file for the life
// of the instance (spec.md §4.6: "the core caches the parsed registry per
// instance").
type Registry struct {
	cfg *config.Config

	mu     sync.Mutex
	groups map[string]*model.WorkspaceGroup
	loaded bool
}

// New returns a Registry bound to cfg.GroupsFile(). Nothing is read from
// disk until the first operation.
func New(cfg *config.Config) *Registry {
	return &Registry{cfg: cfg}
}

type fileFormat struct {
	Groups map[string]groupEntry `yaml:"groups"`
}

type groupEntry struct {
	CreatedAt string   `yaml:"created_at"`
	Projects  []string `yaml:"projects"`
}

func (r *Registry) load() error {
	if r.loaded {
		return nil
	}
	r.groups = map[string]*model.WorkspaceGroup{}

	data, err := os.ReadFile(r.cfg.GroupsFile())
	if os.IsNotExist(err) {
		r.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("groups: read %s: %w", r.cfg.GroupsFile(), err)
	}

	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		// A corrupt file degrades to an empty registry rather than a fatal
		// error, matching original_source's broad except-and-reset.
		r.loaded = true
		return nil
	}
	for name, entry := range ff.Groups {
		createdAt, err := idutil.ParseTimestamp(entry.CreatedAt)
		if err != nil {
			createdAt = idutil.Now()
		}
		r.groups[name] = &model.WorkspaceGroup{
			Name:      name,
			CreatedAt: createdAt,
			Projects:  entry.Projects,
		}
	}
	r.loaded = true
	return nil
}

// save atomically rewrites the groups file: write to a temp file in the
// same directory, then rename over the target.
func (r *Registry) save() error {
	ff := fileFormat{Groups: map[string]groupEntry{}}
	for name, g := range r.groups {
		ff.Groups[name] = groupEntry{
			CreatedAt: idutil.FormatTimestamp(g.CreatedAt),
			Projects:  g.Projects,
		}
	}

	out, err := yaml.Marshal(ff)
	if err != nil {
		return fmt.Errorf("groups: marshal: %w", err)
	}

	path := r.cfg.GroupsFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("groups: mkdir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("groups: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("groups: rename temp file: %w", err)
	}
	return nil
}

// Create adds a new, empty group. The name must be unique.
func (r *Registry) Create(name string) (*model.WorkspaceGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return nil, err
	}
	if _, exists := r.groups[name]; exists {
		return nil, &storeapi.ConflictError{Message: fmt.Sprintf("group %q already exists", name)}
	}
	g := &model.WorkspaceGroup{Name: name, CreatedAt: idutil.Now(), Projects: []string{}}
	r.groups[name] = g
	if err := r.save(); err != nil {
		return nil, err
	}
	return g, nil
}

// Delete removes a group, reporting whether it existed.
func (r *Registry) Delete(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return false, err
	}
	if _, exists := r.groups[name]; !exists {
		return false, nil
	}
	delete(r.groups, name)
	if err := r.save(); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the named group, or nil if absent.
func (r *Registry) Get(name string) (*model.WorkspaceGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return nil, err
	}
	g, ok := r.groups[name]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

// List returns every group, sorted by name for stable output.
func (r *Registry) List() ([]model.WorkspaceGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]model.WorkspaceGroup, 0, len(names))
	for _, name := range names {
		out = append(out, *r.groups[name])
	}
	return out, nil
}

// AddProject resolves projectPath and adds it to the named group if absent.
func (r *Registry) AddProject(name string, projectPath string) (*model.WorkspaceGroup, error) {
	return r.mutateProject(name, projectPath, func(g *model.WorkspaceGroup, resolved string) {
		for _, p := range g.Projects {
			if p == resolved {
				return
			}
		}
		g.Projects = append(g.Projects, resolved)
	})
}

// RemoveProject resolves projectPath and removes it from the named group.
func (r *Registry) RemoveProject(name string, projectPath string) (*model.WorkspaceGroup, error) {
	return r.mutateProject(name, projectPath, func(g *model.WorkspaceGroup, resolved string) {
		kept := g.Projects[:0]
		for _, p := range g.Projects {
			if p != resolved {
				kept = append(kept, p)
			}
		}
		g.Projects = kept
	})
}

func (r *Registry) mutateProject(name, projectPath string, mutate func(*model.WorkspaceGroup, string)) (*model.WorkspaceGroup, error) {
	resolved, err := pathresolver.Resolve(projectPath)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return nil, err
	}
	g, ok := r.groups[name]
	if !ok {
		return nil, &storeapi.NotFoundError{Resource: "group", ID: name}
	}
	mutate(g, resolved)
	if err := r.save(); err != nil {
		return nil, err
	}
	cp := *g
	return &cp, nil
}

// GetGroupsForProject returns every group containing projectPath.
func (r *Registry) GetGroupsForProject(projectPath string) ([]model.WorkspaceGroup, error) {
	resolved, err := pathresolver.Resolve(projectPath)
	if err != nil {
		return nil, err
	}
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	var matches []model.WorkspaceGroup
	for _, g := range all {
		for _, p := range g.Projects {
			if p == resolved {
				matches = append(matches, g)
				break
			}
		}
	}
	return matches, nil
}

// GetSiblingProjects returns every project path that shares a group with
// projectPath, excluding projectPath itself.
func (r *Registry) GetSiblingProjects(projectPath string) ([]string, error) {
	resolved, err := pathresolver.Resolve(projectPath)
	if err != nil {
		return nil, err
	}
	groups, err := r.GetGroupsForProject(projectPath)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var siblings []string
	for _, g := range groups {
		for _, p := range g.Projects {
			if p == resolved || seen[p] {
				continue
			}
			seen[p] = true
			siblings = append(siblings, p)
		}
	}
	sort.Strings(siblings)
	return siblings, nil
}
