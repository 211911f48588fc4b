// Package session implements the session manager (C8, spec.md §4.7): a
// JSON-array-backed log of agent sessions per scope, plus session-summary
// memories. Grounded on
// original_source/src/agent_memory/session.py's SessionManager.
package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/idutil"
	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/pathresolver"
	"github.com/chirino/agent-memory/internal/store"
	"github.com/chirino/agent-memory/internal/vectorstore"
)

const (
	sessionsFileName = "sessions.json"
	maxSessions       = 100
)

// Manager is bound to a single project path ("" for the global scope),
// mirroring original_source's one-instance-per-project-path SessionManager.
type Manager struct {
	cfg         *config.Config
	store       *store.Store
	vectorStore *vectorstore.Store // nil disables the vector mirror
	projectPath string

	mu      sync.Mutex
	current *model.Session
}

// New returns a Manager for projectPath ("" selects the global scope).
func New(cfg *config.Config, st *store.Store, vs *vectorstore.Store, projectPath string) *Manager {
	return &Manager{cfg: cfg, store: st, vectorStore: vs, projectPath: projectPath}
}

func (m *Manager) sessionsFile() (string, error) {
	if m.projectPath == "" {
		return filepath.Join(m.cfg.GlobalDir(), "summaries", sessionsFileName), nil
	}
	dir, err := pathresolver.ProjectDir(m.cfg, m.projectPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "summaries", sessionsFileName), nil
}

func (m *Manager) loadSessions() ([]model.Session, error) {
	path, err := m.sessionsFile()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, nil // corrupt or unreadable file degrades to empty, matching original_source
	}
	var sessions []model.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, nil
	}
	return sessions, nil
}

func (m *Manager) saveSessions(sessions []model.Session) error {
	path, err := m.sessionsFile()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// StartSession prepends a new session record, capping the file at the 100
// most recent, and sets it as current.
func (m *Manager) StartSession(metadata map[string]interface{}) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	s := model.Session{
		ID:          idutil.NewSessionID(),
		ProjectPath: m.projectPath,
		StartedAt:   idutil.Now(),
		Metadata:    metadata,
	}

	sessions, err := m.loadSessions()
	if err != nil {
		return nil, err
	}
	sessions = append([]model.Session{s}, sessions...)
	if len(sessions) > maxSessions {
		sessions = sessions[:maxSessions]
	}
	if err := m.saveSessions(sessions); err != nil {
		return nil, err
	}
	m.current = &s
	return &s, nil
}

// EndSession stamps ended_at on sessionID (or the current session if empty).
func (m *Manager) EndSession(sessionID string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	targetID := sessionID
	if targetID == "" && m.current != nil {
		targetID = m.current.ID
	}
	if targetID == "" {
		return nil, nil
	}

	sessions, err := m.loadSessions()
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID != targetID {
			continue
		}
		now := idutil.Now()
		sessions[i].EndedAt = &now
		if err := m.saveSessions(sessions); err != nil {
			return nil, err
		}
		if m.current != nil && m.current.ID == targetID {
			m.current = nil
		}
		result := sessions[i]
		return &result, nil
	}
	return nil, nil
}

// CurrentSession returns the session started by this Manager instance, if any.
func (m *Manager) CurrentSession() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// GetSession returns the session with id, or nil if absent.
func (m *Manager) GetSession(id string) (*model.Session, error) {
	sessions, err := m.loadSessions()
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i], nil
		}
	}
	return nil, nil
}

// GetLastSession returns the most recently started session, or nil.
func (m *Manager) GetLastSession() (*model.Session, error) {
	sessions, err := m.loadSessions()
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// ListSessions returns up to limit sessions, most recent first.
func (m *Manager) ListSessions(limit int) ([]model.Session, error) {
	sessions, err := m.loadSessions()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// AddSummary saves content as a session_summary memory (mirrored to the
// vector store when enabled), stamps metadata.session_id, and increments
// the target session's summary_count.
func (m *Manager) AddSummary(ctx context.Context, content string, sessionID string, metadata map[string]interface{}) (*model.Memory, error) {
	m.mu.Lock()
	targetID := sessionID
	if targetID == "" && m.current != nil {
		targetID = m.current.ID
	}
	m.mu.Unlock()

	var target *model.Session
	if targetID != "" {
		var err error
		target, err = m.GetSession(targetID)
		if err != nil {
			return nil, err
		}
	}

	memoryMetadata := metadata
	if memoryMetadata == nil {
		memoryMetadata = map[string]interface{}{}
	}
	if target != nil {
		memoryMetadata["session_id"] = target.ID
	}

	memory, err := m.store.Save(ctx, store.SaveInput{
		Content:     content,
		Category:    model.CategorySessionSummary,
		Scope:       model.ScopeProject,
		ProjectPath: m.projectPath,
		Source:      model.SourceAutoSession,
		Metadata:    memoryMetadata,
	})
	if err != nil {
		return nil, err
	}

	if m.vectorStore != nil && m.vectorStore.IsEnabled() {
		_ = m.vectorStore.Add(ctx, vectorstore.Entry{
			MemoryID: memory.ID,
			Content:  content,
			Category: model.CategorySessionSummary,
		}, model.ScopeProject, m.projectPath)
	}

	if target != nil {
		m.mu.Lock()
		sessions, loadErr := m.loadSessions()
		if loadErr == nil {
			for i := range sessions {
				if sessions[i].ID == target.ID {
					sessions[i].SummaryCount++
					_ = m.saveSessions(sessions)
					break
				}
			}
		}
		m.mu.Unlock()
	}

	return memory, nil
}

// GetSessionSummaries returns session_summary memories, optionally filtered
// to one session id.
func (m *Manager) GetSessionSummaries(ctx context.Context, sessionID string, limit int) ([]model.Memory, error) {
	category := model.CategorySessionSummary
	rows, err := m.store.List(ctx, store.ListOptions{
		Scope:       model.ScopeProject,
		ProjectPath: m.projectPath,
		Category:    &category,
		Limit:       limit * 2,
	})
	if err != nil {
		return nil, err
	}
	if sessionID != "" {
		filtered := rows[:0]
		for _, r := range rows {
			if id, ok := r.Metadata["session_id"].(string); ok && id == sessionID {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// LoadLastSessionContext returns the summaries belonging to the most recent
// session.
func (m *Manager) LoadLastSessionContext(ctx context.Context) ([]model.Memory, error) {
	last, err := m.GetLastSession()
	if err != nil || last == nil {
		return nil, err
	}
	return m.GetSessionSummaries(ctx, last.ID, 10)
}

// ShouldSummarize reports whether messageCount has crossed a summary
// interval boundary, per the configured cadence.
func (m *Manager) ShouldSummarize(messageCount int) bool {
	if !m.cfg.Autosave.SessionSummary {
		return false
	}
	interval := m.cfg.Autosave.SummaryIntervalMessages
	if interval <= 0 {
		return false
	}
	return messageCount > 0 && messageCount%interval == 0
}

// CleanupOld removes session records started before keepDays ago, returning
// the count removed.
func (m *Manager) CleanupOld(keepDays int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadSessions()
	if err != nil {
		return 0, err
	}
	cutoff := idutil.Now().Add(-time.Duration(keepDays) * 24 * time.Hour)

	kept := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if !s.StartedAt.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].StartedAt.After(kept[j].StartedAt) })
	removed := len(sessions) - len(kept)
	if err := m.saveSessions(kept); err != nil {
		return 0, err
	}
	return removed, nil
}
