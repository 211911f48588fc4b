package model

import "time"

// Memory is the atomic record owned by the memory store (C5). One row per
// SQL file, per spec.md §3. GORM tags follow the teacher's Memory/Entry
// convention of serializing maps and slices as JSON text columns.
type Memory struct {
	// ID is "mem_" + 12 lowercase hex chars (internal/idutil.NewMemoryID).
	ID string `json:"id" gorm:"primaryKey;column:id"`

	Content string `json:"content" gorm:"column:content;not null"`

	Category Category `json:"category" gorm:"column:category;not null;index"`
	Scope    Scope    `json:"scope" gorm:"column:scope;not null;index"`

	// ProjectPath is non-null iff Scope == ScopeProject.
	ProjectPath *string `json:"projectPath,omitempty" gorm:"column:project_path"`

	Pinned bool `json:"pinned" gorm:"column:pinned;not null;index"`

	// Groups is non-empty iff Scope == ScopeGroup; empty otherwise.
	Groups StringSet `json:"groups" gorm:"column:groups;serializer:json;not null;default:'[]'"`

	CreatedAt time.Time  `json:"createdAt" gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"column:updated_at;not null"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" gorm:"column:expires_at"`

	Source string `json:"source" gorm:"column:source;not null"`

	Metadata map[string]interface{} `json:"metadata" gorm:"column:metadata;serializer:json;not null;default:'{}'"`

	AccessCount    int64      `json:"accessCount" gorm:"column:access_count;not null;default:0;index"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty" gorm:"column:last_accessed_at"`
}

// TableName implements gorm.Tabler.
func (Memory) TableName() string { return "memories" }

// IsExpired reports whether the memory's expiry has passed as of now.
func (m *Memory) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

// Session is a bounded window of agent activity in a project (C8).
// Persisted as a JSON array, not a SQL table — see internal/session.
type Session struct {
	ID          string                 `json:"id"`
	ProjectPath string                 `json:"projectPath"`
	StartedAt   time.Time              `json:"startedAt"`
	EndedAt     *time.Time             `json:"endedAt,omitempty"`
	SummaryCount int                   `json:"summaryCount"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// WorkspaceGroup is a named set of projects (C7), persisted in groups.yaml.
type WorkspaceGroup struct {
	Name      string    `yaml:"-"`
	CreatedAt time.Time `yaml:"created_at"`
	Projects  []string  `yaml:"projects"`
}

// VectorRecord mirrors a Memory into the vector index (C6).
type VectorRecord struct {
	MemoryID string    `json:"memoryId"`
	Content  string    `json:"content"`
	Category Category  `json:"category"`
	Scope    Scope     `json:"scope"`
	Groups   StringSet `json:"groups"`
	Vector   []float32 `json:"-"`
}

// CommandEvent is a single append-only row in the event log (C12).
type CommandEvent struct {
	ID          int64                  `json:"id" gorm:"primaryKey;autoIncrement;column:id"`
	Timestamp   time.Time              `json:"timestamp" gorm:"column:timestamp;not null;index"`
	Command     string                 `json:"command" gorm:"column:command;not null;index"`
	Subcommand  *string                `json:"subcommand,omitempty" gorm:"column:subcommand"`
	ProjectPath *string                `json:"projectPath,omitempty" gorm:"column:project_path"`
	ResultCount *int                   `json:"resultCount,omitempty" gorm:"column:result_count"`
	Metadata    map[string]interface{} `json:"metadata" gorm:"column:metadata;serializer:json;not null;default:'{}'"`
}

// TableName implements gorm.Tabler.
func (CommandEvent) TableName() string { return "events" }
