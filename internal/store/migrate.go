package store

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

// ensureSchema creates the memories table on first open and tolerates the
// three historical column shapes from spec.md §4.4. Migrations run before
// index creation and are idempotent: re-running against an already-migrated
// file is a no-op.
func ensureSchema(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("store: underlying db: %w", err)
	}

	exists, err := tableExists(sqlDB, "memories")
	if err != nil {
		return err
	}
	if !exists {
		if err := db.Exec(createMemoriesTableSQL).Error; err != nil {
			return fmt.Errorf("store: create memories table: %w", err)
		}
		return createMemoriesIndexes(db)
	}

	cols, err := columnSet(sqlDB, "memories")
	if err != nil {
		return err
	}

	hasGroups := cols["groups"]
	hasSharedGroups := cols["shared_groups"]
	switch {
	case !hasGroups && !hasSharedGroups:
		// Shape 1: existing table with neither groups nor shared_groups.
		if err := db.Exec(`ALTER TABLE memories ADD COLUMN groups TEXT NOT NULL DEFAULT '[]'`).Error; err != nil {
			return fmt.Errorf("store: add groups column: %w", err)
		}
	case hasSharedGroups && !hasGroups:
		// Shape 2: legacy shared_groups column, never renamed.
		if err := db.Exec(`ALTER TABLE memories ADD COLUMN groups TEXT NOT NULL DEFAULT '[]'`).Error; err != nil {
			return fmt.Errorf("store: add groups column: %w", err)
		}
		if err := db.Exec(`UPDATE memories SET groups = shared_groups WHERE shared_groups IS NOT NULL`).Error; err != nil {
			return fmt.Errorf("store: copy shared_groups: %w", err)
		}
		if err := db.Exec(`UPDATE memories SET scope = 'group' WHERE groups IS NOT NULL AND groups != '[]' AND groups != ''`).Error; err != nil {
			return fmt.Errorf("store: backfill group scope: %w", err)
		}
	}

	if !cols["access_count"] {
		if err := db.Exec(`ALTER TABLE memories ADD COLUMN access_count INTEGER NOT NULL DEFAULT 0`).Error; err != nil {
			return fmt.Errorf("store: add access_count column: %w", err)
		}
	}
	if !cols["last_accessed_at"] {
		if err := db.Exec(`ALTER TABLE memories ADD COLUMN last_accessed_at DATETIME`).Error; err != nil {
			return fmt.Errorf("store: add last_accessed_at column: %w", err)
		}
	}

	return createMemoriesIndexes(db)
}

const createMemoriesTableSQL = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	category TEXT NOT NULL,
	scope TEXT NOT NULL,
	project_path TEXT,
	pinned BOOLEAN NOT NULL DEFAULT 0,
	groups TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	expires_at DATETIME,
	source TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	access_count INTEGER NOT NULL DEFAULT 0,
	last_accessed_at DATETIME
)`

func createMemoriesIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_pinned ON memories(pinned)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_scope ON memories(scope)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_access_count ON memories(access_count)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("store: create index: %w", err)
		}
	}
	return nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	row := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, name)
	var found string
	err := row.Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check table existence: %w", err)
	}
	return true, nil
}

func columnSet(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, fmt.Errorf("store: inspect columns: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("store: scan column info: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
