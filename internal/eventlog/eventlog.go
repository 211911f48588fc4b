// Package eventlog implements the command event log (C12, spec.md §4.11):
// an append-only record of every CLI invocation, used for usage and
// session-compliance statistics. Grounded on
// original_source/src/agent_memory/event_log.py's EventLog.
package eventlog

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/model"
)

// Log is a single append-only SQLite table shared by every command
// invocation in base_path/events.db.
type Log struct {
	cfg *config.Config

	mu sync.Mutex
	db *gorm.DB
}

func New(cfg *config.Config) *Log {
	return &Log{cfg: cfg}
}

func (l *Log) open() (*gorm.DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db != nil {
		return l.db, nil
	}

	if err := os.MkdirAll(l.cfg.BasePath, 0o755); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(l.cfg.EventsDBFile()), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.CommandEvent{}); err != nil {
		return nil, err
	}
	l.db = db
	return db, nil
}

// Log records one command invocation. Never raises: failures are logged
// and swallowed, matching the teacher's best-effort access-tracking
// convention in internal/store.
func (l *Log) Log(ctx context.Context, command string, subcommand *string, projectPath *string, resultCount *int, metadata map[string]interface{}) {
	db, err := l.open()
	if err != nil {
		log.Warn("eventlog: open", "err", err)
		return
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	event := model.CommandEvent{
		Timestamp:   time.Now(),
		Command:     command,
		Subcommand:  subcommand,
		ProjectPath: projectPath,
		ResultCount: resultCount,
		Metadata:    metadata,
	}
	if err := db.WithContext(ctx).Create(&event).Error; err != nil {
		log.Warn("eventlog: insert event", "command", command, "err", err)
	}
}

// GetCommandCounts returns invocation counts per "command" or
// "command subcommand" key, over the last sinceDays.
func (l *Log) GetCommandCounts(ctx context.Context, sinceDays int) map[string]int64 {
	counts := map[string]int64{}
	db, err := l.open()
	if err != nil {
		log.Warn("eventlog: open", "err", err)
		return counts
	}

	cutoff := time.Now().AddDate(0, 0, -sinceDays)
	type row struct {
		Command    string
		Subcommand *string
		Cnt        int64
	}
	var rows []row
	err = db.WithContext(ctx).Model(&model.CommandEvent{}).
		Select("command, subcommand, COUNT(*) AS cnt").
		Where("timestamp >= ?", cutoff).
		Group("command, subcommand").
		Order("cnt DESC").
		Scan(&rows).Error
	if err != nil {
		log.Warn("eventlog: command counts query", "err", err)
		return counts
	}
	for _, r := range rows {
		key := r.Command
		if r.Subcommand != nil && *r.Subcommand != "" {
			key = r.Command + " " + *r.Subcommand
		}
		counts[key] = r.Cnt
	}
	return counts
}

// SearchStats summarizes search effectiveness.
type SearchStats struct {
	TotalSearches   int64
	AvgResultCount  float64
	ZeroResultCount int64
	ZeroResultRate  float64
}

// GetSearchStats tallies "search" command invocations over the last
// sinceDays.
func (l *Log) GetSearchStats(ctx context.Context, sinceDays int) SearchStats {
	db, err := l.open()
	if err != nil {
		log.Warn("eventlog: open", "err", err)
		return SearchStats{}
	}
	cutoff := time.Now().AddDate(0, 0, -sinceDays)

	var total int64
	if err := db.WithContext(ctx).Model(&model.CommandEvent{}).
		Where("command = ? AND timestamp >= ?", "search", cutoff).
		Count(&total).Error; err != nil {
		log.Warn("eventlog: search stats count", "err", err)
		return SearchStats{}
	}
	if total == 0 {
		return SearchStats{}
	}

	var agg struct {
		Avg  float64
		Zero int64
	}
	err = db.WithContext(ctx).Model(&model.CommandEvent{}).
		Select("AVG(result_count) AS avg, SUM(CASE WHEN result_count = 0 THEN 1 ELSE 0 END) AS zero").
		Where("command = ? AND timestamp >= ? AND result_count IS NOT NULL", "search", cutoff).
		Scan(&agg).Error
	if err != nil {
		log.Warn("eventlog: search stats aggregate", "err", err)
		return SearchStats{TotalSearches: total}
	}

	return SearchStats{
		TotalSearches:   total,
		AvgResultCount:  roundTo(agg.Avg, 1),
		ZeroResultCount: agg.Zero,
		ZeroResultRate:  roundTo(float64(agg.Zero)/float64(total), 2),
	}
}

// SessionStats summarizes session-summary compliance.
type SessionStats struct {
	StartupCount   int64
	SessionStarts  int64
	SessionEnds    int64
	SummarizeCount int64
	SummarizeRate  float64
}

// GetSessionStats tallies startup/session lifecycle commands over the last
// sinceDays. SummarizeRate is summarize_count / max(startup_count,
// session_starts, 1), capped at 1.0.
func (l *Log) GetSessionStats(ctx context.Context, sinceDays int) SessionStats {
	db, err := l.open()
	if err != nil {
		log.Warn("eventlog: open", "err", err)
		return SessionStats{}
	}
	cutoff := time.Now().AddDate(0, 0, -sinceDays)

	count := func(command string, subcommand string) int64 {
		q := db.WithContext(ctx).Model(&model.CommandEvent{}).Where("command = ? AND timestamp >= ?", command, cutoff)
		if subcommand != "" {
			q = q.Where("subcommand = ?", subcommand)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			log.Warn("eventlog: session stats count", "command", command, "subcommand", subcommand, "err", err)
		}
		return n
	}

	startupCount := count("startup", "")
	sessionStarts := count("session", "start")
	sessionEnds := count("session", "end")
	summarizeCount := count("session", "summarize")

	totalSessions := startupCount
	if sessionStarts > totalSessions {
		totalSessions = sessionStarts
	}
	if totalSessions < 1 {
		totalSessions = 1
	}
	rate := float64(summarizeCount) / float64(totalSessions)
	if rate > 1.0 {
		rate = 1.0
	}

	return SessionStats{
		StartupCount:   startupCount,
		SessionStarts:  sessionStarts,
		SessionEnds:    sessionEnds,
		SummarizeCount: summarizeCount,
		SummarizeRate:  roundTo(rate, 2),
	}
}

func roundTo(v float64, decimals int) float64 {
	scale := 1.0
	for i := 0; i < decimals; i++ {
		scale *= 10
	}
	return float64(int64(v*scale+0.5)) / scale
}
