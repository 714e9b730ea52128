// Package ledger keeps a local record of every completion the server serves,
// so per-user usage is available even when no gateway is in the loop.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spetersoncode/llmgate/gateway"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Entry is one served completion.
type Entry struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           string    `gorm:"index" json:"user_id"`
	Provider         string    `gorm:"index" json:"provider"`
	Model            string    `gorm:"index" json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Cost             float64   `json:"cost"`
	LatencyMS        int64     `json:"latency_ms"`
	ToolCalls        int       `json:"tool_calls"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

func (Entry) TableName() string { return "usage_entries" }

// Ledger stores entries in SQLite.
type Ledger struct {
	db *gorm.DB
}

// Open opens or creates the ledger database at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*Ledger, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if path == ":memory:" {
		// each pooled connection would get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open ledger %s: %w", path, err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Record stores e. A zero CreatedAt is set to now, and a zero TotalTokens is
// derived from the prompt and completion counts.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	e.ID = 0
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.TotalTokens == 0 {
		e.TotalTokens = e.PromptTokens + e.CompletionTokens
	}
	if err := gorm.G[Entry](l.db).Create(ctx, &e); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

type summaryRow struct {
	TotalPromptTokens     int
	TotalCompletionTokens int
	TotalTokens           int
	TotalCost             float64
	RequestCount          int
	Provider              string
	Model                 string
}

func (r summaryRow) summary() gateway.Summary {
	return gateway.Summary{
		TotalPromptTokens:     r.TotalPromptTokens,
		TotalCompletionTokens: r.TotalCompletionTokens,
		TotalTokens:           r.TotalTokens,
		TotalCost:             r.TotalCost,
		RequestCount:          r.RequestCount,
	}
}

const summaryColumns = "COALESCE(SUM(prompt_tokens), 0) AS total_prompt_tokens, " +
	"COALESCE(SUM(completion_tokens), 0) AS total_completion_tokens, " +
	"COALESCE(SUM(total_tokens), 0) AS total_tokens, " +
	"COALESCE(SUM(cost), 0) AS total_cost, " +
	"COUNT(*) AS request_count"

func (l *Ledger) scope(ctx context.Context, userID string) *gorm.DB {
	q := l.db.WithContext(ctx).Model(&Entry{})
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	return q
}

// Summary totals the entries of a user. An empty userID totals everyone.
func (l *Ledger) Summary(ctx context.Context, userID string) (gateway.Summary, error) {
	var row summaryRow
	if err := l.scope(ctx, userID).Select(summaryColumns).Scan(&row).Error; err != nil {
		return gateway.Summary{}, fmt.Errorf("summarize usage: %w", err)
	}
	return row.summary(), nil
}

// SummaryByModel totals the entries of a user per provider:model.
func (l *Ledger) SummaryByModel(ctx context.Context, userID string) (map[string]gateway.Summary, error) {
	var rows []summaryRow
	err := l.scope(ctx, userID).
		Select("provider, model, " + summaryColumns).
		Group("provider, model").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("summarize usage by model: %w", err)
	}
	out := make(map[string]gateway.Summary, len(rows))
	for _, r := range rows {
		out[r.Provider+":"+r.Model] = r.summary()
	}
	return out, nil
}

// Recent returns a user's latest entries, newest first. An empty userID
// covers everyone and a non-positive limit defaults to 20.
func (l *Ledger) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []Entry
	err := l.scope(ctx, userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	return entries, nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
