package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// historyRepo stores forward records in sqlite
type historyRepo struct {
	db *sql.DB
}

// NewHistoryRepo opens (or creates) the forward history database
func NewHistoryRepo(dbPath string, logger *slog.Logger) (repo.HistoryRepo, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases shared between calls
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS forward_history (
			id TEXT PRIMARY KEY,
			message_id TEXT,
			source_id TEXT NOT NULL,
			source_label TEXT,
			text TEXT NOT NULL,
			media_count INTEGER DEFAULT 0,
			outcomes TEXT NOT NULL,
			delivered INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create forward_history table: %w", err)
	}
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_created ON forward_history(created_at)`)

	if logger != nil {
		logger.Info("History database initialized", "path", dbPath)
	}
	return &historyRepo{db: db}, nil
}

// Record stores rec, assigning an id when it has none
func (r *historyRepo) Record(ctx context.Context, rec *domain.ForwardRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	outcomes, err := json.Marshal(rec.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to encode outcomes: %w", err)
	}

	delivered := 0
	if rec.Delivered() {
		delivered = 1
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO forward_history (id, message_id, source_id, source_label, text, media_count, outcomes, delivered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.MessageID, rec.SourceID, rec.SourceLabel, rec.Text, rec.MediaCount, string(outcomes), delivered, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert forward record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first
func (r *historyRepo) Recent(ctx context.Context, limit int) ([]*domain.ForwardRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message_id, source_id, source_label, text, media_count, outcomes, created_at
		FROM forward_history
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query forward history: %w", err)
	}
	defer rows.Close()

	var records []*domain.ForwardRecord
	for rows.Next() {
		var rec domain.ForwardRecord
		var messageID, label sql.NullString
		var outcomes string
		var createdAt int64
		if err := rows.Scan(&rec.ID, &messageID, &rec.SourceID, &label, &rec.Text, &rec.MediaCount, &outcomes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan forward record: %w", err)
		}
		rec.MessageID = messageID.String
		rec.SourceLabel = label.String
		rec.CreatedAt = time.UnixMilli(createdAt)
		if err := json.Unmarshal([]byte(outcomes), &rec.Outcomes); err != nil {
			return nil, fmt.Errorf("failed to decode outcomes of %s: %w", rec.ID, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Prune removes records older than cutoff
func (r *historyRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM forward_history WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune forward history: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database
func (r *historyRepo) Close() error {
	return r.db.Close()
}
