package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/storeclerk/pkg/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Append(ctx context.Context, entry *ActivityLogEntry) error {
	var metaJSON []byte
	if entry.Metadata != nil {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal activity metadata: %w", err)
		}
		metaJSON = b
	}
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO activity_log (user_id, action, type, executed_by, customer_email, details, status, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at
    `,
		entry.UserID, entry.Action, string(entry.Type), string(entry.ExecutedBy),
		entry.CustomerEmail, entry.Details, entry.Status, metaJSON,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, userID int64, limit int) ([]*ActivityLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, action, type, executed_by, customer_email, details, status, metadata, created_at
        FROM activity_log WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity entries: %w", err)
	}
	defer rows.Close()
	out := make([]*ActivityLogEntry, 0)
	for rows.Next() {
		var e ActivityLogEntry
		var entryType, executedBy string
		var metaJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &entryType, &executedBy,
			&e.CustomerEmail, &e.Details, &e.Status, &metaJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		e.Type = models.Classification(entryType)
		e.ExecutedBy = models.ExecutedBy(executedBy)
		if metaJSON.Valid && metaJSON.String != "" {
			var m models.Metadata
			if err := json.Unmarshal([]byte(metaJSON.String), &m); err == nil {
				e.Metadata = m
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
