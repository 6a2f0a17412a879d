package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/storeclerk/internal/engine"
	"github.com/storeclerk/pkg/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const itemColumns = `id, user_id, email_id, customer_email, subject, body, classification, confidence,
	proposed_response, coalesce(original_response,''), metadata, status,
	coalesce(reviewed_by,''), reviewed_at, coalesce(rejection_reason,''), coalesce(rejection_category,''),
	executed_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, item *models.ApprovalQueueItem) error {
	metaJSON, err := marshalMetadata(item.Metadata)
	if err != nil {
		return err
	}
	err = s.db.QueryRowContext(ctx, `
        INSERT INTO approval_queue_items
            (user_id, email_id, customer_email, subject, body, classification, confidence, proposed_response, metadata, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at
    `,
		item.UserID, item.EmailID, item.CustomerEmail, item.Subject, item.Body,
		string(item.Classification), item.Confidence, item.ProposedResponse, metaJSON, string(item.Status),
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert queue item: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, userID int64, id string) (*models.ApprovalQueueItem, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+itemColumns+`
        FROM approval_queue_items WHERE id=$1 AND user_id=$2
    `, id, userID)
	return scanItem(row)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, userID int64, statuses ...models.ItemStatus) ([]*models.ApprovalQueueItem, error) {
	query := `SELECT ` + itemColumns + ` FROM approval_queue_items WHERE user_id=$1`
	args := []interface{}{userID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		raw := make([]string, 0, len(statuses))
		for _, st := range statuses {
			raw = append(raw, string(st))
		}
		args = append(args, pq.Array(raw))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()
	// Always return a non-nil slice so JSON encodes as [] instead of null
	out := make([]*models.ApprovalQueueItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateIf(ctx context.Context, item *models.ApprovalQueueItem, fromStatus models.ItemStatus) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE approval_queue_items
        SET status=$1, proposed_response=$2, original_response=$3,
            reviewed_by=$4, reviewed_at=$5,
            rejection_reason=$6, rejection_category=$7,
            executed_at=$8, updated_at=now()
        WHERE id=$9 AND user_id=$10 AND status=$11
    `,
		string(item.Status), item.ProposedResponse, nullIfEmpty(item.OriginalResponse),
		nullIfEmpty(item.ReviewedBy), item.ReviewedAt,
		nullIfEmpty(item.RejectionReason), nullIfEmpty(item.RejectionCategory),
		item.ExecutedAt, item.ID, item.UserID, string(fromStatus),
	)
	if err != nil {
		return fmt.Errorf("update queue item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update queue item: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Distinguish a lost race from a missing row.
	var current string
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM approval_queue_items WHERE id=$1 AND user_id=$2`,
		item.ID, item.UserID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update queue item: %w", err)
	}
	return engine.InvalidStatef("item %s is %s, expected %s", item.ID, current, fromStatus)
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*models.ApprovalQueueItem, error) {
	var item models.ApprovalQueueItem
	var classification, status string
	var metaJSON sql.NullString
	var reviewedAt, executedAt sql.NullTime
	if err := scanner.Scan(
		&item.ID, &item.UserID, &item.EmailID, &item.CustomerEmail, &item.Subject, &item.Body,
		&classification, &item.Confidence, &item.ProposedResponse, &item.OriginalResponse,
		&metaJSON, &status, &item.ReviewedBy, &reviewedAt, &item.RejectionReason,
		&item.RejectionCategory, &executedAt, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, engine.ErrNotFound
		}
		return nil, fmt.Errorf("scan queue item: %w", err)
	}
	item.Classification = models.Classification(classification)
	item.Status = models.ItemStatus(status)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		item.ReviewedAt = &t
	}
	if executedAt.Valid {
		t := executedAt.Time
		item.ExecutedAt = &t
	}
	if metaJSON.Valid && metaJSON.String != "" {
		var m models.Metadata
		if err := json.Unmarshal([]byte(metaJSON.String), &m); err == nil {
			item.Metadata = m
		}
	}
	return &item, nil
}

func marshalMetadata(m models.Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return b, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
