package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/storeclerk/internal/engine"
	"github.com/storeclerk/pkg/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const workflowColumns = `id, user_id, item_id, email_id, customer_email, order_number, requested_change,
	coalesce(new_address,''), fulfillment_contact, request_sent_at, reminder_sent_at,
	reply_received, coalesce(reply,''), reply_at, parse_attempts,
	status, was_fulfilled, coalesce(escalation_reason,''), created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, wf *Workflow) error {
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO warehouse_workflows
            (user_id, item_id, email_id, customer_email, order_number, requested_change,
             new_address, fulfillment_contact, request_sent_at, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at
    `,
		wf.UserID, wf.ItemID, wf.EmailID, wf.CustomerEmail, wf.OrderNumber,
		string(wf.RequestedChange), nullIfEmpty(wf.NewAddress), wf.FulfillmentContact,
		wf.RequestSentAt, string(wf.Status),
	).Scan(&wf.ID, &wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Workflow, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+workflowColumns+` FROM warehouse_workflows WHERE id=$1
    `, id)
	return scanWorkflow(row)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, userID int64, status Status) ([]*Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM warehouse_workflows WHERE user_id=$1`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status=$2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at ASC`
	return s.list(ctx, query, args...)
}

func (s *PostgresStore) ListAwaitingOlderThan(ctx context.Context, cutoff time.Time) ([]*Workflow, error) {
	return s.list(ctx, `
        SELECT `+workflowColumns+` FROM warehouse_workflows
        WHERE status=$1 AND request_sent_at <= $2
        ORDER BY request_sent_at ASC
    `, string(StatusAwaitingReply), cutoff)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...interface{}) ([]*Workflow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()
	out := make([]*Workflow, 0)
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateIf(ctx context.Context, wf *Workflow, fromStatus Status) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE warehouse_workflows
        SET status=$1, reply_received=$2, reply=$3, reply_at=$4, parse_attempts=$5,
            was_fulfilled=$6, escalation_reason=$7, reminder_sent_at=$8, updated_at=now()
        WHERE id=$9 AND status=$10
    `,
		string(wf.Status), wf.ReplyReceived, nullIfEmpty(wf.Reply), wf.ReplyAt, wf.ParseAttempts,
		wf.WasFulfilled, nullIfEmpty(wf.EscalationReason), wf.ReminderSentAt,
		wf.ID, string(fromStatus),
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if n == 1 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM warehouse_workflows WHERE id=$1`, wf.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	return engine.InvalidStatef("workflow %s is %s, expected %s", wf.ID, current, fromStatus)
}

func (s *PostgresStore) AppendEvent(ctx context.Context, ev *Event) error {
	var metaJSON []byte
	if ev.Metadata != nil {
		b, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
		metaJSON = b
	}
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO workflow_events (workflow_id, user_id, event_type, description, metadata)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, occurred_at
    `,
		ev.WorkflowID, ev.UserID, string(ev.EventType), ev.Description, metaJSON,
	).Scan(&ev.ID, &ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert workflow event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, workflowID string) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, workflow_id, user_id, event_type, description, metadata, occurred_at
        FROM workflow_events WHERE workflow_id=$1 ORDER BY occurred_at ASC
    `, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list workflow events: %w", err)
	}
	defer rows.Close()
	out := make([]*Event, 0)
	for rows.Next() {
		var ev Event
		var eventType string
		var metaJSON sql.NullString
		if err := rows.Scan(&ev.ID, &ev.WorkflowID, &ev.UserID, &eventType, &ev.Description, &metaJSON, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan workflow event: %w", err)
		}
		ev.EventType = EventType(eventType)
		if metaJSON.Valid && metaJSON.String != "" {
			var m models.Metadata
			if err := json.Unmarshal([]byte(metaJSON.String), &m); err == nil {
				ev.Metadata = m
			}
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

func scanWorkflow(scanner interface{ Scan(dest ...any) error }) (*Workflow, error) {
	var wf Workflow
	var change, status string
	var replyAt, reminderAt sql.NullTime
	if err := scanner.Scan(
		&wf.ID, &wf.UserID, &wf.ItemID, &wf.EmailID, &wf.CustomerEmail, &wf.OrderNumber,
		&change, &wf.NewAddress, &wf.FulfillmentContact, &wf.RequestSentAt, &reminderAt,
		&wf.ReplyReceived, &wf.Reply, &replyAt, &wf.ParseAttempts,
		&status, &wf.WasFulfilled, &wf.EscalationReason, &wf.CreatedAt, &wf.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, engine.ErrNotFound
		}
		return nil, fmt.Errorf("scan workflow: %w", err)
	}
	wf.RequestedChange = ChangeKind(change)
	wf.Status = Status(status)
	if replyAt.Valid {
		t := replyAt.Time
		wf.ReplyAt = &t
	}
	if reminderAt.Valid {
		t := reminderAt.Time
		wf.ReminderSentAt = &t
	}
	return &wf, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
