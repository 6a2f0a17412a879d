package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is the persisted state layout for the approval-and-execution
// engine. Every status-bearing record is authoritative in the database,
// never in memory.
const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS approval_queue_items (
    id                 uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id            bigint NOT NULL,
    email_id           text NOT NULL DEFAULT '',
    customer_email     text NOT NULL,
    subject            text NOT NULL DEFAULT '',
    body               text NOT NULL DEFAULT '',
    classification     text NOT NULL,
    confidence         int NOT NULL DEFAULT 0,
    proposed_response  text NOT NULL,
    original_response  text,
    metadata           jsonb,
    status             text NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending','approved','rejected','edited','executed')),
    reviewed_by        text,
    reviewed_at        timestamptz,
    rejection_reason   text,
    rejection_category text,
    executed_at        timestamptz,
    created_at         timestamptz NOT NULL DEFAULT now(),
    updated_at         timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_queue_items_user_status ON approval_queue_items (user_id, status);

CREATE TABLE IF NOT EXISTS warehouse_workflows (
    id                  uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id             bigint NOT NULL,
    item_id             text NOT NULL DEFAULT '',
    email_id            text NOT NULL DEFAULT '',
    customer_email      text NOT NULL,
    order_number        text NOT NULL,
    requested_change    text NOT NULL CHECK (requested_change IN ('cancellation','address_change')),
    new_address         text,
    fulfillment_contact text NOT NULL,
    request_sent_at     timestamptz NOT NULL,
    reminder_sent_at    timestamptz,
    reply_received      boolean NOT NULL DEFAULT false,
    reply               text,
    reply_at            timestamptz,
    parse_attempts      int NOT NULL DEFAULT 0,
    status              text NOT NULL DEFAULT 'awaiting_reply'
        CHECK (status IN ('awaiting_reply','completed','cannot_change','escalated')),
    was_fulfilled       boolean NOT NULL DEFAULT false,
    escalation_reason   text,
    created_at          timestamptz NOT NULL DEFAULT now(),
    updated_at          timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_workflows_awaiting ON warehouse_workflows (request_sent_at) WHERE status = 'awaiting_reply';

CREATE TABLE IF NOT EXISTS workflow_events (
    id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    workflow_id uuid NOT NULL REFERENCES warehouse_workflows(id),
    user_id     bigint NOT NULL,
    event_type  text NOT NULL,
    description text NOT NULL DEFAULT '',
    metadata    jsonb,
    occurred_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_workflow_events_workflow ON workflow_events (workflow_id, occurred_at);

CREATE TABLE IF NOT EXISTS activity_log (
    id             uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id        bigint NOT NULL,
    action         text NOT NULL,
    type           text NOT NULL,
    executed_by    text NOT NULL CHECK (executed_by IN ('human','ai')),
    customer_email text NOT NULL DEFAULT '',
    details        text NOT NULL DEFAULT '',
    status         text NOT NULL DEFAULT 'completed',
    metadata       jsonb,
    created_at     timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_activity_log_user ON activity_log (user_id, created_at DESC);
`

// Migrate applies the engine schema. Statements are idempotent so this is
// safe to run at every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
