package workflow

import (
	"time"

	"github.com/storeclerk/pkg/models"
)

// Status is the state of a warehouse-reply workflow.
type Status string

const (
	StatusAwaitingReply Status = "awaiting_reply"
	StatusCompleted     Status = "completed"
	StatusCannotChange  Status = "cannot_change"
	StatusEscalated     Status = "escalated"
)

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCannotChange || s == StatusEscalated
}

// ChangeKind is the requested change a workflow tracks.
type ChangeKind string

const (
	ChangeCancellation  ChangeKind = "cancellation"
	ChangeAddressUpdate ChangeKind = "address_change"
)

// Workflow is the long-lived state machine for an order change that needs a
// reply from the fulfillment warehouse before it can complete. It suspends
// as persisted state plus a deadline, never as a blocked goroutine, so the
// engine resumes correctly after a restart.
type Workflow struct {
	ID      string `json:"id" db:"id"`
	UserID  int64  `json:"user_id" db:"user_id"`
	ItemID  string `json:"item_id" db:"item_id"`
	EmailID string `json:"email_id" db:"email_id"`

	CustomerEmail      string     `json:"customer_email" db:"customer_email"`
	OrderNumber        string     `json:"order_number" db:"order_number"`
	RequestedChange    ChangeKind `json:"requested_change" db:"requested_change"`
	NewAddress         string     `json:"new_address,omitempty" db:"new_address"`
	FulfillmentContact string     `json:"fulfillment_contact" db:"fulfillment_contact"`
	RequestSentAt      time.Time  `json:"request_sent_at" db:"request_sent_at"`
	ReminderSentAt     *time.Time `json:"reminder_sent_at,omitempty" db:"reminder_sent_at"`

	ReplyReceived bool       `json:"warehouse_reply_received" db:"reply_received"`
	Reply         string     `json:"warehouse_reply,omitempty" db:"reply"`
	ReplyAt       *time.Time `json:"warehouse_reply_at,omitempty" db:"reply_at"`
	ParseAttempts int        `json:"parse_attempts" db:"parse_attempts"`

	Status           Status `json:"status" db:"status"`
	WasFulfilled     bool   `json:"was_fulfilled" db:"was_fulfilled"`
	EscalationReason string `json:"escalation_reason,omitempty" db:"escalation_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EventType labels the append-only workflow trail entries.
type EventType string

const (
	EventRequestSent   EventType = "request_sent"
	EventReminderSent  EventType = "reminder_sent"
	EventReplyReceived EventType = "reply_received"
	EventCompleted     EventType = "completed"
	EventCannotChange  EventType = "cannot_change"
	EventEscalated     EventType = "escalated"
)

// Event is one entry in a workflow's history. Events are never edited after
// insert; the full trail reconstructs the workflow for audits and disputes.
type Event struct {
	ID          string          `json:"id" db:"id"`
	WorkflowID  string          `json:"workflow_id" db:"workflow_id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	EventType   EventType       `json:"event_type" db:"event_type"`
	Description string          `json:"description" db:"description"`
	Metadata    models.Metadata `json:"metadata,omitempty" db:"metadata"`
	OccurredAt  time.Time       `json:"occurred_at" db:"occurred_at"`
}
