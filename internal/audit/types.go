package audit

import (
	"time"

	"github.com/storeclerk/pkg/models"
)

// ActivityLogEntry is one immutable record of a meaningful side effect the
// engine performed on a customer's behalf. One entry per executed action,
// not per internal processing step.
type ActivityLogEntry struct {
	ID            string                `json:"id" db:"id"`
	UserID        int64                 `json:"user_id" db:"user_id"`
	Action        string                `json:"action" db:"action"`
	Type          models.Classification `json:"type" db:"type"`
	ExecutedBy    models.ExecutedBy     `json:"executed_by" db:"executed_by"`
	CustomerEmail string                `json:"customer_email" db:"customer_email"`
	Details       string                `json:"details" db:"details"`
	Status        string                `json:"status" db:"status"`
	Metadata      models.Metadata       `json:"metadata,omitempty" db:"metadata"`
	CreatedAt     time.Time             `json:"created_at" db:"created_at"`
}
