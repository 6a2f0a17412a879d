package models

import (
	"fmt"
	"time"
)

// Classification is the category assigned to an inbound email. It selects
// which execution handler applies to an approved queue item.
type Classification string

const (
	ClassificationGenericReply       Classification = "generic_reply"
	ClassificationSubscriptionAction Classification = "subscription_action"
	ClassificationPromoRefund        Classification = "promo_refund"
	ClassificationCancellation       Classification = "cancellation"
	ClassificationAddressChange      Classification = "address_change"
)

// AllClassifications lists every classification the engine dispatches on.
// The registry refuses to start with a handler missing for any of these.
var AllClassifications = []Classification{
	ClassificationGenericReply,
	ClassificationSubscriptionAction,
	ClassificationPromoRefund,
	ClassificationCancellation,
	ClassificationAddressChange,
}

// ParseClassification validates a raw classification label.
func ParseClassification(raw string) (Classification, error) {
	c := Classification(raw)
	for _, known := range AllClassifications {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown classification %q", raw)
}

// ItemStatus is the disposition state of an approval queue item.
type ItemStatus string

const (
	StatusPending  ItemStatus = "pending"
	StatusApproved ItemStatus = "approved"
	StatusRejected ItemStatus = "rejected"
	StatusEdited   ItemStatus = "edited"
	StatusExecuted ItemStatus = "executed"
)

// ExecutedBy records which kind of actor approved an executed action.
type ExecutedBy string

const (
	ExecutedByHuman ExecutedBy = "human"
	ExecutedByAI    ExecutedBy = "ai"
)

// Metadata is the classification-specific structured payload attached to a
// queue item (order number, subscription id, refund amount, ...).
type Metadata map[string]interface{}

// String returns the metadata value for key as a string, or "" when the key
// is absent or holds a non-string value it cannot render.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		// JSON numbers decode as float64; order numbers arrive this way
		// from some classifiers.
		return trimFloat(v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// ApprovalQueueItem is one proposed automated action awaiting (or past)
// human disposition.
type ApprovalQueueItem struct {
	ID               string         `json:"id" db:"id"`
	UserID           int64          `json:"user_id" db:"user_id"`
	EmailID          string         `json:"email_id" db:"email_id"`
	CustomerEmail    string         `json:"customer_email" db:"customer_email"`
	Subject          string         `json:"subject" db:"subject"`
	Body             string         `json:"body" db:"body"`
	Classification   Classification `json:"classification" db:"classification"`
	Confidence       int            `json:"confidence" db:"confidence"`
	ProposedResponse string         `json:"proposed_response" db:"proposed_response"`
	OriginalResponse string         `json:"original_response,omitempty" db:"original_response"`
	Metadata         Metadata       `json:"metadata,omitempty" db:"metadata"`

	Status            ItemStatus `json:"status" db:"status"`
	ReviewedBy        string     `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	RejectionReason   string     `json:"rejection_reason,omitempty" db:"rejection_reason"`
	RejectionCategory string     `json:"rejection_category,omitempty" db:"rejection_category"`
	ExecutedAt        *time.Time `json:"executed_at,omitempty" db:"executed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ExecResult is what an execution handler reports back to the queue.
type ExecResult struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
	// Facts the handler learned while executing (subscription state before
	// and after, workflow id, ...). Merged into the audit entry metadata.
	Facts Metadata `json:"facts,omitempty"`
}

// ClassificationInput is the payload the external classification model
// produces for each inbound email. It is the only way items enter the queue.
type ClassificationInput struct {
	EmailID          string         `json:"email_id"`
	CustomerEmail    string         `json:"customer_email"`
	Subject          string         `json:"subject"`
	Body             string         `json:"body"`
	Classification   Classification `json:"classification"`
	Confidence       int            `json:"confidence"`
	ProposedResponse string         `json:"proposed_response"`
	Metadata         Metadata       `json:"metadata,omitempty"`
}
