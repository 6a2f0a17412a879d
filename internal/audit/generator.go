package audit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/storeclerk/pkg/models"
)

// Generator derives a classification-specific activity entry from an
// executed queue item. It never returns an error to the execution path: a
// logging failure must not roll back an already-executed action.
type Generator struct {
	store Store
}

func NewGenerator(store Store) *Generator { return &Generator{store: store} }

// Record writes one entry for the executed item. Identifier extraction
// degrades to "unknown" rather than failing.
func (g *Generator) Record(ctx context.Context, item *models.ApprovalQueueItem, result models.ExecResult, by models.ExecutedBy) {
	entry := g.build(item, result, by)
	if err := g.store.Append(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("item_id", item.ID).
			Str("action", entry.Action).
			Msg("failed to write activity entry")
	}
}

// List exposes the activity feed for the tenant dashboard.
func (g *Generator) List(ctx context.Context, userID int64, limit int) ([]*ActivityLogEntry, error) {
	return g.store.List(ctx, userID, limit)
}

func (g *Generator) build(item *models.ApprovalQueueItem, result models.ExecResult, by models.ExecutedBy) *ActivityLogEntry {
	entry := &ActivityLogEntry{
		UserID:        item.UserID,
		Type:          item.Classification,
		ExecutedBy:    by,
		CustomerEmail: item.CustomerEmail,
		Status:        "completed",
		Metadata:      models.Metadata{},
	}
	for k, v := range result.Facts {
		entry.Metadata[k] = v
	}
	text := item.ProposedResponse + "\n" + item.Body

	switch item.Classification {
	case models.ClassificationSubscriptionAction:
		subID := result.Facts.String("subscription_id")
		if subID == "" {
			subID = extractSubscriptionID(item.Metadata, text)
		}
		action := result.Facts.String("action")
		if action == "" {
			action = item.Metadata.String("action")
		}
		switch action {
		case "pause":
			entry.Action = "paused_subscription"
		case "resume":
			entry.Action = "resumed_subscription"
		case "cancel":
			entry.Action = "cancelled_subscription"
		default:
			entry.Action = "subscription_action"
		}
		entry.Details = fmt.Sprintf("%s subscription #%s for %s", actionVerb(action), subID, item.CustomerEmail)
		entry.Metadata["subscription_id"] = subID

	case models.ClassificationPromoRefund:
		amount := extractAmount(item.Metadata, text)
		promo := result.Facts.String("promo_config")
		entry.Action = "sent_promo"
		entry.Details = fmt.Sprintf("sent promo/refund (%s, amount %s) to %s", promo, amount, item.CustomerEmail)
		entry.Metadata["amount"] = amount

	case models.ClassificationCancellation:
		orderNumber := extractOrderNumber(item.Metadata, text)
		entry.Action = "requested_cancellation"
		entry.Status = "workflow_started"
		entry.Details = fmt.Sprintf("cancellation of order #%s for %s handed to warehouse", orderNumber, item.CustomerEmail)
		entry.Metadata["order_number"] = orderNumber

	case models.ClassificationAddressChange:
		orderNumber := extractOrderNumber(item.Metadata, text)
		entry.Action = "requested_address_change"
		entry.Status = "workflow_started"
		entry.Details = fmt.Sprintf("address change for order #%s for %s handed to warehouse", orderNumber, item.CustomerEmail)
		entry.Metadata["order_number"] = orderNumber
		entry.Metadata["tracking_number"] = extractTrackingNumber(item.Metadata, text)

	default:
		entry.Action = "sent_reply"
		entry.Details = fmt.Sprintf("replied to %s about %q", item.CustomerEmail, item.Subject)
	}

	return entry
}

func actionVerb(action string) string {
	switch action {
	case "pause":
		return "paused"
	case "resume":
		return "resumed"
	case "cancel":
		return "cancelled"
	default:
		return "changed"
	}
}
