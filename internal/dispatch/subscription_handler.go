package dispatch

import (
	"context"
	"fmt"

	"github.com/storeclerk/internal/commerce"
	"github.com/storeclerk/internal/mailer"
	"github.com/storeclerk/pkg/models"
)

// SubscriptionHandler executes pause/resume/cancel against the commerce
// platform and only then notifies the customer. A missing subscription id
// fails fast with no email sent.
type SubscriptionHandler struct {
	adapter commerce.Adapter
	mail    mailer.Sender
}

func NewSubscriptionHandler(adapter commerce.Adapter, mail mailer.Sender) *SubscriptionHandler {
	return &SubscriptionHandler{adapter: adapter, mail: mail}
}

func (h *SubscriptionHandler) Execute(ctx context.Context, item *models.ApprovalQueueItem) models.ExecResult {
	subscriptionID := item.Metadata.String("subscriptionId")
	if subscriptionID == "" {
		subscriptionID = item.Metadata.String("subscription_id")
	}
	if subscriptionID == "" {
		return models.ExecResult{Success: false, Detail: "no subscription id in metadata"}
	}
	action := item.Metadata.String("action")

	var sub *commerce.Subscription
	var err error
	switch action {
	case "pause":
		sub, err = h.adapter.PauseSubscription(ctx, subscriptionID)
	case "resume":
		sub, err = h.adapter.ResumeSubscription(ctx, subscriptionID)
	case "cancel":
		sub, err = h.adapter.CancelSubscription(ctx, subscriptionID)
	default:
		return models.ExecResult{Success: false, Detail: fmt.Sprintf("unsupported subscription action %q", action)}
	}
	if err != nil {
		return models.ExecResult{Success: false, Detail: fmt.Sprintf("%s subscription %s: %v", action, subscriptionID, err)}
	}

	msg := mailer.Message{
		To:      item.CustomerEmail,
		Subject: replySubject(item.Subject),
		Text:    item.ProposedResponse,
	}
	if err := h.mail.SendEmail(ctx, item.UserID, msg); err != nil {
		// The platform change went through; report failure so the operator
		// retries the notification explicitly rather than losing it.
		return models.ExecResult{Success: false, Detail: fmt.Sprintf("subscription %s %s but notification failed: %v", subscriptionID, pastTense(action), err)}
	}

	return models.ExecResult{
		Success: true,
		Detail:  fmt.Sprintf("%s subscription %s", pastTense(action), subscriptionID),
		Facts: models.Metadata{
			"subscription_id": subscriptionID,
			"action":          action,
			"new_state":       sub.Status,
		},
	}
}

func pastTense(action string) string {
	switch action {
	case "pause":
		return "paused"
	case "resume":
		return "resumed"
	case "cancel":
		return "cancelled"
	default:
		return action
	}
}
