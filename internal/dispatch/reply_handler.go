package dispatch

import (
	"context"

	"github.com/storeclerk/internal/mailer"
	"github.com/storeclerk/pkg/models"
)

// GenericReplyHandler sends the proposed response as the customer-facing
// email. Success means the outbound channel accepted the message.
type GenericReplyHandler struct {
	mail mailer.Sender
}

func NewGenericReplyHandler(mail mailer.Sender) *GenericReplyHandler {
	return &GenericReplyHandler{mail: mail}
}

func (h *GenericReplyHandler) Execute(ctx context.Context, item *models.ApprovalQueueItem) models.ExecResult {
	msg := mailer.Message{
		To:      item.CustomerEmail,
		Subject: replySubject(item.Subject),
		Text:    item.ProposedResponse,
	}
	if err := h.mail.SendEmail(ctx, item.UserID, msg); err != nil {
		return models.ExecResult{Success: false, Detail: "send reply: " + err.Error()}
	}
	return models.ExecResult{Success: true, Detail: "reply sent to " + item.CustomerEmail}
}

func replySubject(original string) string {
	if original == "" {
		return "Re: your message"
	}
	if len(original) >= 3 && (original[:3] == "Re:" || original[:3] == "RE:") {
		return original
	}
	return "Re: " + original
}
