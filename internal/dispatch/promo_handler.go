package dispatch

import (
	"context"
	"sync"

	"github.com/storeclerk/internal/mailer"
	"github.com/storeclerk/pkg/models"
)

// PromoStore tracks usage of promo/refund configurations.
type PromoStore interface {
	IncrementUsage(ctx context.Context, userID int64, configID string) error
}

// EmailResolver marks an inbound email as handled in the channel store.
type EmailResolver interface {
	MarkResolved(ctx context.Context, userID int64, emailID string) error
}

// PromoHandler sends the promo or refund response and books the usage
// against the promo configuration.
type PromoHandler struct {
	promos PromoStore
	emails EmailResolver
	mail   mailer.Sender
}

func NewPromoHandler(promos PromoStore, emails EmailResolver, mail mailer.Sender) *PromoHandler {
	return &PromoHandler{promos: promos, emails: emails, mail: mail}
}

func (h *PromoHandler) Execute(ctx context.Context, item *models.ApprovalQueueItem) models.ExecResult {
	configID := item.Metadata.String("configId")
	if configID == "" {
		configID = item.Metadata.String("config_id")
	}
	if configID == "" {
		configID = item.Metadata.String("promoCode")
	}
	if configID == "" {
		configID = item.Metadata.String("promo_code")
	}
	if configID == "" {
		return models.ExecResult{Success: false, Detail: "no promo config or code in metadata"}
	}

	msg := mailer.Message{
		To:      item.CustomerEmail,
		Subject: replySubject(item.Subject),
		Text:    item.ProposedResponse,
	}
	if err := h.mail.SendEmail(ctx, item.UserID, msg); err != nil {
		return models.ExecResult{Success: false, Detail: "send promo reply: " + err.Error()}
	}

	if err := h.promos.IncrementUsage(ctx, item.UserID, configID); err != nil {
		return models.ExecResult{Success: false, Detail: "record promo usage for " + configID + ": " + err.Error()}
	}
	if item.EmailID != "" {
		if err := h.emails.MarkResolved(ctx, item.UserID, item.EmailID); err != nil {
			return models.ExecResult{Success: false, Detail: "mark email resolved: " + err.Error()}
		}
	}

	return models.ExecResult{
		Success: true,
		Detail:  "promo " + configID + " sent to " + item.CustomerEmail,
		Facts:   models.Metadata{"promo_config": configID},
	}
}

// InMemoryPromoStore counts usage per tenant and config. Production wires a
// database-backed implementation; tests and dry-run mode use this one.
type InMemoryPromoStore struct {
	mu    sync.Mutex
	usage map[int64]map[string]int
}

func NewInMemoryPromoStore() *InMemoryPromoStore {
	return &InMemoryPromoStore{usage: make(map[int64]map[string]int)}
}

func (s *InMemoryPromoStore) IncrementUsage(ctx context.Context, userID int64, configID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usage[userID] == nil {
		s.usage[userID] = make(map[string]int)
	}
	s.usage[userID][configID]++
	return nil
}

func (s *InMemoryPromoStore) Usage(userID int64, configID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[userID][configID]
}

// InMemoryEmailResolver records resolved email ids.
type InMemoryEmailResolver struct {
	mu       sync.Mutex
	resolved map[string]bool
}

func NewInMemoryEmailResolver() *InMemoryEmailResolver {
	return &InMemoryEmailResolver{resolved: make(map[string]bool)}
}

func (r *InMemoryEmailResolver) MarkResolved(ctx context.Context, userID int64, emailID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved[emailID] = true
	return nil
}

func (r *InMemoryEmailResolver) Resolved(emailID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved[emailID]
}
