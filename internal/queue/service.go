package queue

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/storeclerk/internal/engine"
	"github.com/storeclerk/pkg/models"
)

// AutoApprover is the reviewer name recorded when the auto-approval policy
// dispatches an item without a human.
const AutoApprover = "auto-approval"

// Executor runs the side effects for one approved item. The dispatch
// registry implements it; it never panics across this boundary.
type Executor interface {
	Execute(ctx context.Context, item *models.ApprovalQueueItem) models.ExecResult
}

// ActivityRecorder derives an audit entry from an executed item. It must
// never fail the execution path; implementations swallow their own errors.
type ActivityRecorder interface {
	Record(ctx context.Context, item *models.ApprovalQueueItem, result models.ExecResult, by models.ExecutedBy)
}

// AutoApprovePolicy approves items at or above MinConfidence without a
// human reviewer.
type AutoApprovePolicy struct {
	Enabled       bool
	MinConfidence int
}

// Service owns the approval queue lifecycle: enqueue, human disposition,
// execution hand-off, and the retryable-failure contract.
type Service struct {
	store    Store
	executor Executor
	recorder ActivityRecorder
	policy   AutoApprovePolicy
	now      func() time.Time
}

func NewService(store Store, executor Executor, recorder ActivityRecorder, policy AutoApprovePolicy) *Service {
	return &Service{
		store:    store,
		executor: executor,
		recorder: recorder,
		policy:   policy,
		now:      time.Now,
	}
}

// Enqueue persists a pending item from a classification result. No external
// call happens at enqueue time unless the auto-approval policy fires.
func (s *Service) Enqueue(ctx context.Context, userID int64, input models.ClassificationInput) (*models.ApprovalQueueItem, error) {
	if input.Classification == "" {
		return nil, engine.Validationf("classification is required")
	}
	if input.CustomerEmail == "" {
		return nil, engine.Validationf("customer email is required")
	}
	if input.ProposedResponse == "" {
		return nil, engine.Validationf("proposed response is required")
	}
	classification, err := models.ParseClassification(string(input.Classification))
	if err != nil {
		return nil, engine.Validationf("%v", err)
	}

	item := &models.ApprovalQueueItem{
		UserID:           userID,
		EmailID:          input.EmailID,
		CustomerEmail:    input.CustomerEmail,
		Subject:          input.Subject,
		Body:             input.Body,
		Classification:   classification,
		Confidence:       input.Confidence,
		ProposedResponse: input.ProposedResponse,
		Metadata:         input.Metadata,
		Status:           models.StatusPending,
	}
	if err := s.store.Create(ctx, item); err != nil {
		return nil, err
	}
	log.Info().
		Str("item_id", item.ID).
		Int64("user_id", userID).
		Str("classification", string(classification)).
		Int("confidence", item.Confidence).
		Msg("queue item created")

	if s.policy.Enabled && item.Confidence >= s.policy.MinConfidence {
		approved, err := s.Approve(ctx, userID, item.ID, AutoApprover)
		if err != nil && !engine.IsExternal(err) {
			// A lost race or validation problem here is a bug worth
			// surfacing, but the item itself was enqueued fine.
			log.Error().Err(err).Str("item_id", item.ID).Msg("auto-approval failed")
			return item, nil
		}
		if approved != nil {
			return approved, nil
		}
	}
	return item, nil
}

// Approve moves a pending item to approved, records the reviewer, and
// synchronously executes it. On handler failure the item stays approved and
// the failure is returned; re-approval is not possible (status already
// moved), so recovery is the explicit Retry operation.
func (s *Service) Approve(ctx context.Context, userID int64, itemID, reviewer string) (*models.ApprovalQueueItem, error) {
	item, err := s.store.GetByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	reviewedAt := s.now()
	item.Status = models.StatusApproved
	item.ReviewedBy = reviewer
	item.ReviewedAt = &reviewedAt
	if err := s.store.UpdateIf(ctx, item, models.StatusPending); err != nil {
		return nil, err
	}

	return s.execute(ctx, item, executedBy(reviewer))
}

// Reject moves a pending item to rejected. The reason is mandatory and is
// categorized for analytics; no execution side effect occurs.
func (s *Service) Reject(ctx context.Context, userID int64, itemID, reviewer, reason string) (*models.ApprovalQueueItem, error) {
	if reason == "" {
		return nil, engine.Validationf("rejection reason is required")
	}
	item, err := s.store.GetByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	reviewedAt := s.now()
	item.Status = models.StatusRejected
	item.ReviewedBy = reviewer
	item.ReviewedAt = &reviewedAt
	item.RejectionReason = reason
	item.RejectionCategory = string(CategorizeRejection(reason))
	if err := s.store.UpdateIf(ctx, item, models.StatusPending); err != nil {
		return nil, err
	}

	log.Info().
		Str("item_id", item.ID).
		Str("category", item.RejectionCategory).
		Str("reviewer", reviewer).
		Msg("queue item rejected")
	return item, nil
}

// Edit replaces the proposed response, keeping the original for the audit
// trail, then executes immediately with the edited text.
func (s *Service) Edit(ctx context.Context, userID int64, itemID, reviewer, newText string) (*models.ApprovalQueueItem, error) {
	if newText == "" {
		return nil, engine.Validationf("edited response must not be empty")
	}
	item, err := s.store.GetByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	reviewedAt := s.now()
	item.OriginalResponse = item.ProposedResponse
	item.ProposedResponse = newText
	item.Status = models.StatusEdited
	item.ReviewedBy = reviewer
	item.ReviewedAt = &reviewedAt
	if err := s.store.UpdateIf(ctx, item, models.StatusPending); err != nil {
		return nil, err
	}

	return s.execute(ctx, item, executedBy(reviewer))
}

// Retry re-executes an item stuck in approved or edited after an external
// dependency failure. It is an explicit operator action, never automatic.
func (s *Service) Retry(ctx context.Context, userID int64, itemID string) (*models.ApprovalQueueItem, error) {
	item, err := s.store.GetByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.StatusApproved && item.Status != models.StatusEdited {
		return nil, engine.InvalidStatef("item %s is %s, only approved or edited items are retryable", item.ID, item.Status)
	}
	return s.execute(ctx, item, executedBy(item.ReviewedBy))
}

func (s *Service) Get(ctx context.Context, userID int64, itemID string) (*models.ApprovalQueueItem, error) {
	return s.store.GetByID(ctx, userID, itemID)
}

func (s *Service) ListPending(ctx context.Context, userID int64) ([]*models.ApprovalQueueItem, error) {
	return s.store.ListByStatus(ctx, userID, models.StatusPending)
}

func (s *Service) ListCompleted(ctx context.Context, userID int64) ([]*models.ApprovalQueueItem, error) {
	return s.store.ListByStatus(ctx, userID, models.StatusExecuted, models.StatusRejected)
}

// execute runs the handler for an approved or edited item and, only on
// success, advances it to executed and records the activity entry. Failures
// leave the item where it is so the operator can retry.
func (s *Service) execute(ctx context.Context, item *models.ApprovalQueueItem, by models.ExecutedBy) (*models.ApprovalQueueItem, error) {
	fromStatus := item.Status
	result := s.executor.Execute(ctx, item)
	if !result.Success {
		log.Warn().
			Str("item_id", item.ID).
			Str("classification", string(item.Classification)).
			Str("detail", result.Detail).
			Msg("execution failed, item left retryable")
		return item, engine.External("execute "+string(item.Classification), errors.New(result.Detail))
	}

	executedAt := s.now()
	item.Status = models.StatusExecuted
	item.ExecutedAt = &executedAt
	if err := s.store.UpdateIf(ctx, item, fromStatus); err != nil {
		// The side effect happened but the row moved underneath us. Surface
		// it; the audit entry is still written so the action is traceable.
		log.Error().Err(err).Str("item_id", item.ID).Msg("failed to mark item executed")
		s.recorder.Record(ctx, item, result, by)
		return item, err
	}

	s.recorder.Record(ctx, item, result, by)
	log.Info().
		Str("item_id", item.ID).
		Str("classification", string(item.Classification)).
		Str("detail", result.Detail).
		Msg("queue item executed")
	return item, nil
}

func executedBy(reviewer string) models.ExecutedBy {
	if reviewer == AutoApprover {
		return models.ExecutedByAI
	}
	return models.ExecutedByHuman
}
