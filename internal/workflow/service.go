package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/storeclerk/internal/engine"
	"github.com/storeclerk/internal/mailer"
	"github.com/storeclerk/pkg/models"
)

// Config bounds the asynchronous part of a workflow.
type Config struct {
	// ReplyDeadline is how long a workflow waits for a warehouse reply
	// before the scanner escalates it.
	ReplyDeadline time.Duration
	// MaxParseAttempts is how many ambiguous replies are tolerated before
	// the workflow escalates instead of waiting for another.
	MaxParseAttempts int
	// RemindersEnabled sends one nudge to the fulfillment contact at half
	// the deadline.
	RemindersEnabled bool
}

// DefaultConfig matches the product default of a three-day warehouse SLA.
func DefaultConfig() Config {
	return Config{
		ReplyDeadline:    72 * time.Hour,
		MaxParseAttempts: 2,
		RemindersEnabled: true,
	}
}

// StartRequest describes the change an approved queue item needs from the
// warehouse.
type StartRequest struct {
	UserID             int64
	ItemID             string
	EmailID            string
	CustomerEmail      string
	OrderNumber        string
	Change             ChangeKind
	NewAddress         string
	FulfillmentContact string
}

// Service drives the warehouse-reply state machine.
type Service struct {
	store Store
	mail  mailer.Sender
	cfg   Config
	now   func() time.Time
}

func NewService(store Store, mail mailer.Sender, cfg Config) *Service {
	if cfg.ReplyDeadline <= 0 {
		cfg.ReplyDeadline = DefaultConfig().ReplyDeadline
	}
	if cfg.MaxParseAttempts <= 0 {
		cfg.MaxParseAttempts = DefaultConfig().MaxParseAttempts
	}
	return &Service{store: store, mail: mail, cfg: cfg, now: time.Now}
}

// Start sends the change request to the fulfillment contact and persists
// the workflow in awaiting_reply. The send happens first: if the request
// cannot be sent no workflow is created, which is how "request not sent" is
// kept distinct from "sent, awaiting reply".
func (s *Service) Start(ctx context.Context, req StartRequest) (*Workflow, error) {
	if req.OrderNumber == "" {
		return nil, engine.Validationf("order number is required")
	}
	if req.FulfillmentContact == "" {
		return nil, engine.Validationf("fulfillment contact is required")
	}
	if req.Change == ChangeAddressUpdate && req.NewAddress == "" {
		return nil, engine.Validationf("new address is required for an address change")
	}

	msg := buildRequestMessage(req)
	if err := s.mail.SendEmail(ctx, req.UserID, msg); err != nil {
		return nil, engine.External("send warehouse request", err)
	}

	wf := &Workflow{
		UserID:             req.UserID,
		ItemID:             req.ItemID,
		EmailID:            req.EmailID,
		CustomerEmail:      req.CustomerEmail,
		OrderNumber:        req.OrderNumber,
		RequestedChange:    req.Change,
		NewAddress:         req.NewAddress,
		FulfillmentContact: req.FulfillmentContact,
		RequestSentAt:      s.now(),
		Status:             StatusAwaitingReply,
	}
	if err := s.store.Create(ctx, wf); err != nil {
		return nil, err
	}

	s.appendEvent(ctx, wf, EventRequestSent,
		fmt.Sprintf("%s request for order %s sent to %s", wf.RequestedChange, wf.OrderNumber, wf.FulfillmentContact),
		models.Metadata{"order_number": wf.OrderNumber, "fulfillment_contact": wf.FulfillmentContact})

	log.Info().
		Str("workflow_id", wf.ID).
		Str("order_number", wf.OrderNumber).
		Str("change", string(wf.RequestedChange)).
		Msg("warehouse workflow started")
	return wf, nil
}

// ProcessReply handles a raw warehouse reply correlated to a workflow. It is
// safe against duplicate delivery: a reply to a terminal workflow reports
// ErrInvalidState and fires no side effects.
func (s *Service) ProcessReply(ctx context.Context, workflowID, rawReply string) (*Workflow, error) {
	wf, err := s.store.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status.Terminal() {
		return wf, engine.InvalidStatef("workflow %s already %s", wf.ID, wf.Status)
	}

	replyAt := s.now()
	wf.ReplyReceived = true
	wf.Reply = rawReply
	wf.ReplyAt = &replyAt

	verdict := ClassifyReply(rawReply)
	s.appendEvent(ctx, wf, EventReplyReceived,
		fmt.Sprintf("warehouse replied for order %s", wf.OrderNumber),
		models.Metadata{"verdict": string(verdict), "reply": rawReply})

	switch verdict {
	case VerdictFulfilled:
		return s.finishReply(ctx, wf, StatusCompleted, true)
	case VerdictNotFulfilled:
		return s.finishReply(ctx, wf, StatusCannotChange, false)
	default:
		wf.ParseAttempts++
		if wf.ParseAttempts >= s.cfg.MaxParseAttempts {
			return s.escalate(ctx, wf,
				fmt.Sprintf("ambiguous_reply: %d unparseable replies", wf.ParseAttempts))
		}
		// Stay in awaiting_reply and keep the reply text for a human or a
		// clearer follow-up.
		if err := s.store.UpdateIf(ctx, wf, StatusAwaitingReply); err != nil {
			return nil, err
		}
		log.Warn().
			Str("workflow_id", wf.ID).
			Int("parse_attempts", wf.ParseAttempts).
			Msg("ambiguous warehouse reply, still awaiting")
		return wf, nil
	}
}

func (s *Service) finishReply(ctx context.Context, wf *Workflow, to Status, fulfilled bool) (*Workflow, error) {
	wf.Status = to
	wf.WasFulfilled = fulfilled
	if err := s.store.UpdateIf(ctx, wf, StatusAwaitingReply); err != nil {
		return nil, err
	}

	eventType := EventCompleted
	desc := fmt.Sprintf("warehouse confirmed %s for order %s", wf.RequestedChange, wf.OrderNumber)
	if !fulfilled {
		eventType = EventCannotChange
		desc = fmt.Sprintf("warehouse could not apply %s for order %s", wf.RequestedChange, wf.OrderNumber)
	}
	s.appendEvent(ctx, wf, eventType, desc, models.Metadata{"was_fulfilled": fulfilled})

	// Courtesy notification to the customer; a send failure here must not
	// undo an already-terminal workflow.
	if err := s.mail.SendEmail(ctx, wf.UserID, buildOutcomeMessage(wf)); err != nil {
		log.Error().Err(err).Str("workflow_id", wf.ID).Msg("failed to notify customer of workflow outcome")
	}

	log.Info().
		Str("workflow_id", wf.ID).
		Str("status", string(to)).
		Bool("was_fulfilled", fulfilled).
		Msg("warehouse workflow resolved")
	return wf, nil
}

func (s *Service) escalate(ctx context.Context, wf *Workflow, reason string) (*Workflow, error) {
	wf.Status = StatusEscalated
	wf.EscalationReason = reason
	if err := s.store.UpdateIf(ctx, wf, StatusAwaitingReply); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, wf, EventEscalated,
		fmt.Sprintf("workflow for order %s escalated: %s", wf.OrderNumber, reason),
		models.Metadata{"reason": reason})

	// Escalation is a defined outcome, not a failure.
	log.Info().
		Str("workflow_id", wf.ID).
		Str("reason", reason).
		Msg("warehouse workflow escalated")
	return wf, nil
}

// SweepResult reports one scanner pass.
type SweepResult struct {
	Escalated int
	Reminded  int
}

// Sweep escalates every awaiting workflow past its deadline and, when
// enabled, sends a single reminder at the halfway point. It is safe to run
// from multiple scanners: the compare-and-set transition makes each
// escalation fire exactly once.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now()

	overdue, err := s.store.ListAwaitingOlderThan(ctx, now.Add(-s.cfg.ReplyDeadline))
	if err != nil {
		return res, err
	}
	for _, wf := range overdue {
		reason := fmt.Sprintf("no warehouse reply within %s of request", s.cfg.ReplyDeadline)
		if _, err := s.escalate(ctx, wf, reason); err != nil {
			if engine.IsInvalidState(err) {
				continue // another scanner got there first
			}
			return res, err
		}
		res.Escalated++
	}

	if !s.cfg.RemindersEnabled {
		return res, nil
	}

	due, err := s.store.ListAwaitingOlderThan(ctx, now.Add(-s.cfg.ReplyDeadline/2))
	if err != nil {
		return res, err
	}
	for _, wf := range due {
		if wf.ReminderSentAt != nil || wf.ReplyReceived {
			continue
		}
		if err := s.mail.SendEmail(ctx, wf.UserID, buildReminderMessage(wf)); err != nil {
			log.Error().Err(err).Str("workflow_id", wf.ID).Msg("failed to send warehouse reminder")
			continue
		}
		reminderAt := now
		wf.ReminderSentAt = &reminderAt
		if err := s.store.UpdateIf(ctx, wf, StatusAwaitingReply); err != nil {
			if engine.IsInvalidState(err) {
				continue
			}
			return res, err
		}
		s.appendEvent(ctx, wf, EventReminderSent,
			fmt.Sprintf("reminder for order %s sent to %s", wf.OrderNumber, wf.FulfillmentContact), nil)
		res.Reminded++
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, userID int64, id string) (*Workflow, error) {
	wf, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf.UserID != userID {
		return nil, engine.ErrNotFound
	}
	return wf, nil
}

func (s *Service) ListByStatus(ctx context.Context, userID int64, status Status) ([]*Workflow, error) {
	return s.store.ListByStatus(ctx, userID, status)
}

func (s *Service) Events(ctx context.Context, userID int64, workflowID string) ([]*Event, error) {
	if _, err := s.Get(ctx, userID, workflowID); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, workflowID)
}

// appendEvent never fails the caller; a lost event is logged, the state
// transition it describes has already been persisted.
func (s *Service) appendEvent(ctx context.Context, wf *Workflow, eventType EventType, desc string, meta models.Metadata) {
	ev := &Event{
		WorkflowID:  wf.ID,
		UserID:      wf.UserID,
		EventType:   eventType,
		Description: desc,
		Metadata:    meta,
	}
	if err := s.store.AppendEvent(ctx, ev); err != nil {
		log.Error().Err(err).Str("workflow_id", wf.ID).Str("event", string(eventType)).Msg("failed to append workflow event")
	}
}

func buildRequestMessage(req StartRequest) mailer.Message {
	var subject, body string
	switch req.Change {
	case ChangeAddressUpdate:
		subject = fmt.Sprintf("Shipping address change for order %s", req.OrderNumber)
		body = fmt.Sprintf(
			"Hello,\n\nPlease update the shipping address for order %s to:\n\n%s\n\nReply to this email confirming whether the change was made.\n",
			req.OrderNumber, req.NewAddress)
	default:
		subject = fmt.Sprintf("Cancellation request for order %s", req.OrderNumber)
		body = fmt.Sprintf(
			"Hello,\n\nPlease cancel order %s before it ships.\n\nReply to this email confirming whether the cancellation was made.\n",
			req.OrderNumber)
	}
	return mailer.Message{To: req.FulfillmentContact, Subject: subject, Text: body}
}

func buildReminderMessage(wf *Workflow) mailer.Message {
	return mailer.Message{
		To:      wf.FulfillmentContact,
		Subject: fmt.Sprintf("Reminder: %s for order %s", wf.RequestedChange, wf.OrderNumber),
		Text: fmt.Sprintf(
			"Hello,\n\nWe are still waiting for a reply to our %s request for order %s sent on %s.\n",
			wf.RequestedChange, wf.OrderNumber, wf.RequestSentAt.Format("Jan 2 15:04 MST")),
	}
}

func buildOutcomeMessage(wf *Workflow) mailer.Message {
	if wf.WasFulfilled {
		verb := "cancelled"
		if wf.RequestedChange == ChangeAddressUpdate {
			verb = "updated"
		}
		return mailer.Message{
			To:      wf.CustomerEmail,
			Subject: fmt.Sprintf("Your order %s has been %s", wf.OrderNumber, verb),
			Text:    fmt.Sprintf("Good news! Your request for order %s has been completed.\n", wf.OrderNumber),
		}
	}
	return mailer.Message{
		To:      wf.CustomerEmail,
		Subject: fmt.Sprintf("Update on your order %s", wf.OrderNumber),
		Text: fmt.Sprintf(
			"Unfortunately we could not complete your request for order %s; the warehouse reports it can no longer be changed. Our team will follow up with options.\n",
			wf.OrderNumber),
	}
}
