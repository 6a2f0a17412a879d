package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeclerk/internal/engine"
	"github.com/storeclerk/internal/mailer"
)

func newTestWorkflowService(mail *mailer.Fake) (*Service, *InMemoryStore) {
	store := NewInMemoryStore()
	svc := NewService(store, mail, Config{
		ReplyDeadline:    72 * time.Hour,
		MaxParseAttempts: 2,
		RemindersEnabled: true,
	})
	return svc, store
}

func cancellationRequest() StartRequest {
	return StartRequest{
		UserID:             1,
		ItemID:             "item-1",
		EmailID:            "email-1",
		CustomerEmail:      "customer@example.com",
		OrderNumber:        "1234",
		Change:             ChangeCancellation,
		FulfillmentContact: "warehouse@example.com",
	}
}

func eventTypes(t *testing.T, store Store, workflowID string) []EventType {
	t.Helper()
	evs, err := store.ListEvents(context.Background(), workflowID)
	require.NoError(t, err)
	out := make([]EventType, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.EventType)
	}
	return out
}

func TestStartSendsRequestBeforePersisting(t *testing.T) {
	mail := mailer.NewFake()
	svc, store := newTestWorkflowService(mail)
	ctx := context.Background()

	wf, err := svc.Start(ctx, cancellationRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusAwaitingReply, wf.Status)
	assert.False(t, wf.RequestSentAt.IsZero())
	require.Len(t, mail.SentTo("warehouse@example.com"), 1)
	assert.Contains(t, mail.SentTo("warehouse@example.com")[0].Subject, "1234")
	assert.Equal(t, []EventType{EventRequestSent}, eventTypes(t, store, wf.ID))
}

func TestStartMailFailureCreatesNothing(t *testing.T) {
	mail := mailer.NewFake()
	mail.FailNext = true
	svc, store := newTestWorkflowService(mail)
	ctx := context.Background()

	_, err := svc.Start(ctx, cancellationRequest())
	require.Error(t, err)
	assert.True(t, engine.IsExternal(err))

	// "Request not sent" must stay distinct from "sent, awaiting reply":
	// a failed send leaves no workflow behind.
	wfs, err := store.ListByStatus(ctx, 1, "")
	require.NoError(t, err)
	assert.Empty(t, wfs)
}

func TestStartValidation(t *testing.T) {
	svc, _ := newTestWorkflowService(mailer.NewFake())
	ctx := context.Background()

	req := cancellationRequest()
	req.OrderNumber = ""
	_, err := svc.Start(ctx, req)
	assert.True(t, engine.IsValidation(err))

	req = cancellationRequest()
	req.Change = ChangeAddressUpdate
	_, err = svc.Start(ctx, req)
	assert.True(t, engine.IsValidation(err), "address change needs the new address")
}

func TestProcessReplyFulfilled(t *testing.T) {
	mail := mailer.NewFake()
	svc, store := newTestWorkflowService(mail)
	ctx := context.Background()

	wf, err := svc.Start(ctx, cancellationRequest())
	require.NoError(t, err)

	got, err := svc.ProcessReply(ctx, wf.ID, "Done, order 1234 has been cancelled.")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, got.Status)
	assert.True(t, got.WasFulfilled)
	assert.True(t, got.ReplyReceived)
	assert.Equal(t, []EventType{EventRequestSent, EventReplyReceived, EventCompleted}, eventTypes(t, store, wf.ID))

	// Courtesy outcome email to the customer.
	require.Len(t, mail.SentTo("customer@example.com"), 1)
}

func TestProcessReplyCannotChange(t *testing.T) {
	mail := mailer.NewFake()
	svc, _ := newTestWorkflowService(mail)
	ctx := context.Background()

	wf, err := svc.Start(ctx, cancellationRequest())
	require.NoError(t, err)

	got, err := svc.ProcessReply(ctx, wf.ID, "Sorry, order 1234 already shipped this morning, we cannot cancel it.")
	require.NoError(t, err)

	assert.Equal(t, StatusCannotChange, got.Status)
	assert.False(t, got.WasFulfilled)
	require.Len(t, mail.SentTo("customer@example.com"), 1)
	assert.Contains(t, mail.SentTo("customer@example.com")[0].Text, "could not complete")
}

func TestDuplicateReplyIsIdempotent(t *testing.T) {
	mail := mailer.NewFake()
	svc, store := newTestWorkflowService(mail)
	ctx := context.Background()

	wf, err := svc.Start(ctx, cancellationRequest())
	require.NoError(t, err)

	_, err = svc.ProcessReply(ctx, wf.ID, "Order cancelled as requested.")
	require.NoError(t, err)

	// The mail system redelivers the same reply.
	got, err := svc.ProcessReply(ctx, wf.ID, "Order cancelled as requested.")
	assert.True(t, engine.IsInvalidState(err))
	assert.Equal(t, StatusCompleted, got.Status)

	// Exactly one terminal event and one customer notification.
	assert.Equal(t, []EventType{EventRequestSent, EventReplyReceived, EventCompleted}, eventTypes(t, store, wf.ID))
	assert.Len(t, mail.SentTo("customer@example.com"), 1)
}

func TestAmbiguousRepliesEscalateAtLimit(t *testing.T) {
	svc, store := newTestWorkflowService(mailer.NewFake())
	ctx := context.Background()

	wf, err := svc.Start(ctx, cancellationRequest())
	require.NoError(t, err)

	got, err := svc.ProcessReply(ctx, wf.ID, "Thanks, forwarded to the floor team.")
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingReply, got.Status)
	assert.Equal(t, 1, got.ParseAttempts)

	got, err = svc.ProcessReply(ctx, wf.ID, "We'll see what we can do.")
	require.NoError(t, err)
	assert.Equal(t, StatusEscalated, got.Status)
	assert.Contains(t, got.EscalationReason, "ambiguous_reply")

	types := eventTypes(t, store, wf.ID)
	assert.Equal(t, EventEscalated, types[len(types)-1])
}

func TestSweepEscalatesOverdueExactlyOnce(t *testing.T) {
	mail := mailer.NewFake()
	svc, store := newTestWorkflowService(mail)
	ctx := context.Background()

	wf, err := svc.Start(ctx, cancellationRequest())
	require.NoError(t, err)

	fresh := cancellationRequest()
	fresh.OrderNumber = "5678"
	_, err = svc.Start(ctx, fresh)
	require.NoError(t, err)

	// Backdate the first workflow past the deadline; the second stays fresh.
	stored, err := store.GetByID(ctx, wf.ID)
	require.NoError(t, err)
	stored.RequestSentAt = time.Now().Add(-80 * time.Hour)
	require.NoError(t, store.UpdateIf(ctx, stored, StatusAwaitingReply))

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Escalated)

	got, err := store.GetByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusEscalated, got.Status)
	assert.Contains(t, got.EscalationReason, "no warehouse reply")

	// A second sweep finds nothing to escalate again.
	res, err = svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Escalated)
}

func TestSweepSendsReminderAtMostOnce(t *testing.T) {
	mail := mailer.NewFake()
	svc, store := newTestWorkflowService(mail)
	ctx := context.Background()

	wf, err := svc.Start(ctx, cancellationRequest())
	require.NoError(t, err)
	before := mail.Count()

	// Past the reminder point (half the deadline), before the deadline.
	stored, err := store.GetByID(ctx, wf.ID)
	require.NoError(t, err)
	stored.RequestSentAt = time.Now().Add(-40 * time.Hour)
	require.NoError(t, store.UpdateIf(ctx, stored, StatusAwaitingReply))

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reminded)
	assert.Equal(t, 0, res.Escalated)
	assert.Equal(t, before+1, mail.Count())

	got, err := store.GetByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingReply, got.Status)
	require.NotNil(t, got.ReminderSentAt)

	res, err = svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Reminded)
	assert.Equal(t, before+1, mail.Count())
}

func TestGetEnforcesTenant(t *testing.T) {
	svc, _ := newTestWorkflowService(mailer.NewFake())
	ctx := context.Background()

	wf, err := svc.Start(ctx, cancellationRequest())
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, wf.ID)
	assert.True(t, engine.IsNotFound(err))

	_, err = svc.Events(ctx, 2, wf.ID)
	assert.True(t, engine.IsNotFound(err))
}
