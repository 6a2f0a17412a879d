package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeclerk/pkg/models"
)

func latest(t *testing.T, store *InMemoryStore, userID int64) *ActivityLogEntry {
	t.Helper()
	entries, err := store.List(context.Background(), userID, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0]
}

func TestRecordSubscriptionAction(t *testing.T) {
	store := NewInMemoryStore()
	g := NewGenerator(store)

	g.Record(context.Background(), &models.ApprovalQueueItem{
		UserID:         1,
		CustomerEmail:  "customer@x.com",
		Classification: models.ClassificationSubscriptionAction,
		Metadata:       models.Metadata{"subscriptionId": "S1", "action": "pause"},
	}, models.ExecResult{
		Success: true,
		Facts:   models.Metadata{"subscription_id": "S1", "action": "pause", "new_state": "paused"},
	}, models.ExecutedByHuman)

	entry := latest(t, store, 1)
	assert.Equal(t, "paused_subscription", entry.Action)
	assert.Equal(t, "paused subscription #S1 for customer@x.com", entry.Details)
	assert.Equal(t, "completed", entry.Status)
	assert.Equal(t, models.ExecutedByHuman, entry.ExecutedBy)
	assert.Equal(t, "paused", entry.Metadata.String("new_state"))
}

func TestRecordCancellationHandoff(t *testing.T) {
	store := NewInMemoryStore()
	g := NewGenerator(store)

	g.Record(context.Background(), &models.ApprovalQueueItem{
		UserID:         1,
		CustomerEmail:  "customer@x.com",
		Classification: models.ClassificationCancellation,
		Metadata:       models.Metadata{"orderNumber": "1234"},
	}, models.ExecResult{Success: true, Facts: models.Metadata{"workflow_id": "wf-1"}}, models.ExecutedByHuman)

	entry := latest(t, store, 1)
	assert.Equal(t, "requested_cancellation", entry.Action)
	assert.Equal(t, "workflow_started", entry.Status)
	assert.Contains(t, entry.Details, "order #1234")
	assert.Equal(t, "wf-1", entry.Metadata.String("workflow_id"))
}

func TestRecordExtractsFromFreeText(t *testing.T) {
	store := NewInMemoryStore()
	g := NewGenerator(store)

	// No structured metadata at all; identifiers come out of the text.
	g.Record(context.Background(), &models.ApprovalQueueItem{
		UserID:           1,
		CustomerEmail:    "customer@x.com",
		Classification:   models.ClassificationAddressChange,
		Body:             "Please redirect order #AB-99, tracking number 1Z999AA10123456784.",
		ProposedResponse: "We'll update the address.",
	}, models.ExecResult{Success: true}, models.ExecutedByHuman)

	entry := latest(t, store, 1)
	assert.Equal(t, "AB-99", entry.Metadata.String("order_number"))
	assert.Equal(t, "1Z999AA10123456784", entry.Metadata.String("tracking_number"))
}

func TestRecordDegradesToUnknown(t *testing.T) {
	store := NewInMemoryStore()
	g := NewGenerator(store)

	g.Record(context.Background(), &models.ApprovalQueueItem{
		UserID:           2,
		CustomerEmail:    "customer@x.com",
		Classification:   models.ClassificationSubscriptionAction,
		Body:             "please stop billing me",
		ProposedResponse: "done",
		Metadata:         models.Metadata{"action": "cancel"},
	}, models.ExecResult{Success: true}, models.ExecutedByAI)

	entry := latest(t, store, 2)
	assert.Equal(t, "cancelled_subscription", entry.Action)
	// Extraction failure never blocks the entry.
	assert.Equal(t, Unknown, entry.Metadata.String("subscription_id"))
	assert.Contains(t, entry.Details, "#unknown")
}

func TestRecordGenericReply(t *testing.T) {
	store := NewInMemoryStore()
	g := NewGenerator(store)

	g.Record(context.Background(), &models.ApprovalQueueItem{
		UserID:         1,
		CustomerEmail:  "customer@x.com",
		Subject:        "Where is my package?",
		Classification: models.ClassificationGenericReply,
	}, models.ExecResult{Success: true}, models.ExecutedByHuman)

	entry := latest(t, store, 1)
	assert.Equal(t, "sent_reply", entry.Action)
	assert.Contains(t, entry.Details, `"Where is my package?"`)
}

func TestListIsTenantScopedNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	g := NewGenerator(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		g.Record(ctx, &models.ApprovalQueueItem{
			UserID:         1,
			CustomerEmail:  "a@x.com",
			Classification: models.ClassificationGenericReply,
		}, models.ExecResult{Success: true}, models.ExecutedByHuman)
	}
	g.Record(ctx, &models.ApprovalQueueItem{
		UserID:         2,
		CustomerEmail:  "b@x.com",
		Classification: models.ClassificationGenericReply,
	}, models.ExecResult{Success: true}, models.ExecutedByHuman)

	mine, err := g.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	theirs, err := g.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}
