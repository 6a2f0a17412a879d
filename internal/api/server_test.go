package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeclerk/internal/audit"
	"github.com/storeclerk/internal/mailer"
	"github.com/storeclerk/internal/queue"
	"github.com/storeclerk/internal/workflow"
	"github.com/storeclerk/pkg/models"
)

const testSecret = "test-secret"

type noopExecutor struct{}

func (noopExecutor) Execute(ctx context.Context, item *models.ApprovalQueueItem) models.ExecResult {
	return models.ExecResult{Success: true, Detail: "ok"}
}

func newTestServer(t *testing.T) (*Server, *queue.Service, *workflow.Service) {
	t.Helper()
	auditStore := audit.NewInMemoryStore()
	queueSvc := queue.NewService(queue.NewInMemoryStore(), noopExecutor{}, audit.NewGenerator(auditStore), queue.AutoApprovePolicy{})
	wfSvc := workflow.NewService(workflow.NewInMemoryStore(), mailer.NewFake(), workflow.DefaultConfig())
	return NewServer(0, testSecret, queueSvc, wfSvc, auditStore), queueSvc, wfSvc
}

func bearerToken(t *testing.T, userID int64) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doRequest(t *testing.T, srv *Server, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/queue", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/queue", "Bearer not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQueueLifecycleOverHTTP(t *testing.T) {
	srv, _, _ := newTestServer(t)
	auth := bearerToken(t, 1)

	body := `{
		"email_id": "email-1",
		"customer_email": "customer@example.com",
		"subject": "Please pause my subscription",
		"classification": "subscription_action",
		"confidence": 88,
		"proposed_response": "Paused!",
		"metadata": {"subscriptionId": "S1", "action": "pause"}
	}`
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/queue", auth, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var item models.ApprovalQueueItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.NotEmpty(t, item.ID)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/queue", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Count)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/queue/"+item.ID+"/approve", auth, `{"reviewer":"sarah"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Second approval races against the first and loses.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/queue/"+item.ID+"/approve", auth, `{"reviewer":"james"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/activity", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var activity struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &activity))
	assert.Equal(t, 1, activity.Count)
}

func TestRejectWithoutReasonIsBadRequest(t *testing.T) {
	srv, queueSvc, _ := newTestServer(t)
	auth := bearerToken(t, 1)

	item, err := queueSvc.Enqueue(context.Background(), 1, models.ClassificationInput{
		CustomerEmail:    "customer@example.com",
		Classification:   models.ClassificationGenericReply,
		ProposedResponse: "hello",
	})
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/queue/"+item.ID+"/reject", auth, `{"reviewer":"sarah"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenantCannotSeeOtherTenantsItems(t *testing.T) {
	srv, queueSvc, _ := newTestServer(t)

	item, err := queueSvc.Enqueue(context.Background(), 1, models.ClassificationInput{
		CustomerEmail:    "customer@example.com",
		Classification:   models.ClassificationGenericReply,
		ProposedResponse: "hello",
	})
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/queue/"+item.ID, bearerToken(t, 2), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkflowReplyWebhook(t *testing.T) {
	srv, _, wfSvc := newTestServer(t)
	auth := bearerToken(t, 1)

	wf, err := wfSvc.Start(context.Background(), workflow.StartRequest{
		UserID:             1,
		CustomerEmail:      "customer@example.com",
		OrderNumber:        "1234",
		Change:             workflow.ChangeCancellation,
		FulfillmentContact: "warehouse@example.com",
	})
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+wf.ID+"/reply", auth, `{"body":"Order 1234 has been cancelled."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got workflow.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, workflow.StatusCompleted, got.Status)

	// Redelivery of the same reply conflicts instead of re-running effects.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+wf.ID+"/reply", auth, `{"body":"Order 1234 has been cancelled."}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Another tenant cannot touch the workflow.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/workflows/"+wf.ID+"/reply", bearerToken(t, 2), `{"body":"done"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/workflows/"+wf.ID+"/events", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Equal(t, 3, events.Count)
}
