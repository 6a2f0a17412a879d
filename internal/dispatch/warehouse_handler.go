package dispatch

import (
	"context"

	"github.com/storeclerk/internal/workflow"
	"github.com/storeclerk/pkg/models"
)

// WorkflowStarter is the hand-off point into the warehouse-reply workflow.
type WorkflowStarter interface {
	Start(ctx context.Context, req workflow.StartRequest) (*workflow.Workflow, error)
}

// WarehouseHandler covers the two classifications that cannot complete
// synchronously: cancellation and address change. It validates the
// metadata, starts a workflow, and reports success at hand-off time. The
// eventual fulfillment outcome lives entirely in the workflow entity.
type WarehouseHandler struct {
	workflows      WorkflowStarter
	change         workflow.ChangeKind
	defaultContact string
}

func NewCancellationHandler(workflows WorkflowStarter, defaultContact string) *WarehouseHandler {
	return &WarehouseHandler{workflows: workflows, change: workflow.ChangeCancellation, defaultContact: defaultContact}
}

func NewAddressChangeHandler(workflows WorkflowStarter, defaultContact string) *WarehouseHandler {
	return &WarehouseHandler{workflows: workflows, change: workflow.ChangeAddressUpdate, defaultContact: defaultContact}
}

func (h *WarehouseHandler) Execute(ctx context.Context, item *models.ApprovalQueueItem) models.ExecResult {
	orderNumber := item.Metadata.String("orderNumber")
	if orderNumber == "" {
		orderNumber = item.Metadata.String("order_number")
	}
	if orderNumber == "" {
		return models.ExecResult{Success: false, Detail: "no order number in metadata"}
	}

	newAddress := ""
	if h.change == workflow.ChangeAddressUpdate {
		newAddress = item.Metadata.String("newAddress")
		if newAddress == "" {
			newAddress = item.Metadata.String("new_address")
		}
		if newAddress == "" {
			return models.ExecResult{Success: false, Detail: "no new address in metadata"}
		}
	}

	contact := item.Metadata.String("fulfillmentContact")
	if contact == "" {
		contact = item.Metadata.String("fulfillment_contact")
	}
	if contact == "" {
		contact = h.defaultContact
	}

	wf, err := h.workflows.Start(ctx, workflow.StartRequest{
		UserID:             item.UserID,
		ItemID:             item.ID,
		EmailID:            item.EmailID,
		CustomerEmail:      item.CustomerEmail,
		OrderNumber:        orderNumber,
		Change:             h.change,
		NewAddress:         newAddress,
		FulfillmentContact: contact,
	})
	if err != nil {
		return models.ExecResult{Success: false, Detail: "start workflow: " + err.Error()}
	}

	return models.ExecResult{
		Success: true,
		Detail:  "workflow started",
		Facts: models.Metadata{
			"workflow_id":  wf.ID,
			"order_number": orderNumber,
		},
	}
}
