package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/storeclerk/pkg/models"
)

// Handler executes the side effects for one classification.
type Handler interface {
	Execute(ctx context.Context, item *models.ApprovalQueueItem) models.ExecResult
}

// Registry maps the closed classification enum to handlers. Building it
// through NewRegistry guarantees every classification has a handler before
// the engine serves traffic.
type Registry struct {
	handlers map[models.Classification]Handler
}

// NewRegistry builds a registry and fails if any classification in
// models.AllClassifications is left without a handler.
func NewRegistry(handlers map[models.Classification]Handler) (*Registry, error) {
	for _, c := range models.AllClassifications {
		if _, ok := handlers[c]; !ok {
			return nil, fmt.Errorf("no handler registered for classification %q", c)
		}
	}
	return &Registry{handlers: handlers}, nil
}

// Execute dispatches the item to its classification's handler. Any panic is
// contained here and reported as a failed result; it never corrupts the
// queue item's state.
func (r *Registry) Execute(ctx context.Context, item *models.ApprovalQueueItem) (result models.ExecResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("item_id", item.ID).
				Str("classification", string(item.Classification)).
				Msg("handler panicked")
			result = models.ExecResult{Success: false, Detail: fmt.Sprintf("handler panic: %v", rec)}
		}
	}()

	handler, ok := r.handlers[item.Classification]
	if !ok {
		return models.ExecResult{Success: false, Detail: fmt.Sprintf("no handler for classification %q", item.Classification)}
	}
	return handler.Execute(ctx, item)
}
