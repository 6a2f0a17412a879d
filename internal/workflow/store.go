package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storeclerk/internal/engine"
)

// Store persists workflows and their append-only event trail. Transitions
// out of awaiting_reply go through UpdateIf, a compare-and-set on the
// current status, which is what makes reply delivery idempotent.
type Store interface {
	Create(ctx context.Context, wf *Workflow) error
	GetByID(ctx context.Context, id string) (*Workflow, error)
	ListByStatus(ctx context.Context, userID int64, status Status) ([]*Workflow, error)
	// ListAwaitingOlderThan returns awaiting_reply workflows, across all
	// tenants, whose request was sent at or before cutoff.
	ListAwaitingOlderThan(ctx context.Context, cutoff time.Time) ([]*Workflow, error)
	UpdateIf(ctx context.Context, wf *Workflow, fromStatus Status) error
	AppendEvent(ctx context.Context, ev *Event) error
	ListEvents(ctx context.Context, workflowID string) ([]*Event, error)
}

// InMemoryStore is a threadsafe in-memory store for tests
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Workflow
	order  []string
	events map[string][]*Event
	now    func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]*Workflow),
		events: make(map[string][]*Event),
		now:    time.Now,
	}
}

func (s *InMemoryStore) Create(ctx context.Context, wf *Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	wf.CreatedAt = s.now()
	wf.UpdatedAt = wf.CreatedAt
	s.byID[wf.ID] = cloneWorkflow(wf)
	s.order = append(s.order, wf.ID)
	return nil
}

func (s *InMemoryStore) GetByID(ctx context.Context, id string) (*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return cloneWorkflow(v), nil
}

func (s *InMemoryStore) ListByStatus(ctx context.Context, userID int64, status Status) ([]*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Workflow, 0)
	for _, id := range s.order {
		v := s.byID[id]
		if v.UserID != userID {
			continue
		}
		if status != "" && v.Status != status {
			continue
		}
		out = append(out, cloneWorkflow(v))
	}
	return out, nil
}

func (s *InMemoryStore) ListAwaitingOlderThan(ctx context.Context, cutoff time.Time) ([]*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Workflow, 0)
	for _, id := range s.order {
		v := s.byID[id]
		if v.Status != StatusAwaitingReply {
			continue
		}
		if v.RequestSentAt.After(cutoff) {
			continue
		}
		out = append(out, cloneWorkflow(v))
	}
	return out, nil
}

func (s *InMemoryStore) UpdateIf(ctx context.Context, wf *Workflow, fromStatus Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[wf.ID]
	if !ok {
		return engine.ErrNotFound
	}
	if old.Status != fromStatus {
		return engine.InvalidStatef("workflow %s is %s, expected %s", wf.ID, old.Status, fromStatus)
	}
	wf.CreatedAt = old.CreatedAt
	wf.UpdatedAt = s.now()
	s.byID[wf.ID] = cloneWorkflow(wf)
	return nil
}

func (s *InMemoryStore) AppendEvent(ctx context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now()
	}
	s.events[ev.WorkflowID] = append(s.events[ev.WorkflowID], cloneEvent(ev))
	return nil
}

func (s *InMemoryStore) ListEvents(ctx context.Context, workflowID string) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.events[workflowID]
	out := make([]*Event, 0, len(evs))
	for _, ev := range evs {
		out = append(out, cloneEvent(ev))
	}
	return out, nil
}

func cloneWorkflow(wf *Workflow) *Workflow {
	if wf == nil {
		return nil
	}
	cp := *wf
	if wf.ReplyAt != nil {
		t := *wf.ReplyAt
		cp.ReplyAt = &t
	}
	if wf.ReminderSentAt != nil {
		t := *wf.ReminderSentAt
		cp.ReminderSentAt = &t
	}
	return &cp
}

func cloneEvent(ev *Event) *Event {
	if ev == nil {
		return nil
	}
	cp := *ev
	if ev.Metadata != nil {
		cp.Metadata = make(map[string]interface{}, len(ev.Metadata))
		for k, v := range ev.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
