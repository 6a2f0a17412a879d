package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storeclerk/internal/engine"
	"github.com/storeclerk/pkg/models"
)

// Store persists approval queue items. Status transitions go through
// UpdateIf, a compare-and-set on the current status, so concurrent
// dispositions of the same item serialize without locks held across
// external calls.
type Store interface {
	Create(ctx context.Context, item *models.ApprovalQueueItem) error
	GetByID(ctx context.Context, userID int64, id string) (*models.ApprovalQueueItem, error)
	ListByStatus(ctx context.Context, userID int64, statuses ...models.ItemStatus) ([]*models.ApprovalQueueItem, error)
	// UpdateIf writes item's disposition fields only when the stored row is
	// still in fromStatus. Returns engine.ErrInvalidState when another
	// disposition won the race, engine.ErrNotFound when the item is absent.
	UpdateIf(ctx context.Context, item *models.ApprovalQueueItem, fromStatus models.ItemStatus) error
}

// InMemoryStore is a threadsafe in-memory store for tests
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*models.ApprovalQueueItem
	order []string
	now   func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID: make(map[string]*models.ApprovalQueueItem),
		now:  time.Now,
	}
}

func (s *InMemoryStore) Create(ctx context.Context, item *models.ApprovalQueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = s.now()
	item.UpdatedAt = item.CreatedAt
	s.byID[item.ID] = cloneItem(item)
	s.order = append(s.order, item.ID)
	return nil
}

func (s *InMemoryStore) GetByID(ctx context.Context, userID int64, id string) (*models.ApprovalQueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[id]
	if !ok || v.UserID != userID {
		return nil, engine.ErrNotFound
	}
	return cloneItem(v), nil
}

func (s *InMemoryStore) ListByStatus(ctx context.Context, userID int64, statuses ...models.ItemStatus) ([]*models.ApprovalQueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[models.ItemStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	out := make([]*models.ApprovalQueueItem, 0)
	for _, id := range s.order {
		v := s.byID[id]
		if v.UserID != userID {
			continue
		}
		if len(want) > 0 && !want[v.Status] {
			continue
		}
		out = append(out, cloneItem(v))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateIf(ctx context.Context, item *models.ApprovalQueueItem, fromStatus models.ItemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[item.ID]
	if !ok || old.UserID != item.UserID {
		return engine.ErrNotFound
	}
	if old.Status != fromStatus {
		return engine.InvalidStatef("item %s is %s, expected %s", item.ID, old.Status, fromStatus)
	}
	item.CreatedAt = old.CreatedAt
	item.UpdatedAt = s.now()
	s.byID[item.ID] = cloneItem(item)
	return nil
}

func cloneItem(item *models.ApprovalQueueItem) *models.ApprovalQueueItem {
	if item == nil {
		return nil
	}
	cp := *item
	if item.Metadata != nil {
		cp.Metadata = make(models.Metadata, len(item.Metadata))
		for k, v := range item.Metadata {
			cp.Metadata[k] = v
		}
	}
	if item.ReviewedAt != nil {
		t := *item.ReviewedAt
		cp.ReviewedAt = &t
	}
	if item.ExecutedAt != nil {
		t := *item.ExecutedAt
		cp.ExecutedAt = &t
	}
	return &cp
}
