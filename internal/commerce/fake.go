package commerce

import (
	"context"
	"fmt"
	"sync"
)

// Fake is a recording in-memory Adapter used by tests and dry-run mode.
type Fake struct {
	mu            sync.Mutex
	Orders        map[string]*Order
	Subscriptions map[string]*Subscription
	Calls         []string

	// FailNext makes the next call return an error, then clears itself.
	FailNext bool
}

func NewFake() *Fake {
	return &Fake{
		Orders:        make(map[string]*Order),
		Subscriptions: make(map[string]*Subscription),
	}
}

func (f *Fake) record(call string) error {
	f.Calls = append(f.Calls, call)
	if f.FailNext {
		f.FailNext = false
		return fmt.Errorf("commerce fake: forced failure on %s", call)
	}
	return nil
}

func (f *Fake) LookupOrder(ctx context.Context, orderNumber string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("lookup_order " + orderNumber); err != nil {
		return nil, err
	}
	o, ok := f.Orders[orderNumber]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderNumber)
	}
	cp := *o
	return &cp, nil
}

func (f *Fake) setSubscriptionStatus(call, id, status string) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call + " " + id); err != nil {
		return nil, err
	}
	sub, ok := f.Subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("subscription %s not found", id)
	}
	sub.Status = status
	cp := *sub
	return &cp, nil
}

func (f *Fake) PauseSubscription(ctx context.Context, id string) (*Subscription, error) {
	return f.setSubscriptionStatus("pause_subscription", id, "paused")
}

func (f *Fake) ResumeSubscription(ctx context.Context, id string) (*Subscription, error) {
	return f.setSubscriptionStatus("resume_subscription", id, "active")
}

func (f *Fake) CancelSubscription(ctx context.Context, id string) (*Subscription, error) {
	return f.setSubscriptionStatus("cancel_subscription", id, "cancelled")
}

func (f *Fake) IssueRefund(ctx context.Context, orderID string, amountCents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(fmt.Sprintf("issue_refund %s %d", orderID, amountCents))
}

// CallCount returns how many recorded calls have the given prefix.
func (f *Fake) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
