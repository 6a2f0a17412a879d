package commerce

import "context"

// Order is the subset of a platform order the engine needs for lookups and
// audit detail.
type Order struct {
	OrderNumber    string `json:"order_number"`
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	TotalCents     int64  `json:"total_cents"`
	Currency       string `json:"currency"`
	CustomerEmail  string `json:"customer_email"`
}

// Subscription mirrors the platform subscription state before/after an
// action so the audit log can record the transition.
type Subscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Adapter is the commerce-platform port. One implementation exists per
// platform; the engine treats it as an opaque, independently failable
// dependency and never assumes a call succeeded without checking.
type Adapter interface {
	LookupOrder(ctx context.Context, orderNumber string) (*Order, error)
	PauseSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	IssueRefund(ctx context.Context, orderID string, amountCents int64) error
}
