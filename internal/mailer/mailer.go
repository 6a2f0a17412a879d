package mailer

import "context"

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text"`
}

// Sender is the outbound mail port. The channel is a shared, rate-limited
// external resource; callers must treat a send as an independently failable
// step and only advance local state after it succeeds.
type Sender interface {
	SendEmail(ctx context.Context, userID int64, msg Message) error
}
