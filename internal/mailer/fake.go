package mailer

import (
	"context"
	"fmt"
	"sync"
)

// Fake records sends in memory for tests and dry-run mode.
type Fake struct {
	mu   sync.Mutex
	Sent []Message

	// FailNext makes the next send fail, then clears itself.
	FailNext bool
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) SendEmail(ctx context.Context, userID int64, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext {
		f.FailNext = false
		return fmt.Errorf("mailer fake: forced send failure to %s", msg.To)
	}
	f.Sent = append(f.Sent, msg)
	return nil
}

// SentTo returns the messages delivered to the given address.
func (f *Fake) SentTo(addr string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.Sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

// Count returns the number of sent messages.
func (f *Fake) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}
