package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// HTTPSender posts messages to a mail relay endpoint. A single limiter is
// shared across all tenants because the relay enforces one global rate.
type HTTPSender struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHTTPSender creates a sender for the given relay endpoint. ratePerSec
// caps outbound sends; zero or negative means 5/s.
func NewHTTPSender(endpoint, apiKey string, ratePerSec float64) *HTTPSender {
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	return &HTTPSender{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), int(ratePerSec)+1),
	}
}

type relayPayload struct {
	UserID  int64  `json:"user_id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text"`
}

func (s *HTTPSender) SendEmail(ctx context.Context, userID int64, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("send email: empty recipient")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send email: rate wait: %w", err)
	}

	body, err := json.Marshal(relayPayload{
		UserID:  userID,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("send email: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send email: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Error().
			Int("status", resp.StatusCode).
			Str("to", msg.To).
			Str("body", string(respBody)).
			Msg("mail relay rejected message")
		return fmt.Errorf("send email: relay status %d", resp.StatusCode)
	}

	log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("email accepted by relay")
	return nil
}
