package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// HTTPAdapter talks to the commerce platform's REST API. Paths follow the
// platform convention: /orders/{n}, /subscriptions/{id}/{action},
// /orders/{id}/refunds.
type HTTPAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPAdapter(baseURL, apiKey string) *HTTPAdapter {
	return &HTTPAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *HTTPAdapter) LookupOrder(ctx context.Context, orderNumber string) (*Order, error) {
	var order Order
	path := "/orders/" + url.PathEscape(orderNumber)
	if err := a.do(ctx, http.MethodGet, path, nil, &order); err != nil {
		return nil, fmt.Errorf("lookup order %s: %w", orderNumber, err)
	}
	return &order, nil
}

func (a *HTTPAdapter) PauseSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	return a.subscriptionAction(ctx, subscriptionID, "pause")
}

func (a *HTTPAdapter) ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	return a.subscriptionAction(ctx, subscriptionID, "resume")
}

func (a *HTTPAdapter) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	return a.subscriptionAction(ctx, subscriptionID, "cancel")
}

func (a *HTTPAdapter) IssueRefund(ctx context.Context, orderID string, amountCents int64) error {
	path := "/orders/" + url.PathEscape(orderID) + "/refunds"
	payload := map[string]int64{"amount_cents": amountCents}
	if err := a.do(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("issue refund for order %s: %w", orderID, err)
	}
	return nil
}

func (a *HTTPAdapter) subscriptionAction(ctx context.Context, subscriptionID, action string) (*Subscription, error) {
	var sub Subscription
	path := "/subscriptions/" + url.PathEscape(subscriptionID) + "/" + action
	if err := a.do(ctx, http.MethodPost, path, nil, &sub); err != nil {
		return nil, fmt.Errorf("%s subscription %s: %w", action, subscriptionID, err)
	}
	return &sub, nil
}

func (a *HTTPAdapter) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Error().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("body", string(respBody)).
			Msg("commerce platform rejected request")
		return fmt.Errorf("platform status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
