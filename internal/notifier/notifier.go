// Package notifier posts request outcomes to the external scheduling system.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mesplane/pkg/api"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultTimeout bounds a single callback attempt.
const DefaultTimeout = 15 * time.Second

// Notifier delivers step updates.
type Notifier interface {
	Notify(ctx context.Context, update api.StepUpdate) error
}

// Client posts step updates as JSON to a fixed callback URL.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a callback client. A non-positive timeout uses DefaultTimeout.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Notify sends one update. Any 2xx response counts as delivered.
func (c *Client) Notify(ctx context.Context, update api.StepUpdate) error {
	reqBody, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("callback to %s failed: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
