// Package provider adapts the external payment provider: the checkout
// surface the user pays through and the asynchronous event feed that
// reports success, failure and pending outcomes.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fanpulse/internal/engage"
)

// Checkout opens the provider's payment surface by posting the invoice to
// its checkout endpoint. The call returns once the surface is invoked; the
// outcome arrives later on the event feed.
type Checkout struct {
	url  string
	http *http.Client
}

// NewCheckout creates a checkout surface client.
func NewCheckout(checkoutURL string, timeout time.Duration) *Checkout {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checkout{
		url:  checkoutURL,
		http: &http.Client{Timeout: timeout},
	}
}

// Open invokes the payment surface with the invoice. PartnerRef is passed
// through opaquely and echoed back in the provider's events.
func (c *Checkout) Open(ctx context.Context, inv engage.Invoice) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("open checkout: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("open checkout: provider returned status %d", resp.StatusCode)
	}
	return nil
}

var _ engage.PaymentSurface = (*Checkout)(nil)
