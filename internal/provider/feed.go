package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fanpulse/internal/model"
)

// EventHandler receives one payment event. Handlers must not assume
// delivery order or that exactly one event fires per attempt.
type EventHandler func(ctx context.Context, ev model.PaymentEvent)

// Feed is a long-lived websocket subscription to the provider's payment
// events. It reconnects on failure and stays registered for the life of
// the process, so an event can arrive long after the attempt began.
type Feed struct {
	url         string
	dialTimeout time.Duration
	log         zerolog.Logger
}

// NewFeed creates a payment event feed for the provider's websocket URL.
func NewFeed(feedURL string, dialTimeout time.Duration, log zerolog.Logger) *Feed {
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &Feed{url: feedURL, dialTimeout: dialTimeout, log: log}
}

// Run consumes events until the context is cancelled, redialing with
// backoff when the connection drops. Handler errors never terminate the
// subscription.
func (f *Feed) Run(ctx context.Context, handler EventHandler) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := f.consume(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Dur("retry_in", backoff).Msg("Payment feed disconnected")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (f *Feed) consume(ctx context.Context, handler EventHandler) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("url", f.url).Msg("Payment feed connected")

	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev model.PaymentEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			f.log.Warn().Err(err).Msg("Skipping malformed payment event")
			continue
		}

		handler(ctx, ev)
	}
}
