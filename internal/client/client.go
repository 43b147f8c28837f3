// Package client implements the engine's callable-endpoint boundary over
// HTTP JSON against the fanpulse backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fanpulse/internal/engage"
	"fanpulse/internal/model"
)

// Client is an HTTP client for the backend callable endpoints. It maps
// transport and server failures onto the engine's error taxonomy: any
// non-2xx response without a structured code is a transient error.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// errorBody is the backend's structured error envelope.
type errorBody struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", engage.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", engage.ErrTransient, err)
		}
		return nil
	}

	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &eb)

	switch eb.Code {
	case "validation":
		return &engage.ValidationError{Field: eb.Field, Reason: eb.Message}
	case "already_finalized":
		return engage.ErrAlreadyFinalized
	default:
		return fmt.Errorf("%w: %s %s: status %d: %s", engage.ErrTransient, method, path, resp.StatusCode, eb.Message)
	}
}

// CreateVoteIntent mints a vote intent on the server.
func (c *Client) CreateVoteIntent(ctx context.Context, contestID, candidateID, actorID string, amount int64) (model.Intent, error) {
	req := map[string]any{
		"candidate_id": candidateID,
		"actor_id":     actorID,
		"amount":       amount,
	}
	var intent model.Intent
	path := fmt.Sprintf("/v1/contests/%s/intents", url.PathEscape(contestID))
	if err := c.do(ctx, http.MethodPost, path, req, &intent); err != nil {
		return model.Intent{}, err
	}
	return intent, nil
}

// ConfirmVote records the vote for a completed payment.
func (c *Client) ConfirmVote(ctx context.Context, intentID, transactionID string, existingID int64) (model.VoteRecord, error) {
	req := map[string]any{
		"intent_id":      intentID,
		"transaction_id": transactionID,
		"existing_id":    existingID,
	}
	var rec model.VoteRecord
	if err := c.do(ctx, http.MethodPost, "/v1/votes/confirm", req, &rec); err != nil {
		return model.VoteRecord{}, err
	}
	return rec, nil
}

// VerifyPayment asks the server to settle a transaction early.
func (c *Client) VerifyPayment(ctx context.Context, transactionID string) error {
	req := map[string]any{"transaction_id": transactionID}
	return c.do(ctx, http.MethodPost, "/v1/payments/verify", req, nil)
}

// SubmitPrediction records a score guess, create-or-return-existing.
func (c *Client) SubmitPrediction(ctx context.Context, req model.PredictionRequest) (model.PredictionRecord, error) {
	var rec model.PredictionRecord
	if err := c.do(ctx, http.MethodPost, "/v1/predictions", req, &rec); err != nil {
		return model.PredictionRecord{}, err
	}
	return rec, nil
}

// GetProfile fetches the server-synced engagement profile.
func (c *Client) GetProfile(ctx context.Context, actorID string) (model.Profile, error) {
	var p model.Profile
	path := fmt.Sprintf("/v1/profiles/%s", url.PathEscape(actorID))
	if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// IncrementShare bumps the server-side share counter.
func (c *Client) IncrementShare(ctx context.Context, actorID string) (model.Profile, error) {
	var p model.Profile
	path := fmt.Sprintf("/v1/profiles/%s/shares", url.PathEscape(actorID))
	if err := c.do(ctx, http.MethodPost, path, nil, &p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// Tally fetches a contest's live vote counts. Aggregates always come from
// the server record, never from local optimistic state.
func (c *Client) Tally(ctx context.Context, contestID string) ([]model.CandidateTally, error) {
	var out []model.CandidateTally
	path := fmt.Sprintf("/v1/contests/%s/tally", url.PathEscape(contestID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ engage.API = (*Client)(nil)
