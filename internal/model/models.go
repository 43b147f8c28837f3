// Package model defines the data models shared by the engagement engine
// and the backend service.
package model

import (
	"fmt"
	"time"
)

// ActorKind distinguishes signed-in users from local-only guests.
type ActorKind string

const (
	ActorUser  ActorKind = "user"
	ActorGuest ActorKind = "guest"
)

// Actor identifies who is performing a gated action. For users the ID is
// the stable server-side identity; for guests it is a locally generated
// identifier that only exists in the local key-value store.
type Actor struct {
	Kind ActorKind
	ID   string
}

// Key returns the storage key fragment for this actor, e.g. "user:42".
// Guest and user keys never collide for the same underlying person.
func (a Actor) Key() string {
	return fmt.Sprintf("%s:%s", a.Kind, a.ID)
}

// IsUser reports whether the actor has a server-side identity.
func (a Actor) IsUser() bool {
	return a.Kind == ActorUser
}

// GateProgress tracks unlock events against a required threshold.
// Current never decreases within a gating episode and is capped at Required.
type GateProgress struct {
	Required int `json:"required"`
	Current  int `json:"current"`
}

// Satisfied reports whether the gate is open.
func (g GateProgress) Satisfied() bool {
	return g.Current >= g.Required
}

// Ratio returns completion in [0,1] for display purposes.
func (g GateProgress) Ratio() float64 {
	if g.Required <= 0 {
		return 1
	}
	r := float64(g.Current) / float64(g.Required)
	if r > 1 {
		return 1
	}
	return r
}

// Features namespace drafts and gate counters so the prediction game and
// the vote contest never read each other's state.
const (
	FeaturePrediction = "prediction"
	FeatureVote       = "vote"
)

// Draft is a locally persisted, not-yet-submitted copy of a gated action's
// payload. A new attempt overwrites the previous draft wholesale.
type Draft struct {
	EntityID  string         `json:"entity_id"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
}

// Intent is the server-issued correlation record minted before the external
// payment surface opens. One intent per attempt; intents are never reused.
type Intent struct {
	ID          string    `json:"intent_id"`
	ContestID   string    `json:"contest_id"`
	CandidateID string    `json:"candidate_id"`
	ActorID     string    `json:"actor_id"`
	Amount      int64     `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// VoteRecord is the durable result of a confirmed pay-to-vote action.
// At most one record exists per (contest, actor).
type VoteRecord struct {
	ID            int64     `json:"id"`
	ContestID     string    `json:"contest_id"`
	CandidateID   string    `json:"candidate_id"`
	ActorID       string    `json:"actor_id"`
	Amount        int64     `json:"amount"`
	IntentID      string    `json:"intent_id"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// PredictionRecord is the durable result of a submitted score guess.
// At most one record exists per (match, actor).
type PredictionRecord struct {
	ID        int64     `json:"id"`
	MatchID   string    `json:"match_id"`
	ActorID   string    `json:"actor_id"`
	ScoreA    int       `json:"score_a"`
	ScoreB    int       `json:"score_b"`
	Contact   string    `json:"contact"`
	CreatedAt time.Time `json:"created_at"`
}

// PredictionRequest is the payload for the submitPrediction callable.
// ExistingID carries a previously known record ID so repeat calls are
// no-ops rather than duplicates.
type PredictionRequest struct {
	MatchID    string `json:"match_id"`
	ActorID    string `json:"actor_id"`
	ScoreA     int    `json:"score_a"`
	ScoreB     int    `json:"score_b"`
	Contact    string `json:"contact"`
	ExistingID int64  `json:"existing_id,omitempty"`
}

// Profile holds the server-synced per-user engagement state.
type Profile struct {
	ActorID    string    `json:"actor_id"`
	ShareCount int       `json:"share_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CandidateTally is one row of a contest's live vote count.
type CandidateTally struct {
	CandidateID string `json:"candidate_id"`
	Votes       int64  `json:"votes"`
	Amount      int64  `json:"amount"`
}

// PaymentStatus is the outcome reported by the payment provider.
type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "success"
	PaymentFailed    PaymentStatus = "failure"
	PaymentPending   PaymentStatus = "pending"
)

// PaymentEvent is one asynchronous callback from the payment provider.
// PartnerRef echoes back the intent ID handed to the payment surface; it
// is the only way to correlate the event with an in-flight attempt.
type PaymentEvent struct {
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id"`
	PartnerRef    string        `json:"partner_ref"`
	Reason        string        `json:"reason,omitempty"`
}

// Settlement statuses recorded by the backend ledger.
const (
	SettlementPending   = "pending"
	SettlementSucceeded = "succeeded"
	SettlementFailed    = "failed"
)
