package engage

import (
	"context"

	"fanpulse/internal/model"
)

// API is the narrow callable-endpoint boundary the engine talks to. The
// backend is the source of truth; every call here is a fire-once
// request/response over the network.
type API interface {
	// CreateVoteIntent mints a correlation record for a payment-gated vote.
	CreateVoteIntent(ctx context.Context, contestID, candidateID, actorID string, amount int64) (model.Intent, error)

	// ConfirmVote records the vote for a completed payment. Passing a
	// previously known record ID makes repeat calls no-ops.
	ConfirmVote(ctx context.Context, intentID, transactionID string, existingID int64) (model.VoteRecord, error)

	// VerifyPayment asks the server to settle a transaction early. The
	// authoritative settlement path is the provider webhook; this call is
	// best-effort only.
	VerifyPayment(ctx context.Context, transactionID string) error

	// SubmitPrediction records a score guess, create-or-return-existing.
	SubmitPrediction(ctx context.Context, req model.PredictionRequest) (model.PredictionRecord, error)

	// GetProfile fetches the server-synced engagement profile.
	GetProfile(ctx context.Context, actorID string) (model.Profile, error)

	// IncrementShare bumps the server-side share counter.
	IncrementShare(ctx context.Context, actorID string) (model.Profile, error)
}

// KV is the local persistent key-value storage: string-keyed get/set/remove,
// no transactions across keys.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
}

// Invoice is the payload handed to the external payment surface.
// PartnerRef carries the intent ID and comes back verbatim in the
// provider's callback events.
type Invoice struct {
	Amount       int64  `json:"amount"`
	Reason       string `json:"reason"`
	PartnerRef   string `json:"partner_ref"`
	PayerContact string `json:"payer_contact"`
}

// PaymentSurface opens the external payment widget. Open returns as soon as
// the surface is invoked; all further progress arrives via payment events.
type PaymentSurface interface {
	Open(ctx context.Context, inv Invoice) error
}

// SessionSource reports the signed-in user, if any. A false second return
// means the actor is a guest.
type SessionSource interface {
	UserID(ctx context.Context) (string, bool, error)
}

// StaticSession is a SessionSource with a fixed identity. An empty ID
// resolves to a guest.
type StaticSession struct {
	ID string
}

// UserID implements SessionSource.
func (s StaticSession) UserID(context.Context) (string, bool, error) {
	return s.ID, s.ID != "", nil
}
