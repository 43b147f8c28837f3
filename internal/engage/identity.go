package engage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fanpulse/internal/model"
)

const guestIDKey = "guest:id"

// Resolver decides whether the actor is a signed-in user or a guest. Guests
// get a synthesized local identity that is stable until local storage is
// cleared. A user who signs in after drafting as a guest has the guest
// draft discarded: identity is authoritative and cross-identity promotion
// would leak state between actors.
type Resolver struct {
	session SessionSource
	kv      KV
	drafts  *DraftStore
	log     zerolog.Logger
}

// NewResolver creates an identity resolver.
func NewResolver(session SessionSource, kv KV, drafts *DraftStore, log zerolog.Logger) *Resolver {
	return &Resolver{session: session, kv: kv, drafts: drafts, log: log}
}

// Resolve returns the current actor identity.
func (r *Resolver) Resolve(ctx context.Context) (model.Actor, error) {
	userID, signedIn, err := r.session.UserID(ctx)
	if err != nil {
		return model.Actor{}, fmt.Errorf("resolve session: %w", err)
	}
	if signedIn {
		return model.Actor{Kind: model.ActorUser, ID: userID}, nil
	}
	guestID, err := r.guestID(ctx)
	if err != nil {
		return model.Actor{}, err
	}
	return model.Actor{Kind: model.ActorGuest, ID: guestID}, nil
}

// ResolveForEntity resolves the actor and, for signed-in users, discards
// any stale guest draft for the entity. The user must resubmit under
// their authoritative identity.
func (r *Resolver) ResolveForEntity(ctx context.Context, feature, entityID string) (model.Actor, error) {
	actor, err := r.Resolve(ctx)
	if err != nil {
		return model.Actor{}, err
	}

	if actor.IsUser() {
		if ghost, ok := r.storedGuest(ctx); ok {
			if err := r.drafts.Clear(ctx, feature, ghost, entityID); err != nil {
				r.log.Warn().Err(err).
					Str("feature", feature).
					Str("entity_id", entityID).
					Msg("Failed to clear stale guest draft")
			}
		}
	}

	return actor, nil
}

// guestID returns the persisted guest identity, creating one on first use.
func (r *Resolver) guestID(ctx context.Context) (string, error) {
	id, ok, err := r.kv.Get(ctx, guestIDKey)
	if err != nil {
		return "", fmt.Errorf("read guest id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := r.kv.Set(ctx, guestIDKey, id); err != nil {
		return "", fmt.Errorf("persist guest id: %w", err)
	}
	r.log.Info().Str("guest_id", id).Msg("Synthesized guest identity")
	return id, nil
}

// storedGuest returns the guest actor for a previously synthesized local
// identity without creating one.
func (r *Resolver) storedGuest(ctx context.Context) (model.Actor, bool) {
	id, ok, err := r.kv.Get(ctx, guestIDKey)
	if err != nil || !ok || id == "" {
		return model.Actor{}, false
	}
	return model.Actor{Kind: model.ActorGuest, ID: id}, true
}
