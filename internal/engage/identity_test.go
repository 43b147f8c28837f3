package engage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanpulse/internal/model"
)

func newTestResolver(session SessionSource, kv KV) (*Resolver, *DraftStore) {
	drafts := NewDraftStore(kv)
	return NewResolver(session, kv, drafts, zerolog.Nop()), drafts
}

func TestGuestIdentityIsStable(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	r, _ := newTestResolver(StaticSession{}, kv)

	first, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ActorGuest, first.Kind)
	assert.NotEmpty(t, first.ID)

	second, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// The identity lives in local storage, so a new resolver over the same
	// storage sees the same guest.
	r2, _ := newTestResolver(StaticSession{}, kv)
	third, err := r2.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestSignedInActor(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResolver(StaticSession{ID: "u-42"}, newMemKV())

	actor, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Actor{Kind: model.ActorUser, ID: "u-42"}, actor)
}

// TestSignInDiscardsGuestDraft verifies that a user who drafted as a guest
// and then signs in does not inherit the guest draft: identity is
// authoritative and the user resubmits under their own actor.
func TestSignInDiscardsGuestDraft(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()

	// Draft as a guest.
	guestResolver, drafts := newTestResolver(StaticSession{}, kv)
	guest, err := guestResolver.ResolveForEntity(ctx, model.FeaturePrediction, "m-1")
	require.NoError(t, err)
	require.NoError(t, drafts.Save(ctx, model.FeaturePrediction, guest, "m-1", map[string]any{"score_a": 2}))

	// Sign in over the same local storage.
	userResolver, userDrafts := newTestResolver(StaticSession{ID: "u-42"}, kv)
	actor, err := userResolver.ResolveForEntity(ctx, model.FeaturePrediction, "m-1")
	require.NoError(t, err)
	assert.True(t, actor.IsUser())

	// The guest draft is gone and nothing was promoted to the user.
	_, ok, err := userDrafts.Load(ctx, model.FeaturePrediction, guest, "m-1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = userDrafts.Load(ctx, model.FeaturePrediction, actor, "m-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignInWithoutGuestHistoryIsClean(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestResolver(StaticSession{ID: "u-42"}, newMemKV())

	// No guest id was ever synthesized; resolving for an entity must not
	// create one as a side effect.
	actor, err := r.ResolveForEntity(ctx, model.FeaturePrediction, "m-1")
	require.NoError(t, err)
	assert.True(t, actor.IsUser())

	_, ok, err := r.kv.Get(ctx, guestIDKey)
	require.NoError(t, err)
	assert.False(t, ok)
}
