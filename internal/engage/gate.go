package engage

import (
	"context"
	"fmt"
	"strconv"

	"fanpulse/internal/model"
	"fanpulse/internal/pkg/lock"
)

// ProgressStore persists gate progress for one class of actor.
type ProgressStore interface {
	Progress(ctx context.Context, actor model.Actor) (model.GateProgress, error)
	Increment(ctx context.Context, actor model.Actor) (model.GateProgress, error)
	Reset(ctx context.Context, actor model.Actor) error
}

// GateTracker counts unlock events against a required threshold. Signed-in
// users are backed by the server profile; guests by the local store. Counts
// are monotonic and capped at the required threshold.
type GateTracker struct {
	users      ProgressStore
	guests     ProgressStore
	allowReset bool
}

// NewGateTracker wires the per-actor-kind progress stores. allowReset
// enables the debug-only reset path and must stay off in production.
func NewGateTracker(users, guests ProgressStore, allowReset bool) *GateTracker {
	return &GateTracker{users: users, guests: guests, allowReset: allowReset}
}

func (t *GateTracker) store(actor model.Actor) ProgressStore {
	if actor.IsUser() {
		return t.users
	}
	return t.guests
}

// Progress returns the actor's current gate progress.
func (t *GateTracker) Progress(ctx context.Context, actor model.Actor) (model.GateProgress, error) {
	return t.store(actor).Progress(ctx, actor)
}

// Increment records one unlock event and persists it before returning.
func (t *GateTracker) Increment(ctx context.Context, actor model.Actor) (model.GateProgress, error) {
	return t.store(actor).Increment(ctx, actor)
}

// Reset zeroes the counter. Guarded; intended for debugging only.
func (t *GateTracker) Reset(ctx context.Context, actor model.Actor) error {
	if !t.allowReset {
		return ErrResetDisabled
	}
	return t.store(actor).Reset(ctx, actor)
}

// serverProgress syncs gate progress through the profile endpoints.
type serverProgress struct {
	api      API
	required int
}

// NewServerProgress creates the server-backed progress store for
// signed-in users.
func NewServerProgress(api API, required int) ProgressStore {
	return &serverProgress{api: api, required: required}
}

func (s *serverProgress) clamp(count int) model.GateProgress {
	if count > s.required {
		count = s.required
	}
	return model.GateProgress{Required: s.required, Current: count}
}

func (s *serverProgress) Progress(ctx context.Context, actor model.Actor) (model.GateProgress, error) {
	p, err := s.api.GetProfile(ctx, actor.ID)
	if err != nil {
		return model.GateProgress{}, fmt.Errorf("fetch profile: %w", err)
	}
	return s.clamp(p.ShareCount), nil
}

func (s *serverProgress) Increment(ctx context.Context, actor model.Actor) (model.GateProgress, error) {
	p, err := s.api.IncrementShare(ctx, actor.ID)
	if err != nil {
		return model.GateProgress{}, fmt.Errorf("increment share count: %w", err)
	}
	return s.clamp(p.ShareCount), nil
}

func (s *serverProgress) Reset(ctx context.Context, actor model.Actor) error {
	// Server-side counters are only reset through backend tooling.
	return ErrResetDisabled
}

// guestProgress keeps the counter in local storage for unauthenticated
// sessions. The per-key lock serializes the read-modify-write cycle.
type guestProgress struct {
	kv       KV
	required int
	locks    *lock.KeyLock
}

// NewGuestProgress creates the local progress store for guests.
func NewGuestProgress(kv KV, required int, locks *lock.KeyLock) ProgressStore {
	return &guestProgress{kv: kv, required: required, locks: locks}
}

func gateKey(actor model.Actor) string {
	return "gate:share:" + actor.Key()
}

func (g *guestProgress) read(ctx context.Context, actor model.Actor) (int, error) {
	raw, ok, err := g.kv.Get(ctx, gateKey(actor))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

func (g *guestProgress) Progress(ctx context.Context, actor model.Actor) (model.GateProgress, error) {
	n, err := g.read(ctx, actor)
	if err != nil {
		return model.GateProgress{}, fmt.Errorf("read gate counter: %w", err)
	}
	if n > g.required {
		n = g.required
	}
	return model.GateProgress{Required: g.required, Current: n}, nil
}

func (g *guestProgress) Increment(ctx context.Context, actor model.Actor) (model.GateProgress, error) {
	var out model.GateProgress
	err := g.locks.WithLock(gateKey(actor), func() error {
		n, err := g.read(ctx, actor)
		if err != nil {
			return err
		}
		if n < g.required {
			n++
		}
		if err := g.kv.Set(ctx, gateKey(actor), strconv.Itoa(n)); err != nil {
			return err
		}
		out = model.GateProgress{Required: g.required, Current: n}
		return nil
	})
	if err != nil {
		return model.GateProgress{}, fmt.Errorf("increment gate counter: %w", err)
	}
	return out, nil
}

func (g *guestProgress) Reset(ctx context.Context, actor model.Actor) error {
	return g.kv.Del(ctx, gateKey(actor))
}
