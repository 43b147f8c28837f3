package service

import (
	"context"

	"fanpulse/internal/model"
	"fanpulse/internal/repository"
)

// ProfileService manages the server-synced engagement profile. The share
// counter is capped at the gate threshold; it never decreases except
// through backend tooling.
type ProfileService struct {
	profiles       *repository.ProfileRepository
	requiredShares int
}

// NewProfileService creates a new ProfileService instance.
func NewProfileService(profiles *repository.ProfileRepository, requiredShares int) *ProfileService {
	return &ProfileService{profiles: profiles, requiredShares: requiredShares}
}

// Get returns the actor's profile, creating an empty one on first access.
func (s *ProfileService) Get(ctx context.Context, actorID string) (*model.Profile, error) {
	if actorID == "" {
		return nil, ErrMissingActor
	}
	return s.profiles.GetOrCreate(ctx, actorID)
}

// IncrementShare records one share event, capped at the gate threshold.
func (s *ProfileService) IncrementShare(ctx context.Context, actorID string) (*model.Profile, error) {
	if actorID == "" {
		return nil, ErrMissingActor
	}
	return s.profiles.IncrementShare(ctx, actorID, s.requiredShares)
}

// RequiredShares returns the configured gate threshold.
func (s *ProfileService) RequiredShares() int {
	return s.requiredShares
}
