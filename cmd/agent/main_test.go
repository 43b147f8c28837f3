package main

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanpulse/internal/engage"
	"fanpulse/internal/model"
)

type mapStore struct {
	mu sync.Mutex
	m  map[string]string
}

func newMapStore() *mapStore { return &mapStore{m: map[string]string{}} }

func (s *mapStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *mapStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *mapStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// recordingAPI counts prediction submissions; the payment endpoints are
// not exercised by the resume path.
type recordingAPI struct {
	mu          sync.Mutex
	submits     int
	predictions map[string]model.PredictionRecord
	nextID      int64
}

func newRecordingAPI() *recordingAPI {
	return &recordingAPI{predictions: map[string]model.PredictionRecord{}, nextID: 1}
}

func (a *recordingAPI) SubmitPrediction(_ context.Context, req model.PredictionRequest) (model.PredictionRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submits++
	key := req.MatchID + "|" + req.ActorID
	if rec, ok := a.predictions[key]; ok {
		return rec, nil
	}
	rec := model.PredictionRecord{
		ID:      a.nextID,
		MatchID: req.MatchID,
		ActorID: req.ActorID,
		ScoreA:  req.ScoreA,
		ScoreB:  req.ScoreB,
		Contact: req.Contact,
	}
	a.nextID++
	a.predictions[key] = rec
	return rec, nil
}

func (a *recordingAPI) CreateVoteIntent(context.Context, string, string, string, int64) (model.Intent, error) {
	return model.Intent{}, fmt.Errorf("not exercised")
}

func (a *recordingAPI) ConfirmVote(context.Context, string, string, int64) (model.VoteRecord, error) {
	return model.VoteRecord{}, fmt.Errorf("not exercised")
}

func (a *recordingAPI) VerifyPayment(context.Context, string) error { return nil }

func (a *recordingAPI) GetProfile(context.Context, string) (model.Profile, error) {
	return model.Profile{}, nil
}

func (a *recordingAPI) IncrementShare(context.Context, string) (model.Profile, error) {
	return model.Profile{}, nil
}

type nopSurface struct{}

func (nopSurface) Open(context.Context, engage.Invoice) error { return nil }

func newResumeEngine(api *recordingAPI, store *mapStore) *engage.Engine {
	return engage.New(engage.Options{
		API:            api,
		KV:             store,
		Surface:        nopSurface{},
		Session:        engage.StaticSession{},
		RequiredShares: 1,
		MinVoteAmount:  100,
		MaxVoteAmount:  10000,
		PaymentReason:  "contest vote",
		Logger:         zerolog.Nop(),
	})
}

// TestResumeDraftsSubmitsSurvivors drafts a prediction whose gate is
// satisfied without the submission landing, then restarts and verifies
// resumeDrafts submits it exactly once across the configured matches.
func TestResumeDraftsSubmitsSurvivors(t *testing.T) {
	ctx := context.Background()
	api := newRecordingAPI()
	store := newMapStore()

	engine := newResumeEngine(api, store)

	_, _, err := engine.SubmitPrediction(ctx, "match-1", 2, 1, "fan@example.com")
	require.ErrorIs(t, err, engage.ErrGateLocked)

	// Sharing a different match satisfies the gate without touching the
	// drafted one, leaving a submittable draft behind.
	_, _, err = engine.RecordShare(ctx, "other-match")
	require.NoError(t, err)
	assert.Equal(t, 0, api.submits)

	// Restart: a fresh engine over the same local storage.
	restarted := newResumeEngine(api, store)
	resumeDrafts(ctx, restarted, []string{"match-1", "match-2"})
	assert.Equal(t, 1, api.submits)

	// A second resume pass finds no surviving drafts.
	resumeDrafts(ctx, restarted, []string{"match-1", "match-2"})
	assert.Equal(t, 1, api.submits)
}
