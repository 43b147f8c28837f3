package engage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"fanpulse/internal/model"
)

// memKV is an in-memory KV for engine tests. The draft store tests use a
// real Redis-backed store; here only the contract matters.
type memKV struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemKV() *memKV {
	return &memKV{m: make(map[string]string)}
}

func (k *memKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.m[key]
	return v, ok, nil
}

func (k *memKV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

func (k *memKV) Del(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
	return nil
}

// fakeAPI implements the callable-endpoint boundary with server-side
// uniqueness semantics and call counters.
type fakeAPI struct {
	mu sync.Mutex

	shareCounts map[string]int
	required    int

	predictions map[string]model.PredictionRecord // match:actor
	votes       map[string]model.VoteRecord       // contest:actor
	intents     map[string]model.Intent
	nextID      int64

	submitCalls  int
	confirmCalls int
	verifyCalls  []string

	failSubmit  error
	failConfirm error
	failIntent  error
	emptyIntent bool
}

func newFakeAPI(required int) *fakeAPI {
	return &fakeAPI{
		shareCounts: make(map[string]int),
		required:    required,
		predictions: make(map[string]model.PredictionRecord),
		votes:       make(map[string]model.VoteRecord),
		intents:     make(map[string]model.Intent),
	}
}

func (f *fakeAPI) CreateVoteIntent(_ context.Context, contestID, candidateID, actorID string, amount int64) (model.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIntent != nil {
		return model.Intent{}, f.failIntent
	}
	if f.emptyIntent {
		return model.Intent{}, nil
	}
	intent := model.Intent{
		ID:          uuid.NewString(),
		ContestID:   contestID,
		CandidateID: candidateID,
		ActorID:     actorID,
		Amount:      amount,
	}
	f.intents[intent.ID] = intent
	return intent, nil
}

func (f *fakeAPI) ConfirmVote(_ context.Context, intentID, transactionID string, existingID int64) (model.VoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls++
	if f.failConfirm != nil {
		return model.VoteRecord{}, f.failConfirm
	}
	intent, ok := f.intents[intentID]
	if !ok {
		return model.VoteRecord{}, fmt.Errorf("%w: unknown intent", ErrTransient)
	}
	key := intent.ContestID + ":" + intent.ActorID
	if rec, ok := f.votes[key]; ok {
		return rec, nil
	}
	f.nextID++
	rec := model.VoteRecord{
		ID:            f.nextID,
		ContestID:     intent.ContestID,
		CandidateID:   intent.CandidateID,
		ActorID:       intent.ActorID,
		Amount:        intent.Amount,
		IntentID:      intentID,
		TransactionID: transactionID,
	}
	f.votes[key] = rec
	return rec, nil
}

func (f *fakeAPI) VerifyPayment(_ context.Context, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls = append(f.verifyCalls, transactionID)
	return nil
}

func (f *fakeAPI) SubmitPrediction(_ context.Context, req model.PredictionRequest) (model.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.failSubmit != nil {
		return model.PredictionRecord{}, f.failSubmit
	}
	key := req.MatchID + ":" + req.ActorID
	if rec, ok := f.predictions[key]; ok {
		return rec, nil
	}
	f.nextID++
	rec := model.PredictionRecord{
		ID:      f.nextID,
		MatchID: req.MatchID,
		ActorID: req.ActorID,
		ScoreA:  req.ScoreA,
		ScoreB:  req.ScoreB,
		Contact: req.Contact,
	}
	f.predictions[key] = rec
	return rec, nil
}

func (f *fakeAPI) GetProfile(_ context.Context, actorID string) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.Profile{ActorID: actorID, ShareCount: f.shareCounts[actorID]}, nil
}

func (f *fakeAPI) IncrementShare(_ context.Context, actorID string) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shareCounts[actorID] < f.required {
		f.shareCounts[actorID]++
	}
	return model.Profile{ActorID: actorID, ShareCount: f.shareCounts[actorID]}, nil
}

var _ API = (*fakeAPI)(nil)

// fakeSurface records opened invoices.
type fakeSurface struct {
	mu       sync.Mutex
	invoices []Invoice
	fail     error
}

func (s *fakeSurface) Open(_ context.Context, inv Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.invoices = append(s.invoices, inv)
	return nil
}

func (s *fakeSurface) opened() []Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Invoice(nil), s.invoices...)
}
