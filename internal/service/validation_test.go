// Validation behavior for the service layer. These paths reject bad input
// before any repository access, so no database is needed.
package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"fanpulse/internal/model"
)

func TestVoteServiceCreateIntentValidation(t *testing.T) {
	svc := NewVoteService(nil, nil, nil, 100, 10000)
	ctx := context.Background()

	_, err := svc.CreateIntent(ctx, "contest-1", "", "u-1", 500)
	assert.ErrorIs(t, err, ErrMissingCandidate)

	_, err = svc.CreateIntent(ctx, "contest-1", "cand-9", "", 500)
	assert.ErrorIs(t, err, ErrMissingActor)

	for _, amount := range []int64{-1, 0, 99, 10001} {
		_, err = svc.CreateIntent(ctx, "contest-1", "cand-9", "u-1", amount)
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %d", amount)
	}
}

func TestVoteServiceWebhookRequiresReference(t *testing.T) {
	svc := NewVoteService(nil, nil, nil, 100, 10000)

	err := svc.HandleProviderEvent(context.Background(), model.PaymentEvent{
		Status:        model.PaymentSucceeded,
		TransactionID: "tx-1",
	})
	assert.ErrorIs(t, err, ErrMissingReference)
}

func TestPredictionServiceValidation(t *testing.T) {
	svc := NewPredictionService(nil)
	ctx := context.Background()

	valid := model.PredictionRequest{
		MatchID: "match-1",
		ActorID: "g-1",
		ScoreA:  2,
		ScoreB:  1,
		Contact: "fan@example.com",
	}

	cases := []struct {
		name   string
		mutate func(*model.PredictionRequest)
		want   error
	}{
		{"missing match", func(r *model.PredictionRequest) { r.MatchID = "" }, ErrMissingMatch},
		{"missing actor", func(r *model.PredictionRequest) { r.ActorID = "" }, ErrMissingActor},
		{"negative score", func(r *model.PredictionRequest) { r.ScoreA = -1 }, ErrInvalidScore},
		{"score too large", func(r *model.PredictionRequest) { r.ScoreB = model.MaxScore + 1 }, ErrInvalidScore},
		{"empty contact", func(r *model.PredictionRequest) { r.Contact = "" }, ErrInvalidContact},
		{"garbage contact", func(r *model.PredictionRequest) { r.Contact = "not a contact" }, ErrInvalidContact},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			_, _, err := svc.Submit(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestProfileServiceValidation(t *testing.T) {
	svc := NewProfileService(nil, 3)
	ctx := context.Background()

	_, err := svc.Get(ctx, "")
	assert.ErrorIs(t, err, ErrMissingActor)
	_, err = svc.IncrementShare(ctx, "")
	assert.ErrorIs(t, err, ErrMissingActor)
	assert.Equal(t, 3, svc.RequiredShares())
}
