// Package service provides business logic implementations for the backend
// callable endpoints.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"fanpulse/internal/model"
	"fanpulse/internal/repository"
)

// Vote service errors.
var (
	ErrIntentNotFound     = errors.New("intent not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrMissingCandidate   = errors.New("candidate is required")
	ErrMissingActor       = errors.New("actor is required")
	ErrUnknownTransaction = errors.New("unknown transaction")
	ErrMissingReference   = errors.New("event carries no partner reference")

	// ErrAlreadyFinalized means the actor's vote in this contest was
	// recorded by an earlier attempt under a different intent. Clients
	// treat it as success.
	ErrAlreadyFinalized = errors.New("vote already recorded")
)

// VoteService handles the pay-to-vote flow: minting intents, recording
// settlements and confirming votes idempotently. The webhook path is
// authoritative; the client's confirm and verify calls only shorten the
// latency before server state catches up.
type VoteService struct {
	intents     *repository.IntentRepository
	votes       *repository.VoteRepository
	settlements *repository.SettlementRepository
	minAmount   int64
	maxAmount   int64
}

// NewVoteService creates a new VoteService instance.
func NewVoteService(
	intents *repository.IntentRepository,
	votes *repository.VoteRepository,
	settlements *repository.SettlementRepository,
	minAmount, maxAmount int64,
) *VoteService {
	return &VoteService{
		intents:     intents,
		votes:       votes,
		settlements: settlements,
		minAmount:   minAmount,
		maxAmount:   maxAmount,
	}
}

// CreateIntent mints a fresh correlation record for one vote attempt.
func (s *VoteService) CreateIntent(ctx context.Context, contestID, candidateID, actorID string, amount int64) (*model.Intent, error) {
	if candidateID == "" {
		return nil, ErrMissingCandidate
	}
	if actorID == "" {
		return nil, ErrMissingActor
	}
	if amount < s.minAmount || (s.maxAmount > 0 && amount > s.maxAmount) {
		return nil, fmt.Errorf("%w: must be between %d and %d", ErrInvalidAmount, s.minAmount, s.maxAmount)
	}

	intent, err := s.intents.Create(ctx, contestID, candidateID, actorID, amount)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("intent_id", intent.ID).
		Str("contest_id", contestID).
		Str("candidate_id", candidateID).
		Int64("amount", amount).
		Msg("Vote intent created")

	return intent, nil
}

// ConfirmVote records the vote for a paid intent. A previously known
// record ID short-circuits to the existing record; redeliveries under the
// same intent return it too. A duplicate under a different intent returns
// ErrAlreadyFinalized, and the DB uniqueness constraint guarantees at most
// one vote per (contest, actor) regardless.
func (s *VoteService) ConfirmVote(ctx context.Context, intentID, transactionID string, existingID int64) (*model.VoteRecord, bool, error) {
	if existingID != 0 {
		rec, err := s.votes.GetByID(ctx, existingID)
		if err == nil {
			return rec, false, nil
		}
		if !errors.Is(err, repository.ErrVoteNotFound) {
			return nil, false, err
		}
		// Stale local record id; fall through to the real confirmation.
	}

	intent, err := s.intents.GetByID(ctx, intentID)
	if err != nil {
		if errors.Is(err, repository.ErrIntentNotFound) {
			return nil, false, ErrIntentNotFound
		}
		return nil, false, err
	}

	if _, err := s.settlements.Apply(ctx, transactionID, intentID, model.SettlementSucceeded, intent.Amount); err != nil {
		return nil, false, err
	}

	rec, created, err := s.votes.Confirm(ctx,
		intent.ContestID, intent.CandidateID, intent.ActorID,
		intent.Amount, intentID, transactionID,
	)
	if err != nil {
		return nil, false, err
	}
	if !created && rec.IntentID != intentID {
		// The vote was recorded by an earlier attempt under a different
		// intent; this attempt changes nothing.
		return nil, false, ErrAlreadyFinalized
	}

	log.Info().
		Str("intent_id", intentID).
		Str("transaction_id", transactionID).
		Bool("created", created).
		Msg("Vote confirmed")

	return rec, created, nil
}

// VerifyPayment settles a transaction from the client's side. When the
// settlement is known and successful, the vote is recorded if it was not
// already; an unknown transaction is an error the client logs and ignores.
func (s *VoteService) VerifyPayment(ctx context.Context, transactionID string) error {
	settlement, err := s.settlements.Get(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrSettlementNotFound) {
			return ErrUnknownTransaction
		}
		return err
	}

	if settlement.Status != model.SettlementSucceeded {
		return nil
	}

	// Settle the vote if the confirm call never landed. A vote already
	// held by another attempt means there is nothing left to reconcile.
	if _, _, err := s.ConfirmVote(ctx, settlement.IntentID, transactionID, 0); err != nil && !errors.Is(err, ErrAlreadyFinalized) {
		return err
	}
	return nil
}

// HandleProviderEvent applies one provider webhook delivery. This is the
// authoritative settlement path: a successful payment records the vote
// even if the client process died before confirming.
func (s *VoteService) HandleProviderEvent(ctx context.Context, ev model.PaymentEvent) error {
	if ev.PartnerRef == "" {
		return ErrMissingReference
	}

	intent, err := s.intents.GetByID(ctx, ev.PartnerRef)
	if err != nil {
		if errors.Is(err, repository.ErrIntentNotFound) {
			return ErrIntentNotFound
		}
		return err
	}

	status := model.SettlementPending
	switch ev.Status {
	case model.PaymentSucceeded:
		status = model.SettlementSucceeded
	case model.PaymentFailed:
		status = model.SettlementFailed
	}

	if _, err := s.settlements.Apply(ctx, ev.TransactionID, intent.ID, status, intent.Amount); err != nil {
		return err
	}

	if status == model.SettlementSucceeded {
		if _, _, err := s.votes.Confirm(ctx,
			intent.ContestID, intent.CandidateID, intent.ActorID,
			intent.Amount, intent.ID, ev.TransactionID,
		); err != nil {
			return err
		}
	}

	log.Info().
		Str("intent_id", intent.ID).
		Str("transaction_id", ev.TransactionID).
		Str("status", status).
		Msg("Provider settlement applied")

	return nil
}

// Tally returns a contest's live per-candidate vote counts.
func (s *VoteService) Tally(ctx context.Context, contestID string) ([]model.CandidateTally, error) {
	return s.votes.Tally(ctx, contestID)
}
