package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-moderator-bot/internal/casino"
	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/pkg/lock"
	"telegram-moderator-bot/internal/repository"
)

// Common errors for ledger operations.
var (
	ErrWagerInProgress     = errors.New("a wager is already in progress")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStakeBelowMinimum   = errors.New("stake is below the table minimum")
)

// RollFunc performs the outward dice send for a wager and returns the
// resulting outcome value (1..64). It runs while the member's wager
// guard is held.
type RollFunc func(ctx context.Context) (int, error)

// WagerResult describes a settled wager.
type WagerResult struct {
	Outcome    int
	Won        bool
	Multiplier int
	Winnings   int64 // total credited on a win, 0 on a loss
	Balance    int64 // balance after settlement
}

// LedgerService owns balance mutations: wagers, donations and the
// scheduled replenishment.
type LedgerService struct {
	memberRepo *repository.MemberRepository
	casinoRepo *repository.CasinoRepository
	guard      *lock.Guard

	creditsPerStar int64
	floor          int64
	threshold      int64
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(
	memberRepo *repository.MemberRepository,
	casinoRepo *repository.CasinoRepository,
	guard *lock.Guard,
	creditsPerStar, floor, threshold int64,
) *LedgerService {
	return &LedgerService{
		memberRepo:     memberRepo,
		casinoRepo:     casinoRepo,
		guard:          guard,
		creditsPerStar: creditsPerStar,
		floor:          floor,
		threshold:      threshold,
	}
}

// GetBalance retrieves a member's current balance.
func (s *LedgerService) GetBalance(ctx context.Context, memberID int64) (int64, error) {
	return s.memberRepo.GetBalance(ctx, memberID)
}

// Wager runs one casino round for the member. The per-member guard is
// acquired for the whole round so a second /casino while the dice spins
// is rejected without touching the balance. The stake is debited before
// roll runs; a failed roll refunds it.
func (s *LedgerService) Wager(ctx context.Context, member *model.Member, stake int64, roll RollFunc) (*WagerResult, error) {
	if stake < casino.MinBet {
		return nil, ErrStakeBelowMinimum
	}

	if !s.guard.TryAcquire(member.ID) {
		return nil, ErrWagerInProgress
	}
	defer s.guard.Release(member.ID)

	balance, err := s.memberRepo.Debit(ctx, member.ID, stake)
	if errors.Is(err, repository.ErrInsufficientBalance) {
		return nil, ErrInsufficientBalance
	}
	if err != nil {
		return nil, fmt.Errorf("failed to debit stake: %w", err)
	}

	outcome, err := roll(ctx)
	if err != nil {
		if _, refundErr := s.memberRepo.Credit(ctx, member.ID, stake); refundErr != nil {
			log.Error().Err(refundErr).
				Int64("member_id", member.ID).
				Int64("stake", stake).
				Msg("failed to refund stake after roll error")
		}
		return nil, fmt.Errorf("failed to roll dice: %w", err)
	}

	result := &WagerResult{
		Outcome:    outcome,
		Won:        casino.IsWin(outcome),
		Multiplier: casino.Multiplier(outcome),
		Balance:    balance,
	}
	if !result.Won {
		return result, nil
	}

	result.Winnings = casino.Winnings(stake, outcome)
	result.Balance, err = s.memberRepo.Credit(ctx, member.ID, result.Winnings)
	if err != nil {
		return nil, fmt.Errorf("failed to credit winnings: %w", err)
	}

	if err := s.casinoRepo.RecordWin(ctx, member.ID, result.Winnings); err != nil {
		// The balance is already settled; the win log is best-effort.
		log.Error().Err(err).Int64("member_id", member.ID).Msg("failed to record casino win")
	}

	return result, nil
}

// ApplyDonation converts paid stars into credits, at most once per
// charge id. Returns the credited amount and whether this call applied
// it (false means the charge was already processed).
func (s *LedgerService) ApplyDonation(ctx context.Context, chargeID string, member *model.Member, stars int64) (int64, bool, error) {
	credits := stars * s.creditsPerStar

	applied, err := s.casinoRepo.CreatePayment(ctx, chargeID, member.ID, stars, credits)
	if err != nil {
		return 0, false, fmt.Errorf("failed to record donation: %w", err)
	}
	if !applied {
		return credits, false, nil
	}

	if _, err := s.memberRepo.Credit(ctx, member.ID, credits); err != nil {
		return 0, false, fmt.Errorf("failed to credit donation: %w", err)
	}
	return credits, true, nil
}

// ReplenishLowBalances restores every balance strictly below the
// threshold to the floor. Wired to the weekly schedule in main.
func (s *LedgerService) ReplenishLowBalances(ctx context.Context) (int64, error) {
	restored, err := s.memberRepo.ReplenishBelow(ctx, s.threshold, s.floor)
	if err != nil {
		return 0, fmt.Errorf("failed to replenish balances: %w", err)
	}
	return restored, nil
}
