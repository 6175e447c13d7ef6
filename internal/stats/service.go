package stats

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bottlespin/bottlespin-backend/internal/ledger"
	"github.com/bottlespin/bottlespin-backend/pkg/db/models"
	"github.com/bottlespin/bottlespin-backend/pkg/enums"
	pkgerrors "github.com/bottlespin/bottlespin-backend/pkg/errors"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
	"github.com/bottlespin/bottlespin-backend/pkg/pagination"
)

const activityLimit = 10

// Service aggregates ledger activity into member-facing stats and the
// leaderboard. user_stats and leaderboard_entries are caches: every value is
// recomputable from bottle_returns and transactions.
type Service interface {
	ApplyCredit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bottles int, amount decimal.Decimal) error
	ApplyDebit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error
	Metrics(ctx context.Context, userID uuid.UUID) (*UserMetrics, error)
	Activity(ctx context.Context, userID uuid.UUID) ([]models.BottleReturn, error)
	TopUsers(ctx context.Context, limit int) ([]TopUser, error)
	RecomputeLeaderboard(ctx context.Context) (int, error)
	BackfillStats(ctx context.Context) (int, error)
}

type service struct {
	repo   Repository
	ledger ledger.Repository
	logg   *logger.Logger
}

// NewService wires the stats aggregator with its repositories.
func NewService(repo Repository, ledgerRepo ledger.Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, ledger: ledgerRepo, logg: logg}, nil
}

// ApplyCredit keeps the rollup in step with a ledger credit inside the
// caller's transaction. A missing row is seeded from the full ledger, which at
// this point already contains the credit being applied.
func (s *service) ApplyCredit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bottles int, amount decimal.Decimal) error {
	repo := s.repo.WithTx(tx)
	updated, err := repo.IncrementForCredit(ctx, userID, bottles, amount)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}
	snapshot, err := s.snapshotFromLedger(ctx, s.ledger.WithTx(tx), userID)
	if err != nil {
		return err
	}
	return repo.SaveStats(ctx, snapshot)
}

// ApplyDebit decrements the rollup with a balance guard, before the caller
// records the debit itself. The guarded UPDATE is the overdraft check: racing
// withdrawals serialize on the user_stats row and the loser sees the
// committed decrement. When the guard refuses, a missing row is seeded from
// the ledger (which does not yet hold this debit) and the guard retried once;
// a second refusal means the balance genuinely cannot cover the amount.
func (s *service) ApplyDebit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error {
	repo := s.repo.WithTx(tx)
	debited, err := repo.DebitIfCovered(ctx, userID, amount)
	if err != nil {
		return err
	}
	if debited {
		return nil
	}

	if _, err := repo.GetStats(ctx, userID); err == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient balance")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	snapshot, err := s.snapshotFromLedger(ctx, s.ledger.WithTx(tx), userID)
	if err != nil {
		return err
	}
	if err := repo.SaveStats(ctx, snapshot); err != nil {
		return err
	}
	debited, err = repo.DebitIfCovered(ctx, userID, amount)
	if err != nil {
		return err
	}
	if !debited {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient balance")
	}
	return nil
}

// Metrics serves the cached snapshot when present and falls back to a full
// ledger recompute otherwise, repairing the cache on the way out.
func (s *service) Metrics(ctx context.Context, userID uuid.UUID) (*UserMetrics, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	rank, err := s.repo.GetRank(ctx, userID)
	if err != nil {
		return nil, err
	}

	cached, err := s.repo.GetStats(ctx, userID)
	if err == nil {
		return &UserMetrics{
			BottlesReturned: cached.BottlesReturnedTotal,
			Earned:          cached.EarnedTotal,
			Rewards:         cached.RewardsTotal,
			Withdrawals:     cached.WithdrawalsTotal,
			Balance:         cached.Balance,
			Rank:            rank,
			RecyclingRate:   cached.RecyclingRate,
		}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	snapshot, err := s.snapshotFromLedger(ctx, s.ledger, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveStats(ctx, snapshot); err != nil {
		s.logg.Error(ctx, "repairing stats cache", err)
	}
	return &UserMetrics{
		BottlesReturned: snapshot.BottlesReturnedTotal,
		Earned:          snapshot.EarnedTotal,
		Rewards:         snapshot.RewardsTotal,
		Withdrawals:     snapshot.WithdrawalsTotal,
		Balance:         snapshot.Balance,
		Rank:            rank,
		RecyclingRate:   snapshot.RecyclingRate,
	}, nil
}

func (s *service) Activity(ctx context.Context, userID uuid.UUID) ([]models.BottleReturn, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	returns, _, err := s.ledger.ListReturnsByUser(ctx, userID, activityLimit, 0)
	return returns, err
}

func (s *service) TopUsers(ctx context.Context, limit int) ([]TopUser, error) {
	return s.repo.ListTop(ctx, pagination.NormalizeLimit(limit))
}

// RecomputeLeaderboard rebuilds every rank from bottle_returns. Ranks are
// dense: equal totals share a rank and the next distinct total takes the
// following one. Per-user upsert failures are collected so one bad row does
// not abort the rebuild.
func (s *service) RecomputeLeaderboard(ctx context.Context) (int, error) {
	totals, err := s.repo.AggregateTotals(ctx)
	if err != nil {
		return 0, err
	}

	var errs error
	ranked := 0
	rank := 0
	prevTotal := -1
	for _, total := range totals {
		if total.TotalBottles != prevTotal {
			rank++
			prevTotal = total.TotalBottles
		}
		entry := &models.LeaderboardEntry{
			ID:            uuid.New(),
			UserID:        total.UserID,
			Rank:          rank,
			TotalBottles:  total.TotalBottles,
			FirstReturnAt: total.FirstReturnAt,
		}
		if err := s.repo.UpsertLeaderboardEntry(ctx, entry); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", total.UserID, err))
			continue
		}
		ranked++
	}
	return ranked, errs
}

// BackfillStats rebuilds rollup rows for users that have ledger activity but
// no user_stats row.
func (s *service) BackfillStats(ctx context.Context) (int, error) {
	ids, err := s.repo.ListUserIDsMissingStats(ctx)
	if err != nil {
		return 0, err
	}

	var errs error
	rebuilt := 0
	for _, userID := range ids {
		snapshot, err := s.snapshotFromLedger(ctx, s.ledger, userID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		if err := s.repo.SaveStats(ctx, snapshot); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		rebuilt++
	}
	return rebuilt, errs
}

func (s *service) snapshotFromLedger(ctx context.Context, ledgerRepo ledger.Repository, userID uuid.UUID) (*models.UserStats, error) {
	bottles, err := ledgerRepo.CountBottles(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned, err := ledgerRepo.SumByType(ctx, userID, enums.TransactionTypeBottleReturn)
	if err != nil {
		return nil, err
	}
	rewards, err := ledgerRepo.SumByType(ctx, userID, enums.TransactionTypeReferral)
	if err != nil {
		return nil, err
	}
	withdrawals, err := ledgerRepo.SumByType(ctx, userID, enums.TransactionTypeWithdrawal)
	if err != nil {
		return nil, err
	}

	rate := int(bottles) * 10
	if rate > 100 {
		rate = 100
	}
	return &models.UserStats{
		UserID:               userID,
		BottlesReturnedTotal: int(bottles),
		EarnedTotal:          earned,
		RewardsTotal:         rewards,
		WithdrawalsTotal:     withdrawals,
		Balance:              earned.Add(rewards).Sub(withdrawals),
		RecyclingRate:        rate,
	}, nil
}
