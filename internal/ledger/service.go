package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bottlespin/bottlespin-backend/pkg/db/models"
	"github.com/bottlespin/bottlespin-backend/pkg/enums"
	pkgerrors "github.com/bottlespin/bottlespin-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// statsApplier keeps the denormalized user_stats rollup in step with ledger
// writes, inside the same transaction.
type statsApplier interface {
	ApplyCredit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bottles int, amount decimal.Decimal) error
	ApplyDebit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error
}

// Service defines wallet and return-ledger operations.
type Service interface {
	CreditReturn(ctx context.Context, tx *gorm.DB, input CreditReturnInput) (*models.BottleReturn, *models.Transaction, error)
	RecordManualReturn(ctx context.Context, input ManualReturnInput) (*models.BottleReturn, error)
	Withdraw(ctx context.Context, input WithdrawInput) (*models.Transaction, error)
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	RecentTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	stats statsApplier
}

// CreditReturnInput carries the data an approved scan contributes to the ledger.
// The caller owns the surrounding transaction.
type CreditReturnInput struct {
	UserID      uuid.UUID
	Count       int
	Value       decimal.Decimal
	CodeID      string
	Size        *string
	ReferenceID string
	Description string
}

// ManualReturnInput captures an admin-entered return that bypassed scanning.
type ManualReturnInput struct {
	UserID      uuid.UUID
	Count       int
	Value       decimal.Decimal
	Size        *string
	Description string
}

// WithdrawInput captures a member's request to debit their balance.
type WithdrawInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// NewService wires a ledger service with the provided repository and transaction runner.
func NewService(repo Repository, tx txRunner, stats statsApplier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stats == nil {
		return nil, fmt.Errorf("stats applier required")
	}
	return &service{repo: repo, tx: tx, stats: stats}, nil
}

// CreditReturn appends a bottle return plus its matching credit inside the
// caller's transaction so request resolution and crediting commit together.
func (s *service) CreditReturn(ctx context.Context, tx *gorm.DB, input CreditReturnInput) (*models.BottleReturn, *models.Transaction, error) {
	if input.UserID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Count <= 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "count must be positive")
	}
	if input.Value.IsNegative() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "value must not be negative")
	}

	repo := s.repo.WithTx(tx)

	codeID := input.CodeID
	ret := &models.BottleReturn{
		UserID: input.UserID,
		Count:  input.Count,
		Kind:   enums.ReturnKindScanned,
		Value:  input.Value,
		CodeID: &codeID,
		Size:   input.Size,
		Status: "completed",
	}
	if err := repo.CreateReturn(ctx, ret); err != nil {
		return nil, nil, err
	}

	refID := input.ReferenceID
	txn := &models.Transaction{
		UserID:      input.UserID,
		Amount:      input.Value,
		Kind:        enums.TransactionKindCredit,
		Type:        enums.TransactionTypeBottleReturn,
		Status:      "completed",
		ReferenceID: &refID,
		Description: input.Description,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, nil, err
	}
	if err := s.stats.ApplyCredit(ctx, tx, input.UserID, input.Count, input.Value); err != nil {
		return nil, nil, err
	}
	return ret, txn, nil
}

// RecordManualReturn persists an admin-entered return and its credit in one transaction.
func (s *service) RecordManualReturn(ctx context.Context, input ManualReturnInput) (*models.BottleReturn, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "count must be positive")
	}
	if input.Value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value must not be negative")
	}

	ret := &models.BottleReturn{
		UserID: input.UserID,
		Count:  input.Count,
		Kind:   enums.ReturnKindManual,
		Value:  input.Value,
		Size:   input.Size,
		Status: "completed",
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateReturn(ctx, ret); err != nil {
			return err
		}
		refID := ret.ID.String()
		if err := repo.CreateTransaction(ctx, &models.Transaction{
			UserID:      input.UserID,
			Amount:      input.Value,
			Kind:        enums.TransactionKindCredit,
			Type:        enums.TransactionTypeBottleReturn,
			Status:      "completed",
			ReferenceID: &refID,
			Description: input.Description,
		}); err != nil {
			return err
		}
		return s.stats.ApplyCredit(ctx, tx, input.UserID, input.Count, input.Value)
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Withdraw debits the user's balance. The overdraft check is the guarded
// rollup decrement: it runs first and serializes concurrent withdrawals on
// the user_stats row, so the loser rolls back before its debit row exists
// and the wallet can never go negative.
func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*models.Transaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	txn := &models.Transaction{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Kind:        enums.TransactionKindDebit,
		Type:        enums.TransactionTypeWithdrawal,
		Status:      "completed",
		Description: input.Description,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.stats.ApplyDebit(ctx, tx, input.UserID, input.Amount); err != nil {
			return err
		}
		return s.repo.WithTx(tx).CreateTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return balanceWith(ctx, s.repo, userID)
}

func (s *service) RecentTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListTransactionsByUser(ctx, userID, limit)
}

func balanceWith(ctx context.Context, repo Repository, userID uuid.UUID) (decimal.Decimal, error) {
	credits, err := repo.SumByKind(ctx, userID, enums.TransactionKindCredit)
	if err != nil {
		return decimal.Zero, err
	}
	debits, err := repo.SumByKind(ctx, userID, enums.TransactionKindDebit)
	if err != nil {
		return decimal.Zero, err
	}
	return credits.Sub(debits), nil
}
