package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bottlespin/bottlespin-backend/pkg/db/models"
	"github.com/bottlespin/bottlespin-backend/pkg/enums"
)

// Repository manages persistence for bottle returns and wallet transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateReturn(ctx context.Context, ret *models.BottleReturn) error
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	ListReturnsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BottleReturn, int64, error)
	ListTransactionsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error)
	SumByKind(ctx context.Context, userID uuid.UUID, kind enums.TransactionKind) (decimal.Decimal, error)
	SumByType(ctx context.Context, userID uuid.UUID, txType enums.TransactionType) (decimal.Decimal, error)
	CountBottles(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateReturn(ctx context.Context, ret *models.BottleReturn) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListReturnsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BottleReturn, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.BottleReturn{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var returns []models.BottleReturn
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&returns).Error; err != nil {
		return nil, 0, err
	}
	return returns, total, nil
}

func (r *repository) ListTransactionsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) SumByKind(ctx context.Context, userID uuid.UUID, kind enums.TransactionKind) (decimal.Decimal, error) {
	var raw decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND kind = ?", userID, kind).
		Scan(&raw).Error; err != nil {
		return decimal.Zero, err
	}
	if !raw.Valid {
		return decimal.Zero, nil
	}
	return raw.Decimal, nil
}

func (r *repository) SumByType(ctx context.Context, userID uuid.UUID, txType enums.TransactionType) (decimal.Decimal, error) {
	var raw decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND type = ?", userID, txType).
		Scan(&raw).Error; err != nil {
		return decimal.Zero, err
	}
	if !raw.Valid {
		return decimal.Zero, nil
	}
	return raw.Decimal, nil
}

func (r *repository) CountBottles(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.BottleReturn{}).
		Select("COALESCE(SUM(count), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	return total, err
}
