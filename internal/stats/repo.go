package stats

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bottlespin/bottlespin-backend/pkg/db/models"
)

// Repository manages the user_stats rollup and leaderboard_entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	SaveStats(ctx context.Context, stats *models.UserStats) error
	IncrementForCredit(ctx context.Context, userID uuid.UUID, bottles int, amount decimal.Decimal) (bool, error)
	DebitIfCovered(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error)
	AggregateTotals(ctx context.Context) ([]UserTotal, error)
	UpsertLeaderboardEntry(ctx context.Context, entry *models.LeaderboardEntry) error
	GetRank(ctx context.Context, userID uuid.UUID) (int, error)
	ListTop(ctx context.Context, limit int) ([]TopUser, error)
	ListUserIDsMissingStats(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stats repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	var stats models.UserStats
	if err := r.db.WithContext(ctx).First(&stats, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *repository) SaveStats(ctx context.Context, stats *models.UserStats) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(stats).Error
}

// IncrementForCredit bumps the rollup counters in place. Returns false when no
// row exists yet; the caller seeds one and retries.
func (r *repository) IncrementForCredit(ctx context.Context, userID uuid.UUID, bottles int, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserStats{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"bottles_returned_total": gorm.Expr("bottles_returned_total + ?", bottles),
			"earned_total":           gorm.Expr("earned_total + ?", amount),
			"balance":                gorm.Expr("balance + ?", amount),
			"recycling_rate": gorm.Expr(
				"CASE WHEN (bottles_returned_total + ?) * 10 > 100 THEN 100 ELSE (bottles_returned_total + ?) * 10 END",
				bottles, bottles,
			),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DebitIfCovered decrements the balance only when it covers the amount. The
// guard rides on the UPDATE itself, so under READ COMMITTED a second
// withdrawal waiting on the row lock re-evaluates the predicate against the
// committed decrement instead of a stale read. Returns false when the row is
// missing or the balance falls short.
func (r *repository) DebitIfCovered(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserStats{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]any{
			"withdrawals_total": gorm.Expr("withdrawals_total + ?", amount),
			"balance":           gorm.Expr("balance - ?", amount),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AggregateTotals groups bottle_returns by user in leaderboard order: most
// bottles first, earliest adopter breaking ties, user id as the final arbiter.
func (r *repository) AggregateTotals(ctx context.Context) ([]UserTotal, error) {
	var totals []UserTotal
	err := r.db.WithContext(ctx).
		Table("bottle_returns").
		Select("user_id, SUM(count) AS total_bottles, MIN(created_at) AS first_return_at").
		Group("user_id").
		Order("total_bottles DESC, first_return_at ASC, user_id ASC").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *repository) UpsertLeaderboardEntry(ctx context.Context, entry *models.LeaderboardEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rank", "total_bottles", "first_return_at", "updated_at"}),
		}).
		Create(entry).Error
}

func (r *repository) GetRank(ctx context.Context, userID uuid.UUID) (int, error) {
	var entry models.LeaderboardEntry
	err := r.db.WithContext(ctx).First(&entry, "user_id = ?", userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return entry.Rank, nil
}

func (r *repository) ListTop(ctx context.Context, limit int) ([]TopUser, error) {
	var top []TopUser
	err := r.db.WithContext(ctx).
		Table("leaderboard_entries").
		Select("leaderboard_entries.user_id, users.name, leaderboard_entries.rank, leaderboard_entries.total_bottles").
		Joins("JOIN users ON users.id = leaderboard_entries.user_id").
		Order("leaderboard_entries.rank ASC, leaderboard_entries.user_id ASC").
		Limit(limit).
		Scan(&top).Error
	if err != nil {
		return nil, err
	}
	return top, nil
}

// ListUserIDsMissingStats finds users with ledger activity but no rollup row.
func (r *repository) ListUserIDsMissingStats(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("bottle_returns").
		Select("DISTINCT bottle_returns.user_id").
		Joins("LEFT JOIN user_stats ON user_stats.user_id = bottle_returns.user_id").
		Where("user_stats.user_id IS NULL").
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
