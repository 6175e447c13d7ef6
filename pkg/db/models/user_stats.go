package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserStats is the denormalized per-user rollup kept in step with the ledger.
// It is a cache: losing a row is recoverable because every column can be
// recomputed from bottle_returns and transactions.
type UserStats struct {
	UserID               uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey"`
	BottlesReturnedTotal int             `gorm:"column:bottles_returned_total;not null;default:0"`
	EarnedTotal          decimal.Decimal `gorm:"column:earned_total;type:numeric(12,2);not null;default:0"`
	RewardsTotal         decimal.Decimal `gorm:"column:rewards_total;type:numeric(12,2);not null;default:0"`
	WithdrawalsTotal     decimal.Decimal `gorm:"column:withdrawals_total;type:numeric(12,2);not null;default:0"`
	Balance              decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	RecyclingRate        int             `gorm:"column:recycling_rate;not null;default:0"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the plural used by the migrations.
func (UserStats) TableName() string {
	return "user_stats"
}
