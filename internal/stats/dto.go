package stats

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserMetrics is the member-facing dashboard snapshot.
type UserMetrics struct {
	BottlesReturned int             `json:"bottles_returned"`
	Earned          decimal.Decimal `json:"earned"`
	Rewards         decimal.Decimal `json:"rewards"`
	Withdrawals     decimal.Decimal `json:"withdrawals"`
	Balance         decimal.Decimal `json:"balance"`
	Rank            int             `json:"rank"`
	RecyclingRate   int             `json:"recycling_rate"`
}

// UserTotal is one user's aggregate over bottle_returns, ordered for ranking.
type UserTotal struct {
	UserID        uuid.UUID `gorm:"column:user_id"`
	TotalBottles  int       `gorm:"column:total_bottles"`
	FirstReturnAt time.Time `gorm:"column:first_return_at"`
}

// TopUser is one leaderboard row with the identity joined in.
type TopUser struct {
	UserID       uuid.UUID `json:"user_id" gorm:"column:user_id"`
	Name         string    `json:"name" gorm:"column:name"`
	Rank         int       `json:"rank" gorm:"column:rank"`
	TotalBottles int       `json:"total_bottles" gorm:"column:total_bottles"`
}
