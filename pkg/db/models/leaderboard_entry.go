package models

import (
	"time"

	"github.com/google/uuid"
)

// LeaderboardEntry holds one user's dense rank by total bottles returned.
// Ranks are derived on recompute and never authoritative; bottle_returns is.
type LeaderboardEntry struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Rank          int       `gorm:"column:rank;not null;index"`
	TotalBottles  int       `gorm:"column:total_bottles;not null;default:0"`
	FirstReturnAt time.Time `gorm:"column:first_return_at;type:timestamptz;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
