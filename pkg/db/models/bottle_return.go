package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bottlespin/bottlespin-backend/pkg/enums"
)

// BottleReturn records one approved (or manually entered) bottle-return event.
// Rows are append-only once created.
type BottleReturn struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	Count     int              `gorm:"column:count;not null;default:1"`
	Kind      enums.ReturnKind `gorm:"column:kind;type:return_kind;not null;default:scanned"`
	Value     decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	CodeID    *string          `gorm:"column:code_id;type:text"`
	Size      *string          `gorm:"column:size;type:text"`
	Status    string           `gorm:"column:status;type:text;not null;default:completed"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}
