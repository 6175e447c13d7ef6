package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bottlespin/bottlespin-backend/pkg/enums"
)

// QRCode is the registry row for a scan code. Operators can pre-register codes;
// codes scanned in the wild are auto-created with the original raw input kept
// for auditing.
type QRCode struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CodeID      string          `gorm:"column:code_id;type:text;not null;uniqueIndex"`
	Kind        enums.CodeKind  `gorm:"column:kind;type:code_kind;not null;default:bottle_return"`
	Value       decimal.Decimal `gorm:"column:value;type:numeric(12,2);not null"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	AutoCreated bool            `gorm:"column:auto_created;not null;default:false"`
	RawPayload  *string         `gorm:"column:raw_payload;type:text"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
