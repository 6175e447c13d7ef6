package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bottlespin/bottlespin-backend/pkg/enums"
)

// Transaction is an immutable credit or debit against a user's balance. The
// set of transactions is the source of truth: balance = credits - debits.
type Transaction struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Kind        enums.TransactionKind `gorm:"column:kind;type:transaction_kind;not null"`
	Type        enums.TransactionType `gorm:"column:type;type:transaction_type;not null"`
	Status      string                `gorm:"column:status;type:text;not null;default:completed"`
	ReferenceID *string               `gorm:"column:reference_id;type:text;index"`
	Description string                `gorm:"column:description;type:text"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
