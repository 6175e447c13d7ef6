package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bottlespin/bottlespin-backend/pkg/enums"
)

// ScanRequest is a pending claim that a scan code should credit a user.
//
// Two partial unique indexes carry the workflow invariants so that racing
// writers converge instead of double-writing:
//
//	uq_scan_requests_code_approved  ON (code_id) WHERE status = 'approved'
//	uq_scan_requests_user_pending   ON (user_id, code_id) WHERE status = 'pending'
type ScanRequest struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	CodeID          string                  `gorm:"column:code_id;type:text;not null;index"`
	RawCode         string                  `gorm:"column:raw_code;type:text;not null"`
	Kind            enums.CodeKind          `gorm:"column:kind;type:code_kind;not null"`
	DeclaredValue   *decimal.Decimal        `gorm:"column:declared_value;type:numeric(12,2)"`
	DeclaredSize    *string                 `gorm:"column:declared_size;type:text"`
	Status          enums.ScanRequestStatus `gorm:"column:status;type:scan_request_status;not null;default:pending"`
	ReviewerID      *uuid.UUID              `gorm:"column:reviewer_id;type:uuid"`
	ReviewerComment *string                 `gorm:"column:reviewer_comment;type:text"`
	ResolvedAt      *time.Time              `gorm:"column:resolved_at;type:timestamptz"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
