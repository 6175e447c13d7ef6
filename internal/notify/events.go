package notify

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bottlespin/bottlespin-backend/pkg/enums"
)

const (
	EventScanPending  = "scan.pending"
	EventScanResolved = "scan.resolved"
)

// PendingEvent tells reviewers a new scan is waiting.
type PendingEvent struct {
	Event     string    `json:"event"`
	RequestID uuid.UUID `json:"request_id"`
	UserID    uuid.UUID `json:"user_id"`
	CodeID    string    `json:"code_id"`
}

// ResolvedEvent tells the submitter their scan was settled.
type ResolvedEvent struct {
	Event        string                  `json:"event"`
	RequestID    uuid.UUID               `json:"request_id"`
	UserID       uuid.UUID               `json:"user_id"`
	Status       enums.ScanRequestStatus `json:"status"`
	RewardAmount decimal.Decimal         `json:"reward_amount"`
}
