package scans

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bottlespin/bottlespin-backend/pkg/db/models"
	"github.com/bottlespin/bottlespin-backend/pkg/enums"
)

// SubmitStatus distinguishes a fresh submission from a dedup hit.
type SubmitStatus string

const (
	SubmitStatusPending        SubmitStatus = "pending"
	SubmitStatusAlreadyPending SubmitStatus = "already_pending"
)

// Decision is the admin's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// SubmitInput carries a member's raw scan payload.
type SubmitInput struct {
	UserID  uuid.UUID
	RawCode string
}

// SubmitResult reports what the submission produced.
type SubmitResult struct {
	Status         SubmitStatus    `json:"status"`
	RequestID      uuid.UUID       `json:"request_id"`
	CodeID         string          `json:"code_id"`
	RewardEstimate decimal.Decimal `json:"reward_estimate"`
}

// ResolveInput carries an admin decision on a pending request.
type ResolveInput struct {
	RequestID  uuid.UUID
	ReviewerID uuid.UUID
	Decision   Decision
	Comment    *string
}

// ResolveResult reports the terminal state and any credited reward.
type ResolveResult struct {
	Status       enums.ScanRequestStatus `json:"status"`
	RequestID    uuid.UUID               `json:"request_id"`
	UserID       uuid.UUID               `json:"user_id"`
	RewardAmount decimal.Decimal         `json:"reward_amount"`
}

// PendingRequest is a pending scan with its submitter joined for review.
type PendingRequest struct {
	Request   models.ScanRequest `json:"request"`
	UserName  string             `json:"user_name"`
	UserEmail string             `json:"user_email"`
}

// codePayload is the JSON document a printed QR code carries.
type codePayload struct {
	ID    string   `json:"id"`
	Kind  string   `json:"kind"`
	Value *float64 `json:"value,omitempty"`
	Size  *string  `json:"size,omitempty"`
}

// parsedCode is the normalized interpretation of a raw scan.
type parsedCode struct {
	CodeID        string
	Kind          enums.CodeKind
	DeclaredValue *decimal.Decimal
	DeclaredSize  *string
}

// parseRawCode interprets a scanned payload. Codes in the wild are not trusted
// to be well-formed: malformed input degrades to a synthesized fallback id
// instead of rejecting the scan outright.
func parseRawCode(raw string, now time.Time) parsedCode {
	trimmed := strings.TrimSpace(raw)

	var payload codePayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil && strings.TrimSpace(payload.ID) != "" {
		parsed := parsedCode{
			CodeID:       strings.TrimSpace(payload.ID),
			Kind:         enums.NormalizeCodeKind(payload.Kind),
			DeclaredSize: payload.Size,
		}
		if payload.Value != nil && *payload.Value >= 0 {
			value := decimal.NewFromFloat(*payload.Value)
			parsed.DeclaredValue = &value
		}
		return parsed
	}

	// Raw BSP ids pass through verbatim so reprints of the same code dedup.
	codeID := trimmed
	if !strings.HasPrefix(trimmed, "BSP_") {
		codeID = fmt.Sprintf("BSP_M_%d", now.UnixMilli())
	}
	return parsedCode{
		CodeID: codeID,
		Kind:   enums.CodeKindBottleReturn,
	}
}
