package scans

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bottlespin/bottlespin-backend/internal/ledger"
	"github.com/bottlespin/bottlespin-backend/internal/notify"
	"github.com/bottlespin/bottlespin-backend/pkg/db"
	"github.com/bottlespin/bottlespin-backend/pkg/db/models"
	"github.com/bottlespin/bottlespin-backend/pkg/enums"
	pkgerrors "github.com/bottlespin/bottlespin-backend/pkg/errors"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
	"github.com/bottlespin/bottlespin-backend/pkg/metrics"
	"github.com/bottlespin/bottlespin-backend/pkg/pagination"
)

const pendingReviewLimit = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// rewardLedger appends the bottle return plus its credit inside the caller's
// transaction when a scan is approved.
type rewardLedger interface {
	CreditReturn(ctx context.Context, tx *gorm.DB, input ledger.CreditReturnInput) (*models.BottleReturn, *models.Transaction, error)
}

// Service defines the scan redemption workflow.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error)
	Resolve(ctx context.Context, input ResolveInput) (*ResolveResult, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.ScanRequest, *pagination.Result, error)
	ListPending(ctx context.Context) ([]PendingRequest, error)
	RegisterCode(ctx context.Context, input RegisterCodeInput) (*RegisterCodeResult, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	ledger     rewardLedger
	dispatcher notify.Dispatcher
	logg       *logger.Logger
	metrics    *metrics.ScanMetrics
}

// RegisterCodeInput captures an operator pre-registering a printable code.
type RegisterCodeInput struct {
	CodeID string
	Kind   string
	Value  *decimal.Decimal
	Size   *string
}

// RegisterCodeResult returns the registry row plus the canonical payload a
// printed code would carry.
type RegisterCodeResult struct {
	Code    models.QRCode `json:"code"`
	Payload string        `json:"payload"`
}

// NewService wires the scan workflow with its collaborators.
func NewService(repo Repository, tx txRunner, rewards rewardLedger, dispatcher notify.Dispatcher, logg *logger.Logger, scanMetrics *metrics.ScanMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("scans repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if rewards == nil {
		return nil, fmt.Errorf("reward ledger required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		ledger:     rewards,
		dispatcher: dispatcher,
		logg:       logg,
		metrics:    scanMetrics,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.RawCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "raw code required")
	}

	parsed := parseRawCode(input.RawCode, time.Now().UTC())
	estimate := RewardFor(parsed.DeclaredValue, parsed.DeclaredSize)

	result := &SubmitResult{
		Status:         SubmitStatusPending,
		CodeID:         parsed.CodeID,
		RewardEstimate: estimate,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		raw := input.RawCode
		if _, err := repo.FindOrCreateCode(ctx, &models.QRCode{
			CodeID:      parsed.CodeID,
			Kind:        parsed.Kind,
			Value:       estimate,
			IsActive:    true,
			AutoCreated: true,
			RawPayload:  &raw,
		}); err != nil {
			return err
		}

		spent, err := repo.HasApprovedForCode(ctx, parsed.CodeID)
		if err != nil {
			return err
		}
		if spent {
			return pkgerrors.New(pkgerrors.CodeConflict, "code already redeemed")
		}

		if existing, err := repo.FindPendingByUserAndCode(ctx, input.UserID, parsed.CodeID); err == nil {
			result.Status = SubmitStatusAlreadyPending
			result.RequestID = existing.ID
			return nil
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		req := &models.ScanRequest{
			UserID:        input.UserID,
			CodeID:        parsed.CodeID,
			RawCode:       input.RawCode,
			Kind:          parsed.Kind,
			DeclaredValue: parsed.DeclaredValue,
			DeclaredSize:  parsed.DeclaredSize,
			Status:        enums.ScanRequestStatusPending,
		}
		if err := repo.CreateRequest(ctx, req); err != nil {
			// Racing submitters land on the partial unique indexes; converge
			// on the same outcomes the pre-checks report.
			if db.IsUniqueViolation(err, "uq_scan_requests_user_pending") {
				existing, ferr := repo.FindPendingByUserAndCode(ctx, input.UserID, parsed.CodeID)
				if ferr != nil {
					return err
				}
				result.Status = SubmitStatusAlreadyPending
				result.RequestID = existing.ID
				return nil
			}
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "code already redeemed")
			}
			return err
		}
		result.RequestID = req.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == SubmitStatusPending {
		s.metrics.IncSubmitted(string(parsed.Kind))
		s.dispatcher.PendingSubmitted(ctx, notify.PendingEvent{
			RequestID: result.RequestID,
			UserID:    input.UserID,
			CodeID:    parsed.CodeID,
		})
	}
	return result, nil
}

func (s *service) Resolve(ctx context.Context, input ResolveInput) (*ResolveResult, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.ReviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "reviewer identity missing")
	}
	if input.Decision != DecisionApprove && input.Decision != DecisionReject {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid decision %q", input.Decision))
	}

	status := enums.ScanRequestStatusRejected
	if input.Decision == DecisionApprove {
		status = enums.ScanRequestStatusApproved
	}

	result := &ResolveResult{
		Status:       status,
		RequestID:    input.RequestID,
		RewardAmount: decimal.Zero,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		req, err := repo.FindRequest(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "scan request not found")
			}
			return err
		}
		result.UserID = req.UserID

		resolved, err := repo.ResolvePending(ctx, input.RequestID, status, input.ReviewerID, input.Comment, time.Now().UTC())
		if err != nil {
			if db.IsUniqueViolation(err, "uq_scan_requests_code_approved") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "code already redeemed")
			}
			return err
		}
		if !resolved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "scan request already processed")
		}

		if status != enums.ScanRequestStatusApproved {
			return nil
		}

		reward := RewardFor(req.DeclaredValue, req.DeclaredSize)
		comment := ""
		if input.Comment != nil {
			comment = *input.Comment
		}
		if _, _, err := s.ledger.CreditReturn(ctx, tx, ledger.CreditReturnInput{
			UserID:      req.UserID,
			Count:       1,
			Value:       reward,
			CodeID:      req.CodeID,
			Size:        req.DeclaredSize,
			ReferenceID: req.ID.String(),
			Description: fmt.Sprintf("bottle return %s approved %s", req.CodeID, comment),
		}); err != nil {
			return err
		}
		result.RewardAmount = reward
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncResolved(string(status))
	if status == enums.ScanRequestStatusApproved {
		s.metrics.IncCredited()
	}
	s.dispatcher.ScanResolved(ctx, notify.ResolvedEvent{
		RequestID:    result.RequestID,
		UserID:       result.UserID,
		Status:       status,
		RewardAmount: result.RewardAmount,
	})
	return result, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.ScanRequest, *pagination.Result, error) {
	if userID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	requests, total, err := s.repo.ListByUser(ctx, userID, params.Limit, params.Offset())
	if err != nil {
		return nil, nil, err
	}
	page := pagination.Describe(params, total)
	return requests, &page, nil
}

func (s *service) ListPending(ctx context.Context) ([]PendingRequest, error) {
	return s.repo.ListPending(ctx, pendingReviewLimit)
}

// RegisterCode pre-registers a printable code on behalf of an operator and
// returns the JSON payload the printed QR would carry.
func (s *service) RegisterCode(ctx context.Context, input RegisterCodeInput) (*RegisterCodeResult, error) {
	codeID := input.CodeID
	if codeID == "" {
		codeID = fmt.Sprintf("BSP_%s", uuid.NewString())
	}
	kind := enums.NormalizeCodeKind(input.Kind)
	value := RewardFor(input.Value, input.Size)

	code := &models.QRCode{
		CodeID:   codeID,
		Kind:     kind,
		Value:    value,
		IsActive: true,
	}
	if err := s.repo.RegisterCode(ctx, code); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "code id already registered")
		}
		return nil, err
	}

	floatValue, _ := value.Float64()
	payload := codePayload{
		ID:    codeID,
		Kind:  string(kind),
		Value: &floatValue,
		Size:  input.Size,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding code payload")
	}
	return &RegisterCodeResult{Code: *code, Payload: string(encoded)}, nil
}
