package scans

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bottlespin/bottlespin-backend/internal/ledger"
	"github.com/bottlespin/bottlespin-backend/internal/notify"
	"github.com/bottlespin/bottlespin-backend/pkg/db/models"
	"github.com/bottlespin/bottlespin-backend/pkg/enums"
	pkgerrors "github.com/bottlespin/bottlespin-backend/pkg/errors"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
)

type fakeRepo struct {
	findOrCreateCodeFn func(ctx context.Context, code *models.QRCode) (*models.QRCode, error)
	registerCodeFn     func(ctx context.Context, code *models.QRCode) error
	createRequestFn    func(ctx context.Context, req *models.ScanRequest) error
	findRequestFn      func(ctx context.Context, id uuid.UUID) (*models.ScanRequest, error)
	findPendingFn      func(ctx context.Context, userID uuid.UUID, codeID string) (*models.ScanRequest, error)
	hasApprovedFn      func(ctx context.Context, codeID string) (bool, error)
	resolvePendingFn   func(ctx context.Context, id uuid.UUID, status enums.ScanRequestStatus, reviewerID uuid.UUID, comment *string, resolvedAt time.Time) (bool, error)
	listByUserFn       func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ScanRequest, int64, error)
	listPendingFn      func(ctx context.Context, limit int) ([]PendingRequest, error)
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) RegisterCode(ctx context.Context, code *models.QRCode) error {
	if f.registerCodeFn != nil {
		return f.registerCodeFn(ctx, code)
	}
	return nil
}

func (f *fakeRepo) FindOrCreateCode(ctx context.Context, code *models.QRCode) (*models.QRCode, error) {
	if f.findOrCreateCodeFn != nil {
		return f.findOrCreateCodeFn(ctx, code)
	}
	return code, nil
}

func (f *fakeRepo) CreateRequest(ctx context.Context, req *models.ScanRequest) error {
	if f.createRequestFn != nil {
		return f.createRequestFn(ctx, req)
	}
	req.ID = uuid.New()
	return nil
}

func (f *fakeRepo) FindRequest(ctx context.Context, id uuid.UUID) (*models.ScanRequest, error) {
	if f.findRequestFn != nil {
		return f.findRequestFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindPendingByUserAndCode(ctx context.Context, userID uuid.UUID, codeID string) (*models.ScanRequest, error) {
	if f.findPendingFn != nil {
		return f.findPendingFn(ctx, userID, codeID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) HasApprovedForCode(ctx context.Context, codeID string) (bool, error) {
	if f.hasApprovedFn != nil {
		return f.hasApprovedFn(ctx, codeID)
	}
	return false, nil
}

func (f *fakeRepo) ResolvePending(ctx context.Context, id uuid.UUID, status enums.ScanRequestStatus, reviewerID uuid.UUID, comment *string, resolvedAt time.Time) (bool, error) {
	if f.resolvePendingFn != nil {
		return f.resolvePendingFn(ctx, id, status, reviewerID, comment, resolvedAt)
	}
	return true, nil
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ScanRequest, int64, error) {
	if f.listByUserFn != nil {
		return f.listByUserFn(ctx, userID, limit, offset)
	}
	return nil, 0, nil
}

func (f *fakeRepo) ListPending(ctx context.Context, limit int) ([]PendingRequest, error) {
	if f.listPendingFn != nil {
		return f.listPendingFn(ctx, limit)
	}
	return nil, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeLedger struct {
	credits []ledger.CreditReturnInput
	err     error
}

func (f *fakeLedger) CreditReturn(ctx context.Context, tx *gorm.DB, input ledger.CreditReturnInput) (*models.BottleReturn, *models.Transaction, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.credits = append(f.credits, input)
	return &models.BottleReturn{}, &models.Transaction{}, nil
}

type fakeDispatcher struct {
	pending  []notify.PendingEvent
	resolved []notify.ResolvedEvent
}

func (f *fakeDispatcher) PendingSubmitted(ctx context.Context, event notify.PendingEvent) {
	f.pending = append(f.pending, event)
}

func (f *fakeDispatcher) ScanResolved(ctx context.Context, event notify.ResolvedEvent) {
	f.resolved = append(f.resolved, event)
}

func newTestService(t *testing.T, repo Repository, rewards rewardLedger, dispatcher notify.Dispatcher) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	svc, err := NewService(repo, fakeTxRunner{}, rewards, dispatcher, logg, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_SubmitCreatesPendingAndNotifies(t *testing.T) {
	repo := &fakeRepo{}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, repo, &fakeLedger{}, dispatcher)

	userID := uuid.New()
	result, err := svc.Submit(context.Background(), SubmitInput{
		UserID:  userID,
		RawCode: `{"id":"BSP_X1","kind":"bottle_return","size":"250ml"}`,
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if result.Status != SubmitStatusPending {
		t.Fatalf("expected pending, got %s", result.Status)
	}
	if result.CodeID != "BSP_X1" {
		t.Fatalf("unexpected code id %s", result.CodeID)
	}
	if !result.RewardEstimate.Equal(decimal.NewFromFloat(0.50)) {
		t.Fatalf("expected estimate 0.50, got %s", result.RewardEstimate)
	}
	if len(dispatcher.pending) != 1 {
		t.Fatalf("expected one pending notification, got %d", len(dispatcher.pending))
	}
	if dispatcher.pending[0].UserID != userID || dispatcher.pending[0].CodeID != "BSP_X1" {
		t.Fatalf("notification payload mismatch: %+v", dispatcher.pending[0])
	}
}

func TestService_SubmitDedupReturnsExistingRequest(t *testing.T) {
	existingID := uuid.New()
	repo := &fakeRepo{
		findPendingFn: func(ctx context.Context, userID uuid.UUID, codeID string) (*models.ScanRequest, error) {
			return &models.ScanRequest{ID: existingID}, nil
		},
	}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, repo, &fakeLedger{}, dispatcher)

	result, err := svc.Submit(context.Background(), SubmitInput{
		UserID:  uuid.New(),
		RawCode: `{"id":"BSP_X1"}`,
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if result.Status != SubmitStatusAlreadyPending {
		t.Fatalf("expected already_pending, got %s", result.Status)
	}
	if result.RequestID != existingID {
		t.Fatalf("expected existing request id %s, got %s", existingID, result.RequestID)
	}
	if len(dispatcher.pending) != 0 {
		t.Fatal("dedup hit must not re-notify reviewers")
	}
}

func TestService_SubmitSpentCodeConflicts(t *testing.T) {
	repo := &fakeRepo{
		hasApprovedFn: func(ctx context.Context, codeID string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(t, repo, &fakeLedger{}, &fakeDispatcher{})

	_, err := svc.Submit(context.Background(), SubmitInput{
		UserID:  uuid.New(),
		RawCode: `{"id":"BSP_X1"}`,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestService_SubmitRaceOnPendingIndexConverges(t *testing.T) {
	existingID := uuid.New()
	calls := 0
	repo := &fakeRepo{
		createRequestFn: func(ctx context.Context, req *models.ScanRequest) error {
			return errors.New(`duplicate key value violates unique constraint "uq_scan_requests_user_pending"`)
		},
		findPendingFn: func(ctx context.Context, userID uuid.UUID, codeID string) (*models.ScanRequest, error) {
			calls++
			if calls == 1 {
				// first pre-check: nothing yet, the race happens on insert
				return nil, gorm.ErrRecordNotFound
			}
			return &models.ScanRequest{ID: existingID}, nil
		},
	}
	svc := newTestService(t, repo, &fakeLedger{}, &fakeDispatcher{})

	result, err := svc.Submit(context.Background(), SubmitInput{
		UserID:  uuid.New(),
		RawCode: `{"id":"BSP_X1"}`,
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if result.Status != SubmitStatusAlreadyPending || result.RequestID != existingID {
		t.Fatalf("race should converge on existing request, got %+v", result)
	}
}

func TestService_ResolveApproveCreditsLedger(t *testing.T) {
	userID := uuid.New()
	requestID := uuid.New()
	size := "2ltr"
	repo := &fakeRepo{
		findRequestFn: func(ctx context.Context, id uuid.UUID) (*models.ScanRequest, error) {
			return &models.ScanRequest{
				ID:           requestID,
				UserID:       userID,
				CodeID:       "BSP_X1",
				Status:       enums.ScanRequestStatusPending,
				DeclaredSize: &size,
			}, nil
		},
	}
	rewards := &fakeLedger{}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, repo, rewards, dispatcher)

	result, err := svc.Resolve(context.Background(), ResolveInput{
		RequestID:  requestID,
		ReviewerID: uuid.New(),
		Decision:   DecisionApprove,
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if result.Status != enums.ScanRequestStatusApproved {
		t.Fatalf("expected approved, got %s", result.Status)
	}
	if !result.RewardAmount.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected reward 2, got %s", result.RewardAmount)
	}
	if len(rewards.credits) != 1 {
		t.Fatalf("expected one ledger credit, got %d", len(rewards.credits))
	}
	credit := rewards.credits[0]
	if credit.UserID != userID || credit.Count != 1 || credit.CodeID != "BSP_X1" {
		t.Fatalf("unexpected credit input: %+v", credit)
	}
	if credit.ReferenceID != requestID.String() {
		t.Fatalf("credit should reference the request, got %s", credit.ReferenceID)
	}
	if len(dispatcher.resolved) != 1 {
		t.Fatalf("expected resolved notification, got %d", len(dispatcher.resolved))
	}
	if dispatcher.resolved[0].UserID != userID || dispatcher.resolved[0].Status != enums.ScanRequestStatusApproved {
		t.Fatalf("notification payload mismatch: %+v", dispatcher.resolved[0])
	}
}

func TestService_ResolveRejectSkipsLedger(t *testing.T) {
	repo := &fakeRepo{
		findRequestFn: func(ctx context.Context, id uuid.UUID) (*models.ScanRequest, error) {
			return &models.ScanRequest{ID: id, UserID: uuid.New(), Status: enums.ScanRequestStatusPending}, nil
		},
	}
	rewards := &fakeLedger{}
	svc := newTestService(t, repo, rewards, &fakeDispatcher{})

	result, err := svc.Resolve(context.Background(), ResolveInput{
		RequestID:  uuid.New(),
		ReviewerID: uuid.New(),
		Decision:   DecisionReject,
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if result.Status != enums.ScanRequestStatusRejected {
		t.Fatalf("expected rejected, got %s", result.Status)
	}
	if !result.RewardAmount.IsZero() {
		t.Fatalf("rejected scans pay nothing, got %s", result.RewardAmount)
	}
	if len(rewards.credits) != 0 {
		t.Fatal("reject must not touch the ledger")
	}
}

func TestService_ResolveAlreadyProcessed(t *testing.T) {
	repo := &fakeRepo{
		findRequestFn: func(ctx context.Context, id uuid.UUID) (*models.ScanRequest, error) {
			return &models.ScanRequest{ID: id, UserID: uuid.New(), Status: enums.ScanRequestStatusApproved}, nil
		},
		resolvePendingFn: func(ctx context.Context, id uuid.UUID, status enums.ScanRequestStatus, reviewerID uuid.UUID, comment *string, resolvedAt time.Time) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(t, repo, &fakeLedger{}, &fakeDispatcher{})

	_, err := svc.Resolve(context.Background(), ResolveInput{
		RequestID:  uuid.New(),
		ReviewerID: uuid.New(),
		Decision:   DecisionApprove,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestService_ResolveUnknownRequest(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeLedger{}, &fakeDispatcher{})

	_, err := svc.Resolve(context.Background(), ResolveInput{
		RequestID:  uuid.New(),
		ReviewerID: uuid.New(),
		Decision:   DecisionApprove,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_ResolveLedgerFailureRollsBack(t *testing.T) {
	repo := &fakeRepo{
		findRequestFn: func(ctx context.Context, id uuid.UUID) (*models.ScanRequest, error) {
			return &models.ScanRequest{ID: id, UserID: uuid.New(), Status: enums.ScanRequestStatusPending}, nil
		},
	}
	expectedErr := errors.New("ledger down")
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, repo, &fakeLedger{err: expectedErr}, dispatcher)

	_, err := svc.Resolve(context.Background(), ResolveInput{
		RequestID:  uuid.New(),
		ReviewerID: uuid.New(),
		Decision:   DecisionApprove,
	})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected ledger error to bubble up, got %v", err)
	}
	if len(dispatcher.resolved) != 0 {
		t.Fatal("failed resolution must not notify")
	}
}

func TestService_RegisterCodeDuplicateConflicts(t *testing.T) {
	repo := &fakeRepo{
		registerCodeFn: func(ctx context.Context, code *models.QRCode) error {
			return errors.New(`duplicate key value violates unique constraint "uq_qr_codes_code_id"`)
		},
	}
	svc := newTestService(t, repo, &fakeLedger{}, &fakeDispatcher{})

	_, err := svc.RegisterCode(context.Background(), RegisterCodeInput{CodeID: "BSP_TAKEN"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestService_RegisterCodeBuildsPayload(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo, &fakeLedger{}, &fakeDispatcher{})

	size := "500ml"
	result, err := svc.RegisterCode(context.Background(), RegisterCodeInput{
		CodeID: "BSP_PRINT_1",
		Kind:   "bottle_return",
		Size:   &size,
	})
	if err != nil {
		t.Fatalf("RegisterCode error: %v", err)
	}
	if result.Code.CodeID != "BSP_PRINT_1" {
		t.Fatalf("unexpected code id %s", result.Code.CodeID)
	}
	if !result.Code.Value.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected value 1 from size table, got %s", result.Code.Value)
	}

	parsed := parseRawCode(result.Payload, time.Now())
	if parsed.CodeID != "BSP_PRINT_1" {
		t.Fatalf("payload should round-trip through the parser, got %s", parsed.CodeID)
	}
}
