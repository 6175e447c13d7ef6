package scans

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bottlespin/bottlespin-backend/pkg/db/models"
	"github.com/bottlespin/bottlespin-backend/pkg/enums"
)

// Repository manages persistence for scan requests and the code registry.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	RegisterCode(ctx context.Context, code *models.QRCode) error
	FindOrCreateCode(ctx context.Context, code *models.QRCode) (*models.QRCode, error)
	CreateRequest(ctx context.Context, req *models.ScanRequest) error
	FindRequest(ctx context.Context, id uuid.UUID) (*models.ScanRequest, error)
	FindPendingByUserAndCode(ctx context.Context, userID uuid.UUID, codeID string) (*models.ScanRequest, error)
	HasApprovedForCode(ctx context.Context, codeID string) (bool, error)
	ResolvePending(ctx context.Context, id uuid.UUID, status enums.ScanRequestStatus, reviewerID uuid.UUID, comment *string, resolvedAt time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ScanRequest, int64, error)
	ListPending(ctx context.Context, limit int) ([]PendingRequest, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a scans repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) RegisterCode(ctx context.Context, code *models.QRCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

// FindOrCreateCode returns the registry row for code.CodeID, creating it when
// the code was never registered. Concurrent creates converge on the unique
// index and re-read the winner.
func (r *repository) FindOrCreateCode(ctx context.Context, code *models.QRCode) (*models.QRCode, error) {
	var existing models.QRCode
	err := r.db.WithContext(ctx).
		Where("code_id = ?", code.CodeID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		var winner models.QRCode
		if ferr := r.db.WithContext(ctx).
			Where("code_id = ?", code.CodeID).
			First(&winner).Error; ferr == nil {
			return &winner, nil
		}
		return nil, err
	}
	return code, nil
}

func (r *repository) CreateRequest(ctx context.Context, req *models.ScanRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.ScanRequest, error) {
	var req models.ScanRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindPendingByUserAndCode(ctx context.Context, userID uuid.UUID, codeID string) (*models.ScanRequest, error) {
	var req models.ScanRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND code_id = ? AND status = ?", userID, codeID, enums.ScanRequestStatusPending).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) HasApprovedForCode(ctx context.Context, codeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ScanRequest{}).
		Where("code_id = ? AND status = ?", codeID, enums.ScanRequestStatusApproved).
		Count(&count).Error
	return count > 0, err
}

// ResolvePending flips a pending request into a terminal state with a single
// conditional UPDATE. Returns false when no pending row matched, which covers
// both unknown ids and requests another reviewer already settled.
func (r *repository) ResolvePending(ctx context.Context, id uuid.UUID, status enums.ScanRequestStatus, reviewerID uuid.UUID, comment *string, resolvedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ScanRequest{}).
		Where("id = ? AND status = ?", id, enums.ScanRequestStatusPending).
		Updates(map[string]any{
			"status":           status,
			"reviewer_id":      reviewerID,
			"reviewer_comment": comment,
			"resolved_at":      resolvedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ScanRequest, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.ScanRequest{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []models.ScanRequest
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *repository) ListPending(ctx context.Context, limit int) ([]PendingRequest, error) {
	var requests []models.ScanRequest
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.ScanRequestStatusPending).
		Order("created_at DESC").
		Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}

	userIDs := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		userIDs = append(userIDs, req.UserID)
	}
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	pending := make([]PendingRequest, 0, len(requests))
	for _, req := range requests {
		entry := PendingRequest{Request: req}
		if user, ok := byID[req.UserID]; ok {
			entry.UserName = user.Name
			entry.UserEmail = user.Email
		}
		pending = append(pending, entry)
	}
	return pending, nil
}
