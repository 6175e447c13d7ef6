package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bottlespin/bottlespin-backend/api/responses"
	"github.com/bottlespin/bottlespin-backend/api/validators"
	"github.com/bottlespin/bottlespin-backend/internal/ledger"
	"github.com/bottlespin/bottlespin-backend/internal/scans"
	pkgerrors "github.com/bottlespin/bottlespin-backend/pkg/errors"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
)

// AdminPendingScans lists pending scan requests with submitter identity for review.
func AdminPendingScans(svc scans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan service unavailable"))
			return
		}

		pending, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": pending, "count": len(pending)})
	}
}

type resolveScanRequest struct {
	Decision string  `json:"decision" validate:"required,oneof=approve reject"`
	Comment  *string `json:"comment" validate:"omitempty,max=1024"`
}

// AdminResolveScan applies an approve/reject decision to a pending request.
func AdminResolveScan(svc scans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan service unavailable"))
			return
		}

		reviewerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request id"))
			return
		}

		var body resolveScanRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Resolve(r.Context(), scans.ResolveInput{
			RequestID:  requestID,
			ReviewerID: reviewerID,
			Decision:   scans.Decision(body.Decision),
			Comment:    body.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type registerCodeRequest struct {
	CodeID string           `json:"code_id" validate:"omitempty,max=128"`
	Kind   string           `json:"kind" validate:"omitempty,max=64"`
	Value  *decimal.Decimal `json:"value"`
	Size   *string          `json:"size" validate:"omitempty,max=32"`
}

// AdminRegisterCode pre-registers a printable QR code and returns its payload.
func AdminRegisterCode(svc scans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan service unavailable"))
			return
		}

		var body registerCodeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.Value != nil && body.Value.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "value must not be negative"))
			return
		}

		result, err := svc.RegisterCode(r.Context(), scans.RegisterCodeInput{
			CodeID: strings.TrimSpace(body.CodeID),
			Kind:   body.Kind,
			Value:  body.Value,
			Size:   body.Size,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type manualReturnRequest struct {
	UserID      string           `json:"user_id" validate:"required,uuid"`
	Count       int              `json:"count" validate:"required,gt=0,max=1000"`
	Value       *decimal.Decimal `json:"value"`
	Size        *string          `json:"size" validate:"omitempty,max=32"`
	Description string           `json:"description" validate:"omitempty,max=512"`
}

// AdminManualReturn records a bottle return entered at the counter without a scan.
func AdminManualReturn(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var body manualReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := uuid.Parse(body.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		value := decimal.NewFromInt(1)
		if body.Value != nil {
			if body.Value.IsNegative() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "value must not be negative"))
				return
			}
			value = *body.Value
		}

		ret, err := svc.RecordManualReturn(r.Context(), ledger.ManualReturnInput{
			UserID:      userID,
			Count:       body.Count,
			Value:       value,
			Size:        body.Size,
			Description: body.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ret)
	}
}
