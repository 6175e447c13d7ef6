package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bottlespin/bottlespin-backend/api/middleware"
	"github.com/bottlespin/bottlespin-backend/api/responses"
	"github.com/bottlespin/bottlespin-backend/api/validators"
	"github.com/bottlespin/bottlespin-backend/internal/scans"
	pkgerrors "github.com/bottlespin/bottlespin-backend/pkg/errors"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
	"github.com/bottlespin/bottlespin-backend/pkg/pagination"
)

type scanSubmitRequest struct {
	Code string `json:"code" validate:"required,max=2048"`
}

// ScanSubmit accepts a member's scanned QR payload for review.
func ScanSubmit(svc scans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body scanSubmitRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), scans.SubmitInput{UserID: userID, RawCode: body.Code})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Status == scans.SubmitStatusAlreadyPending {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// ScanListMine returns the caller's scan history, newest first.
func ScanListMine(svc scans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, pageInfo, err := svc.ListMine(r.Context(), userID, pagination.Params{Page: page, Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"items":      items,
			"pagination": pageInfo,
		})
	}
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid caller identity")
	}
	return id, nil
}
