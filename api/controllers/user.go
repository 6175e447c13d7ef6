package controllers

import (
	"net/http"

	"github.com/bottlespin/bottlespin-backend/api/responses"
	"github.com/bottlespin/bottlespin-backend/internal/stats"
	pkgerrors "github.com/bottlespin/bottlespin-backend/pkg/errors"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
)

// UserMetrics returns the caller's recycling totals, balance and rank.
func UserMetrics(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		metrics, err := svc.Metrics(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, metrics)
	}
}

// UserActivity returns the caller's most recent bottle returns.
func UserActivity(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activity, err := svc.Activity(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": activity})
	}
}
