package controllers

import (
	"net/http"

	"github.com/bottlespin/bottlespin-backend/api/responses"
	"github.com/bottlespin/bottlespin-backend/api/validators"
	"github.com/bottlespin/bottlespin-backend/internal/stats"
	pkgerrors "github.com/bottlespin/bottlespin-backend/pkg/errors"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
	"github.com/bottlespin/bottlespin-backend/pkg/pagination"
)

// Leaderboard returns the rank-ordered top recyclers.
func Leaderboard(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		top, err := svc.TopUsers(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": top})
	}
}
