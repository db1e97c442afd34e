package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pixelvault/pixelvault-backend/api/middleware"
	"github.com/pixelvault/pixelvault-backend/api/responses"
	"github.com/pixelvault/pixelvault-backend/api/validators"
	adminsvc "github.com/pixelvault/pixelvault-backend/internal/admin"
	"github.com/pixelvault/pixelvault-backend/pkg/enums"
	pkgerrors "github.com/pixelvault/pixelvault-backend/pkg/errors"
	"github.com/pixelvault/pixelvault-backend/pkg/logger"
	"github.com/pixelvault/pixelvault-backend/pkg/pagination"
)

// AdminListUsers pages through every account. Admin only.
func AdminListUsers(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		actorID := middleware.UserIDFromContext(r.Context())
		if actorID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListUsers(r.Context(), actorID, pagination.Params{
			Limit:  limit,
			Cursor: validators.SanitizeString(r.URL.Query().Get("cursor"), 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// AdminChangeUserRole transitions a target account's role. Admin only; the
// service enforces the self-change and admin-target guards.
func AdminChangeUserRole(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		actorID := middleware.UserIDFromContext(r.Context())
		if actorID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		targetID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload changeRoleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.ChangeRole(r.Context(), adminsvc.ChangeRoleInput{
			ActorID:  actorID,
			TargetID: targetID,
			NewRole:  enums.Role(payload.Role),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}
