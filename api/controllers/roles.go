package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/praxisworks/accounts-backend/api/middleware"
	"github.com/praxisworks/accounts-backend/api/responses"
	"github.com/praxisworks/accounts-backend/api/validators"
	"github.com/praxisworks/accounts-backend/internal/userroles"
	"github.com/praxisworks/accounts-backend/pkg/enums"
	pkgerrors "github.com/praxisworks/accounts-backend/pkg/errors"
	"github.com/praxisworks/accounts-backend/pkg/logger"
)

// ListUserRoles returns the user's role assignments.
func ListUserRoles(svc userroles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roles, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"roles": roles})
	}
}

type grantRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=guest moderator superadmin"`
}

// GrantUserRole assigns a role to the user. Granting a role the user
// already holds succeeds without change.
func GrantUserRole(svc userroles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req grantRoleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseRole(req.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}

		roles, err := svc.Grant(r.Context(), roleActorFromContext(r), userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"roles": roles})
	}
}

// RevokeUserRole removes a role assignment. Revoking an absent role is
// a no-op.
func RevokeUserRole(svc userroles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseRole(chi.URLParam(r, "role"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}

		roles, err := svc.Revoke(r.Context(), roleActorFromContext(r), userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"roles": roles})
	}
}

func roleActorFromContext(r *http.Request) userroles.Actor {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return userroles.Actor{}
	}
	return userroles.Actor{ID: id.UserID, Roles: id.Roles}
}
