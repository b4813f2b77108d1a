package controllers

import (
	"net/http"

	"github.com/praxisworks/accounts-backend/api/middleware"
	"github.com/praxisworks/accounts-backend/api/responses"
	"github.com/praxisworks/accounts-backend/internal/users"
	pkgerrors "github.com/praxisworks/accounts-backend/pkg/errors"
	"github.com/praxisworks/accounts-backend/pkg/logger"
)

// Me returns the authenticated caller's own profile.
func Me(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		id, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		profile, err := svc.Get(r.Context(), id.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}
