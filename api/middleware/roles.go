package middleware

import (
	"net/http"

	"github.com/praxisworks/accounts-backend/api/responses"
	"github.com/praxisworks/accounts-backend/pkg/enums"
	pkgerrors "github.com/praxisworks/accounts-backend/pkg/errors"
	"github.com/praxisworks/accounts-backend/pkg/logger"
	"github.com/praxisworks/accounts-backend/pkg/metrics"
)

// RequireAnyRole allows the request through when the caller holds at
// least one of the given roles. An empty role list means the route is
// open to any authenticated caller. Requests with no identity in
// context get a 401; authenticated callers without a matching role get
// a 403.
func RequireAnyRole(gm *metrics.GuardMetrics, logg *logger.Logger, roles ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(roles) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			id, ok := IdentityFromContext(r.Context())
			if !ok {
				gm.ObserveAuthzDenial("no_identity")
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			if !id.HasAnyRole(roles...) {
				gm.ObserveAuthzDenial("missing_role")
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func roleStrings(roles []enums.Role) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, role.String())
	}
	return out
}
