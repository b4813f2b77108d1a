package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/praxisworks/accounts-backend/api/responses"
	"github.com/praxisworks/accounts-backend/api/validators"
	"github.com/praxisworks/accounts-backend/internal/identity"
	"github.com/praxisworks/accounts-backend/internal/provisioning"
	pkgerrors "github.com/praxisworks/accounts-backend/pkg/errors"
	"github.com/praxisworks/accounts-backend/pkg/logger"
	"github.com/praxisworks/accounts-backend/pkg/metrics"
)

// AccountResolver maps verified token claims to a local account,
// provisioning one on first login.
type AccountResolver interface {
	ResolveOrProvision(ctx context.Context, claims *identity.Claims) (*provisioning.Account, error)
}

// Auth verifies the bearer token, resolves the subject to a local user
// (provisioning one on first login), and seeds the request context with
// the identity. Every authentication failure produces the same 401.
func Auth(verifier identity.Verifier, resolver AccountResolver, gm *metrics.GuardMetrics, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := validators.BearerToken(r)
			if token == "" {
				gm.ObserveAuthn("missing_credentials")
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			start := time.Now()
			claims, err := verifier.Verify(r.Context(), token)
			gm.ObserveVerifyDuration(time.Since(start))
			if err != nil {
				gm.ObserveAuthn("invalid_token")
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			account, err := resolver.ResolveOrProvision(r.Context(), claims)
			if err != nil {
				gm.ObserveAuthn("resolve_failed")
				// dependency failures and directory conflicts keep their
				// own status; everything identity-shaped collapses into
				// the uniform 401
				if typed := pkgerrors.As(err); typed != nil &&
					(typed.Code() == pkgerrors.CodeDependency || typed.Code() == pkgerrors.CodeConflict) {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			gm.ObserveAuthn("ok")

			id := Identity{
				UserID:      account.UserID,
				ProviderUID: claims.Subject,
				Email:       account.Email,
				Roles:       account.Roles,
			}

			ctx := WithIdentity(r.Context(), id)
			if logg != nil {
				ctx = logg.WithUserID(ctx, account.UserID.String())
				ctx = logg.WithProviderUID(ctx, claims.Subject)
				ctx = logg.WithActorRoles(ctx, roleStrings(account.Roles))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
