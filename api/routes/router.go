package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/praxisworks/accounts-backend/api/controllers"
	"github.com/praxisworks/accounts-backend/api/middleware"
	"github.com/praxisworks/accounts-backend/internal/identity"
	"github.com/praxisworks/accounts-backend/internal/userroles"
	"github.com/praxisworks/accounts-backend/internal/users"
	"github.com/praxisworks/accounts-backend/pkg/config"
	"github.com/praxisworks/accounts-backend/pkg/enums"
	"github.com/praxisworks/accounts-backend/pkg/logger"
	"github.com/praxisworks/accounts-backend/pkg/metrics"
	"github.com/praxisworks/accounts-backend/pkg/redis"
)

// RouterParams packages the dependencies wired into the HTTP surface.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	Verifier     identity.Verifier
	Provisioner  middleware.AccountResolver
	UsersService users.Service
	RolesService userroles.Service
	Redis        *redis.Client
	Metrics      *metrics.GuardMetrics
	Gatherer     prometheus.Gatherer
	ReadyChecks  map[string]controllers.Pinger
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.ReadyChecks))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	apiPolicy := middleware.NewRateLimitPolicy(
		"api",
		p.Config.RateLimit.Window,
		p.Config.RateLimit.IPLimit,
	)

	moderatorOrAbove := []enums.Role{enums.RoleModerator, enums.RoleSuperAdmin}
	superadminOnly := []enums.Role{enums.RoleSuperAdmin}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(apiPolicy, p.Redis, p.Logger))
		r.Use(middleware.Auth(p.Verifier, p.Provisioner, p.Metrics, p.Logger))

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/me", controllers.Me(p.UsersService, p.Logger))

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.RequireAnyRole(p.Metrics, p.Logger, moderatorOrAbove...)).
				Get("/", controllers.ListUsers(p.UsersService, p.Logger))

			r.Route("/{userId}", func(r chi.Router) {
				r.With(middleware.RequireAnyRole(p.Metrics, p.Logger, moderatorOrAbove...)).
					Get("/", controllers.GetUser(p.UsersService, p.Logger))
				r.With(middleware.RequireAnyRole(p.Metrics, p.Logger, superadminOnly...)).
					Patch("/", controllers.UpdateUser(p.UsersService, p.Logger))
				r.With(middleware.RequireAnyRole(p.Metrics, p.Logger, superadminOnly...)).
					Delete("/", controllers.DeleteUser(p.UsersService, p.Logger))

				r.With(middleware.RequireAnyRole(p.Metrics, p.Logger, moderatorOrAbove...)).
					Get("/roles", controllers.ListUserRoles(p.RolesService, p.Logger))
				r.With(middleware.RequireAnyRole(p.Metrics, p.Logger, moderatorOrAbove...)).
					Patch("/role", controllers.GrantUserRole(p.RolesService, p.Logger))
				r.With(middleware.RequireAnyRole(p.Metrics, p.Logger, superadminOnly...)).
					Delete("/role/{role}", controllers.RevokeUserRole(p.RolesService, p.Logger))
			})
		})
	})

	return r
}
