package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/praxisworks/accounts-backend/internal/identity"
	"github.com/praxisworks/accounts-backend/internal/userroles"
	"github.com/praxisworks/accounts-backend/internal/users"
	dbpkg "github.com/praxisworks/accounts-backend/pkg/db"
	"github.com/praxisworks/accounts-backend/pkg/db/models"
	"github.com/praxisworks/accounts-backend/pkg/enums"
	pkgerrors "github.com/praxisworks/accounts-backend/pkg/errors"
	"github.com/praxisworks/accounts-backend/pkg/logger"
	"github.com/praxisworks/accounts-backend/pkg/metrics"
	"github.com/praxisworks/accounts-backend/pkg/outbox"
)

type usersRepository interface {
	FindByProviderUID(ctx context.Context, providerUID string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	WithTx(tx *gorm.DB) *users.Repository
}

type rolesRepository interface {
	ListRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRole, error)
	Grant(ctx context.Context, userID uuid.UUID, role enums.Role) (bool, error)
	WithTx(tx *gorm.DB) *userroles.Repository
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Account is the resolved local identity attached to each request.
type Account struct {
	UserID uuid.UUID
	Email  string
	Roles  []enums.Role
}

// Service resolves a verified token's subject to a local user, creating
// the user with the default role on first login.
type Service struct {
	users   usersRepository
	roles   rolesRepository
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.GuardMetrics
	logg    *logger.Logger
}

// NewService builds a provisioning service with the provided dependencies.
func NewService(usersRepo usersRepository, rolesRepo rolesRepository, tx txRunner, outboxSvc outboxPublisher, gm *metrics.GuardMetrics, logg *logger.Logger) (*Service, error) {
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if rolesRepo == nil {
		return nil, fmt.Errorf("roles repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Service{
		users:   usersRepo,
		roles:   rolesRepo,
		tx:      tx,
		outbox:  outboxSvc,
		metrics: gm,
		logg:    logg,
	}, nil
}

// ResolveOrProvision maps verified claims to a local account. A subject
// seen for the first time gets a user row plus the default role in one
// transaction. A concurrent first login racing on the unique index is
// resolved by re-fetching the winner's row.
func (s *Service) ResolveOrProvision(ctx context.Context, claims *identity.Claims) (*Account, error) {
	if claims == nil || claims.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token subject missing")
	}

	user, err := s.users.FindByProviderUID(ctx, claims.Subject)
	switch {
	case err == nil:
		return s.withDefaultRoleBackfill(ctx, user)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first login, fall through to provisioning
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find user by provider uid")
	}

	email := users.NormalizeEmail(claims.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token email missing")
	}
	firstName, lastName := users.SplitName(claims.Name)

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		usersRepo := s.users.WithTx(tx)
		rolesRepo := s.roles.WithTx(tx)

		u, err := usersRepo.Create(ctx, users.CreateUserDTO{
			ProviderUID: claims.Subject,
			Email:       email,
			FirstName:   firstName,
			LastName:    lastName,
		})
		if err != nil {
			return err
		}
		if _, err := rolesRepo.Grant(ctx, u.ID, enums.DefaultRole); err != nil {
			return err
		}
		created = u

		event := outbox.DomainEvent{
			EventType:     enums.EventUserProvisioned,
			AggregateType: enums.AggregateUser,
			AggregateID:   u.ID,
			Data: map[string]any{
				"user_id":      u.ID.String(),
				"provider_uid": u.ProviderUID,
				"email":        u.Email,
				"default_role": enums.DefaultRole.String(),
			},
			Version: 1,
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		switch {
		case dbpkg.IsProviderUIDConflict(err):
			// lost the first-login race; the winner's row is authoritative
			winner, ferr := s.users.FindByProviderUID(ctx, claims.Subject)
			if ferr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "refetch user after unique violation")
			}
			return s.withDefaultRoleBackfill(ctx, winner)
		case dbpkg.IsEmailConflict(err):
			// a different subject already owns this address
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provision user")
	}

	s.metrics.IncProvisioned()
	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, created.ID.String())
		s.logg.Info(logCtx, "user provisioned on first login")
	}

	return &Account{
		UserID: created.ID,
		Email:  created.Email,
		Roles:  []enums.Role{enums.DefaultRole},
	}, nil
}

// withDefaultRoleBackfill returns the account for an existing user,
// assigning the default role first when the user holds none.
func (s *Service) withDefaultRoleBackfill(ctx context.Context, user *models.User) (*Account, error) {
	roles := make([]enums.Role, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, r.Role)
	}

	if len(roles) == 0 {
		if _, err := s.roles.Grant(ctx, user.ID, enums.DefaultRole); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backfill default role")
		}
		rows, err := s.roles.ListRoles(ctx, user.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list roles after backfill")
		}
		for _, row := range rows {
			roles = append(roles, row.Role)
		}
	}

	return &Account{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  roles,
	}, nil
}
