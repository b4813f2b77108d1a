package userroles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/praxisworks/accounts-backend/pkg/db/models"
	"github.com/praxisworks/accounts-backend/pkg/enums"
	pkgerrors "github.com/praxisworks/accounts-backend/pkg/errors"
	"github.com/praxisworks/accounts-backend/pkg/outbox"
)

type rolesRepository interface {
	ListRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRole, error)
	Grant(ctx context.Context, userID uuid.UUID, role enums.Role) (bool, error)
	Revoke(ctx context.Context, userID uuid.UUID, role enums.Role) (int64, error)
	WithTx(tx *gorm.DB) *Repository
}

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies the authenticated caller for audit payloads.
type Actor struct {
	ID    uuid.UUID
	Roles []enums.Role
}

// Service exposes role-assignment administration.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]enums.Role, error)
	Grant(ctx context.Context, actor Actor, userID uuid.UUID, role enums.Role) ([]enums.Role, error)
	Revoke(ctx context.Context, actor Actor, userID uuid.UUID, role enums.Role) ([]enums.Role, error)
}

type service struct {
	repo   rolesRepository
	users  usersRepository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds a user-roles service with the provided dependencies.
func NewService(repo rolesRepository, users usersRepository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("roles repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, users: users, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]enums.Role, error) {
	if err := s.ensureUserExists(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListRoles(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list roles")
	}
	return toRoles(rows), nil
}

// Grant assigns the role. A repeat grant is a no-op that still returns
// the current assignments.
func (s *service) Grant(ctx context.Context, actor Actor, userID uuid.UUID, role enums.Role) ([]enums.Role, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}
	if err := s.ensureUserExists(ctx, userID); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		created, err := repo.Grant(ctx, userID, role)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant role")
		}
		if !created {
			return nil
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventRoleGranted,
			AggregateType: enums.AggregateRoleAssignment,
			AggregateID:   userID,
			Actor:         buildActor(actor),
			Data: map[string]any{
				"user_id": userID.String(),
				"role":    role.String(),
			},
			Version: 1,
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	return s.currentRoles(ctx, userID)
}

// Revoke removes the assignment. Revoking a role the user does not hold
// is a no-op.
func (s *service) Revoke(ctx context.Context, actor Actor, userID uuid.UUID, role enums.Role) ([]enums.Role, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}
	if err := s.ensureUserExists(ctx, userID); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		removed, err := repo.Revoke(ctx, userID, role)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke role")
		}
		if removed == 0 {
			return nil
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventRoleRevoked,
			AggregateType: enums.AggregateRoleAssignment,
			AggregateID:   userID,
			Actor:         buildActor(actor),
			Data: map[string]any{
				"user_id": userID.String(),
				"role":    role.String(),
			},
			Version: 1,
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	return s.currentRoles(ctx, userID)
}

func (s *service) ensureUserExists(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find user")
	}
	return nil
}

func (s *service) currentRoles(ctx context.Context, userID uuid.UUID) ([]enums.Role, error) {
	rows, err := s.repo.ListRoles(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list roles")
	}
	return toRoles(rows), nil
}

func toRoles(rows []models.UserRole) []enums.Role {
	roles := make([]enums.Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.Role)
	}
	return roles
}

func buildActor(actor Actor) *outbox.ActorRef {
	if actor.ID == uuid.Nil {
		return nil
	}
	roles := make([]string, 0, len(actor.Roles))
	for _, role := range actor.Roles {
		roles = append(roles, role.String())
	}
	return &outbox.ActorRef{UserID: actor.ID, Roles: roles}
}
