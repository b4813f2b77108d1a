package userroles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/praxisworks/accounts-backend/internal/users"
	"github.com/praxisworks/accounts-backend/pkg/enums"
	pkgerrors "github.com/praxisworks/accounts-backend/pkg/errors"
	"github.com/praxisworks/accounts-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit outside transaction")
	}
	r.events = append(r.events, event)
	return nil
}

func newRolesServiceSetup(t *testing.T) (Service, *gorm.DB, *recordingOutbox) {
	t.Helper()

	db := setupRolesTestDB(t)
	sink := &recordingOutbox{}
	svc, err := NewService(NewRepository(db), users.NewRepository(db), gormTxRunner{db: db}, sink)
	require.NoError(t, err)
	return svc, db, sink
}

func TestServiceGrantAssignsRoleAndEmits(t *testing.T) {
	svc, db, sink := newRolesServiceSetup(t)

	user := seedRoleUser(t, db, "svc-grant-1", "svcgrant1@example.com")
	actor := Actor{ID: uuid.New(), Roles: []enums.Role{enums.RoleSuperAdmin}}

	roles, err := svc.Grant(context.Background(), actor, user.ID, enums.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, []enums.Role{enums.RoleModerator}, roles)

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, enums.EventRoleGranted, event.EventType)
	assert.Equal(t, enums.AggregateRoleAssignment, event.AggregateType)
	assert.Equal(t, user.ID, event.AggregateID)
}

func TestServiceGrantRepeatIsNoOp(t *testing.T) {
	svc, db, sink := newRolesServiceSetup(t)

	user := seedRoleUser(t, db, "svc-grant-2", "svcgrant2@example.com")

	_, err := svc.Grant(context.Background(), Actor{}, user.ID, enums.RoleModerator)
	require.NoError(t, err)

	roles, err := svc.Grant(context.Background(), Actor{}, user.ID, enums.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, []enums.Role{enums.RoleModerator}, roles)

	// second grant created no row, so only one event
	require.Len(t, sink.events, 1)
}

func TestServiceGrantInvalidRole(t *testing.T) {
	svc, db, _ := newRolesServiceSetup(t)

	user := seedRoleUser(t, db, "svc-grant-3", "svcgrant3@example.com")

	_, err := svc.Grant(context.Background(), Actor{}, user.ID, enums.Role("owner"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestServiceGrantUnknownUser(t *testing.T) {
	svc, _, _ := newRolesServiceSetup(t)

	_, err := svc.Grant(context.Background(), Actor{}, uuid.New(), enums.RoleModerator)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestServiceRevokeRemovesRoleAndEmits(t *testing.T) {
	svc, db, sink := newRolesServiceSetup(t)

	user := seedRoleUser(t, db, "svc-revoke-1", "svcrevoke1@example.com")

	_, err := svc.Grant(context.Background(), Actor{}, user.ID, enums.RoleModerator)
	require.NoError(t, err)
	_, err = svc.Grant(context.Background(), Actor{}, user.ID, enums.RoleGuest)
	require.NoError(t, err)

	roles, err := svc.Revoke(context.Background(), Actor{ID: uuid.New()}, user.ID, enums.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, []enums.Role{enums.RoleGuest}, roles)

	require.Len(t, sink.events, 3)
	assert.Equal(t, enums.EventRoleRevoked, sink.events[2].EventType)
}

func TestServiceRevokeAbsentRoleIsNoOp(t *testing.T) {
	svc, db, sink := newRolesServiceSetup(t)

	user := seedRoleUser(t, db, "svc-revoke-2", "svcrevoke2@example.com")

	roles, err := svc.Revoke(context.Background(), Actor{}, user.ID, enums.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Empty(t, roles)
	assert.Empty(t, sink.events)
}

func TestServiceListReturnsRolesInGrantOrder(t *testing.T) {
	svc, db, _ := newRolesServiceSetup(t)

	user := seedRoleUser(t, db, "svc-list-1", "svclist1@example.com")

	_, err := svc.Grant(context.Background(), Actor{}, user.ID, enums.RoleGuest)
	require.NoError(t, err)
	_, err = svc.Grant(context.Background(), Actor{}, user.ID, enums.RoleSuperAdmin)
	require.NoError(t, err)

	roles, err := svc.List(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []enums.Role{enums.RoleGuest, enums.RoleSuperAdmin}, roles)
}

func TestServiceListUnknownUser(t *testing.T) {
	svc, _, _ := newRolesServiceSetup(t)

	_, err := svc.List(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
