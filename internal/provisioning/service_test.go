package provisioning

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/praxisworks/accounts-backend/internal/identity"
	"github.com/praxisworks/accounts-backend/internal/userroles"
	"github.com/praxisworks/accounts-backend/internal/users"
	"github.com/praxisworks/accounts-backend/pkg/db/models"
	"github.com/praxisworks/accounts-backend/pkg/enums"
	pkgerrors "github.com/praxisworks/accounts-backend/pkg/errors"
	"github.com/praxisworks/accounts-backend/pkg/outbox"
)

func setupProvisioningTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	usersDDL := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  provider_uid TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  phone TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	userRolesDDL := `
CREATE TABLE IF NOT EXISTS user_roles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, role)
);`
	require.NoError(t, db.Exec(usersDDL).Error)
	require.NoError(t, db.Exec(userRolesDDL).Error)
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// racingTxRunner inserts a competing row before running the transaction,
// simulating a concurrent first login that wins the unique-index race.
type racingTxRunner struct {
	db     *gorm.DB
	winner *models.User
}

func (r *racingTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.winner != nil {
		if err := r.db.Create(r.winner).Error; err != nil {
			return err
		}
		r.winner = nil
	}
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

func newProvisioningSetup(t *testing.T) (*Service, *gorm.DB, *recordingOutbox) {
	t.Helper()

	db := setupProvisioningTestDB(t)
	sink := &recordingOutbox{}
	svc, err := NewService(
		users.NewRepository(db),
		userroles.NewRepository(db),
		gormTxRunner{db: db},
		sink,
		nil,
		nil,
	)
	require.NoError(t, err)
	return svc, db, sink
}

func TestResolveOrProvisionFirstLogin(t *testing.T) {
	svc, db, sink := newProvisioningSetup(t)

	account, err := svc.ResolveOrProvision(context.Background(), &identity.Claims{
		Subject: "first-login-1",
		Email:   "A@Foo.com",
		Name:    "Ada Lovelace King",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, account.UserID)
	assert.Equal(t, "a@foo.com", account.Email)
	assert.Equal(t, []enums.Role{enums.RoleGuest}, account.Roles)

	var user models.User
	require.NoError(t, db.Preload("Roles").First(&user, "provider_uid = ?", "first-login-1").Error)
	assert.Equal(t, "a@foo.com", user.Email)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "Lovelace King", user.LastName)
	require.Len(t, user.Roles, 1)
	assert.Equal(t, enums.RoleGuest, user.Roles[0].Role)

	require.Len(t, sink.events, 1)
	assert.Equal(t, enums.EventUserProvisioned, sink.events[0].EventType)
	assert.Equal(t, user.ID, sink.events[0].AggregateID)
}

func TestResolveOrProvisionSecondLoginIsIdempotent(t *testing.T) {
	svc, _, sink := newProvisioningSetup(t)
	claims := &identity.Claims{
		Subject: "second-login-1",
		Email:   "second1@example.com",
		Name:    "Grace Hopper",
	}

	first, err := svc.ResolveOrProvision(context.Background(), claims)
	require.NoError(t, err)

	second, err := svc.ResolveOrProvision(context.Background(), claims)
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, first.Roles, second.Roles)
	// only the first login provisions
	require.Len(t, sink.events, 1)
}

func TestResolveOrProvisionMissingEmail(t *testing.T) {
	svc, _, _ := newProvisioningSetup(t)

	_, err := svc.ResolveOrProvision(context.Background(), &identity.Claims{
		Subject: "no-email-1",
		Email:   "   ",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestResolveOrProvisionMissingSubject(t *testing.T) {
	svc, _, _ := newProvisioningSetup(t)

	_, err := svc.ResolveOrProvision(context.Background(), &identity.Claims{Email: "x@example.com"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestResolveOrProvisionSingleTokenName(t *testing.T) {
	svc, db, _ := newProvisioningSetup(t)

	_, err := svc.ResolveOrProvision(context.Background(), &identity.Claims{
		Subject: "single-name-1",
		Email:   "single1@example.com",
		Name:    "Cher",
	})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user, "provider_uid = ?", "single-name-1").Error)
	assert.Equal(t, "Cher", user.FirstName)
	assert.Equal(t, "", user.LastName)
}

func TestResolveOrProvisionBackfillsDefaultRole(t *testing.T) {
	svc, db, _ := newProvisioningSetup(t)

	// user exists from an import, without any role assignment
	imported := &models.User{
		ID:          uuid.New(),
		ProviderUID: "imported-1",
		Email:       "imported1@example.com",
	}
	require.NoError(t, db.Create(imported).Error)

	account, err := svc.ResolveOrProvision(context.Background(), &identity.Claims{
		Subject: "imported-1",
		Email:   "imported1@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, imported.ID, account.UserID)
	assert.Equal(t, []enums.Role{enums.RoleGuest}, account.Roles)
}

func TestResolveOrProvisionKeepsExistingRoles(t *testing.T) {
	svc, db, _ := newProvisioningSetup(t)

	existing := &models.User{
		ID:          uuid.New(),
		ProviderUID: "existing-roles-1",
		Email:       "existingroles1@example.com",
	}
	require.NoError(t, db.Create(existing).Error)
	require.NoError(t, db.Create(&models.UserRole{
		ID:     uuid.New(),
		UserID: existing.ID,
		Role:   enums.RoleSuperAdmin,
	}).Error)

	account, err := svc.ResolveOrProvision(context.Background(), &identity.Claims{
		Subject: "existing-roles-1",
		Email:   "existingroles1@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, []enums.Role{enums.RoleSuperAdmin}, account.Roles)
}

func TestResolveOrProvisionRecoversFromUniqueRace(t *testing.T) {
	db := setupProvisioningTestDB(t)
	sink := &recordingOutbox{}

	winner := &models.User{
		ID:          uuid.New(),
		ProviderUID: "race-1",
		Email:       "race1@example.com",
	}
	runner := &racingTxRunner{db: db, winner: winner}
	svc, err := NewService(
		users.NewRepository(db),
		userroles.NewRepository(db),
		runner,
		sink,
		nil,
		nil,
	)
	require.NoError(t, err)

	account, err := svc.ResolveOrProvision(context.Background(), &identity.Claims{
		Subject: "race-1",
		Email:   "race1@example.com",
		Name:    "Race Loser",
	})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, account.UserID)

	// the losing transaction must not have produced a provisioned event
	for _, event := range sink.events {
		assert.NotEqual(t, enums.EventUserProvisioned, event.EventType)
	}

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("provider_uid = ?", "race-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestResolveOrProvisionEmailOwnedByAnotherSubject(t *testing.T) {
	svc, db, sink := newProvisioningSetup(t)

	owner := &models.User{
		ID:          uuid.New(),
		ProviderUID: "owner-1",
		Email:       "shared@example.com",
	}
	require.NoError(t, db.Create(owner).Error)

	_, err := svc.ResolveOrProvision(context.Background(), &identity.Claims{
		Subject: "intruder-2",
		Email:   "Shared@Example.com",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// the conflicting subject must not have been created
	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("provider_uid = ?", "intruder-2").Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.Empty(t, sink.events)
}
