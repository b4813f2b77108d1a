package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/praxisworks/accounts-backend/api/controllers"
	"github.com/praxisworks/accounts-backend/internal/identity"
	"github.com/praxisworks/accounts-backend/internal/provisioning"
	"github.com/praxisworks/accounts-backend/internal/userroles"
	"github.com/praxisworks/accounts-backend/internal/users"
	"github.com/praxisworks/accounts-backend/pkg/config"
	"github.com/praxisworks/accounts-backend/pkg/enums"
	pkgerrors "github.com/praxisworks/accounts-backend/pkg/errors"
	"github.com/praxisworks/accounts-backend/pkg/logger"
)

const (
	testSecret = "router-test-secret"
	testIssuer = "accounts-dev"
)

type stubResolver struct {
	roles []enums.Role
}

func (s stubResolver) ResolveOrProvision(ctx context.Context, claims *identity.Claims) (*provisioning.Account, error) {
	return &provisioning.Account{
		UserID: uuid.New(),
		Email:  claims.Email,
		Roles:  s.roles,
	}, nil
}

type stubUsersService struct{}

func (stubUsersService) Get(ctx context.Context, id uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: id, Email: "a@foo.com"}, nil
}

func (stubUsersService) List(ctx context.Context, params users.ListParams) (*users.ListResult, error) {
	return &users.ListResult{}, nil
}

func (stubUsersService) Update(ctx context.Context, actor users.Actor, id uuid.UUID, input users.UpdateUserInput) (*users.UserDTO, error) {
	return &users.UserDTO{ID: id}, nil
}

func (stubUsersService) Delete(ctx context.Context, actor users.Actor, id uuid.UUID) error {
	return nil
}

type stubRolesService struct{}

func (stubRolesService) List(ctx context.Context, userID uuid.UUID) ([]enums.Role, error) {
	return []enums.Role{enums.RoleGuest}, nil
}

func (stubRolesService) Grant(ctx context.Context, actor userroles.Actor, userID uuid.UUID, role enums.Role) ([]enums.Role, error) {
	return []enums.Role{enums.RoleGuest, role}, nil
}

func (stubRolesService) Revoke(ctx context.Context, actor userroles.Actor, userID uuid.UUID, role enums.Role) ([]enums.Role, error) {
	return []enums.Role{enums.RoleGuest}, nil
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func newTestRouter(t *testing.T, roles []enums.Role) http.Handler {
	t.Helper()
	verifier, err := identity.NewStaticVerifier(testSecret, testIssuer, "")
	if err != nil {
		t.Fatalf("build verifier: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:       testConfig(),
		Logger:       logg,
		Verifier:     verifier,
		Provisioner:  stubResolver{roles: roles},
		UsersService: stubUsersService{},
		RolesService: stubRolesService{},
	})
}

func buildToken(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   subject,
		"iss":   testIssuer,
		"email": subject + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestPublicPingNeedsNoToken(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingToken(t *testing.T) {
	router := newTestRouter(t, []enums.Role{enums.RoleGuest})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsGarbageToken(t *testing.T) {
	router := newTestRouter(t, []enums.Role{enums.RoleGuest})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithToken(t *testing.T) {
	router := newTestRouter(t, []enums.Role{enums.RoleGuest})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, "uid-ping"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestMeOpenToAnyAuthenticatedCaller(t *testing.T) {
	router := newTestRouter(t, []enums.Role{enums.RoleGuest})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, "uid-me"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for me got %d", resp.Code)
	}
}

func TestListUsersRequiresModeratorRole(t *testing.T) {
	guest := newTestRouter(t, []enums.Role{enums.RoleGuest})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, "uid-guest"))
	resp := httptest.NewRecorder()
	guest.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for guest got %d", resp.Code)
	}

	moderator := newTestRouter(t, []enums.Role{enums.RoleModerator})
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, "uid-mod"))
	resp = httptest.NewRecorder()
	moderator.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for moderator got %d", resp.Code)
	}
}

func TestUpdateUserRequiresSuperadminRole(t *testing.T) {
	target := uuid.NewString()
	body := `{"first_name":"Ada"}`

	moderator := newTestRouter(t, []enums.Role{enums.RoleModerator})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/"+target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, "uid-mod"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	moderator.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for moderator got %d", resp.Code)
	}

	superadmin := newTestRouter(t, []enums.Role{enums.RoleSuperAdmin})
	req = httptest.NewRequest(http.MethodPatch, "/api/v1/users/"+target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, "uid-super"))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	superadmin.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for superadmin got %d", resp.Code)
	}
}

func TestDeleteUserRequiresSuperadminRole(t *testing.T) {
	target := uuid.NewString()

	moderator := newTestRouter(t, []enums.Role{enums.RoleModerator})
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+target, nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, "uid-mod"))
	resp := httptest.NewRecorder()
	moderator.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for moderator got %d", resp.Code)
	}

	superadmin := newTestRouter(t, []enums.Role{enums.RoleSuperAdmin})
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+target, nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, "uid-super"))
	resp = httptest.NewRecorder()
	superadmin.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for superadmin got %d", resp.Code)
	}
}

func TestGrantRoleAllowsModerator(t *testing.T) {
	target := uuid.NewString()
	body := `{"role":"moderator"}`

	moderator := newTestRouter(t, []enums.Role{enums.RoleModerator})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/"+target+"/role", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, "uid-mod"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	moderator.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for moderator grant got %d", resp.Code)
	}
}

func TestRevokeRoleRequiresSuperadmin(t *testing.T) {
	target := uuid.NewString()

	moderator := newTestRouter(t, []enums.Role{enums.RoleModerator})
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+target+"/role/moderator", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, "uid-mod"))
	resp := httptest.NewRecorder()
	moderator.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for moderator revoke got %d", resp.Code)
	}

	superadmin := newTestRouter(t, []enums.Role{enums.RoleSuperAdmin})
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+target+"/role/moderator", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, "uid-super"))
	resp = httptest.NewRecorder()
	superadmin.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for superadmin revoke got %d", resp.Code)
	}
}

func TestReadyReportsDependencyFailure(t *testing.T) {
	verifier, err := identity.NewStaticVerifier(testSecret, testIssuer, "")
	if err != nil {
		t.Fatalf("build verifier: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test-routing", Output: io.Discard})
	router := NewRouter(RouterParams{
		Config:       testConfig(),
		Logger:       logg,
		Verifier:     verifier,
		Provisioner:  stubResolver{},
		UsersService: stubUsersService{},
		RolesService: stubRolesService{},
		ReadyChecks: map[string]controllers.Pinger{
			"database": stubPinger{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for failing dependency got %d", resp.Code)
	}
}
