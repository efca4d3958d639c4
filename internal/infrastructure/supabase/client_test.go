package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Bearer string
	Prefer string
	Body   map[string]any
}

type fakeProject struct {
	mu    sync.Mutex
	calls []recorded
	srv   *httptest.Server
}

func newFakeProject(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body map[string]any)) (*fakeProject, *Client) {
	t.Helper()
	fp := &fakeProject{}
	fp.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
		fp.mu.Lock()
		fp.calls = append(fp.calls, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			APIKey: r.Header.Get("apikey"),
			Bearer: r.Header.Get("Authorization"),
			Prefer: r.Header.Get("Prefer"),
			Body:   body,
		})
		fp.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		handler(w, r, body)
	}))
	t.Cleanup(fp.srv.Close)

	c := NewClient(Config{URL: fp.srv.URL + "/", AnonKey: "anon", ServiceRoleKey: "service"}, zerolog.Nop())
	return fp, c
}

func (fp *fakeProject) only(t *testing.T) recorded {
	t.Helper()
	fp.mu.Lock()
	defer fp.mu.Unlock()
	require.Len(t, fp.calls, 1)
	return fp.calls[0]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sessionJSON(token string) map[string]any {
	return map[string]any{
		"access_token":  token,
		"refresh_token": "refresh-" + token,
		"expires_at":    time.Now().Add(time.Hour).Unix(),
		"user":          map[string]any{"id": "u1", "email": "a@example.com"},
	}
}

func TestSignIn_PasswordGrant(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, sessionJSON("tok"))
	})

	s, err := c.SignIn(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", s.AccessToken)
	assert.Equal(t, "refresh-tok", s.RefreshToken)
	require.NotNil(t, s.User)
	assert.Equal(t, "u1", s.User.ID)

	call := fp.only(t)
	assert.Equal(t, "/auth/v1/token", call.Path)
	assert.Equal(t, "grant_type=password", call.Query)
	assert.Equal(t, "anon", call.APIKey)
	assert.Equal(t, "Bearer anon", call.Bearer)
	assert.Equal(t, "a@example.com", call.Body["email"])
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	_, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "error_code": "invalid_credentials", "msg": "Invalid login credentials"})
	})

	_, err := c.SignIn(context.Background(), "a@example.com", "nope")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusBadRequest, re.Status)
	assert.Equal(t, "Invalid login credentials", re.Message)
}

func TestSignUp_PendingConfirmation(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "u2", "email": "b@example.com"})
	})

	res, err := c.SignUp(context.Background(), ports.SignUpInput{
		Email:         "b@example.com",
		Password:      "longenough",
		Metadata:      map[string]any{"role": "admin", "is_first_admin": true},
		RedirectTo:    "https://console.example.com/confirm",
		CodeChallenge: "challenge",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Session)
	require.NotNil(t, res.User)
	assert.Equal(t, "u2", res.User.ID)

	call := fp.only(t)
	assert.Equal(t, "/auth/v1/signup", call.Path)
	assert.Contains(t, call.Query, "redirect_to=https%3A%2F%2Fconsole.example.com%2Fconfirm")
	assert.Equal(t, "challenge", call.Body["code_challenge"])
	assert.Equal(t, "s256", call.Body["code_challenge_method"])
	assert.Equal(t, map[string]any{"role": "admin", "is_first_admin": true}, call.Body["data"])
}

func TestSignUp_AutoConfirmedReturnsSession(t *testing.T) {
	_, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, sessionJSON("fresh"))
	})

	res, err := c.SignUp(context.Background(), ports.SignUpInput{Email: "a@example.com", Password: "longenough"})
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, "fresh", res.Session.AccessToken)
	assert.Equal(t, "u1", res.User.ID)
}

func TestSignUp_ExistingUser(t *testing.T) {
	_, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error_code": "user_already_exists", "msg": "User already registered"})
	})

	_, err := c.SignUp(context.Background(), ports.SignUpInput{Email: "a@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestVerifyOTP_SendsExactValues(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, sessionJSON("otp"))
	})

	_, err := c.VerifyOTP(context.Background(), "hash-123", "signup")
	require.NoError(t, err)

	call := fp.only(t)
	assert.Equal(t, "/auth/v1/verify", call.Path)
	assert.Equal(t, map[string]any{"token_hash": "hash-123", "type": "signup"}, call.Body)
}

func TestExchangeCode_PKCEGrant(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, sessionJSON("pkce"))
	})

	_, err := c.ExchangeCodeForSession(context.Background(), "code-1", "verifier-1")
	require.NoError(t, err)

	call := fp.only(t)
	assert.Equal(t, "grant_type=pkce", call.Query)
	assert.Equal(t, map[string]any{"auth_code": "code-1", "code_verifier": "verifier-1"}, call.Body)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestSetSession_ValidTokenLooksUpUser(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "email": "a@example.com"})
	})

	s, err := c.SetSession(context.Background(), access, "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, access, s.AccessToken)
	assert.Equal(t, "refresh-1", s.RefreshToken)
	assert.Equal(t, "u1", s.User.ID)

	call := fp.only(t)
	assert.Equal(t, "/auth/v1/user", call.Path)
	assert.Equal(t, "Bearer "+access, call.Bearer)
}

func TestSetSession_ExpiredTokenRefreshes(t *testing.T) {
	access := signedToken(t, time.Now().Add(-time.Minute))
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, sessionJSON("renewed"))
	})

	s, err := c.SetSession(context.Background(), access, "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "renewed", s.AccessToken)

	call := fp.only(t)
	assert.Equal(t, "grant_type=refresh_token", call.Query)
	assert.Equal(t, "refresh-1", call.Body["refresh_token"])
}

func TestSetSession_MalformedToken(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.SetSession(context.Background(), "not-a-jwt", "r")
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.Empty(t, fp.calls)
}

func TestGetUser_UnauthorizedIsSessionExpired(t *testing.T) {
	_, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "invalid JWT"})
	})

	_, err := c.GetUser(context.Background(), "stale")
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestAdminEndpointsUseServiceRole(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, r *http.Request, _ map[string]any) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusOK)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "u3", "email": "c@example.com"})
	})

	require.NoError(t, c.AdminDeleteUser(context.Background(), "u3"))

	fp.mu.Lock()
	defer fp.mu.Unlock()
	require.Len(t, fp.calls, 1)
	assert.Equal(t, "service", fp.calls[0].APIKey)
	assert.Equal(t, "Bearer service", fp.calls[0].Bearer)
	assert.Equal(t, http.MethodDelete, fp.calls[0].Method)
	assert.Equal(t, "/auth/v1/admin/users/u3", fp.calls[0].Path)
}

func TestAdminDeleteUser_NotFound(t *testing.T) {
	_, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusNotFound, map[string]any{"msg": "User not found"})
	})

	err := c.AdminDeleteUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestProfiles_FindByIDRunsAsCaller(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "u1", "email": "a@example.com", "role": "member", "status": "active"}})
	})
	repo := NewProfileRepository(c)

	p, err := repo.FindByID(ports.WithAccessToken(context.Background(), "user-token"), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, p.Role)

	call := fp.only(t)
	assert.Equal(t, "/rest/v1/profiles", call.Path)
	assert.Contains(t, call.Query, "id=eq.u1")
	assert.Equal(t, "anon", call.APIKey)
	assert.Equal(t, "Bearer user-token", call.Bearer)
}

func TestProfiles_FindByIDMissingRow(t *testing.T) {
	_, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, []any{})
	})

	_, err := NewProfileRepository(c).FindByID(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestProfiles_UpdateOnlySendsSetFields(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "u1", "role": "client", "status": "active"}})
	})

	role, status := domain.RoleClient, domain.ProfileStatusActive
	p, err := NewProfileRepository(c).Update(context.Background(), "u1", domain.ProfileUpdate{Role: &role, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleClient, p.Role)

	call := fp.only(t)
	assert.Equal(t, http.MethodPatch, call.Method)
	assert.Equal(t, "return=representation", call.Prefer)
	assert.Equal(t, "client", call.Body["role"])
	assert.Equal(t, "active", call.Body["status"])
	assert.Contains(t, call.Body, "updated_at")
}

func TestApplications_UpdateStatusOnResolvedRow(t *testing.T) {
	_, c := newFakeProject(t, func(w http.ResponseWriter, r *http.Request, _ map[string]any) {
		if r.Method == http.MethodPatch {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "app-1", "status": "approved"}})
	})

	_, err := NewApplicationRepository(c).UpdateStatus(context.Background(), "app-1", domain.ApplicationRejected, "admin-1")
	assert.ErrorIs(t, err, domain.ErrApplicationResolved)
}

func TestApplications_UpdateStatusUnknownRow(t *testing.T) {
	_, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, []any{})
	})

	_, err := NewApplicationRepository(c).UpdateStatus(context.Background(), "missing", domain.ApplicationApproved, "admin-1")
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)
}

func TestApplications_UpdateStatusMatchesPendingOnly(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "app-1", "status": "approved", "reviewed_by": "admin-1"}})
	})

	app, err := NewApplicationRepository(c).UpdateStatus(context.Background(), "app-1", domain.ApplicationApproved, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApproved, app.Status)

	call := fp.only(t)
	assert.Contains(t, call.Query, "status=eq.pending")
	assert.Equal(t, "admin-1", call.Body["reviewed_by"])
}

func TestApplications_UpdateStatusRejectsBadTarget(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {})

	_, err := NewApplicationRepository(c).UpdateStatus(context.Background(), "app-1", domain.ApplicationPending, "admin-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Empty(t, fp.calls)
}

func TestProcedures(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, r *http.Request, _ map[string]any) {
		switch r.URL.Path {
		case "/rest/v1/rpc/admin_exists":
			writeJSON(w, http.StatusOK, true)
		case "/rest/v1/rpc/create_first_admin":
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "ADMIN_EXISTS", "message": "An admin already exists"})
		case "/rest/v1/rpc/promote_user_to_admin":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ok"})
		}
	})
	procs := NewProcedures(c)
	ctx := context.Background()

	exists, err := procs.AdminExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	res, err := procs.CreateFirstAdmin(ctx, "a@example.com", "longenough")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "ADMIN_EXISTS", res.Error)

	res, err = procs.PromoteUserToAdmin(ports.WithAccessToken(ctx, "admin-token"), "b@example.com")
	require.NoError(t, err)
	assert.True(t, res.Success)

	fp.mu.Lock()
	defer fp.mu.Unlock()
	require.Len(t, fp.calls, 3)
	assert.Equal(t, map[string]any{"admin_email": "a@example.com", "admin_password": "longenough"}, fp.calls[1].Body)
	assert.Equal(t, "Bearer admin-token", fp.calls[2].Bearer)
	assert.Equal(t, "b@example.com", fp.calls[2].Body["target_email"])
}

func TestPostgRESTErrorDecoding(t *testing.T) {
	_, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusForbidden, map[string]any{"code": "42501", "message": "permission denied for table profiles"})
	})

	_, err := NewProfileRepository(c).List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "42501", re.Code)
	assert.Equal(t, "permission denied for table profiles", re.Message)
}

func TestObserverSeesEveryCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadGateway, nil)
	}))
	defer srv.Close()

	var ops []string
	var errs []error
	c := NewClient(Config{URL: srv.URL}, zerolog.Nop(), WithObserver(func(op string, _ time.Duration, err error) {
		ops = append(ops, op)
		errs = append(errs, err)
	}))

	_, err := NewProcedures(c).AdminExists(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"rpc.admin_exists"}, ops)
	var re *RemoteError
	assert.True(t, errors.As(errs[0], &re))
	assert.Equal(t, http.StatusBadGateway, re.Status)
}

func TestPrivilegedProfiles_UseServiceRole(t *testing.T) {
	fp, c := newFakeProject(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "u1", "role": "admin", "status": "active"}})
	})

	role := domain.RoleAdmin
	_, err := NewPrivilegedProfileRepository(c).Update(ports.WithAccessToken(context.Background(), "user-token"), "u1", domain.ProfileUpdate{Role: &role})
	require.NoError(t, err)

	call := fp.only(t)
	assert.Equal(t, "service", call.APIKey)
	assert.Equal(t, "Bearer service", call.Bearer)
}
