package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jobtrail-io/jobtrail/internal/auth"
	"github.com/jobtrail-io/jobtrail/internal/config"
	"github.com/jobtrail-io/jobtrail/internal/database"
	"github.com/jobtrail-io/jobtrail/internal/models"
	"github.com/jobtrail-io/jobtrail/internal/notify"
	"github.com/jobtrail-io/jobtrail/internal/pro"
	"github.com/jobtrail-io/jobtrail/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAPI(t *testing.T) (*Api, *store.Store) {
	t.Helper()
	cfg := config.Config{
		APIPort:        0,
		DatabaseType:   "sqlite",
		DatabasePath:   filepath.Join(t.TempDir(), "api_test.db"),
		JWTSecret:      "api-test-secret",
		AllowedOrigins: []string{"http://localhost:*", "https://app.jobtrail.test"},
	}
	db, err := database.Open(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db, "sqlite")
	notifier := notify.LogNotifier{}
	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Hour)
	authSvc := auth.NewService(st, tokens, notifier, 30*24*time.Hour, bcrypt.MinCost)
	proSvc := pro.NewService(st, notifier, 7*24*time.Hour, 14*24*time.Hour, "ops@jobtrail.test")

	return NewApi(cfg, st, authSvc, proSvc, tokens), st
}

func doJSON(t *testing.T, api *Api, method, path string, body interface{}, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	return rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	return nil
}

func registerUser(t *testing.T, api *Api, email string) (authResponse, *http.Cookie) {
	t.Helper()
	rec := doJSON(t, api, http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"password": "Str0ng!pass",
		"name":     "Test User",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	cookie := refreshCookie(t, rec)
	require.NotNil(t, cookie)
	return resp, cookie
}

func TestRegisterSetsHTTPOnlyCookieAndOmitsSecretFromBody(t *testing.T) {
	api, _ := newTestAPI(t)

	resp, cookie := registerUser(t, api, "reg@example.com")
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.CSRFToken)
	assert.Empty(t, resp.User.Password)

	rec := doJSON(t, api, http.MethodPost, "/auth/register", map[string]string{
		"email": "reg@example.com", "password": "Str0ng!pass", "name": "x",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterValidationErrors(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/auth/register", map[string]string{
		"email": "bad@example.com", "password": "weak", "name": "x",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_failed")
}

func TestCSRFBootstrapWithoutCookieReturnsNull(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/auth/csrf", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]*string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp["csrf_token"])
}

func TestRefreshFlowRotatesCookie(t *testing.T) {
	api, _ := newTestAPI(t)
	resp, cookie := registerUser(t, api, "rot@example.com")

	rec := doJSON(t, api, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
		r.Header.Set("X-CSRF-Token", resp.CSRFToken)
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rotated authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	newCookie := refreshCookie(t, rec)
	require.NotNil(t, newCookie)
	assert.NotEqual(t, cookie.Value, newCookie.Value)

	// The pre-rotation cookie is dead.
	rec = doJSON(t, api, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
		r.Header.Set("X-CSRF-Token", rotated.CSRFToken)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A live cookie with a forged header is Forbidden, not Unauthorized.
	rec = doJSON(t, api, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(newCookie)
		r.Header.Set("X-CSRF-Token", "forged")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLogoutIsIdempotentOverHTTP(t *testing.T) {
	api, _ := newTestAPI(t)
	resp, cookie := registerUser(t, api, "out@example.com")

	logout := func() int {
		rec := doJSON(t, api, http.MethodPost, "/auth/logout", nil, func(r *http.Request) {
			r.AddCookie(cookie)
			r.Header.Set("X-CSRF-Token", resp.CSRFToken)
		})
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, logout())
	assert.Equal(t, http.StatusNoContent, logout())

	rec := doJSON(t, api, http.MethodPost, "/auth/logout", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSessionEndpointsRejectUnknownOrigins(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@example.com", "password": "x",
	}, func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, api, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@example.com", "password": "x",
	}, func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:3000")
	})
	assert.NotEqual(t, http.StatusForbidden, rec.Code)
}

func TestMeRequiresActiveAccount(t *testing.T) {
	api, _ := newTestAPI(t)
	resp, _ := registerUser(t, api, "me@example.com")

	withBearer := func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	}

	rec := doJSON(t, api, http.MethodGet, "/auth/me", nil, withBearer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, api, http.MethodGet, "/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, api, http.MethodPost, "/auth/deactivate", nil, withBearer)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The token still verifies, but the active-flag re-check rejects it.
	rec = doJSON(t, api, http.MethodGet, "/auth/me", nil, withBearer)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func seedAdmin(t *testing.T, api *Api, st *store.Store) string {
	t.Helper()
	hash, err := models.HashPassword("Adm1n!pass", bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	admin := &models.User{
		ID:        uuid.NewString(),
		Email:     "admin@example.com",
		Name:      "Admin",
		Password:  hash,
		IsActive:  true,
		IsAdmin:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.CreateUser(context.Background(), admin))

	rec := doJSON(t, api, http.MethodPost, "/auth/login", map[string]string{
		"email": "admin@example.com", "password": "Adm1n!pass",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func TestProRequestAndAdminDecision(t *testing.T) {
	api, st := newTestAPI(t)
	ctx := context.Background()

	resp, _ := registerUser(t, api, "wants-pro@example.com")
	require.NoError(t, st.MarkEmailVerified(ctx, resp.User.ID, time.Now().UTC()))
	withBearer := func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	}

	rec := doJSON(t, api, http.MethodPost, "/pro/request", map[string]string{"note": "please"}, withBearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result pro.RequestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.Request)

	// Non-admin cannot decide.
	rec = doJSON(t, api, http.MethodPost, fmt.Sprintf("/pro/requests/%s/approve", result.Request.ID), nil, withBearer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := seedAdmin(t, api, st)
	rec = doJSON(t, api, http.MethodPost, fmt.Sprintf("/pro/requests/%s/approve", result.Request.ID),
		map[string]string{"decision_note": "ok"}, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+adminToken)
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	user, err := st.GetUserByID(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.True(t, user.IsPro)

	// A repeat request short-circuits.
	rec = doJSON(t, api, http.MethodPost, "/pro/request", nil, withBearer)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.AlreadyPro)
}

func TestUnverifiedAccountCannotRequestPro(t *testing.T) {
	api, _ := newTestAPI(t)
	resp, _ := registerUser(t, api, "unverified@example.com")

	rec := doJSON(t, api, http.MethodPost, "/pro/request", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "email_not_verified")
}

func TestVerifyEmailEndpoint(t *testing.T) {
	api, st := newTestAPI(t)
	resp, _ := registerUser(t, api, "verify@example.com")

	token, err := api.tokens.GenerateVerificationToken(resp.User.ID)
	require.NoError(t, err)

	rec := doJSON(t, api, http.MethodGet, "/auth/verify-email?token="+token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	user, err := st.GetUserByID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, user.EmailVerifiedAt)

	rec = doJSON(t, api, http.MethodGet, "/auth/verify-email?token=garbage", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApplicationsCRUD(t *testing.T) {
	api, st := newTestAPI(t)
	resp, _ := registerUser(t, api, "crud@example.com")
	withBearer := func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	}

	rec := doJSON(t, api, http.MethodPost, "/applications", map[string]string{
		"company": "Acme", "role_title": "Backend Engineer", "status": "applied",
	}, withBearer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app models.Application
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))
	assert.Equal(t, "APPLIED", app.Status)

	// Creating an application consumed one unit of free usage.
	user, err := st.GetUserByID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, user.FreeUsageCount)

	rec = doJSON(t, api, http.MethodGet, "/applications", nil, withBearer)
	require.Equal(t, http.StatusOK, rec.Code)
	var apps []models.Application
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
	require.Len(t, apps, 1)

	rec = doJSON(t, api, http.MethodPut, "/applications/"+app.ID, map[string]string{
		"company": "Acme", "role_title": "Backend Engineer", "status": "OFFER",
	}, withBearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, api, http.MethodGet, "/applications/"+app.ID, nil, withBearer)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))
	assert.Equal(t, "OFFER", app.Status)

	rec = doJSON(t, api, http.MethodDelete, "/applications/"+app.ID, nil, withBearer)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, api, http.MethodGet, "/applications/"+app.ID, nil, withBearer)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, api, http.MethodPost, "/applications", map[string]string{
		"company": "", "role_title": "x",
	}, withBearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
