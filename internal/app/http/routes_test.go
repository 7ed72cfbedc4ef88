package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tiertrainer-backend/config"
	adminapi "tiertrainer-backend/internal/api/admin"
	"tiertrainer-backend/internal/domain/admins"
	"tiertrainer-backend/internal/domain/pets"
	"tiertrainer-backend/internal/domain/support"
	"tiertrainer-backend/internal/domain/users"
	"tiertrainer-backend/internal/infra/cache"
	"tiertrainer-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) http.Handler {
	store := cache.NewMemory(0)
	t.Cleanup(store.Close)
	return NewRouter(Deps{
		Logger:       zap.NewNop(),
		Cache:        store,
		HealthChecks: []adminapi.HealthCheck{},
	})
}

func TestPublicEndpoints(t *testing.T) {
	testutil.NewDB(t)
	config.CORS_ORIGIN = "*"
	r := newTestRouter(t)

	w := testutil.Do(t, r, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = testutil.Do(t, r, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	assert.Equal(t, http.StatusOK, testutil.Do(t, r, http.MethodGet, "/plans", nil, "").Code)
	assert.Equal(t, http.StatusOK, testutil.Do(t, r, http.MethodGet, "/community/posts", nil, "").Code)
}

func TestCORSPreflight(t *testing.T) {
	testutil.NewDB(t)

	t.Run("any origin", func(t *testing.T) {
		config.CORS_ORIGIN = "*"
		r := newTestRouter(t)

		req := httptest.NewRequest(http.MethodOptions, "/login", nil)
		req.Header.Set("Origin", "https://app.tiertrainer24.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origins", func(t *testing.T) {
		config.CORS_ORIGIN = "https://app.tiertrainer24.com, https://admin.tiertrainer24.com"
		t.Cleanup(func() { config.CORS_ORIGIN = "*" })
		cfg := corsConfig(config.CORS_ORIGIN)
		assert.Equal(t, []string{"https://app.tiertrainer24.com", "https://admin.tiertrainer24.com"}, cfg.AllowOrigins)
		assert.True(t, cfg.AllowCredentials)
	})
}

func TestStaffRouteGroups(t *testing.T) {
	db := testutil.NewDB(t)
	config.CORS_ORIGIN = "*"
	r := newTestRouter(t)

	mk := func(email, role string) string {
		u := users.User{Email: email, Role: users.RoleUser, IsVerified: true, AuthProvider: users.ProviderLocal}
		require.NoError(t, db.Create(&u).Error)
		if role != "" {
			require.NoError(t, db.Create(&admins.AdminUser{UserID: &u.ID, Email: email, Role: role, IsActive: true}).Error)
		}
		return testutil.Token(t, u.ID, u.Email, u.Role)
	}
	user := mk("anna@example.com", "")
	agent := mk("agent@example.com", admins.RoleSupport)
	boss := mk("boss@example.com", admins.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, testutil.Do(t, r, http.MethodGet, "/admin/dashboard", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, testutil.Do(t, r, http.MethodGet, "/admin/dashboard", nil, user).Code)
	assert.Equal(t, http.StatusOK, testutil.Do(t, r, http.MethodGet, "/admin/dashboard", nil, agent).Code)
	assert.Equal(t, http.StatusOK, testutil.Do(t, r, http.MethodGet, "/admin/support/tickets", nil, agent).Code)

	assert.Equal(t, http.StatusForbidden, testutil.Do(t, r, http.MethodGet, "/admin/subscribers", nil, agent).Code)
	assert.Equal(t, http.StatusOK, testutil.Do(t, r, http.MethodGet, "/admin/subscribers", nil, boss).Code)
	assert.Equal(t, http.StatusOK, testutil.Do(t, r, http.MethodGet, "/admin/health", nil, boss).Code)
}

func TestPaidRoutesRequireMode(t *testing.T) {
	db := testutil.NewDB(t)
	config.CORS_ORIGIN = "*"
	r := newTestRouter(t)

	u := users.User{Email: "free@example.com", Role: users.RoleUser, IsVerified: true, AuthProvider: users.ProviderLocal}
	require.NoError(t, db.Create(&u).Error)
	token := testutil.Token(t, u.ID, u.Email, u.Role)

	w := testutil.Do(t, r, http.MethodPost, "/community/posts", map[string]any{"title": "t", "body": "b"}, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "SUBSCRIPTION_REQUIRED", testutil.DecodeJSON(t, w)["reason"])

	w = testutil.Do(t, r, http.MethodGet, "/me", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChangedPasswordWithMarkupStillLogsIn(t *testing.T) {
	db := testutil.NewDB(t)
	config.CORS_ORIGIN = "*"
	r := newTestRouter(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunde1234"), bcrypt.MinCost)
	require.NoError(t, err)
	pw := string(hash)
	u := users.User{Email: "anna@example.com", Password: &pw, Role: users.RoleUser, IsVerified: true, AuthProvider: users.ProviderLocal}
	require.NoError(t, db.Create(&u).Error)
	token := testutil.Token(t, u.ID, u.Email, u.Role)

	w := testutil.Do(t, r, http.MethodPost, "/change-password", map[string]any{"old_password": "hunde1234", "new_password": "dog&cat123"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.Do(t, r, http.MethodPost, "/login", map[string]any{"email": "anna@example.com", "password": "dog&cat123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, testutil.DecodeJSON(t, w)["token"])

	w = testutil.Do(t, r, http.MethodPost, "/change-password", map[string]any{"old_password": "dog&cat123", "new_password": "<b>bello</b>99"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = testutil.Do(t, r, http.MethodPost, "/login", map[string]any{"email": "anna@example.com", "password": "<b>bello</b>99"}, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUserTextIsStoredVerbatim(t *testing.T) {
	db := testutil.NewDB(t)
	config.CORS_ORIGIN = "*"
	r := newTestRouter(t)

	u := users.User{Email: "anna@example.com", Role: users.RoleUser, IsVerified: true, AuthProvider: users.ProviderLocal}
	require.NoError(t, db.Create(&u).Error)
	token := testutil.Token(t, u.ID, u.Email, u.Role)

	w := testutil.Do(t, r, http.MethodPost, "/pets", map[string]any{"name": "Tom & Jerry", "notes": "barks if x < 3"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p pets.Profile
	require.NoError(t, db.Where("user_id = ?", u.ID).First(&p).Error)
	assert.Equal(t, "Tom & Jerry", p.Name)
	assert.Equal(t, "barks if x < 3", p.Notes)

	w = testutil.Do(t, r, http.MethodPost, "/support/tickets", map[string]any{"subject": "Futter & Wasser", "message": "Is <3 cups ok?"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var ticket support.Ticket
	require.NoError(t, db.Preload("Messages").Where("user_id = ?", u.ID).First(&ticket).Error)
	assert.Equal(t, "Futter & Wasser", ticket.Subject)
	require.Len(t, ticket.Messages, 1)
	assert.Equal(t, "Is <3 cups ok?", ticket.Messages[0].Body)
}
