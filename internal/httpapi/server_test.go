package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dayplan/internal/model"
	"dayplan/internal/recurrence"
	"dayplan/internal/repository"
	"dayplan/internal/service"
)

const testSecret = "test-secret"

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func newTestServer(t *testing.T, store Pinger) http.Handler {
	t.Helper()
	return newTestServerWithSecret(t, store, testSecret)
}

func newTestServerWithSecret(t *testing.T, store Pinger, secret string) http.Handler {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:http_%s?mode=memory&cache=shared", name), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	categories := repository.NewCategoryRepository(db)
	users := repository.NewUserRepository(db)
	if store == nil {
		store = users
	}
	srv := NewServer(Config{JWTSecret: secret, AllowedOrigins: []string{"*"}},
		service.NewTaskService(repository.NewTaskRepository(db), categories, recurrence.New(30)),
		service.NewCategoryService(categories),
		service.NewUserService(users),
		store,
		zap.NewNop(),
	)
	return srv.Handler()
}

func token(t *testing.T, sub string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: sub + "@example.com",
		Name:  strings.ToUpper(sub),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, h http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, newTestServer(t, stubPinger{err: errors.New("down")}), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth(t *testing.T) {
	h := newTestServer(t, nil)

	t.Run("missing header", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("other"))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unsigned token", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+unsigned)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with an empty key", func(t *testing.T) {
		blank, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "victim"}).SignedString([]byte(""))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+blank)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token creates the user", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/me", "ana", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var user model.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, "ana", user.ID)
		assert.Equal(t, "ana@example.com", user.Email)
		assert.Equal(t, "ANA", user.FullName)
	})
}

func TestAuthWithoutSecretRejectsEveryToken(t *testing.T) {
	h := newTestServerWithSecret(t, nil, "")

	blank, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "victim"},
	}).SignedString([]byte(""))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+blank)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "victim")

	rec = do(t, h, http.MethodGet, "/api/me", "ana", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskLifecycle(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/tasks", "ana", service.TaskInput{
		Title: "Standup", Date: "2026-01-05", StartTime: "09:30", Category: "Work",
		IsRecurring: true, RecurrenceType: model.RecurrenceDaily, RecurrenceEndDate: "2026-01-07",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "ana", created.OwnerID)

	rec = do(t, h, http.MethodGet, "/api/tasks?start=2026-01-01&end=2026-01-31", "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var projected []model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &projected))
	require.Len(t, projected, 3)
	assert.Equal(t, created.ID, projected[0].ID)
	assert.Equal(t, created.ID+"-2026-01-06", projected[1].ID)

	rec = do(t, h, http.MethodGet, "/api/tasks?start=2026-01-01&end=2026-01-31", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/categories", "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Work"`)

	rec = do(t, h, http.MethodPut, "/api/tasks/"+created.ID, "bob", service.TaskInput{Title: "Mine now", Date: "2026-01-05"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/tasks/"+created.ID, "ana", service.TaskInput{Title: "Standup", Date: "2026-01-05", Completed: true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/tasks/"+created.ID, "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"completed":true`)

	rec = do(t, h, http.MethodDelete, "/api/tasks/"+created.ID, "ana", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/tasks/"+created.ID, "ana", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskValidation(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/tasks", "ana", service.TaskInput{Date: "2026-01-05"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token(t, "ana"))
	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	for _, q := range []string{
		"start=2026-01-01",
		"start=2026-01-10&end=2026-01-01",
		"start=01/01/2026&end=2026-01-31",
		"start=2026-01-01&end=2027-01-02",
	} {
		rec := do(t, h, http.MethodGet, "/api/tasks?"+q, "ana", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec = do(t, h, http.MethodGet, "/api/tasks?start=2026-01-01&end=2027-01-01", "ana", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "366-day window is allowed")
}

func TestUpdateNotifications(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPut, "/api/me/notifications", "ana", model.NotificationSettings{
		Enabled: true, Time: "07:05", TimeZone: "Europe/Paris",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.True(t, user.EmailNotifications)
	assert.Equal(t, "07:05", user.NotificationTime)
	assert.Equal(t, "Europe/Paris", user.TimeZone)

	rec = do(t, h, http.MethodPut, "/api/me/notifications", "ana", model.NotificationSettings{Enabled: true, Time: "7am"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
