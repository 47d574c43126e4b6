package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/telana99/vehicle-record-ledger/internal/auth"
	"github.com/telana99/vehicle-record-ledger/internal/db"
	"github.com/telana99/vehicle-record-ledger/internal/models"
)

// MockCredentialCollection is a mock implementation of db.CredentialCollection
type MockCredentialCollection struct {
	mock.Mock
}

func (m *MockCredentialCollection) InsertCredential(ctx context.Context, cred models.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockCredentialCollection) FindCredentialByPrincipal(ctx context.Context, principal models.Principal) (*models.Credential, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Credential), args.Error(1)
}

func newAuthService(t *testing.T) (*auth.Service, string) {
	t.Helper()
	creds := new(MockCredentialCollection)
	creds.On("FindCredentialByPrincipal", mock.Anything, models.Principal("quick-fix-auto")).
		Return(nil, errors.New("credential not found")).Once()
	creds.On("InsertCredential", mock.Anything, mock.Anything).Return(nil)

	service, err := auth.NewService(db.CredentialCollection(creds))
	require.NoError(t, err)

	cred, err := service.Register(context.Background(), "quick-fix-auto", "center-secret")
	require.NoError(t, err)
	creds.On("FindCredentialByPrincipal", mock.Anything, models.Principal("quick-fix-auto")).Return(cred, nil)

	token, err := service.IssueToken(context.Background(), "quick-fix-auto", "center-secret")
	require.NoError(t, err)
	return service, token
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	service, token := newAuthService(t)
	m := NewAuthMiddleware(service)

	var gotCaller models.Principal
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCaller, gotOK = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token injects caller", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/records", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		m.Authenticate(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, gotOK)
		assert.Equal(t, models.Principal("quick-fix-auto"), gotCaller)
	})

	t.Run("missing header rejected on mutating request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/records", nil)
		w := httptest.NewRecorder()

		m.Authenticate(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/records", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()

		m.Authenticate(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("GET passes through without token", func(t *testing.T) {
		gotOK = false
		req := httptest.NewRequest(http.MethodGet, "/api/records?vehicle_id=ABC123", nil)
		w := httptest.NewRecorder()

		m.Authenticate(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, gotOK)
	})

	t.Run("token endpoint skipped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token", nil)
		w := httptest.NewRecorder()

		m.Authenticate(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("limits by client IP without token", func(t *testing.T) {
		m := NewRateLimitMiddleware(nil)
		handler := m.RateLimit(2, 60)(next)

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		// A different client is unaffected.
		req = httptest.NewRequest(http.MethodGet, "/api/records", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("authenticated callers get their own bucket", func(t *testing.T) {
		service, token := newAuthService(t)
		m := NewRateLimitMiddleware(service)
		handler := m.RateLimit(1, 60)(next)

		// Same IP, one tokened and one anonymous request: separate buckets.
		req := httptest.NewRequest(http.MethodPost, "/api/records", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodGet, "/api/records", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		// Second tokened request trips the caller's limit.
		req = httptest.NewRequest(http.MethodPost, "/api/records", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("Authorization", "Bearer "+token)
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}
