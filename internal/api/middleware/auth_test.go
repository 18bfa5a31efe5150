package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nimbusdrive/nimbus-server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	var gotOwner uuid.UUID
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotOwner, _ = OwnerFromContext(r.Context())
	})
	handler := AuthMiddleware(next)

	tests := []struct {
		name       string
		cookie     *http.Cookie
		wantStatus int
		wantOwner  bool
	}{
		{
			name:       "missing cookie",
			cookie:     nil,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "valid token",
			cookie: &http.Cookie{Name: "token", Value: signToken(t, jwt.MapClaims{
				"userId": userID.String(),
				"exp":    time.Now().Add(time.Hour).Unix(),
			}, config.Envs.JWTSecret)},
			wantStatus: http.StatusOK,
			wantOwner:  true,
		},
		{
			name: "wrong secret",
			cookie: &http.Cookie{Name: "token", Value: signToken(t, jwt.MapClaims{
				"userId": userID.String(),
			}, "not-the-secret")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired token",
			cookie: &http.Cookie{Name: "token", Value: signToken(t, jwt.MapClaims{
				"userId": userID.String(),
				"exp":    time.Now().Add(-time.Hour).Unix(),
			}, config.Envs.JWTSecret)},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "claims without user id",
			cookie: &http.Cookie{Name: "token", Value: signToken(t, jwt.MapClaims{
				"exp": time.Now().Add(time.Hour).Unix(),
			}, config.Envs.JWTSecret)},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "user id not a uuid",
			cookie: &http.Cookie{Name: "token", Value: signToken(t, jwt.MapClaims{
				"userId": "42",
				"exp":    time.Now().Add(time.Hour).Unix(),
			}, config.Envs.JWTSecret)},
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			gotOwner = uuid.Nil

			req := httptest.NewRequest(http.MethodGet, "/files/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOwner, called)
			if tt.wantOwner {
				assert.Equal(t, userID, gotOwner)
			}
		})
	}
}

func TestAuthMiddlewarePassesPreflight(t *testing.T) {
	var called bool
	handler := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/files/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
