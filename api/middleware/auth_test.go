package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaroyalclub/krc-backend/pkg/auth"
	"github.com/krishnaroyalclub/krc-backend/pkg/auth/session"
	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(okHandler))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	token, _ := mintTestToken(t, enums.RoleCustomer)
	handler := Auth(testJWT, stubSessionVerifier{ok: false}, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthSeedsIdentity(t *testing.T) {
	token, accountID := mintTestToken(t, enums.RoleStaff)

	var got Identity
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Identity{
			AccountID: AccountIDFromContext(r.Context()),
			Email:     EmailFromContext(r.Context()),
			Roles:     RolesFromContext(r.Context()),
			AccessID:  AccessIDFromContext(r.Context()),
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, accountID, got.AccountID)
	assert.Equal(t, "staff@example.com", got.Email)
	assert.Equal(t, []enums.Role{enums.RoleStaff}, got.Roles)
	assert.NotEmpty(t, got.AccessID)
}

func TestOptionalAuthFallsBackToGuest(t *testing.T) {
	token, accountID := mintTestToken(t, enums.RoleCustomer)

	cases := []struct {
		name     string
		header   string
		verifier stubSessionVerifier
		want     types.Caller
	}{
		{"no header", "", stubSessionVerifier{ok: true}, types.Caller{}},
		{"garbage token", "Bearer nope", stubSessionVerifier{ok: true}, types.Caller{}},
		{"store down", "Bearer " + token, stubSessionVerifier{err: errors.New("redis down")}, types.Caller{}},
		{"valid", "Bearer " + token, stubSessionVerifier{ok: true}, types.Caller{AccountID: accountID, Email: "staff@example.com"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got types.Caller
			handler := OptionalAuth(testJWT, tc.verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = CallerFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			assert.Equal(t, http.StatusOK, resp.Code)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(enums.RoleStaff, nil)(http.HandlerFunc(okHandler))

	for name, tc := range map[string]struct {
		roles []enums.Role
		want  int
	}{
		"customer": {[]enums.Role{enums.RoleCustomer}, http.StatusForbidden},
		"staff":    {[]enums.Role{enums.RoleCustomer, enums.RoleStaff}, http.StatusOK},
		"admin":    {[]enums.Role{enums.RoleAdmin}, http.StatusOK},
		"none":     {nil, http.StatusForbidden},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = req.WithContext(WithIdentity(req.Context(), Identity{AccountID: uuid.New(), Roles: tc.roles}))
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			assert.Equal(t, tc.want, resp.Code)
		})
	}
}

func mintTestToken(t *testing.T, role enums.Role) (string, uuid.UUID) {
	t.Helper()
	accountID := uuid.New()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		AccountID: accountID,
		Email:     "staff@example.com",
		Roles:     []enums.Role{role},
		JTI:       session.NewAccessID(),
	})
	require.NoError(t, err)
	return token, accountID
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}
