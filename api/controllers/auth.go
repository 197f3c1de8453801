package controllers

import (
	"net/http"

	"github.com/krishnaroyalclub/krc-backend/api/middleware"
	"github.com/krishnaroyalclub/krc-backend/api/responses"
	"github.com/krishnaroyalclub/krc-backend/internal/auth"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

const (
	// tokenHeader mirrors the access token for clients that cannot read the body.
	tokenHeader   = "X-KRC-Token"
	logoutMessage = "Logged out successfully"

	authUnavailable = "auth service unavailable"
)

// AuthLogin authenticates a guest and opens a session.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(authUnavailable, logg)
	}
	return decodeAndRun(logg, lenient, func(r *http.Request, in auth.LoginRequest) (*auth.LoginResponse, error) {
		return svc.Login(r.Context(), in)
	}, func(w http.ResponseWriter, out *auth.LoginResponse) {
		w.Header().Set(tokenHeader, out.Session.AccessToken)
		responses.WriteSuccess(w, out)
	})
}

// AuthRefresh rotates the caller's session. The body is strict: both tokens
// are required and nothing else is accepted.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(authUnavailable, logg)
	}
	return decodeAndRun(logg, strict, func(r *http.Request, in auth.RefreshRequest) (*auth.SessionTokens, error) {
		return svc.Refresh(r.Context(), in)
	}, func(w http.ResponseWriter, out *auth.SessionTokens) {
		w.Header().Set(tokenHeader, out.AccessToken)
		responses.WriteSuccess(w, map[string]any{"session": out})
	})
}

// AuthLogout revokes the session of the bearer token.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(authUnavailable, logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}
		if err := svc.Logout(r.Context(), accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeMessage(w, logoutMessage)
	}
}

// ForgotPassword answers with the same message for every well-formed
// request, whether or not the email is registered.
func ForgotPassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(authUnavailable, logg)
	}
	return decodeAndRun(logg, lenient, func(r *http.Request, in auth.ForgotPasswordRequest) (string, error) {
		return svc.RequestPasswordReset(r.Context(), in)
	}, writeMessage)
}

// ResetPassword redeems a reset link.
func ResetPassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(authUnavailable, logg)
	}
	return decodeAndRun(logg, lenient, func(r *http.Request, in auth.ResetPasswordRequest) (string, error) {
		return svc.RedeemPasswordReset(r.Context(), in)
	}, writeMessage)
}
