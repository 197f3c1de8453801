package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/krishnaroyalclub/krc-backend/api/responses"
	pkgAuth "github.com/krishnaroyalclub/krc-backend/pkg/auth"
	"github.com/krishnaroyalclub/krc-backend/pkg/auth/session"
	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

// Auth rejects requests without a valid bearer token bound to a live
// session and seeds the context with the caller identity.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, verifier, logg, true)
}

// OptionalAuth attaches the identity when a valid bearer token is present
// and otherwise lets the request through as a guest.
func OptionalAuth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, verifier, logg, false)
}

func authenticate(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := bearerToken(r)

			var (
				id  Identity
				err error
			)
			if token == "" {
				err = pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
			} else {
				id, err = verify(ctx, cfg, verifier, token)
			}

			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(attach(ctx, logg, id)))
			case required:
				responses.WriteError(ctx, logg, w, err)
			default:
				if token != "" && logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "optional auth ignored invalid token")
				}
				next.ServeHTTP(w, r)
			}
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return header
}

func verify(ctx context.Context, cfg config.JWTConfig, verifier session.AccessSessionChecker, token string) (Identity, error) {
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if verifier != nil {
		ok, err := verifier.HasSession(ctx, claims.ID)
		if err != nil {
			return Identity{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !ok {
			return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	return Identity{
		AccountID: claims.AccountID,
		Email:     claims.Email,
		Roles:     claims.Roles,
		AccessID:  claims.ID,
	}, nil
}

func attach(ctx context.Context, logg *logger.Logger, id Identity) context.Context {
	ctx = WithIdentity(ctx, id)
	if logg != nil {
		ctx = logg.WithAccountID(ctx, id.AccountID.String())
	}
	return ctx
}
