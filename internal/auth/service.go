// Package auth signs guests in and runs the password reset flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/internal/accounts"
	"github.com/krishnaroyalclub/krc-backend/internal/leads"
	pkgAuth "github.com/krishnaroyalclub/krc-backend/pkg/auth"
	"github.com/krishnaroyalclub/krc-backend/pkg/auth/session"
	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "Invalid email or password"
	accountDisabledMessage    = "Your account has been disabled. Please contact support."
	loginSuccessMessage       = "Login successful"
	tokenTypeBearer           = "Bearer"
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*SessionTokens, error)
	Logout(ctx context.Context, accessID string) error
	RequestPasswordReset(ctx context.Context, req ForgotPasswordRequest) (string, error)
	RedeemPasswordReset(ctx context.Context, req ResetPasswordRequest) (string, error)
}

type dbClient interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, accountID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, uuid.UUID, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             dbClient
	SessionManager sessionManager
	Outbox         outbox.Emitter
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	ResetConfig    config.ResetConfig
	FrontendConfig config.FrontendConfig
	Logger         *logger.Logger
	Metrics        *metrics.LifecycleMetrics
	Now            func() time.Time
}

type service struct {
	db       dbClient
	session  sessionManager
	outbox   outbox.Emitter
	jwtCfg   config.JWTConfig
	password config.PasswordConfig
	reset    config.ResetConfig
	frontend config.FrontendConfig
	logg     *logger.Logger
	metrics  *metrics.LifecycleMetrics
	now      func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:       params.DB,
		session:  params.SessionManager,
		outbox:   params.Outbox,
		jwtCfg:   params.JWTConfig,
		password: params.PasswordConfig,
		reset:    params.ResetConfig,
		frontend: params.FrontendConfig,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (resp *LoginResponse, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("login", started, err) }()

	email := accounts.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Email and password are required")
	}

	account, err := s.authenticate(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := accounts.NewRepository(s.db.DB()).UpdateLastLogin(ctx, account.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	account.LastLoginAt = &now

	tokens, err := s.issue(ctx, account, session.NewAccessID(), now, "")
	if err != nil {
		return nil, err
	}

	var lead *leads.Summary
	found, err := leads.NewRepository(s.db.DB()).FindByEmail(ctx, email)
	switch {
	case err == nil:
		lead = leads.SummaryFromModel(found)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logg.Warn(s.logg.WithStep(ctx, "login.lead"), fmt.Sprintf("could not load lead: %v", err))
	}

	s.logg.Info(s.logg.WithAccountID(ctx, account.ID.String()), "login succeeded")
	return &LoginResponse{
		Message: loginSuccessMessage,
		User:    accounts.ProfileFromModel(account),
		Lead:    lead,
		Session: *tokens,
	}, nil
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*SessionTokens, error) {
	if strings.TrimSpace(req.AccessToken) == "" || strings.TrimSpace(req.RefreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access_token and refresh_token are required")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	newAccessID, refreshToken, accountID, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	account, err := accounts.NewRepository(s.db.DB()).FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}
	if !account.Enabled {
		_ = s.session.Revoke(ctx, newAccessID)
		return nil, pkgerrors.New(pkgerrors.CodeAccountDisabled, accountDisabledMessage)
	}

	return s.issue(ctx, account, newAccessID, s.now().UTC(), refreshToken)
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// authenticate reports a missing account and a wrong password the same way so
// callers cannot probe which emails are registered.
func (s *service) authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := accounts.NewRepository(s.db.DB()).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	valid, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !account.Enabled {
		return nil, pkgerrors.New(pkgerrors.CodeAccountDisabled, accountDisabledMessage)
	}
	return account, nil
}

// issue mints an access token for accessID. An empty refreshToken means a new
// session is generated for it.
func (s *service) issue(ctx context.Context, account *models.Account, accessID string, now time.Time, refreshToken string) (*SessionTokens, error) {
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		AccountID: account.ID,
		Email:     account.Email,
		Roles:     account.Roles,
		JTI:       accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	if refreshToken == "" {
		refreshToken, err = s.session.Generate(ctx, accessID, account.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
		}
	}
	return &SessionTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    s.jwtCfg.ExpirationMinutes * 60,
	}, nil
}
