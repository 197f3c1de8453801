package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/internal/accounts"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox/payloads"
	"github.com/krishnaroyalclub/krc-backend/pkg/security"
)

const (
	// ResetRequestedMessage is returned whether or not the email is registered.
	ResetRequestedMessage = "If this email is registered, you will receive a password reset link shortly."
	resetSuccessMessage   = "Password has been reset successfully"
	invalidResetMessage   = "Invalid or expired reset link"

	minResetTokenLength = 32
	defaultResetTTL     = 24 * time.Hour
)

func (s *service) RequestPasswordReset(ctx context.Context, req ForgotPasswordRequest) (msg string, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("request_password_reset", started, err) }()

	raw := strings.TrimSpace(req.Email)
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Email is required")
	}
	if !accounts.ValidEmail(raw) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Invalid email format")
	}
	email := accounts.NormalizeEmail(raw)

	account, err := accounts.NewRepository(s.db.DB()).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Info(s.logg.WithStep(ctx, "reset.request"), "password reset requested for unknown email")
			return ResetRequestedMessage, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}
	if !account.Enabled {
		return "", pkgerrors.New(pkgerrors.CodeAccountDisabled, accountDisabledMessage)
	}

	length := s.reset.TokenLength
	if length < minResetTokenLength {
		length = minResetTokenLength
	}
	token, err := security.GenerateResetToken(length)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}

	now := s.now().UTC()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := accounts.NewRepository(tx).SetResetKey(ctx, account.ID, security.HashResetToken(token), now); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetRequested,
			AggregateType: enums.AggregateAccount,
			AggregateID:   account.ID,
			Data: payloads.PasswordResetRequestedEvent{
				AccountID: account.ID,
				Email:     account.Email,
				FullName:  account.FullName,
				ResetURL:  s.resetURL(token),
				ExpiresAt: now.Add(s.resetTTL()),
			},
		})
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store reset key")
	}

	s.logg.Info(s.logg.WithAccountID(ctx, account.ID.String()), "password reset link queued")
	return ResetRequestedMessage, nil
}

func (s *service) RedeemPasswordReset(ctx context.Context, req ResetPasswordRequest) (msg string, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("redeem_password_reset", started, err) }()

	key := req.ResetKey()
	if key == "" || req.NewPassword == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Key and new password are required")
	}
	if msg := accounts.PasswordLengthMessage(req.NewPassword, s.password.MinLength); msg != "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, msg)
	}

	passwordHash, err := security.HashPassword(req.NewPassword, s.password)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	keyHash := security.HashResetToken(key)
	expired := false
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := accounts.NewRepository(tx)
		account, err := repo.FindByResetKey(ctx, keyHash)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeInvalidToken, invalidResetMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reset key")
		}

		if s.isExpired(account.ResetKeyGeneratedAt) {
			// committed so a stale link stops matching at all
			expired = true
			return repo.ClearResetKey(ctx, account.ID)
		}

		consumed, err := repo.ConsumeResetKey(ctx, account.ID, keyHash, passwordHash)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
		}
		if !consumed {
			return pkgerrors.New(pkgerrors.CodeInvalidToken, invalidResetMessage)
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "redeem reset key")
		}
		return "", err
	}
	if expired {
		return "", pkgerrors.New(pkgerrors.CodeInvalidToken, invalidResetMessage)
	}
	return resetSuccessMessage, nil
}

func (s *service) isExpired(generatedAt *time.Time) bool {
	if generatedAt == nil {
		return true
	}
	return s.now().UTC().After(generatedAt.UTC().Add(s.resetTTL()))
}

func (s *service) resetTTL() time.Duration {
	if s.reset.TokenTTL <= 0 {
		return defaultResetTTL
	}
	return s.reset.TokenTTL
}

func (s *service) resetURL(token string) string {
	base := strings.TrimRight(strings.TrimSpace(s.frontend.BaseURL), "/")
	return fmt.Sprintf("%s/reset-password?key=%s", base, url.QueryEscape(token))
}
