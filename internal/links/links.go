// Package links owns the cross references between a guest onboarding and its
// order. Both columns are written together here and nowhere else, so either
// both records point at each other or neither does.
package links

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
)

// Link points onboardingID and orderID at each other. Linking a pair that is
// already linked together is a no-op; either side linked elsewhere is a
// STATE_CONFLICT.
func Link(ctx context.Context, tx *gorm.DB, onboardingID, orderID uuid.UUID) error {
	onboarding, order, err := load(ctx, tx, onboardingID, orderID)
	if err != nil {
		return err
	}

	if onboarding.OrderID != nil && *onboarding.OrderID != orderID {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "onboarding is already linked to another order").
			WithDetails(map[string]any{"onboarding_id": onboardingID, "order_id": *onboarding.OrderID})
	}
	if order.OnboardingID != nil && *order.OnboardingID != onboardingID {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already linked to another onboarding").
			WithDetails(map[string]any{"order_id": orderID, "onboarding_id": *order.OnboardingID})
	}

	if err := setOrderRef(ctx, tx, onboardingID, &orderID); err != nil {
		return err
	}
	return setOnboardingRef(ctx, tx, orderID, &onboardingID)
}

// Unlink clears both references wherever they point at each other. It is safe
// to call repeatedly and on pairs that were never linked.
func Unlink(ctx context.Context, tx *gorm.DB, onboardingID, orderID uuid.UUID) error {
	if err := tx.WithContext(ctx).Model(&models.GuestOnboarding{}).
		Where("id = ? AND order_id = ?", onboardingID, orderID).
		UpdateColumn("order_id", nil).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear onboarding order reference")
	}
	if err := tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND onboarding_id = ?", orderID, onboardingID).
		UpdateColumn("onboarding_id", nil).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear order onboarding reference")
	}
	return nil
}

// UnlinkOrder clears every reference between orderID and any onboarding,
// whichever side still holds it. It returns the onboarding ids it detached.
func UnlinkOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]uuid.UUID, error) {
	var order models.Order
	if err := tx.WithContext(ctx).Select("id", "onboarding_id").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}

	var counterparts []uuid.UUID
	if err := tx.WithContext(ctx).Model(&models.GuestOnboarding{}).
		Where("order_id = ?", orderID).
		Pluck("id", &counterparts).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find linked onboardings")
	}
	if order.OnboardingID != nil {
		counterparts = appendUnique(counterparts, *order.OnboardingID)
	}

	for _, onboardingID := range counterparts {
		if err := Unlink(ctx, tx, onboardingID, orderID); err != nil {
			return nil, err
		}
	}
	// a dangling reference to a deleted onboarding is cleared too
	if err := setOnboardingRef(ctx, tx, orderID, nil); err != nil {
		return nil, err
	}
	return counterparts, nil
}

// UnlinkOnboarding is UnlinkOrder seen from the onboarding side.
func UnlinkOnboarding(ctx context.Context, tx *gorm.DB, onboardingID uuid.UUID) ([]uuid.UUID, error) {
	var onboarding models.GuestOnboarding
	if err := tx.WithContext(ctx).Select("id", "order_id").First(&onboarding, "id = ?", onboardingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "onboarding not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load onboarding")
	}

	var counterparts []uuid.UUID
	if err := tx.WithContext(ctx).Model(&models.Order{}).
		Where("onboarding_id = ?", onboardingID).
		Pluck("id", &counterparts).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find linked orders")
	}
	if onboarding.OrderID != nil {
		counterparts = appendUnique(counterparts, *onboarding.OrderID)
	}

	for _, orderID := range counterparts {
		if err := Unlink(ctx, tx, onboardingID, orderID); err != nil {
			return nil, err
		}
	}
	if err := setOrderRef(ctx, tx, onboardingID, nil); err != nil {
		return nil, err
	}
	return counterparts, nil
}

func load(ctx context.Context, tx *gorm.DB, onboardingID, orderID uuid.UUID) (*models.GuestOnboarding, *models.Order, error) {
	var onboarding models.GuestOnboarding
	if err := tx.WithContext(ctx).Select("id", "order_id").First(&onboarding, "id = ?", onboardingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "onboarding not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load onboarding")
	}
	var order models.Order
	if err := tx.WithContext(ctx).Select("id", "onboarding_id").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return &onboarding, &order, nil
}

// UpdateColumn skips hooks and updated_at so a link change never counts as an
// edit of either document.
func setOrderRef(ctx context.Context, tx *gorm.DB, onboardingID uuid.UUID, orderID *uuid.UUID) error {
	err := tx.WithContext(ctx).Model(&models.GuestOnboarding{}).
		Where("id = ?", onboardingID).
		UpdateColumn("order_id", orderID).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("set order reference on onboarding %s", onboardingID))
	}
	return nil
}

func setOnboardingRef(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, onboardingID *uuid.UUID) error {
	err := tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("onboarding_id", onboardingID).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("set onboarding reference on order %s", orderID))
	}
	return nil
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
