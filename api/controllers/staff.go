package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/krishnaroyalclub/krc-backend/api/middleware"
	"github.com/krishnaroyalclub/krc-backend/api/responses"
	"github.com/krishnaroyalclub/krc-backend/internal/onboarding"
	"github.com/krishnaroyalclub/krc-backend/internal/orders"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

type orderTransition func(context.Context, orders.TransitionInput) (*orders.TransitionResult, error)

type onboardingTransition func(context.Context, onboarding.TransitionInput) (*onboarding.TransitionResult, error)

// StaffSubmitOrder submits a draft order.
func StaffSubmitOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("order service unavailable", logg)
	}
	return runOrderTransition(svc.Submit, logg)
}

// StaffCancelOrder cancels an order and unlinks its onboarding.
func StaffCancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("order service unavailable", logg)
	}
	return runOrderTransition(svc.Cancel, logg)
}

// StaffSubmitOnboarding moves an onboarding from Draft to Onboarded.
func StaffSubmitOnboarding(svc onboarding.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("onboarding service unavailable", logg)
	}
	return runOnboardingTransition(svc.Submit, logg)
}

// StaffCancelOnboarding cancels an onboarding and unlinks its order.
func StaffCancelOnboarding(svc onboarding.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("onboarding service unavailable", logg)
	}
	return runOnboardingTransition(svc.Cancel, logg)
}

// StaffUpdateOnboarding corrects stay times or identity details of a draft
// onboarding and returns the save notices.
func StaffUpdateOnboarding(svc onboarding.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("onboarding service unavailable", logg)
	}
	return decodeAndRun(logg, strict, func(r *http.Request, details onboarding.DetailsInput) (*onboarding.UpdateResult, error) {
		onboardingID, err := pathID(r, "onboardingId")
		if err != nil {
			return nil, err
		}
		return svc.Update(r.Context(), onboarding.UpdateInput{
			TransitionInput: onboarding.TransitionInput{
				OnboardingID: onboardingID,
				ActorID:      middleware.AccountIDFromContext(r.Context()),
				ActorRole:    middleware.ActorRoleFromContext(r.Context()),
			},
			Details: details,
		})
	}, writeSuccess[*onboarding.UpdateResult])
}

func runOrderTransition(fn orderTransition, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := fn(r.Context(), orders.TransitionInput{
			OrderID:   orderID,
			ActorID:   middleware.AccountIDFromContext(r.Context()),
			ActorRole: middleware.ActorRoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func runOnboardingTransition(fn onboardingTransition, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		onboardingID, err := pathID(r, "onboardingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := fn(r.Context(), onboarding.TransitionInput{
			OnboardingID: onboardingID,
			ActorID:      middleware.AccountIDFromContext(r.Context()),
			ActorRole:    middleware.ActorRoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func pathID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+param).WithDetails(map[string]any{"field": param})
	}
	return id, nil
}
