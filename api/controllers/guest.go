package controllers

import (
	"net/http"

	"github.com/krishnaroyalclub/krc-backend/api/middleware"
	"github.com/krishnaroyalclub/krc-backend/internal/booking"
	"github.com/krishnaroyalclub/krc-backend/internal/onboarding"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

// Guest endpoints act for the session caller when there is one and fall back
// to the email carried in the payload otherwise.

// CreateOnboarding records a guest stay intake.
func CreateOnboarding(svc onboarding.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("onboarding service unavailable", logg)
	}
	return decodeAndRun(logg, lenient, func(r *http.Request, in onboarding.CreateInput) (*onboarding.CreateResult, error) {
		return svc.Create(r.Context(), middleware.CallerFromContext(r.Context()), in)
	}, writeCreated[*onboarding.CreateResult])
}

// CreateBooking turns the cart into a draft order.
func CreateBooking(svc booking.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("booking service unavailable", logg)
	}
	return decodeAndRun(logg, lenient, func(r *http.Request, in booking.BookingInput) (*booking.BookingResult, error) {
		return svc.CreateBooking(r.Context(), middleware.CallerFromContext(r.Context()), in)
	}, writeCreated[*booking.BookingResult])
}

// CreateOpportunity records the caller's interest against their lead.
func CreateOpportunity(svc booking.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("booking service unavailable", logg)
	}
	return decodeAndRun(logg, lenient, func(r *http.Request, in booking.OpportunityInput) (*booking.OpportunityResult, error) {
		return svc.CreateOpportunity(r.Context(), middleware.CallerFromContext(r.Context()), in)
	}, writeCreated[*booking.OpportunityResult])
}
