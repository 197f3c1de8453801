package controllers

import (
	"net/http"

	"github.com/krishnaroyalclub/krc-backend/internal/accounts"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

// CreateAccount registers a guest and returns the lead created for them.
func CreateAccount(svc accounts.Provisioner, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("account service unavailable", logg)
	}
	return decodeAndRun(logg, lenient, func(r *http.Request, in accounts.CreateAccountInput) (*accounts.CreateAccountResult, error) {
		return svc.CreateAccount(r.Context(), in)
	}, writeCreated[*accounts.CreateAccountResult])
}
