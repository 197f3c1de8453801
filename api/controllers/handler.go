package controllers

import (
	"net/http"

	"github.com/krishnaroyalclub/krc-backend/api/responses"
	"github.com/krishnaroyalclub/krc-backend/api/validators"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

// decodeFunc fills dest from the request body.
type decodeFunc func(r *http.Request, dest any) error

var (
	// lenient accepts an empty body and ignores unknown fields.
	lenient decodeFunc = validators.DecodeJSONPayload
	strict  decodeFunc = validators.DecodeJSONBody
)

// writeFunc renders a successful result.
type writeFunc[Out any] func(w http.ResponseWriter, out Out)

func writeSuccess[Out any](w http.ResponseWriter, out Out) {
	responses.WriteSuccess(w, out)
}

func writeCreated[Out any](w http.ResponseWriter, out Out) {
	responses.WriteSuccessStatus(w, http.StatusCreated, out)
}

func writeMessage(w http.ResponseWriter, msg string) {
	responses.WriteMessage(w, msg)
}

// decodeAndRun decodes In, passes it to act and writes the result. Every
// failure goes through the error envelope.
func decodeAndRun[In, Out any](logg *logger.Logger, decode decodeFunc, act func(r *http.Request, in In) (Out, error), write writeFunc[Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := decode(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := act(r, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		write(w, out)
	}
}

func unavailable(msg string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, msg))
	}
}
