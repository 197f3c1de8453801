package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

// WriteSuccess writes payload with status 200. Object payloads are flattened
// next to "success": true.
func WriteSuccess(w http.ResponseWriter, payload any) {
	WriteSuccessStatus(w, http.StatusOK, payload)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, payload any) {
	body, err := flatten(payload)
	if err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
		writeJSON(w, http.StatusInternalServerError, types.ErrorEnvelope{
			Error: pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage,
			Code:  string(pkgerrors.CodeInternal),
		})
		return
	}
	writeJSON(w, status, body)
}

// WriteMessage writes {"success": true, "message": msg}.
func WriteMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, types.MessageEnvelope{Success: types.OK(), Message: msg})
}

func flatten(payload any) (map[string]json.RawMessage, error) {
	body := map[string]json.RawMessage{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if len(raw) > 0 && raw[0] == '{' {
			if err := json.Unmarshal(raw, &body); err != nil {
				return nil, err
			}
		} else if string(raw) != "null" {
			body["data"] = raw
		}
	}
	body["success"] = json.RawMessage("true")
	return body, nil
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if typed.Code().Exposable() {
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := types.ErrorEnvelope{
		Error: msg,
		Code:  string(typed.Code()),
	}
	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload.Details = details
		}
	}

	if logg != nil {
		fields := pkgerrors.Dump(err).Fields()
		fields["status"] = meta.HTTPStatus
		fields["retryable"] = meta.Retryable
		ctx = logg.WithFields(ctx, fields)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.error")
		}
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
