package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
)

type refreshBody struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type guestBody struct {
	Email string `json:"email"`
}

func request(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var dest refreshBody
	err := DecodeJSONBody(request(`{"access_token":"a","refresh_token":"b","extra":1}`), &dest)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyReportsMissingFields(t *testing.T) {
	var dest refreshBody
	err := DecodeJSONBody(request(`{"access_token":"a"}`), &dest)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"refresh_token": "is required"}, typed.Details())
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	var dest refreshBody
	err := DecodeJSONBody(request(``), &dest)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONPayloadIsLenient(t *testing.T) {
	var dest guestBody
	require.NoError(t, DecodeJSONPayload(request(`{"email":"asha@example.com","cmd":"krc.api.create_booking"}`), &dest))
	assert.Equal(t, "asha@example.com", dest.Email)

	var empty guestBody
	require.NoError(t, DecodeJSONPayload(request(``), &empty))
	assert.Empty(t, empty.Email)

	err := DecodeJSONPayload(request(`{"email":`), &empty)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	var dest refreshBody
	err := DecodeJSONBody(request(`{"access_token":"a","refresh_token":"b"} {"x":1}`), &dest)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	var dest guestBody
	huge := `{"email":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	err := DecodeJSONPayload(request(huge), &dest)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStructReportsOneOf(t *testing.T) {
	type filter struct {
		Status string `json:"status" validate:"oneof=Draft Submitted"`
	}
	typed := pkgerrors.As(Struct(filter{Status: "Paid"}))
	require.NotNil(t, typed)
	assert.Equal(t, map[string]string{"status": "must be one of Draft Submitted"}, typed.Details())
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Services", SanitizeString("  Services ", 0))
	assert.Equal(t, "Room Service", SanitizeString(" Room \t  Service\n", 0))
	assert.Equal(t, "Ser", SanitizeString("Services", 3))
	assert.Equal(t, "Caf", SanitizeString("Café", 4))
	assert.Equal(t, "Room", SanitizeString("Room Service", 5))
}
