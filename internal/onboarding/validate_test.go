package onboarding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
)

func TestValidateLateCheckoutIsAdvisory(t *testing.T) {
	rec := &models.GuestOnboarding{CheckInTime: "14:00:00", CheckOutTime: "11:30:00", Nationality: "India"}
	notices, err := Validate(rec)
	require.NoError(t, err)
	assert.Equal(t, []string{LateCheckoutNotice}, []string(notices))

	rec.CheckOutTime = "11:00:00"
	notices, err = Validate(rec)
	require.NoError(t, err)
	assert.Empty(t, notices)

	rec.CheckInTime = ""
	rec.CheckOutTime = "18:00:00"
	notices, err = Validate(rec)
	require.NoError(t, err)
	assert.Empty(t, notices)
}

func TestValidatePassportRules(t *testing.T) {
	foreign := &models.GuestOnboarding{Nationality: "France", IDProofType: enums.IDProofPassport}
	_, err := Validate(foreign)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, PassportRequired, pkgerrors.As(err).Message())

	foreign.PassportNumber = "P123"
	_, err = Validate(foreign)
	require.Error(t, err)

	foreign.VisaNumber = "V456"
	_, err = Validate(foreign)
	require.NoError(t, err)

	indian := &models.GuestOnboarding{Nationality: "India", IDProofType: enums.IDProofPassport}
	_, err = Validate(indian)
	require.NoError(t, err)

	otherProof := &models.GuestOnboarding{Nationality: "France", IDProofType: enums.IDProofDrivingLicense}
	_, err = Validate(otherProof)
	require.NoError(t, err)
}

func TestValidateRejectsMalformedClock(t *testing.T) {
	_, err := Validate(&models.GuestOnboarding{CheckInTime: "25:00:00", CheckOutTime: "10:00:00"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNormalizeClock(t *testing.T) {
	for in, want := range map[string]string{
		"":         "",
		"9:05":     "09:05:00",
		"14:30":    "14:30:00",
		"14:30:15": "14:30:15",
	} {
		got, err := NormalizeClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := NormalizeClock("noon")
	require.Error(t, err)
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("11:00:01")
	require.NoError(t, err)
	assert.Equal(t, 11*time.Hour+time.Second, d)
}
