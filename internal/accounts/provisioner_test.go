package accounts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaroyalclub/krc-backend/internal/comments"
	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/dbtest"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox/payloads"
	"github.com/krishnaroyalclub/krc-backend/pkg/security"
)

func newTestProvisioner(t *testing.T, client *db.Client) Provisioner {
	t.Helper()
	p, err := NewProvisioner(ProvisionerParams{
		DB:       client,
		Outbox:   outbox.NewWriter(outbox.NewRepository(client.DB()), logger.Nop()),
		Defaults: dbtest.Defaults(),
		Password: dbtest.PasswordConfig(),
		Logger:   logger.Nop(),
	})
	require.NoError(t, err)
	return p
}

func validInput() CreateAccountInput {
	return CreateAccountInput{
		FullName: "Asha  Devi Rao",
		Email:    " Asha@Example.COM ",
		Phone:    "+91 98765 43210",
		Password: "secret1",
	}
}

func TestCreateAccountPersistsLeadAndAccount(t *testing.T) {
	client := dbtest.Open(t)
	p := newTestProvisioner(t, client)
	ctx := context.Background()

	res, err := p.CreateAccount(ctx, validInput())
	require.NoError(t, err)
	require.NotNil(t, res.Lead)
	assert.Equal(t, "asha@example.com", res.Lead.Email)
	assert.Equal(t, "Asha  Devi Rao", res.Lead.LeadName)
	assert.Equal(t, enums.LeadStatusNew, res.Lead.Status)
	assert.Equal(t, "+91 98765 43210", res.Lead.Phone)

	account, err := NewRepository(client.DB()).FindByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Asha", account.FirstName)
	assert.Equal(t, "Devi Rao", account.LastName)
	assert.True(t, account.Enabled)
	assert.True(t, account.Roles.Has(enums.RoleCustomer))
	ok, err := security.VerifyPassword("secret1", account.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	var lead models.Lead
	require.NoError(t, client.DB().First(&lead, "email = ?", "asha@example.com").Error)
	assert.Equal(t, "All Territories", lead.Territory)
	assert.Equal(t, "Krishna Royal Club", lead.Company)

	notes, err := comments.NewRepository(client.DB()).List(ctx, enums.ReferenceLead, lead.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "User account created: asha@example.com", notes[0].Content)

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventAccountCreated, events[0].EventType)
	var env outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &env))
	var payload payloads.AccountCreatedEvent
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, account.ID, payload.AccountID)
	assert.Equal(t, lead.ID, payload.LeadID)
}

func TestCreateAccountRejectsDuplicateEmailCaseInsensitive(t *testing.T) {
	client := dbtest.Open(t)
	p := newTestProvisioner(t, client)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, validInput())
	require.NoError(t, err)

	dup := validInput()
	dup.Email = "ASHA@example.com"
	dup.FullName = "Someone Else"
	_, err = p.CreateAccount(ctx, dup)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateEmail))
	assert.Equal(t, msgLeadExists, pkgerrors.As(err).Message())

	var leadCount, accountCount, eventCount int64
	require.NoError(t, client.DB().Model(&models.Lead{}).Count(&leadCount).Error)
	require.NoError(t, client.DB().Model(&models.Account{}).Count(&accountCount).Error)
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&eventCount).Error)
	assert.EqualValues(t, 1, leadCount)
	assert.EqualValues(t, 1, accountCount)
	assert.EqualValues(t, 1, eventCount)
}

func TestCreateAccountRejectsExistingAccountWithoutLead(t *testing.T) {
	client := dbtest.Open(t)
	dbtest.SeedAccount(t, client, "asha@example.com", "Asha", "whatever1", true)

	_, err := newTestProvisioner(t, client).CreateAccount(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateEmail))
	assert.Equal(t, msgAccountExists, pkgerrors.As(err).Message())

	var leadCount int64
	require.NoError(t, client.DB().Model(&models.Lead{}).Count(&leadCount).Error)
	assert.Zero(t, leadCount)
}

func TestCreateAccountValidation(t *testing.T) {
	client := dbtest.Open(t)
	p := newTestProvisioner(t, client)

	cases := []struct {
		name   string
		mutate func(*CreateAccountInput)
		want   string
	}{
		{"full name", func(in *CreateAccountInput) { in.FullName = "  " }, "Full Name is required"},
		{"email", func(in *CreateAccountInput) { in.Email = "" }, "Email is required"},
		{"phone", func(in *CreateAccountInput) { in.Phone = "" }, "Phone is required"},
		{"password", func(in *CreateAccountInput) { in.Password = "" }, "Password is required"},
		{"email format", func(in *CreateAccountInput) { in.Email = "asha@localhost" }, "Invalid email format"},
		{"email tld", func(in *CreateAccountInput) { in.Email = "asha@example.c" }, "Invalid email format"},
		{"password length", func(in *CreateAccountInput) { in.Password = "12345" }, "Password must be at least 6 characters long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := p.CreateAccount(context.Background(), in)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
			assert.Equal(t, tc.want, pkgerrors.As(err).Message())
		})
	}

	var count int64
	require.NoError(t, client.DB().Model(&models.Account{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateAccountSingleNameHasEmptyLastName(t *testing.T) {
	client := dbtest.Open(t)
	in := validInput()
	in.FullName = "Madhav"

	_, err := newTestProvisioner(t, client).CreateAccount(context.Background(), in)
	require.NoError(t, err)

	account, err := NewRepository(client.DB()).FindByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Madhav", account.FirstName)
	assert.Equal(t, "", account.LastName)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("guest.name+tag@mail.example.in"))
	assert.False(t, ValidEmail("guest@"))
	assert.False(t, ValidEmail("guest@example"))
	assert.False(t, ValidEmail("not an email"))
	assert.Equal(t, "guest@example.com", NormalizeEmail("  GUEST@Example.com "))
}
