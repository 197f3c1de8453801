package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/internal/links"
	"github.com/krishnaroyalclub/krc-backend/internal/orders"
	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/dbtest"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

var staff = &outbox.ActorRef{AccountID: uuid.New(), Role: enums.RoleStaff}

func fixedNow() time.Time { return time.Date(2025, 11, 21, 9, 0, 0, 0, time.UTC) }

func newMachine(t *testing.T, client *db.Client) *Machine {
	t.Helper()
	emitter := outbox.NewWriter(outbox.NewRepository(client.DB()), logger.Nop())
	guard, err := orders.NewGuard(orders.GuardParams{Outbox: emitter, Logger: logger.Nop(), Now: fixedNow})
	require.NoError(t, err)
	machine, err := NewMachine(MachineParams{
		Guard:    guard,
		Outbox:   emitter,
		Defaults: dbtest.Defaults(),
		Logger:   logger.Nop(),
		Now:      fixedNow,
	})
	require.NoError(t, err)
	return machine
}

func submit(t *testing.T, client *db.Client, m *Machine, id uuid.UUID) (types.Notices, error) {
	t.Helper()
	var notices types.Notices
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		notices, err = m.Submit(context.Background(), tx, id, staff)
		return err
	})
	return notices, err
}

func cancel(t *testing.T, client *db.Client, m *Machine, id uuid.UUID) (types.Notices, error) {
	t.Helper()
	var notices types.Notices
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		notices, err = m.Cancel(context.Background(), tx, id, staff)
		return err
	})
	return notices, err
}

func reload(t *testing.T, client *db.Client, id uuid.UUID) *models.GuestOnboarding {
	t.Helper()
	rec, err := NewRepository(client.DB()).FindByID(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func reloadOrder(t *testing.T, client *db.Client, id uuid.UUID) *models.Order {
	t.Helper()
	order, err := orders.NewRepository(client.DB()).FindByID(context.Background(), id)
	require.NoError(t, err)
	return order
}

func link(t *testing.T, client *db.Client, onboardingID, orderID uuid.UUID) {
	t.Helper()
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return links.Link(context.Background(), tx, onboardingID, orderID)
	}))
}

func countEvents(t *testing.T, client *db.Client, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestSubmitCreatesOrderFromServices(t *testing.T) {
	client := dbtest.Open(t)
	m := newMachine(t, client)
	dbtest.SeedItem(t, client, "ROOM", "Deluxe Room", "1500")
	dbtest.SeedItem(t, client, "MEAL", "Meal Plan", "300")
	customer := dbtest.SeedCustomer(t, client, "guest@example.com", "Asha Rao")
	rec := dbtest.SeedOnboarding(t, client, customer, "ROOM", "MEAL")

	notices, err := submit(t, client, m, rec.ID)
	require.NoError(t, err)

	got := reload(t, client, rec.ID)
	assert.Equal(t, enums.OnboardingStatusOnboarded, got.Status)
	require.NotNil(t, got.SubmittedAt)
	require.NotNil(t, got.OrderID)

	order := reloadOrder(t, client, *got.OrderID)
	assert.Equal(t, enums.DocStatusSubmitted, order.DocStatus)
	require.NotNil(t, order.OnboardingID)
	assert.Equal(t, rec.ID, *order.OnboardingID)
	require.Len(t, order.Items, 2)
	// service-row rates of 1000 win over the catalog rates, three days each
	assert.Equal(t, "3000", order.Items[0].Amount.String())
	assert.Equal(t, "6000", order.GrandTotal.String())
	assert.Equal(t, "Deluxe Room for 1 Occupant from 22-11-2025 till 24-11-2025", order.Items[0].Description)

	assert.NotContains(t, notices, noServicesNotice)
	assert.EqualValues(t, 1, countEvents(t, client, enums.EventOnboardingSubmitted))
	assert.EqualValues(t, 1, countEvents(t, client, enums.EventOrderSubmitted))
}

func TestSubmitWithoutServicesOnboardsWithoutOrder(t *testing.T) {
	client := dbtest.Open(t)
	m := newMachine(t, client)
	customer := dbtest.SeedCustomer(t, client, "guest@example.com", "Asha Rao")
	rec := dbtest.SeedOnboarding(t, client, customer)

	notices, err := submit(t, client, m, rec.ID)
	require.NoError(t, err)
	assert.Contains(t, notices, noServicesNotice)

	got := reload(t, client, rec.ID)
	assert.Equal(t, enums.OnboardingStatusOnboarded, got.Status)
	assert.Nil(t, got.OrderID)
	assert.EqualValues(t, 0, countEvents(t, client, enums.EventOrderSubmitted))
}

func TestSubmitAdoptsActiveUnlinkedOrder(t *testing.T) {
	client := dbtest.Open(t)
	m := newMachine(t, client)
	customer := dbtest.SeedCustomer(t, client, "guest@example.com", "Asha Rao")
	order := dbtest.SeedOrder(t, client, customer, enums.DocStatusDraft, "ROOM")
	rec := dbtest.SeedOnboarding(t, client, customer, "ROOM")

	_, err := submit(t, client, m, rec.ID)
	require.NoError(t, err)

	got := reload(t, client, rec.ID)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, order.ID, *got.OrderID)
	assert.Equal(t, enums.DocStatusSubmitted, reloadOrder(t, client, order.ID).DocStatus)

	var n int64
	require.NoError(t, client.DB().Model(&models.Order{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestSubmitLeavesSubmittedOrderAlone(t *testing.T) {
	client := dbtest.Open(t)
	m := newMachine(t, client)
	customer := dbtest.SeedCustomer(t, client, "guest@example.com", "Asha Rao")
	order := dbtest.SeedOrder(t, client, customer, enums.DocStatusSubmitted, "ROOM")
	rec := dbtest.SeedOnboarding(t, client, customer)
	link(t, client, rec.ID, order.ID)

	_, err := submit(t, client, m, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.OnboardingStatusOnboarded, reload(t, client, rec.ID).Status)
	assert.Equal(t, enums.DocStatusSubmitted, reloadOrder(t, client, order.ID).DocStatus)
	assert.EqualValues(t, 0, countEvents(t, client, enums.EventOrderSubmitted))
}

func TestSubmitFailsOnCancelledOrderAndRollsBack(t *testing.T) {
	client := dbtest.Open(t)
	m := newMachine(t, client)
	customer := dbtest.SeedCustomer(t, client, "guest@example.com", "Asha Rao")
	order := dbtest.SeedOrder(t, client, customer, enums.DocStatusDraft, "ROOM")
	rec := dbtest.SeedOnboarding(t, client, customer)
	link(t, client, rec.ID, order.ID)
	require.NoError(t, client.DB().Model(&models.Order{}).Where("id = ?", order.ID).
		UpdateColumn("docstatus", enums.DocStatusCancelled).Error)

	_, err := submit(t, client, m, rec.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	got := reload(t, client, rec.ID)
	assert.Equal(t, enums.OnboardingStatusDraft, got.Status)
	assert.Nil(t, got.SubmittedAt)
	assert.EqualValues(t, 0, countEvents(t, client, enums.EventOnboardingSubmitted))
}

func TestSubmitFailsOnMissingOrder(t *testing.T) {
	client := dbtest.Open(t)
	m := newMachine(t, client)
	customer := dbtest.SeedCustomer(t, client, "guest@example.com", "Asha Rao")
	rec := dbtest.SeedOnboarding(t, client, customer)
	require.NoError(t, client.DB().Model(&models.GuestOnboarding{}).Where("id = ?", rec.ID).
		UpdateColumn("order_id", uuid.New()).Error)

	_, err := submit(t, client, m, rec.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
	assert.Equal(t, enums.OnboardingStatusDraft, reload(t, client, rec.ID).Status)
}

func TestSubmitRejectsSecondActiveOrder(t *testing.T) {
	client := dbtest.Open(t)
	m := newMachine(t, client)
	dbtest.SeedItem(t, client, "ROOM", "Deluxe Room", "1500")
	customer := dbtest.SeedCustomer(t, client, "guest@example.com", "Asha Rao")
	other := dbtest.SeedOnboarding(t, client, customer)
	order := dbtest.SeedOrder(t, client, customer, enums.DocStatusDraft, "ROOM")
	link(t, client, other.ID, order.ID)
	rec := dbtest.SeedOnboarding(t, client, customer, "ROOM")

	_, err := submit(t, client, m, rec.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateActiveOrder), "got %v", err)
	assert.Nil(t, reload(t, client, rec.ID).OrderID)
}

func TestSubmitRunsSaveValidation(t *testing.T) {
	client := dbtest.Open(t)
	m := newMachine(t, client)
	customer := dbtest.SeedCustomer(t, client, "guest@example.com", "Jean Dupont")
	rec := dbtest.SeedOnboarding(t, client, customer)
	require.NoError(t, client.DB().Model(&models.GuestOnboarding{}).Where("id = ?", rec.ID).
		UpdateColumns(map[string]any{"nationality": "France", "id_proof_type": enums.IDProofPassport}).Error)

	_, err := submit(t, client, m, rec.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, PassportRequired, pkgerrors.As(err).Message())

	require.NoError(t, client.DB().Model(&models.GuestOnboarding{}).Where("id = ?", rec.ID).
		UpdateColumns(map[string]any{"nationality": "India"}).Error)
	_, err = submit(t, client, m, rec.ID)
	require.NoError(t, err)
}

func TestSubmitRequiresDraft(t *testing.T) {
	client := dbtest.Open(t)
	m := newMachine(t, client)
	customer := dbtest.SeedCustomer(t, client, "guest@example.com", "Asha Rao")
	rec := dbtest.SeedOnboarding(t, client, customer)

	_, err := submit(t, client, m, rec.ID)
	require.NoError(t, err)
	_, err = submit(t, client, m, rec.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = submit(t, client, m, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCancelUnlinksBothSidesButKeepsOrder(t *testing.T) {
	client := dbtest.Open(t)
	m := newMachine(t, client)
	customer := dbtest.SeedCustomer(t, client, "guest@example.com", "Asha Rao")
	order := dbtest.SeedOrder(t, client, customer, enums.DocStatusSubmitted, "ROOM")
	rec := dbtest.SeedOnboarding(t, client, customer)
	link(t, client, rec.ID, order.ID)

	notices, err := cancel(t, client, m, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Notices{"Unlinked Sales Order " + order.ID.String()}, notices)

	got := reload(t, client, rec.ID)
	assert.Nil(t, got.OrderID)
	assert.NotNil(t, got.CancelledAt)
	assert.Equal(t, enums.OnboardingStatusDraft, got.Status)

	gotOrder := reloadOrder(t, client, order.ID)
	assert.Nil(t, gotOrder.OnboardingID)
	assert.Equal(t, enums.DocStatusSubmitted, gotOrder.DocStatus)
	assert.EqualValues(t, 1, countEvents(t, client, enums.EventOnboardingCancelled))

	_, err = cancel(t, client, m, rec.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = submit(t, client, m, rec.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCancelWithoutLink(t *testing.T) {
	client := dbtest.Open(t)
	m := newMachine(t, client)
	customer := dbtest.SeedCustomer(t, client, "guest@example.com", "Asha Rao")
	rec := dbtest.SeedOnboarding(t, client, customer)

	notices, err := cancel(t, client, m, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, notices)
	assert.NotNil(t, reload(t, client, rec.ID).CancelledAt)
}
