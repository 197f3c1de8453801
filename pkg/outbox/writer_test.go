package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/dbtest"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

type samplePayload struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
}

func TestEmitStoresEnvelope(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewWriter(NewRepository(client.DB()), logger.Nop())
	accountID := uuid.New()

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventAccountCreated,
			AggregateType: enums.AggregateAccount,
			AggregateID:   accountID,
			Actor:         &ActorRef{AccountID: accountID, Role: enums.RoleCustomer},
			Data:          samplePayload{AccountID: accountID, Email: "guest@example.com"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventAccountCreated, rows[0].EventType)
	assert.Nil(t, rows[0].PublishedAt)

	var data samplePayload
	env, err := OpenEnvelope(rows[0].Payload, &data)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, env.Version)
	require.NotNil(t, env.Actor)
	assert.Equal(t, accountID, env.Actor.AccountID)

	assert.Equal(t, "guest@example.com", data.Email)
	_, err = uuid.Parse(env.EventID)
	assert.NoError(t, err)
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewWriter(NewRepository(client.DB()), nil)

	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventBookingCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]string{"k": "v"},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRejectsUnknownTypes(t *testing.T) {
	svc := NewWriter(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), &gorm.DB{}, DomainEvent{
		EventType:     "made_up",
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	})
	require.Error(t, err)

	err = svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventBookingCreated})
	require.Error(t, err)
}

func TestOpenEnvelopeRejectsEmptyData(t *testing.T) {
	_, err := OpenEnvelope([]byte(`{"version":1,"eventId":"e1","data":null}`), nil)
	assert.ErrorIs(t, err, errEmptyData)

	_, err = OpenEnvelope([]byte(`{"version":1`), nil)
	assert.Error(t, err)

	var target struct{ N int }
	env, err := OpenEnvelope([]byte(`{"version":1,"eventId":"e1","data":{"N":3}}`), &target)
	require.NoError(t, err)
	assert.Equal(t, "e1", env.EventID)
	assert.Equal(t, 3, target.N)
}
