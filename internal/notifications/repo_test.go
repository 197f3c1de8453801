package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/dbtest"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

func logRow(recipient string, sentAt time.Time) *models.Notification {
	return &models.Notification{
		EventID:   uuid.New(),
		EventType: enums.EventAccountCreated,
		Type:      enums.NotificationTypeWelcome,
		Recipient: recipient,
		Subject:   "Welcome",
		SentAt:    sentAt,
	}
}

func TestCreateIgnoresDuplicateEvent(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()
	row := logRow("guest@example.com", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, row))

	dup := logRow("guest@example.com", time.Now().UTC())
	dup.EventID = row.EventID
	require.NoError(t, repo.Create(ctx, dup))

	rows, err := repo.ListByRecipient(ctx, "guest@example.com", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDeleteOlderThan(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, logRow("guest@example.com", now.Add(-60*24*time.Hour))))
	require.NoError(t, repo.Create(ctx, logRow("guest@example.com", now)))

	deleted, err := repo.DeleteOlderThan(ctx, nil, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rows, err := repo.ListByRecipient(ctx, "guest@example.com", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.WithinDuration(t, now, rows[0].SentAt, time.Second)
}
