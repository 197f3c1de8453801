package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/lock"
)

type stubLocker struct {
	err       error
	names     []string
	released  int
	unlockErr error
}

func (s *stubLocker) Lock(_ context.Context, name string) (lock.Unlock, error) {
	s.names = append(s.names, name)
	if s.err != nil {
		return nil, s.err
	}
	return func(context.Context) error {
		s.released++
		return s.unlockErr
	}, nil
}

func TestWithCustomerLockReleases(t *testing.T) {
	locker := &stubLocker{}
	customerID := uuid.New()
	ran := false

	err := WithCustomerLock(context.Background(), locker, customerID, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{CustomerLockName(customerID)}, locker.names)
	assert.Equal(t, 1, locker.released)
}

func TestWithCustomerLockBusy(t *testing.T) {
	locker := &stubLocker{err: lock.ErrNotAcquired}

	err := WithCustomerLock(context.Background(), locker, uuid.New(), func() error {
		t.Fatal("must not run without the lock")
		return nil
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, lockBusyMessage, pkgerrors.As(err).Message())
}

func TestWithCustomerLockKeepsWorkErrorOnReleaseFailure(t *testing.T) {
	locker := &stubLocker{unlockErr: errors.New("redis gone")}

	err := WithCustomerLock(context.Background(), locker, uuid.New(), func() error {
		return pkgerrors.New(pkgerrors.CodeValidation, "bad input")
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "release customer lock")
}

func TestWithCustomerLockNilLocker(t *testing.T) {
	require.NoError(t, WithCustomerLock(context.Background(), nil, uuid.New(), func() error { return nil }))
}
