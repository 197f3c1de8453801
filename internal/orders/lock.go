package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/lock"
)

const lockBusyMessage = "A booking for this customer is already in progress"

// CustomerLockName is the lock name serializing order creation per customer.
func CustomerLockName(customerID uuid.UUID) string {
	return "customer:" + customerID.String()
}

// WithCustomerLock runs fn while holding the customer's order lock. A lock
// that cannot be obtained in time is reported as CONFLICT.
func WithCustomerLock(ctx context.Context, locker lock.Locker, customerID uuid.UUID, fn func() error) (err error) {
	if locker == nil {
		locker = lock.NopLocker{}
	}
	unlock, err := locker.Lock(ctx, CustomerLockName(customerID))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return pkgerrors.New(pkgerrors.CodeConflict, lockBusyMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire customer lock")
	}
	defer func() {
		if releaseErr := unlock(context.WithoutCancel(ctx)); releaseErr != nil {
			err = multierr.Append(err, pkgerrors.Wrap(pkgerrors.CodeDependency, releaseErr, "release customer lock"))
		}
	}()
	return fn()
}
