package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

// TransitionResult is returned by the staff lifecycle endpoints.
type TransitionResult struct {
	OrderID   uuid.UUID       `json:"order_id"`
	DocStatus enums.DocStatus `json:"docstatus"`
	Status    string          `json:"status"`
	Notices   []string        `json:"notices"`
}

// TransitionInput identifies the order and the staff member acting on it.
type TransitionInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.Role
}

// Service runs order lifecycle transitions in their own transaction.
type Service interface {
	Submit(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	Cancel(ctx context.Context, input TransitionInput) (*TransitionResult, error)
}

type service struct {
	tx    txRunner
	guard *Guard
}

// NewService builds the order lifecycle service.
func NewService(tx txRunner, guard *Guard) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if guard == nil {
		return nil, fmt.Errorf("order guard required")
	}
	return &service{tx: tx, guard: guard}, nil
}

func (s *service) Submit(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	return s.transition(ctx, input, enums.DocStatusSubmitted, s.guard.Submit)
}

func (s *service) Cancel(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	return s.transition(ctx, input, enums.DocStatusCancelled, s.guard.Cancel)
}

type transitionFn func(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor *outbox.ActorRef) (types.Notices, error)

func (s *service) transition(ctx context.Context, input TransitionInput, target enums.DocStatus, fn transitionFn) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	actor := &outbox.ActorRef{AccountID: input.ActorID, Role: input.ActorRole}
	var notices types.Notices
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		notices, err = fn(ctx, tx, input.OrderID, actor)
		return err
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order transition")
		}
		return nil, err
	}
	return &TransitionResult{
		OrderID:   input.OrderID,
		DocStatus: target,
		Status:    target.String(),
		Notices:   notices.OrEmpty(),
	}, nil
}
