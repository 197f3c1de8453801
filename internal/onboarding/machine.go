package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/internal/catalog"
	"github.com/krishnaroyalclub/krc-backend/internal/customers"
	"github.com/krishnaroyalclub/krc-backend/internal/links"
	"github.com/krishnaroyalclub/krc-backend/internal/orders"
	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox/payloads"
	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

const noServicesNotice = "No services selected; no Sales Order was created."

// Machine runs the onboarding transitions inside the caller's transaction.
type Machine struct {
	guard    *orders.Guard
	outbox   outbox.Emitter
	defaults config.DefaultsConfig
	logg     *logger.Logger
	metrics  *metrics.LifecycleMetrics
	now      func() time.Time
}

// MachineParams wires a Machine.
type MachineParams struct {
	Guard    *orders.Guard
	Outbox   outbox.Emitter
	Defaults config.DefaultsConfig
	Logger   *logger.Logger
	Metrics  *metrics.LifecycleMetrics
	Now      func() time.Time
}

func NewMachine(params MachineParams) (*Machine, error) {
	if params.Guard == nil {
		return nil, fmt.Errorf("order guard required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Machine{
		guard:    params.Guard,
		outbox:   params.Outbox,
		defaults: params.Defaults,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// Submit moves a draft onboarding to Onboarded and confirms its order. An
// unlinked record adopts the guest's active unlinked order or gets a new one
// built from its services; a draft order is submitted, a submitted order is
// left alone, and a missing or cancelled order fails the whole transition.
func (m *Machine) Submit(ctx context.Context, tx *gorm.DB, id uuid.UUID, actor *outbox.ActorRef) (notices types.Notices, err error) {
	defer func() { m.metrics.IncTransition("onboarding", "submit", err) }()
	ctx = m.logg.WithField(ctx, "onboarding_id", id.String())

	repo := NewRepository(tx)
	rec, err := load(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if rec.CancelledAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Guest Onboarding %s is cancelled", rec.ID))
	}
	if rec.Status != enums.OnboardingStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Guest Onboarding %s is already %s", rec.ID, rec.Status))
	}

	validation, err := Validate(rec)
	if err != nil {
		return nil, err
	}
	m.notify(ctx, &notices, validation...)

	if rec.OrderID == nil {
		attached, err := m.attachOrder(ctx, tx, rec, actor)
		if err != nil {
			return nil, err
		}
		if attached == nil {
			m.notify(ctx, &notices, noServicesNotice)
		}
		rec.OrderID = attached
	}

	if rec.OrderID != nil {
		orderNotices, err := m.confirmOrder(ctx, tx, *rec.OrderID, actor)
		if err != nil {
			return nil, err
		}
		notices.Extend(orderNotices)
	}

	now := m.now().UTC()
	moved, err := repo.MarkOnboarded(ctx, rec.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submit onboarding")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "onboarding changed while submitting")
	}

	err = m.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOnboardingSubmitted,
		AggregateType: enums.AggregateOnboarding,
		AggregateID:   rec.ID,
		Actor:         actor,
		Data: payloads.OnboardingSubmittedEvent{
			OnboardingID: rec.ID,
			CustomerID:   rec.CustomerID,
			OrderID:      rec.OrderID,
			SubmittedAt:  now,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit onboarding submitted")
	}
	m.logg.Info(ctx, "guest onboarded")
	return notices, nil
}

// Update applies a staff edit to a draft record and reruns the save rules.
// Onboarded and cancelled records are frozen.
func (m *Machine) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, details DetailsInput) (rec *models.GuestOnboarding, notices types.Notices, err error) {
	defer func() { m.metrics.IncTransition("onboarding", "update", err) }()
	ctx = m.logg.WithField(ctx, "onboarding_id", id.String())

	repo := NewRepository(tx)
	rec, err = load(ctx, repo, id)
	if err != nil {
		return nil, nil, err
	}
	if rec.CancelledAt != nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Guest Onboarding %s is cancelled", rec.ID))
	}
	if rec.Status != enums.OnboardingStatusDraft {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Guest Onboarding %s is %s and can no longer be edited", rec.ID, rec.Status))
	}

	if err := applyDetails(rec, details); err != nil {
		return nil, nil, err
	}
	validation, err := Validate(rec)
	if err != nil {
		return nil, nil, err
	}
	m.notify(ctx, &notices, validation...)

	saved, err := repo.SaveDetails(ctx, rec, m.now().UTC())
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save onboarding")
	}
	if !saved {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "onboarding changed while saving")
	}
	m.logg.Info(ctx, "onboarding details updated")
	return rec, notices, nil
}

// Cancel stamps the record cancelled and detaches its order. The link is
// cleared before and after the stamp; the order itself is not cancelled.
func (m *Machine) Cancel(ctx context.Context, tx *gorm.DB, id uuid.UUID, actor *outbox.ActorRef) (notices types.Notices, err error) {
	defer func() { m.metrics.IncTransition("onboarding", "cancel", err) }()
	ctx = m.logg.WithField(ctx, "onboarding_id", id.String())

	repo := NewRepository(tx)
	rec, err := load(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if rec.CancelledAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Guest Onboarding %s is already cancelled", rec.ID))
	}

	detached, err := links.UnlinkOnboarding(ctx, tx, rec.ID)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	moved, err := repo.MarkCancelled(ctx, rec.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel onboarding")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "onboarding changed while cancelling")
	}

	after, err := links.UnlinkOnboarding(ctx, tx, rec.ID)
	if err != nil {
		return nil, err
	}
	detached = append(detached, after...)

	var unlinked *uuid.UUID
	if len(detached) > 0 {
		unlinked = &detached[0]
		m.notify(ctx, &notices, fmt.Sprintf("Unlinked Sales Order %s", detached[0]))
	}

	err = m.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOnboardingCancelled,
		AggregateType: enums.AggregateOnboarding,
		AggregateID:   rec.ID,
		Actor:         actor,
		Data: payloads.OnboardingCancelledEvent{
			OnboardingID:    rec.ID,
			CustomerID:      rec.CustomerID,
			UnlinkedOrderID: unlinked,
			CancelledAt:     now,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit onboarding cancelled")
	}
	m.logg.Info(ctx, "guest onboarding cancelled")
	return notices, nil
}

// attachOrder links rec to the customer's active unlinked order, or creates a
// draft order from its services. It returns nil when there is nothing to
// attach.
func (m *Machine) attachOrder(ctx context.Context, tx *gorm.DB, rec *models.GuestOnboarding, actor *outbox.ActorRef) (*uuid.UUID, error) {
	active, err := orders.NewRepository(tx).FindActiveByCustomer(ctx, rec.CustomerID, uuid.Nil)
	switch {
	case err == nil && active.OnboardingID == nil:
		if err := links.Link(ctx, tx, rec.ID, active.ID); err != nil {
			return nil, err
		}
		return &active.ID, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find active order")
	}

	if len(rec.Services) == 0 {
		return nil, nil
	}

	order, err := m.orderFromServices(ctx, tx, rec)
	if err != nil {
		return nil, err
	}
	if err := m.guard.Create(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := links.Link(ctx, tx, rec.ID, order.ID); err != nil {
		return nil, err
	}
	m.logg.Info(m.logg.WithField(ctx, "order_id", order.ID.String()), "order created from onboarding services")
	return &order.ID, nil
}

func (m *Machine) orderFromServices(ctx context.Context, tx *gorm.DB, rec *models.GuestOnboarding) (*models.Order, error) {
	customer, err := customers.NewRepository(tx).FindByID(ctx, rec.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}

	codes := make([]string, 0, len(rec.Services))
	for _, svc := range rec.Services {
		codes = append(codes, svc.ItemCode)
	}
	priced, err := catalog.Resolve(ctx, catalog.NewRepository(tx), m.defaults.SellingPriceList, codes)
	if err != nil {
		return nil, err
	}
	// a rate captured on the service row wins over the catalog rate
	for i, svc := range rec.Services {
		if !svc.Rate.IsZero() {
			priced[i].Rate = svc.Rate
		}
	}

	stay, err := orders.NewStay(rec.FromDate, rec.ToDate, rec.NoOfGuests)
	if err != nil {
		return nil, err
	}
	lines, total := orders.BuildLines(priced, stay, m.defaults.UOM)
	return &models.Order{
		CustomerID:      customer.ID,
		CustomerName:    customer.CustomerName,
		Company:         m.defaults.Company,
		TransactionDate: m.now().UTC(),
		DeliveryDate:    stay.From,
		GrandTotal:      total,
		Items:           lines,
	}, nil
}

func (m *Machine) confirmOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor *outbox.ActorRef) (types.Notices, error) {
	order, err := orders.NewRepository(tx).FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Sales Order %s linked to this onboarding no longer exists", orderID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load linked order")
	}
	switch order.DocStatus {
	case enums.DocStatusDraft:
		return m.guard.Submit(ctx, tx, order.ID, actor)
	case enums.DocStatusSubmitted:
		return nil, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Sales Order %s linked to this onboarding is cancelled", orderID))
	}
}

func (m *Machine) notify(ctx context.Context, notices *types.Notices, msgs ...string) {
	for _, msg := range msgs {
		m.logg.Info(ctx, msg)
		notices.Add(msg)
	}
}

func load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.GuestOnboarding, error) {
	rec, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "guest onboarding not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load onboarding")
	}
	return rec, nil
}
