package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/internal/links"
	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox/payloads"
	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

const (
	activeOrderIndex = "ux_orders_customer_active"
	templatePrefix   = "Template-"

	noItemsNotice = "Order has no items to create project tasks from."
)

// TemplateName is the deterministic task template name for an order.
func TemplateName(orderID uuid.UUID) string {
	return templatePrefix + orderID.String()
}

// Guard enforces the order lifecycle rules. Every method runs inside the
// caller's transaction.
type Guard struct {
	repo    Repository
	outbox  outbox.Emitter
	logg    *logger.Logger
	metrics *metrics.LifecycleMetrics
	now     func() time.Time
}

// GuardParams wires a Guard.
type GuardParams struct {
	Outbox  outbox.Emitter
	Logger  *logger.Logger
	Metrics *metrics.LifecycleMetrics
	Now     func() time.Time
}

// NewGuard builds a Guard.
func NewGuard(params GuardParams) (*Guard, error) {
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Guard{
		repo:    NewRepository(nil),
		outbox:  params.Outbox,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// BeforeSave rejects an order whose customer already has another
// non-cancelled order. Cancelled orders are never blocked.
func (g *Guard) BeforeSave(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if !order.DocStatus.IsActive() {
		return nil
	}
	existing, err := g.repo.WithTx(tx).FindActiveByCustomer(ctx, order.CustomerID, order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check active orders")
	}
	return duplicateActiveOrder(order.CustomerName, existing.ID)
}

// Create validates and inserts a draft order with its lines. The partial
// unique index backs up the active-order check against concurrent writers.
func (g *Guard) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer required")
	}
	order.DocStatus = enums.DocStatusDraft
	if err := g.BeforeSave(ctx, tx, order); err != nil {
		return err
	}
	repo := g.repo.WithTx(tx)
	err := db.Attempt(tx, "sp_order", func(*gorm.DB) error {
		return repo.Create(ctx, order)
	})
	switch {
	case err == nil:
		return nil
	case IsActiveOrderViolation(err):
		return g.activeOrderConflict(ctx, repo, order)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
}

// activeOrderConflict names the order that won a concurrent insert. The
// savepoint rollback leaves tx usable for the lookup.
func (g *Guard) activeOrderConflict(ctx context.Context, repo Repository, order *models.Order) error {
	existing, err := repo.FindActiveByCustomer(ctx, order.CustomerID, order.ID)
	if err != nil {
		if g.logg != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), "lookup of conflicting order failed")
		}
		return duplicateActiveOrder(order.CustomerName, uuid.Nil)
	}
	return duplicateActiveOrder(order.CustomerName, existing.ID)
}

// Submit moves a draft order to submitted and materializes its task template.
func (g *Guard) Submit(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor *outbox.ActorRef) (notices types.Notices, err error) {
	defer func() { g.metrics.IncTransition("order", "submit", err) }()
	ctx = g.logg.WithField(ctx, "order_id", orderID.String())

	repo := g.repo.WithTx(tx)
	order, err := g.load(ctx, repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.DocStatus != enums.DocStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Order %s is %s and cannot be submitted", order.ID, order.DocStatus))
	}
	if err := g.BeforeSave(ctx, tx, order); err != nil {
		return nil, err
	}

	now := g.now().UTC()
	moved, err := repo.TransitionStatus(ctx, order.ID, enums.DocStatusDraft, enums.DocStatusSubmitted, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submit order")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order changed while submitting")
	}

	templateID, templateNotices, err := g.materializeTemplate(ctx, repo, order)
	if err != nil {
		return nil, err
	}
	notices.Extend(templateNotices)

	err = g.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderSubmitted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderSubmittedEvent{
			OrderID:        order.ID,
			CustomerID:     order.CustomerID,
			OnboardingID:   order.OnboardingID,
			TaskTemplateID: templateID,
			SubmittedAt:    now,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order submitted")
	}
	g.logg.Info(ctx, "order submitted")
	return notices, nil
}

// Cancel cancels a draft or submitted order and detaches any onboarding. The
// link is cleared both before and after the status change.
func (g *Guard) Cancel(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor *outbox.ActorRef) (notices types.Notices, err error) {
	defer func() { g.metrics.IncTransition("order", "cancel", err) }()
	ctx = g.logg.WithField(ctx, "order_id", orderID.String())

	repo := g.repo.WithTx(tx)
	order, err := g.load(ctx, repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.DocStatus == enums.DocStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Order %s is already cancelled", order.ID))
	}

	detached, err := links.UnlinkOrder(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}

	now := g.now().UTC()
	moved, err := repo.TransitionStatus(ctx, order.ID, order.DocStatus, enums.DocStatusCancelled, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order changed while cancelling")
	}

	after, err := links.UnlinkOrder(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	detached = append(detached, after...)

	var onboardingID *uuid.UUID
	if len(detached) > 0 {
		onboardingID = &detached[0]
		notices.Add(fmt.Sprintf("Unlinked Guest Onboarding %s", detached[0]))
	}

	err = g.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderCancelledEvent{
			OrderID:      order.ID,
			CustomerID:   order.CustomerID,
			OnboardingID: onboardingID,
			CancelledAt:  now,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order cancelled")
	}
	g.logg.Info(ctx, "order cancelled")
	return notices, nil
}

func (g *Guard) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// materializeTemplate creates one task per line and a template listing them in
// line order. An existing template of the same name is left untouched so a
// re-submitted order never duplicates its tasks.
func (g *Guard) materializeTemplate(ctx context.Context, repo Repository, order *models.Order) (*uuid.UUID, types.Notices, error) {
	var notices types.Notices
	if len(order.Items) == 0 {
		g.notice(ctx, &notices, noItemsNotice)
		return nil, notices, nil
	}

	name := TemplateName(order.ID)
	exists, err := repo.TemplateExists(ctx, name)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check task template")
	}
	if exists {
		g.notice(ctx, &notices, fmt.Sprintf("Project Template %s already exists", name))
		return nil, notices, nil
	}

	template := &models.TaskTemplate{Name: name, OrderID: order.ID}
	for i, item := range order.Items {
		subject := item.TaskSubject()
		description := item.Description
		if description == "" {
			description = subject
		}
		task := &models.Task{Subject: subject, Description: description}
		if err := repo.CreateTask(ctx, task); err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create task")
		}
		template.Tasks = append(template.Tasks, models.TaskTemplateTask{
			Idx:     i + 1,
			TaskID:  task.ID,
			Subject: subject,
		})
	}
	if err := repo.CreateTemplate(ctx, template); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create task template")
	}
	return &template.ID, notices, nil
}

func (g *Guard) notice(ctx context.Context, notices *types.Notices, msg string) {
	g.logg.Info(ctx, msg)
	notices.Add(msg)
}

// IsActiveOrderViolation reports whether err came from the one-active-order
// index.
func IsActiveOrderViolation(err error) bool {
	return db.IsUniqueViolationOn(err, activeOrderIndex, "orders.customer_id")
}

func duplicateActiveOrder(customerName string, existing uuid.UUID) error {
	if existing == uuid.Nil {
		msg := fmt.Sprintf("Customer %s already has an active Sales Order. Only one Sales Order is allowed per customer.", customerName)
		return pkgerrors.New(pkgerrors.CodeDuplicateActiveOrder, msg)
	}
	msg := fmt.Sprintf("Customer %s already has an active Sales Order (%s). Only one Sales Order is allowed per customer.", customerName, existing)
	return pkgerrors.New(pkgerrors.CodeDuplicateActiveOrder, msg).
		WithDetails(map[string]any{"active_order_id": existing.String()})
}
