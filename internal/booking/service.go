// Package booking turns a guest's checkout into a draft sales order and
// records cart interest as opportunities.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/internal/accounts"
	"github.com/krishnaroyalclub/krc-backend/internal/catalog"
	"github.com/krishnaroyalclub/krc-backend/internal/comments"
	"github.com/krishnaroyalclub/krc-backend/internal/customers"
	"github.com/krishnaroyalclub/krc-backend/internal/leads"
	"github.com/krishnaroyalclub/krc-backend/internal/orders"
	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/lock"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox/payloads"
	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

const (
	msgBooked           = "Service booking created successfully"
	msgOpportunity      = "Opportunity created successfully"
	msgNoServices       = "Please select at least one service"
	msgStayRequired     = "From Date, To Date and Number of People are required"
	msgBookAuthRequired = "Authentication required. Please log in to book a service."
	msgCartAuthRequired = "Authentication required. Please log in to add to cart."
	msgAccountNotFound  = "User account not found. Please contact support."
	addressSavepoint    = "sp_address"
	dateLayout          = "2006-01-02"
)

type store interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Orchestrator runs the guest checkout flows.
type Orchestrator interface {
	CreateBooking(ctx context.Context, caller types.Caller, in BookingInput) (*BookingResult, error)
	CreateOpportunity(ctx context.Context, caller types.Caller, in OpportunityInput) (*OpportunityResult, error)
}

// Params wires an Orchestrator.
type Params struct {
	DB       store
	Guard    *orders.Guard
	Outbox   outbox.Emitter
	Locker   lock.Locker
	Defaults config.DefaultsConfig
	Logger   *logger.Logger
	Metrics  *metrics.LifecycleMetrics
	Now      func() time.Time
}

type orchestrator struct {
	db       store
	guard    *orders.Guard
	outbox   outbox.Emitter
	locker   lock.Locker
	defaults config.DefaultsConfig
	logg     *logger.Logger
	metrics  *metrics.LifecycleMetrics
	now      func() time.Time
}

func New(params Params) (Orchestrator, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("order guard required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	locker := params.Locker
	if locker == nil {
		locker = lock.NopLocker{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &orchestrator{
		db:       params.DB,
		guard:    params.Guard,
		outbox:   params.Outbox,
		locker:   locker,
		defaults: params.Defaults,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// CreateBooking records a draft order covering every requested service for
// the whole stay. The order is never submitted here.
//
// An existing customer is locked for the duration of the active-order check
// and insert. A first-time customer has nothing to lock yet; two racing first
// bookings collide on the customer email index instead.
func (o *orchestrator) CreateBooking(ctx context.Context, caller types.Caller, in BookingInput) (res *BookingResult, err error) {
	started := time.Now()
	defer func() { o.metrics.ObserveOperation("create_booking", started, err) }()

	codes := in.Codes()
	if len(codes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgNoServices)
	}
	if strings.TrimSpace(in.FromDate) == "" || strings.TrimSpace(in.ToDate) == "" || in.NumberOfPeople == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgStayRequired)
	}
	from, err := parseDate("From Date", in.FromDate)
	if err != nil {
		return nil, err
	}
	to, err := parseDate("To Date", in.ToDate)
	if err != nil {
		return nil, err
	}
	stay, err := orders.NewStay(from, to, in.NumberOfPeople)
	if err != nil {
		return nil, err
	}

	email := caller.ResolveEmail(in.UserEmail, in.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeAuthenticationRequired, msgBookAuthRequired)
	}
	ctx = o.logg.WithField(ctx, "email", email)

	account, err := o.findAccount(ctx, email)
	if err != nil {
		return nil, err
	}

	locker := o.locker
	var lockID uuid.UUID
	existing, err := customers.NewRepository(o.db.DB()).FindByEmail(ctx, email)
	switch {
	case err == nil:
		lockID = existing.ID
	case errors.Is(err, gorm.ErrRecordNotFound):
		locker = lock.NopLocker{}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find customer")
	}

	var (
		order    *models.Order
		customer *models.Customer
	)
	err = orders.WithCustomerLock(ctx, locker, lockID, func() error {
		return o.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			customer, err = customers.Ensure(ctx, customers.NewRepository(tx), customers.ProfileFromAccount(account), o.defaults)
			if err != nil {
				return err
			}
			txCtx := o.logg.WithCustomer(ctx, customer.ID.String())

			address := o.saveAddress(txCtx, tx, customer, in.Address, email)

			priced, err := catalog.Resolve(txCtx, catalog.NewRepository(tx), o.defaults.SellingPriceList, codes)
			if err != nil {
				return err
			}
			lines, total := orders.BuildLines(priced, stay, o.defaults.UOM)
			order = &models.Order{
				CustomerID:        customer.ID,
				CustomerName:      customer.CustomerName,
				Company:           o.defaults.Company,
				TransactionDate:   o.now().UTC(),
				DeliveryDate:      stay.From,
				ShippingAddressID: customers.AddressID(address),
				GrandTotal:        total,
				Items:             lines,
			}
			if err := o.guard.Create(txCtx, tx, order); err != nil {
				return err
			}

			comments.Annotate(txCtx, tx, o.logg, enums.ReferenceOrder, order.ID, bookingSummary(stay, priced, total))

			return o.outbox.Emit(txCtx, tx, outbox.DomainEvent{
				EventType:     enums.EventBookingCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{AccountID: account.ID, Role: enums.RoleCustomer},
				Data: payloads.BookingCreatedEvent{
					OrderID:      order.ID,
					CustomerID:   customer.ID,
					CustomerName: customer.Name,
					ItemCodes:    codes,
					FromDate:     stay.From.Format(dateLayout),
					ToDate:       stay.To.Format(dateLayout),
					Days:         stay.Days,
					Occupants:    stay.Occupants,
					GrandTotal:   total,
				},
			})
		})
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create booking")
		}
		return nil, err
	}

	o.logg.Info(o.logg.WithField(ctx, "order_id", order.ID.String()), "service booking created in draft")
	return &BookingResult{
		Message:      msgBooked,
		OrderID:      order.ID,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
	}, nil
}

// saveAddress stores a complete address in its own savepoint. Incomplete or
// failing addresses are logged and the booking goes on without one.
func (o *orchestrator) saveAddress(ctx context.Context, tx *gorm.DB, customer *models.Customer, in *types.AddressInput, email string) *models.Address {
	if in == nil {
		return nil
	}
	ctx = o.logg.WithStep(ctx, "booking.address")
	address := customers.AddressFromInput(customer, in, email, o.defaults)
	if address == nil {
		o.logg.Warn(o.logg.WithField(ctx, "missing", in.MissingFields()), "incomplete address, skipping")
		return nil
	}
	err := db.Attempt(tx, addressSavepoint, func(tx *gorm.DB) error {
		return customers.NewRepository(tx).CreateAddress(ctx, address)
	})
	if err != nil {
		o.logg.Warn(o.logg.WithField(ctx, "error", err.Error()), "address not saved")
		return nil
	}
	return address
}

// CreateOpportunity records cart interest for the caller's lead, creating the
// lead on first use. Repeated calls record repeated opportunities.
func (o *orchestrator) CreateOpportunity(ctx context.Context, caller types.Caller, in OpportunityInput) (res *OpportunityResult, err error) {
	started := time.Now()
	defer func() { o.metrics.ObserveOperation("create_opportunity", started, err) }()

	email := caller.ResolveEmail(in.UserEmail, in.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeAuthenticationRequired, msgCartAuthRequired)
	}
	ctx = o.logg.WithField(ctx, "email", email)

	account, err := o.findAccount(ctx, email)
	if err != nil {
		return nil, err
	}

	var (
		lead *models.Lead
		opp  *models.Opportunity
	)
	err = o.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := leads.NewRepository(tx)
		var err error
		lead, _, err = leads.GetOrCreate(ctx, repo, leads.Profile{
			Email: email,
			Name:  customers.ProfileFromAccount(account).DisplayName(),
			Phone: account.MobileNo,
		}, o.defaults)
		if err != nil {
			if leads.IsDuplicate(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "Lead is being created by another request, please retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve lead")
		}
		opp = &models.Opportunity{
			OpportunityFrom: enums.OpportunityFromLead,
			PartyName:       lead.Name,
			LeadID:          lead.ID,
			Status:          enums.OpportunityStatusOpen,
			Company:         o.defaults.Company,
			ContactEmail:    email,
		}
		if err := repo.CreateOpportunity(ctx, opp); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create opportunity")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create opportunity")
		}
		return nil, err
	}

	o.logg.Info(o.logg.WithField(ctx, "opportunity_id", opp.ID.String()), "opportunity created")
	return &OpportunityResult{Message: msgOpportunity, OpportunityID: opp.ID, LeadName: lead.Name}, nil
}

func (o *orchestrator) findAccount(ctx context.Context, email string) (*models.Account, error) {
	account, err := accounts.NewRepository(o.db.DB()).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgAccountNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}
	return account, nil
}

// bookingSummary renders the staff-facing comment left on a new order.
func bookingSummary(stay orders.Stay, priced []catalog.PricedItem, total decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("Service Booking Details:\n")
	fmt.Fprintf(&b, "From Date: %s\n", stay.From.Format(dateLayout))
	fmt.Fprintf(&b, "To Date: %s\n", stay.To.Format(dateLayout))
	fmt.Fprintf(&b, "Number of Days: %d day(s)\n", stay.Days)
	fmt.Fprintf(&b, "Number of People: %d\n", stay.Occupants)
	fmt.Fprintf(&b, "Services Selected: %d service(s)\n", len(priced))
	for i, p := range priced {
		fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, p.Item.DisplayName(), p.Item.ItemCode)
	}
	fmt.Fprintf(&b, "Total Amount: %s", total.StringFixed(2))
	return b.String()
}

func parseDate(title, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", title))
	}
	return t, nil
}
