package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/internal/comments"
	"github.com/krishnaroyalclub/krc-backend/internal/leads"
	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	dbtypes "github.com/krishnaroyalclub/krc-backend/pkg/db/types"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	"github.com/krishnaroyalclub/krc-backend/pkg/naming"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox/payloads"
	"github.com/krishnaroyalclub/krc-backend/pkg/security"
)

const (
	msgLeadExists    = "A lead with this email already exists"
	msgAccountExists = "A user with this email already exists"
	fallbackFirst    = "User"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Provisioner creates the lead and account pair for a new registrant.
type Provisioner interface {
	CreateAccount(ctx context.Context, in CreateAccountInput) (*CreateAccountResult, error)
}

// ProvisionerParams bundles the provisioner dependencies.
type ProvisionerParams struct {
	DB       txRunner
	Outbox   outbox.Emitter
	Defaults config.DefaultsConfig
	Password config.PasswordConfig
	Logger   *logger.Logger
	Metrics  *metrics.LifecycleMetrics
}

type provisioner struct {
	db       txRunner
	outbox   outbox.Emitter
	defaults config.DefaultsConfig
	password config.PasswordConfig
	logg     *logger.Logger
	metrics  *metrics.LifecycleMetrics
}

// NewProvisioner validates params and builds a Provisioner.
func NewProvisioner(params ProvisionerParams) (Provisioner, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &provisioner{
		db:       params.DB,
		outbox:   params.Outbox,
		defaults: params.Defaults,
		password: params.Password,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

func (p *provisioner) CreateAccount(ctx context.Context, in CreateAccountInput) (res *CreateAccountResult, err error) {
	started := time.Now()
	defer func() { p.metrics.ObserveOperation("create_account", started, err) }()

	in, err = p.validate(in)
	if err != nil {
		return nil, err
	}
	ctx = p.logg.WithField(ctx, "email", in.Email)

	passwordHash, err := security.HashPassword(in.Password, p.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var lead *models.Lead
	err = p.db.WithTx(ctx, func(tx *gorm.DB) error {
		leadRepo := leads.NewRepository(tx)
		accountRepo := NewRepository(tx)

		if _, err := leadRepo.FindByEmail(ctx, in.Email); err == nil {
			return pkgerrors.New(pkgerrors.CodeDuplicateEmail, msgLeadExists)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check lead email")
		}
		if _, err := accountRepo.FindByEmail(ctx, in.Email); err == nil {
			return pkgerrors.New(pkgerrors.CodeDuplicateEmail, msgAccountExists)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check account email")
		}

		newLead, err := leads.NewLead(ctx, leadRepo, leads.Profile{Email: in.Email, Name: in.FullName, Phone: in.Phone}, p.defaults)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve lead name")
		}
		if err := leadRepo.Create(ctx, newLead); err != nil {
			if leads.IsDuplicateEmail(err) {
				return pkgerrors.Wrap(pkgerrors.CodeDuplicateEmail, err, msgLeadExists)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create lead")
		}
		lead = newLead

		first, last := naming.SplitFullName(in.FullName)
		if first == "" {
			first = fallbackFirst
		}
		account := &models.Account{
			Email:        in.Email,
			FirstName:    first,
			LastName:     last,
			FullName:     in.FullName,
			MobileNo:     in.Phone,
			PasswordHash: passwordHash,
			Enabled:      true,
			Roles:        dbtypes.RoleSet{},
		}
		if err := accountRepo.Create(ctx, account); err != nil {
			if IsDuplicateEmail(err) {
				return pkgerrors.Wrap(pkgerrors.CodeDuplicateEmail, err, msgAccountExists)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create account")
		}
		p.grantCustomerRole(ctx, tx, account)

		comments.Annotate(ctx, tx, p.logg, enums.ReferenceLead, lead.ID, "User account created: "+in.Email)

		return p.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAccountCreated,
			AggregateType: enums.AggregateAccount,
			AggregateID:   account.ID,
			Actor:         &outbox.ActorRef{AccountID: account.ID, Role: enums.RoleCustomer},
			Data: payloads.AccountCreatedEvent{
				AccountID: account.ID,
				LeadID:    lead.ID,
				LeadName:  lead.LeadName,
				Email:     account.Email,
				FullName:  account.FullName,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create account")
		}
		return nil, err
	}

	p.logg.Info(p.logg.WithField(ctx, "lead_id", lead.ID.String()), "account created")
	return &CreateAccountResult{Lead: leads.SummaryFromModel(lead)}, nil
}

// grantCustomerRole adds the customer role in a savepoint; an account without
// it can still sign in, so a failure is only logged.
func (p *provisioner) grantCustomerRole(ctx context.Context, tx *gorm.DB, account *models.Account) {
	roles := account.Roles.Add(enums.RoleCustomer)
	err := db.Attempt(tx, "sp_role", func(tx *gorm.DB) error {
		return NewRepository(tx).SetRoles(ctx, account.ID, roles)
	})
	if err != nil {
		p.logg.Warn(p.logg.WithStep(ctx, "account.role"), fmt.Sprintf("could not grant customer role: %v", err))
		return
	}
	account.Roles = roles
}

func (p *provisioner) validate(in CreateAccountInput) (CreateAccountInput, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	required := []struct {
		title string
		value string
	}{
		{"Full Name", in.FullName},
		{"Email", in.Email},
		{"Phone", in.Phone},
		{"Password", in.Password},
	}
	for _, field := range required {
		if field.value == "" {
			return in, pkgerrors.New(pkgerrors.CodeValidation, field.title+" is required")
		}
	}
	if !ValidEmail(in.Email) {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "Invalid email format")
	}
	if msg := PasswordLengthMessage(in.Password, p.password.MinLength); msg != "" {
		return in, pkgerrors.New(pkgerrors.CodeValidation, msg)
	}
	in.Email = NormalizeEmail(in.Email)
	return in, nil
}
