package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/internal/accounts"
	"github.com/krishnaroyalclub/krc-backend/internal/customers"
	"github.com/krishnaroyalclub/krc-backend/internal/orders"
	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/lock"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

const (
	msgCreated          = "Guest onboarding created successfully"
	msgAuthRequired     = "Authentication required. Please log in to continue."
	msgUserNotFound     = "User not found. Please contact support."
	msgDateOrder        = "To Date must be after or equal to From Date"
	dateLayout          = "2006-01-02"
	userPhotoName       = "user-photo-%s.png"
	roommatePhotoName   = "roommate-%d-photo-%s.png"
	defaultRoommateSize = 1
)

type store interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the guest onboarding entry point: intake from the guest site
// and the staff-driven lifecycle transitions.
type Service interface {
	Create(ctx context.Context, caller types.Caller, in CreateInput) (*CreateResult, error)
	Submit(ctx context.Context, in TransitionInput) (*TransitionResult, error)
	Cancel(ctx context.Context, in TransitionInput) (*TransitionResult, error)
	Update(ctx context.Context, in UpdateInput) (*UpdateResult, error)
}

// ServiceParams wires a Service. Photos may be nil, in which case uploaded
// photos are dropped with a warning.
type ServiceParams struct {
	DB       store
	Machine  *Machine
	Locker   lock.Locker
	Photos   PhotoStore
	Defaults config.DefaultsConfig
	Logger   *logger.Logger
	Metrics  *metrics.LifecycleMetrics
}

type service struct {
	db       store
	machine  *Machine
	locker   lock.Locker
	photos   PhotoStore
	defaults config.DefaultsConfig
	logg     *logger.Logger
	metrics  *metrics.LifecycleMetrics
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Machine == nil {
		return nil, fmt.Errorf("onboarding machine required")
	}
	locker := params.Locker
	if locker == nil {
		locker = lock.NopLocker{}
	}
	return &service{
		db:       params.DB,
		machine:  params.Machine,
		locker:   locker,
		photos:   params.Photos,
		defaults: params.Defaults,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// Create records a draft onboarding for the caller, creating their customer
// on first use. Photos are uploaded after the record commits and a failed
// upload never fails the intake.
func (s *service) Create(ctx context.Context, caller types.Caller, in CreateInput) (res *CreateResult, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("create_onboarding", started, err) }()

	email := caller.ResolveEmail(in.UserEmail, in.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeAuthenticationRequired, msgAuthRequired)
	}
	ctx = s.logg.WithField(ctx, "email", email)

	account, err := accounts.NewRepository(s.db.DB()).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgUserNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}

	rec, err := buildRecord(in)
	if err != nil {
		return nil, err
	}
	notices, err := Validate(rec)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		customer, err := customers.Ensure(ctx, customers.NewRepository(tx), customers.ProfileFromAccount(account), s.defaults)
		if err != nil {
			return err
		}
		rec.CustomerID = customer.ID
		rec.Guest = customer.Name
		if err := NewRepository(tx).Create(ctx, rec); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create onboarding")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create onboarding")
		}
		return nil, err
	}

	ctx = s.logg.WithField(ctx, "onboarding_id", rec.ID.String())
	for _, n := range notices {
		s.logg.Info(ctx, n)
	}
	s.uploadPhotos(ctx, rec, in)
	s.logg.Info(ctx, "guest onboarding created")

	return &CreateResult{Message: msgCreated, OnboardingID: rec.ID, Notices: notices.OrEmpty()}, nil
}

// Submit runs the Draft to Onboarded transition under the guest's customer
// lock, since it may create the guest's order.
func (s *service) Submit(ctx context.Context, in TransitionInput) (*TransitionResult, error) {
	if err := checkTransition(in); err != nil {
		return nil, err
	}
	rec, err := load(ctx, NewRepository(s.db.DB()), in.OnboardingID)
	if err != nil {
		return nil, err
	}

	actor := &outbox.ActorRef{AccountID: in.ActorID, Role: in.ActorRole}
	var notices types.Notices
	err = orders.WithCustomerLock(ctx, s.locker, rec.CustomerID, func() error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			notices, err = s.machine.Submit(ctx, tx, rec.ID, actor)
			return err
		})
	})
	if err != nil {
		return nil, typed(err, "submit onboarding")
	}
	return &TransitionResult{
		OnboardingID: rec.ID,
		Status:       enums.OnboardingStatusOnboarded,
		Notices:      notices.OrEmpty(),
	}, nil
}

// Cancel flags the onboarding cancelled and detaches its order.
func (s *service) Cancel(ctx context.Context, in TransitionInput) (*TransitionResult, error) {
	if err := checkTransition(in); err != nil {
		return nil, err
	}

	actor := &outbox.ActorRef{AccountID: in.ActorID, Role: in.ActorRole}
	var (
		notices types.Notices
		status  enums.OnboardingStatus
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		notices, err = s.machine.Cancel(ctx, tx, in.OnboardingID, actor)
		if err != nil {
			return err
		}
		rec, err := load(ctx, NewRepository(tx), in.OnboardingID)
		if err != nil {
			return err
		}
		status = rec.Status
		return nil
	})
	if err != nil {
		return nil, typed(err, "cancel onboarding")
	}
	return &TransitionResult{
		OnboardingID: in.OnboardingID,
		Status:       status,
		Cancelled:    true,
		Notices:      notices.OrEmpty(),
	}, nil
}

// Update corrects the stay times or identity details of a draft onboarding.
func (s *service) Update(ctx context.Context, in UpdateInput) (res *UpdateResult, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation("update_onboarding", started, err) }()

	if err := checkTransition(in.TransitionInput); err != nil {
		return nil, err
	}
	if in.Details.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No changes to save")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rec, notices, err := s.machine.Update(ctx, tx, in.OnboardingID, in.Details)
		if err != nil {
			return err
		}
		res = &UpdateResult{
			OnboardingID: rec.ID,
			Status:       rec.Status,
			CheckInTime:  rec.CheckInTime,
			CheckOutTime: rec.CheckOutTime,
			Notices:      notices.OrEmpty(),
		}
		return nil
	})
	if err != nil {
		return nil, typed(err, "update onboarding")
	}
	return res, nil
}

func (s *service) uploadPhotos(ctx context.Context, rec *models.GuestOnboarding, in CreateInput) {
	ctx = s.logg.WithStep(ctx, "onboarding.photos")
	repo := NewRepository(s.db.DB())

	if strings.TrimSpace(in.UserPhoto) != "" {
		object := photoObject(rec.ID, in.UserPhotoFilename, fmt.Sprintf(userPhotoName, rec.ID))
		if url, ok := s.storePhoto(ctx, object, in.UserPhoto); ok {
			if err := repo.SetUserPhoto(ctx, rec.ID, url); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to save guest photo url")
			}
		}
	}

	// buildRecord keeps roommate rows in input order, so index i of the
	// input is row i of the record.
	for i, mate := range in.Roommates {
		if strings.TrimSpace(mate.UserPhoto) == "" || i >= len(rec.Roommates) {
			continue
		}
		object := photoObject(rec.ID, mate.UserPhotoFilename, fmt.Sprintf(roommatePhotoName, i+1, rec.ID))
		url, ok := s.storePhoto(ctx, object, mate.UserPhoto)
		if !ok {
			continue
		}
		if err := repo.SetRoommatePhoto(ctx, rec.Roommates[i].ID, url); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to save roommate photo url")
		}
	}
}

func (s *service) storePhoto(ctx context.Context, object, raw string) (string, bool) {
	ctx = s.logg.WithField(ctx, "object", object)
	if s.photos == nil {
		s.logg.Warn(ctx, "photo storage disabled, photo dropped")
		return "", false
	}
	decoded, err := decodePhoto(raw)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "photo rejected")
		return "", false
	}
	url, err := s.photos.Upload(ctx, object, decoded.contentType, decoded.data)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "photo upload failed")
		return "", false
	}
	return url, true
}

// buildRecord checks the intake payload and maps it onto an unsaved record.
// Check-in and check-out on the main record start empty.
func buildRecord(in CreateInput) (*models.GuestOnboarding, error) {
	required := []struct {
		title   string
		present bool
	}{
		{"From Date", strings.TrimSpace(in.FromDate) != ""},
		{"To Date", strings.TrimSpace(in.ToDate) != ""},
		{"No Of Guests", in.NoOfGuests != 0},
		{"Nationality", strings.TrimSpace(in.Nationality) != ""},
	}
	for _, f := range required {
		if !f.present {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, f.title+" is required")
		}
	}
	if in.NoOfGuests < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No Of Guests must be positive")
	}

	from, err := parseDate("From Date", in.FromDate)
	if err != nil {
		return nil, err
	}
	to, err := parseDate("To Date", in.ToDate)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgDateOrder)
	}
	proof, err := enums.ParseIDProofType(in.IDProofType)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Invalid ID Proof Type %q", in.IDProofType))
	}

	rec := &models.GuestOnboarding{
		FromDate:       from,
		ToDate:         to,
		NoOfGuests:     in.NoOfGuests,
		Nationality:    strings.TrimSpace(in.Nationality),
		IDProofType:    proof,
		IDNumber:       strings.TrimSpace(in.IDProofNumber),
		PassportNumber: strings.TrimSpace(in.PassportNumber),
		VisaNumber:     strings.TrimSpace(in.VisaNumber),
		Status:         enums.OnboardingStatusDraft,
	}

	for _, svc := range in.Services {
		code := svc.Code()
		if code == "" {
			continue
		}
		rec.Services = append(rec.Services, models.GuestOnboardingService{
			Idx:      len(rec.Services) + 1,
			ItemCode: code,
			Rate:     svc.Rate,
		})
	}

	for i, mate := range in.Roommates {
		row, err := buildRoommate(i+1, mate)
		if err != nil {
			return nil, err
		}
		rec.Roommates = append(rec.Roommates, *row)
	}
	return rec, nil
}

// applyDetails copies a staff edit onto rec, normalizing clock values.
func applyDetails(rec *models.GuestOnboarding, d DetailsInput) error {
	var err error
	if d.CheckInTime != nil {
		if rec.CheckInTime, err = NormalizeClock(*d.CheckInTime); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Invalid check-in time %q", *d.CheckInTime))
		}
	}
	if d.CheckOutTime != nil {
		if rec.CheckOutTime, err = NormalizeClock(*d.CheckOutTime); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Invalid check-out time %q", *d.CheckOutTime))
		}
	}
	if d.Nationality != nil {
		nationality := strings.TrimSpace(*d.Nationality)
		if nationality == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "Nationality is required")
		}
		rec.Nationality = nationality
	}
	if d.IDProofType != nil {
		if rec.IDProofType, err = enums.ParseIDProofType(*d.IDProofType); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Invalid ID Proof Type %q", *d.IDProofType))
		}
	}
	if d.IDProofNumber != nil {
		rec.IDNumber = strings.TrimSpace(*d.IDProofNumber)
	}
	if d.PassportNumber != nil {
		rec.PassportNumber = strings.TrimSpace(*d.PassportNumber)
	}
	if d.VisaNumber != nil {
		rec.VisaNumber = strings.TrimSpace(*d.VisaNumber)
	}
	return nil
}

func buildRoommate(idx int, in RoommateInput) (*models.GuestRoommate, error) {
	label := fmt.Sprintf("Roommate %d", idx)
	row := &models.GuestRoommate{
		Idx:         idx,
		Guest:       strings.TrimSpace(in.Guest),
		ServiceType: strings.TrimSpace(in.ServiceType),
		NoOfGuests:  in.NoOfGuests,
		Nationality: strings.TrimSpace(in.Nationality),
		IDNumber:    strings.TrimSpace(in.IDProofNumber),
	}
	if row.NoOfGuests <= 0 {
		row.NoOfGuests = defaultRoommateSize
	}

	var err error
	if strings.TrimSpace(in.FromDate) != "" {
		from, err := parseDate(label+" From Date", in.FromDate)
		if err != nil {
			return nil, err
		}
		row.FromDate = &from
	}
	if strings.TrimSpace(in.ToDate) != "" {
		to, err := parseDate(label+" To Date", in.ToDate)
		if err != nil {
			return nil, err
		}
		row.ToDate = &to
	}
	if row.CheckInTime, err = NormalizeClock(in.CheckInTime); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s has an invalid check-in time %q", label, in.CheckInTime))
	}
	if row.CheckOutTime, err = NormalizeClock(in.CheckOutTime); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s has an invalid check-out time %q", label, in.CheckOutTime))
	}
	if row.IDProofType, err = enums.ParseIDProofType(in.IDProofType); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s has an invalid ID Proof Type %q", label, in.IDProofType))
	}
	return row, nil
}

func parseDate(title, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", title))
	}
	return t, nil
}

func checkTransition(in TransitionInput) error {
	if in.OnboardingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "onboarding id required")
	}
	if in.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}

func typed(err error, msg string) error {
	if pkgerrors.As(err) == nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
	}
	return err
}
