package dbtest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	dbtypes "github.com/krishnaroyalclub/krc-backend/pkg/db/types"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	"github.com/krishnaroyalclub/krc-backend/pkg/security"
)

// PasswordConfig returns the cheapest argon2 parameters accepted.
func PasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
		MinLength:        6,
	}
}

// Defaults mirrors the production business defaults.
func Defaults() config.DefaultsConfig {
	return config.DefaultsConfig{
		Company:       "Krishna Royal Club",
		Territory:     "All Territories",
		ItemGroup:     "Services",
		Country:       "India",
		CustomerGroup: "Individual",
		CustomerType:  "Individual",
		UOM:           "Day",
	}
}

// Date parses a YYYY-MM-DD literal in UTC.
func Date(t testing.TB, value string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return d
}

// SeedAccount inserts an account with the given password.
func SeedAccount(t testing.TB, client *db.Client, email, fullName, password string, enabled bool) *models.Account {
	t.Helper()
	hash, err := security.HashPassword(password, PasswordConfig())
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	account := &models.Account{
		Email:        email,
		FirstName:    fullName,
		FullName:     fullName,
		PasswordHash: hash,
		Enabled:      enabled,
		Roles:        dbtypes.RoleSet{enums.RoleCustomer},
	}
	mustCreate(t, client, account)
	return account
}

// SeedStaff inserts an enabled staff account.
func SeedStaff(t testing.TB, client *db.Client, email, password string) *models.Account {
	t.Helper()
	account := SeedAccount(t, client, email, "Front Desk", password, true)
	account.Roles = dbtypes.RoleSet{enums.RoleStaff}
	if err := client.DB().Model(account).UpdateColumn("roles", account.Roles).Error; err != nil {
		t.Fatalf("set staff role: %v", err)
	}
	return account
}

// SeedItem inserts an enabled catalog item in the Services group.
func SeedItem(t testing.TB, client *db.Client, code, name, rate string) *models.Item {
	t.Helper()
	item := &models.Item{
		ItemCode:     code,
		ItemName:     name,
		ItemGroup:    "Services",
		StandardRate: decimal.RequireFromString(rate),
	}
	mustCreate(t, client, item)
	return item
}

// SeedSellingPriceList inserts an enabled selling price list with prices keyed
// by item code.
func SeedSellingPriceList(t testing.TB, client *db.Client, name string, prices map[string]string) *models.PriceList {
	t.Helper()
	list := &models.PriceList{Name: name, Selling: true, Enabled: true}
	mustCreate(t, client, list)
	for code, rate := range prices {
		mustCreate(t, client, &models.ItemPrice{
			PriceList:     name,
			ItemCode:      code,
			PriceListRate: decimal.RequireFromString(rate),
		})
	}
	return list
}

// SeedCustomer inserts a customer.
func SeedCustomer(t testing.TB, client *db.Client, email, name string) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		Name:          name,
		CustomerName:  name,
		Email:         email,
		CustomerGroup: "Individual",
		CustomerType:  "Individual",
		Territory:     "All Territories",
	}
	mustCreate(t, client, customer)
	return customer
}

func mustCreate(t testing.TB, client *db.Client, value any) {
	t.Helper()
	if err := client.DB().Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}

// SeedOrder inserts an order for customer in the given state with one line
// per item code, each charged at 1000 for one day.
func SeedOrder(t testing.TB, client *db.Client, customer *models.Customer, status enums.DocStatus, itemCodes ...string) *models.Order {
	t.Helper()
	day := time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC)
	order := &models.Order{
		CustomerID:      customer.ID,
		CustomerName:    customer.CustomerName,
		Company:         Defaults().Company,
		TransactionDate: day,
		DeliveryDate:    day,
		DocStatus:       status,
	}
	total := decimal.Zero
	for i, code := range itemCodes {
		line := models.OrderItem{
			Idx:          i + 1,
			ItemCode:     code,
			ItemName:     code,
			Qty:          decimal.NewFromInt(1),
			Rate:         decimal.NewFromInt(1000),
			Amount:       decimal.NewFromInt(1000),
			UOM:          "Day",
			DeliveryDate: day,
		}
		total = total.Add(line.Amount)
		order.Items = append(order.Items, line)
	}
	order.GrandTotal = total
	mustCreate(t, client, order)
	return order
}

// SeedOnboarding inserts a draft onboarding for an Indian guest with one
// service row per item code.
func SeedOnboarding(t testing.TB, client *db.Client, customer *models.Customer, itemCodes ...string) *models.GuestOnboarding {
	t.Helper()
	onboarding := &models.GuestOnboarding{
		CustomerID:  customer.ID,
		Guest:       customer.Name,
		FromDate:    time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC),
		ToDate:      time.Date(2025, 11, 24, 0, 0, 0, 0, time.UTC),
		NoOfGuests:  1,
		Nationality: "Indian",
		Status:      enums.OnboardingStatusDraft,
	}
	for i, code := range itemCodes {
		onboarding.Services = append(onboarding.Services, models.GuestOnboardingService{
			Idx:      i + 1,
			ItemCode: code,
			Rate:     decimal.NewFromInt(1000),
		})
	}
	mustCreate(t, client, onboarding)
	return onboarding
}
