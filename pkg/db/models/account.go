package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/krishnaroyalclub/krc-backend/pkg/db/types"
)

// Account is a guest or staff login identity.
type Account struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Email               string          `gorm:"column:email;type:text;not null;uniqueIndex:ux_accounts_email"`
	FirstName           string          `gorm:"column:first_name;not null"`
	LastName            string          `gorm:"column:last_name;not null;default:''"`
	FullName            string          `gorm:"column:full_name;not null"`
	MobileNo            string          `gorm:"column:mobile_no;not null;default:''"`
	PasswordHash        string          `gorm:"column:password_hash;not null"`
	Enabled             bool            `gorm:"column:enabled;not null"`
	Roles               dbtypes.RoleSet `gorm:"column:roles;type:text;not null;default:'{}'"`
	ResetPasswordKey    *string         `gorm:"column:reset_password_key;index"`
	ResetKeyGeneratedAt *time.Time      `gorm:"column:reset_key_generated_at"`
	LastLoginAt         *time.Time      `gorm:"column:last_login_at"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
