package db_models

import (
	"time"

	"github.com/google/uuid"
)

// User owns exactly one tenant. TenantID is assigned at registration and
// never changes.
type User struct {
	BaseModel
	TenantID           uuid.UUID          `gorm:"type:uuid;uniqueIndex;not null" json:"tenant_id"`
	Email              string             `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash       string             `gorm:"not null" json:"-"`
	Plan               Plan               `gorm:"type:varchar(16);not null;default:standard" json:"plan"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:varchar(16);not null;default:trial" json:"subscription_status"`
	TrialEndDate       *time.Time         `json:"trial_end_date,omitempty"`
}

func (User) TableName() string {
	return "users"
}
