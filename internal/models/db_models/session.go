package db_models

import "github.com/google/uuid"

const (
	DefaultSessionTitle = "New consultation"
	MaxSessionTitleLen  = 120
)

// Session is a coach conversation. UpdatedAt tracks the newest message.
type Session struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;index:idx_sessions_tenant_user;not null" json:"-"`
	UserID   uuid.UUID `gorm:"type:uuid;index:idx_sessions_tenant_user;not null" json:"user_id"`
	Title    string    `gorm:"size:120;not null" json:"title"`
}

func (Session) TableName() string {
	return "coach_sessions"
}
