package db_models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSystem, RoleUser, RoleAssistant:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Message rows are ordered by (created_at, seq). Seq is a snowflake id and
// grows with insertion order.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Seq            int64     `gorm:"uniqueIndex;not null" json:"-"`
	TenantID       uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	SessionID      uuid.UUID `gorm:"type:uuid;index:idx_messages_session_order,priority:1;not null" json:"session_id"`
	Role           Role      `gorm:"type:varchar(16);not null" json:"role"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	Tokens         *int      `json:"tokens,omitempty"`
	DeliveryFailed bool      `gorm:"not null;default:false" json:"delivery_failed"`
	CreatedAt      time.Time `gorm:"autoCreateTime:false;index:idx_messages_session_order,priority:2;not null" json:"created_at"`
}

func (Message) TableName() string {
	return "coach_messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if _, err := ParseRole(string(m.Role)); err != nil {
		return err
	}
	if m.Role != RoleSystem && m.Text == "" {
		return fmt.Errorf("%s message must have text", m.Role)
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (m *Message) AfterFind(tx *gorm.DB) error {
	m.CreatedAt = m.CreatedAt.UTC()
	return nil
}
