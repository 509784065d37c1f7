package db_models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConsentSource string

const (
	ConsentSourceGlobalScreen ConsentSource = "global_screen"
	ConsentSourceDemoAuto     ConsentSource = "demo_auto"
)

func ParseConsentSource(s string) (ConsentSource, error) {
	switch ConsentSource(s) {
	case ConsentSourceGlobalScreen, ConsentSourceDemoAuto:
		return ConsentSource(s), nil
	default:
		return "", fmt.Errorf("unknown consent source %q", s)
	}
}

// DisclaimerAcceptance is append-only. Signature is the lowercase hex
// HMAC-SHA256 of every other field except ID and TenantID.
type DisclaimerAcceptance struct {
	ID                string        `gorm:"type:varchar(27);primaryKey" json:"id"`
	TenantID          uuid.UUID     `gorm:"type:uuid;index;not null" json:"-"`
	UserID            uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	DisclaimerVersion string        `gorm:"not null" json:"disclaimer_version"`
	ConsentSource     ConsentSource `gorm:"type:varchar(32);not null" json:"consent_source"`
	IsDemo            bool          `gorm:"not null" json:"is_demo"`
	ConsentedAt       time.Time     `gorm:"not null" json:"consented_at"`
	ConsentUIHash     string        `json:"consent_ui_hash"`
	Country           string        `json:"country,omitempty"`
	Locale            string        `json:"locale,omitempty"`
	UserAgent         string        `json:"user_agent,omitempty"`
	Signature         string        `gorm:"type:char(64);not null" json:"signature"`
}

func (DisclaimerAcceptance) TableName() string {
	return "disclaimer_acceptances"
}

func (DisclaimerAcceptance) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRecord
}

func (DisclaimerAcceptance) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableRecord
}

func (d *DisclaimerAcceptance) AfterFind(tx *gorm.DB) error {
	d.ConsentedAt = d.ConsentedAt.UTC()
	return nil
}
