package db_models

import (
	"time"

	"github.com/google/uuid"
)

// ConsultationCounter counts successful coach turns per user and UTC month.
type ConsultationCounter struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	MonthBucket  string    `gorm:"type:char(7);primaryKey"`
	TenantID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Count        int       `gorm:"not null;default:0"`
	PlanSnapshot Plan      `gorm:"type:varchar(16);not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (ConsultationCounter) TableName() string {
	return "consultation_counters"
}
