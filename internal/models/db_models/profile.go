package db_models

import (
	"fmt"

	"github.com/google/uuid"
)

type DiabetesType string

const (
	DiabetesType1       DiabetesType = "type1"
	DiabetesType2       DiabetesType = "type2"
	DiabetesPrediabetes DiabetesType = "prediabetes"
)

func ParseDiabetesType(s string) (DiabetesType, error) {
	switch DiabetesType(s) {
	case DiabetesType1, DiabetesType2, DiabetesPrediabetes:
		return DiabetesType(s), nil
	default:
		return "", fmt.Errorf("unknown diabetes type %q", s)
	}
}

// MaxProfileListLen caps every list field of a profile.
const MaxProfileListLen = 32

type Profile struct {
	BaseModel
	TenantID           uuid.UUID    `gorm:"type:uuid;index;not null" json:"-"`
	UserID             uuid.UUID    `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	DiabetesType       DiabetesType `gorm:"type:varchar(16);not null" json:"diabetes_type"`
	Age                *int         `json:"age,omitempty"`
	Gender             *string      `json:"gender,omitempty"`
	ActivityLevel      *string      `json:"activity_level,omitempty"`
	HealthGoals        []string     `gorm:"type:text;serializer:json" json:"health_goals"`
	FoodPreferences    []string     `gorm:"type:text;serializer:json" json:"food_preferences"`
	CulturalBackground *string      `json:"cultural_background,omitempty"`
	Allergies          []string     `gorm:"type:text;serializer:json" json:"allergies"`
	Dislikes           []string     `gorm:"type:text;serializer:json" json:"dislikes"`
	CookingSkill       *string      `json:"cooking_skill,omitempty"`
}

func (Profile) TableName() string {
	return "profiles"
}
