package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"glucoach/internal/models/db_models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	FindByUser(ctx context.Context, tenantID, userID uuid.UUID) (*db_models.Profile, error)
	Upsert(ctx context.Context, profile *db_models.Profile) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (p *profileRepository) FindByUser(ctx context.Context, tenantID, userID uuid.UUID) (*db_models.Profile, error) {
	var profile db_models.Profile
	err := p.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		First(&profile, "user_id = ?", userID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &profile, nil
}

// Upsert writes the whole profile keyed by user. The row id and created_at
// of an existing profile are preserved.
func (p *profileRepository) Upsert(ctx context.Context, profile *db_models.Profile) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"diabetes_type", "age", "gender", "activity_level", "health_goals",
				"food_preferences", "cultural_background", "allergies", "dislikes",
				"cooking_skill", "updated_at",
			}),
		}).
		Create(profile).Error
}
