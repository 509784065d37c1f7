package repositories

import (
	"context"

	"github.com/google/uuid"
	"glucoach/internal/models/db_models"
	"gorm.io/gorm"
)

// ConsentRepository is append-only: there is no update or delete method.
type ConsentRepository interface {
	Insert(ctx context.Context, acceptance *db_models.DisclaimerAcceptance) error
	ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]db_models.DisclaimerAcceptance, error)
}

type consentRepository struct {
	db *gorm.DB
}

func NewConsentRepository(db *gorm.DB) ConsentRepository {
	return &consentRepository{db: db}
}

func (c *consentRepository) Insert(ctx context.Context, acceptance *db_models.DisclaimerAcceptance) error {
	return c.db.WithContext(ctx).Create(acceptance).Error
}

// ListByUser returns acceptances newest first.
func (c *consentRepository) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]db_models.DisclaimerAcceptance, error) {
	var out []db_models.DisclaimerAcceptance
	err := c.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("user_id = ?", userID).
		Order("consented_at DESC").
		Order("id DESC").
		Find(&out).Error
	return out, err
}
