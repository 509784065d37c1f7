package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"glucoach/internal/models/db_models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CounterRepository interface {
	// Ensure inserts the counter row unless one already exists.
	Ensure(ctx context.Context, counter *db_models.ConsultationCounter) error
	Find(ctx context.Context, tenantID, userID uuid.UUID, bucket string) (*db_models.ConsultationCounter, error)
	// IncrementBelow adds one to the counter when limit is -1 or count < limit.
	// It returns the count written by that same statement and whether a row
	// was updated.
	IncrementBelow(ctx context.Context, tenantID, userID uuid.UUID, bucket string, limit int, now time.Time) (int, bool, error)
}

type counterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

func (r *counterRepository) Ensure(ctx context.Context, counter *db_models.ConsultationCounter) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(counter).Error
}

func (r *counterRepository) Find(ctx context.Context, tenantID, userID uuid.UUID, bucket string) (*db_models.ConsultationCounter, error) {
	var counter db_models.ConsultationCounter
	err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("user_id = ? AND month_bucket = ?", userID, bucket).
		First(&counter).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &counter, nil
}

func (r *counterRepository) IncrementBelow(ctx context.Context, tenantID, userID uuid.UUID, bucket string, limit int, now time.Time) (int, bool, error) {
	var updated []db_models.ConsultationCounter
	q := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "count"}}}).
		Scopes(tenantScope(tenantID)).
		Where("user_id = ? AND month_bucket = ?", userID, bucket)
	if limit >= 0 {
		q = q.Where("count < ?", limit)
	}

	res := q.Updates(map[string]interface{}{
		"count":      gorm.Expr("count + 1"),
		"updated_at": now,
	})
	if res.Error != nil {
		return 0, false, res.Error
	}
	if len(updated) != 1 {
		return 0, false, nil
	}
	return updated[0].Count, true, nil
}
