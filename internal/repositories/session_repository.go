package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"glucoach/internal/models/db_models"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, session *db_models.Session) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*db_models.Session, error)
	ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]db_models.Session, error)
	// Touch moves updated_at forward to at; it never moves it back.
	Touch(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (s *sessionRepository) Create(ctx context.Context, session *db_models.Session) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *sessionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*db_models.Session, error) {
	var session db_models.Session
	err := s.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		First(&session, "id = ?", id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (s *sessionRepository) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]db_models.Session, error) {
	var sessions []db_models.Session
	err := s.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (s *sessionRepository) Touch(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&db_models.Session{}).
		Scopes(tenantScope(tenantID)).
		Where("id = ? AND updated_at < ?", id, at).
		Update("updated_at", at).Error
}
