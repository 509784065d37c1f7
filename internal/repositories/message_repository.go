package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"glucoach/internal/models/db_models"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, message *db_models.Message) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*db_models.Message, error)
	ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]db_models.Message, error)
	MarkDeliveryFailed(ctx context.Context, tenantID, id uuid.UUID) error
	// RollbackTurn removes an assistant reply and flags the user message of
	// the same turn as undelivered, atomically.
	RollbackTurn(ctx context.Context, tenantID, userMessageID, assistantMessageID uuid.UUID) error
	// SearchText returns up to limit messages, newest first, whose lowercased
	// text contains any of the terms.
	SearchText(ctx context.Context, tenantID uuid.UUID, terms []string, limit int) ([]db_models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (m *messageRepository) Create(ctx context.Context, message *db_models.Message) error {
	return m.db.WithContext(ctx).Create(message).Error
}

func (m *messageRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*db_models.Message, error) {
	var message db_models.Message
	err := m.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		First(&message, "id = ?", id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (m *messageRepository) ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]db_models.Message, error) {
	var messages []db_models.Message
	err := m.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&messages).Error
	return messages, err
}

func (m *messageRepository) MarkDeliveryFailed(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.db.WithContext(ctx).
		Model(&db_models.Message{}).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		Update("delivery_failed", true).Error
}

func (m *messageRepository) RollbackTurn(ctx context.Context, tenantID, userMessageID, assistantMessageID uuid.UUID) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Scopes(tenantScope(tenantID)).
			Where("id = ? AND role = ?", assistantMessageID, db_models.RoleAssistant).
			Delete(&db_models.Message{}).Error
		if err != nil {
			return err
		}
		return tx.Model(&db_models.Message{}).
			Scopes(tenantScope(tenantID)).
			Where("id = ?", userMessageID).
			Update("delivery_failed", true).Error
	})
}

func (m *messageRepository) SearchText(ctx context.Context, tenantID uuid.UUID, terms []string, limit int) ([]db_models.Message, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	match := m.db.Where("LOWER(text) LIKE ? ESCAPE '\\'", likePattern(terms[0]))
	for _, term := range terms[1:] {
		match = match.Or("LOWER(text) LIKE ? ESCAPE '\\'", likePattern(term))
	}

	var messages []db_models.Message
	err := m.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where(match).
		Order("created_at DESC").
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}
