package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"glucoach/internal/models/db_models"
	"glucoach/internal/repositories"
	"glucoach/pkg/utils"
)

type SessionServiceInterface interface {
	CreateSession(ctx context.Context, principal utils.Principal, title string) (*db_models.Session, error)
	ListSessions(ctx context.Context, principal utils.Principal) ([]db_models.Session, error)
	// GetSession returns utils.ErrNotFound unless the session belongs to the caller.
	GetSession(ctx context.Context, principal utils.Principal, sessionID uuid.UUID) (*db_models.Session, error)
	AppendMessage(ctx context.Context, principal utils.Principal, sessionID uuid.UUID, role db_models.Role, text string, tokens *int) (*db_models.Message, error)
	ListMessages(ctx context.Context, principal utils.Principal, sessionID uuid.UUID) ([]db_models.Message, error)
	MarkDeliveryFailed(ctx context.Context, principal utils.Principal, messageID uuid.UUID) error
	RollbackTurn(ctx context.Context, principal utils.Principal, userMessageID, assistantMessageID uuid.UUID) error
}

type SessionService struct {
	sessionRepo repositories.SessionRepository
	messageRepo repositories.MessageRepository
	clock       utils.Clock
	seq         utils.SequenceGenerator

	// stampMu orders (created_at, seq) pairs across appends.
	stampMu   sync.Mutex
	lastStamp time.Time
}

func NewSessionService(
	sessionRepo repositories.SessionRepository,
	messageRepo repositories.MessageRepository,
	clock utils.Clock,
	seq utils.SequenceGenerator,
) SessionServiceInterface {
	return &SessionService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		clock:       clock,
		seq:         seq,
	}
}

func (s *SessionService) CreateSession(ctx context.Context, principal utils.Principal, title string) (*db_models.Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = db_models.DefaultSessionTitle
	}
	if utf8.RuneCountInString(title) > db_models.MaxSessionTitleLen {
		return nil, utils.NewBadRequest("title is longer than %d characters", db_models.MaxSessionTitleLen)
	}

	now := s.clock.Now()
	session := &db_models.Session{
		BaseModel: db_models.BaseModel{CreatedAt: now, UpdatedAt: now},
		TenantID:  principal.TenantID,
		UserID:    principal.UserID,
		Title:     title,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return session, nil
}

func (s *SessionService) ListSessions(ctx context.Context, principal utils.Principal) ([]db_models.Session, error) {
	sessions, err := s.sessionRepo.ListByUser(ctx, principal.TenantID, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if sessions == nil {
		sessions = []db_models.Session{}
	}
	return sessions, nil
}

func (s *SessionService) GetSession(ctx context.Context, principal utils.Principal, sessionID uuid.UUID) (*db_models.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, principal.TenantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if session == nil || session.UserID != principal.UserID {
		return nil, utils.ErrNotFound
	}
	return session, nil
}

func (s *SessionService) AppendMessage(ctx context.Context, principal utils.Principal, sessionID uuid.UUID, role db_models.Role, text string, tokens *int) (*db_models.Message, error) {
	if _, err := db_models.ParseRole(string(role)); err != nil {
		return nil, utils.NewBadRequest("%v", err)
	}
	if role != db_models.RoleSystem && strings.TrimSpace(text) == "" {
		return nil, utils.NewBadRequest("%s message must have text", role)
	}

	session, err := s.GetSession(ctx, principal, sessionID)
	if err != nil {
		return nil, err
	}

	createdAt, seq := s.stamp(session.UpdatedAt)
	message := &db_models.Message{
		ID:        uuid.New(),
		Seq:       seq,
		TenantID:  principal.TenantID,
		SessionID: session.ID,
		Role:      role,
		Text:      text,
		Tokens:    tokens,
		CreatedAt: createdAt,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if err := s.sessionRepo.Touch(ctx, principal.TenantID, session.ID, createdAt); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return message, nil
}

// stamp returns a created_at that never goes backwards and a sequence that
// grows with every call, so (created_at, seq) follows append order.
func (s *SessionService) stamp(notBefore time.Time) (time.Time, int64) {
	s.stampMu.Lock()
	defer s.stampMu.Unlock()

	at := utils.MaxTime(utils.MaxTime(s.clock.Now(), s.lastStamp), notBefore)
	s.lastStamp = at
	return at, s.seq.Next()
}

func (s *SessionService) ListMessages(ctx context.Context, principal utils.Principal, sessionID uuid.UUID) ([]db_models.Message, error) {
	session, err := s.GetSession(ctx, principal, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.ListBySession(ctx, principal.TenantID, session.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if messages == nil {
		messages = []db_models.Message{}
	}
	return messages, nil
}

func (s *SessionService) MarkDeliveryFailed(ctx context.Context, principal utils.Principal, messageID uuid.UUID) error {
	if err := s.messageRepo.MarkDeliveryFailed(ctx, principal.TenantID, messageID); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

func (s *SessionService) RollbackTurn(ctx context.Context, principal utils.Principal, userMessageID, assistantMessageID uuid.UUID) error {
	if err := s.messageRepo.RollbackTurn(ctx, principal.TenantID, userMessageID, assistantMessageID); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}
