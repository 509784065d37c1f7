package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"glucoach/internal/config"
	"glucoach/internal/models/db_models"
	"glucoach/internal/models/request_models"
	"glucoach/internal/models/response_models"
	"glucoach/internal/repositories"
	"glucoach/pkg/utils"
	"go.uber.org/zap"
)

const (
	MaxMessageBytes = 8 * 1024

	checkTimeout = time.Second
	dbTimeout    = 5 * time.Second
)

type CoachServiceInterface interface {
	FeatureFlags() response_models.FeatureFlags
	AcceptDisclaimer(ctx context.Context, principal utils.Principal, request request_models.AcceptDisclaimerRequest, userAgent string) (*response_models.AcceptDisclaimerResponse, error)
	DisclaimerStatus(ctx context.Context, principal utils.Principal, userID string) (*response_models.DisclaimerStatusResponse, error)
	ConsultationLimit(ctx context.Context, principal utils.Principal, userID string) (*response_models.ConsultationLimitResponse, error)
	CreateSession(ctx context.Context, principal utils.Principal, userID string, request request_models.CreateSessionRequest) (*db_models.Session, error)
	ListSessions(ctx context.Context, principal utils.Principal, userID string) ([]db_models.Session, error)
	SendMessage(ctx context.Context, principal utils.Principal, request request_models.SendMessageRequest) (*response_models.SendMessageResponse, error)
	ListMessages(ctx context.Context, principal utils.Principal, sessionID string) ([]db_models.Message, error)
	Search(ctx context.Context, principal utils.Principal, userID, query string) (*response_models.SearchResponse, error)
}

type CoachService struct {
	accountRepo    repositories.AccountRepository
	consentService ConsentServiceInterface
	quotaService   QuotaServiceInterface
	sessionService SessionServiceInterface
	profileService ProfileServiceInterface
	searchService  SearchServiceInterface
	gateway        utils.LLMGateway
	clock          utils.Clock
	coachCfg       config.CoachConfig
	llmCfg         config.LLMConfig
	log            *zap.Logger
}

func NewCoachService(
	accountRepo repositories.AccountRepository,
	consentService ConsentServiceInterface,
	quotaService QuotaServiceInterface,
	sessionService SessionServiceInterface,
	profileService ProfileServiceInterface,
	searchService SearchServiceInterface,
	gateway utils.LLMGateway,
	clock utils.Clock,
	coachCfg config.CoachConfig,
	llmCfg config.LLMConfig,
	log *zap.Logger,
) CoachServiceInterface {
	return &CoachService{
		accountRepo:    accountRepo,
		consentService: consentService,
		quotaService:   quotaService,
		sessionService: sessionService,
		profileService: profileService,
		searchService:  searchService,
		gateway:        gateway,
		clock:          clock,
		coachCfg:       coachCfg,
		llmCfg:         llmCfg,
		log:            log,
	}
}

func (s *CoachService) FeatureFlags() response_models.FeatureFlags {
	return response_models.FeatureFlags{
		CoachEnabled:  s.coachCfg.Enabled,
		LLMProvider:   s.llmCfg.Provider,
		LLMModel:      s.llmCfg.Model,
		StandardLimit: limitValue(s.coachCfg.StandardLimit),
		PremiumLimit:  limitValue(s.coachCfg.PremiumLimit),
	}
}

func limitValue(limit int) any {
	if limit == Unlimited {
		return "unlimited"
	}
	return limit
}

func (s *CoachService) AcceptDisclaimer(ctx context.Context, principal utils.Principal, request request_models.AcceptDisclaimerRequest, userAgent string) (*response_models.AcceptDisclaimerResponse, error) {
	if err := ensureSelf(principal, request.UserID); err != nil {
		return nil, err
	}

	version := strings.TrimSpace(request.Version)
	if version == "" {
		version = s.coachCfg.DisclaimerVersion
	}
	source := db_models.ConsentSourceGlobalScreen
	if request.ConsentSource != "" {
		parsed, err := db_models.ParseConsentSource(request.ConsentSource)
		if err != nil {
			return nil, utils.NewBadRequest("%v", err)
		}
		source = parsed
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	acceptance, err := s.consentService.Record(dbCtx, principal, ConsentInput{
		Version:       version,
		Source:        source,
		IsDemo:        request.IsDemo,
		ConsentUIHash: request.ConsentUIHash,
		Country:       request.Country,
		Locale:        request.Locale,
		UserAgent:     userAgent,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("disclaimer accepted",
		zap.String("user_id", principal.UserID.String()),
		zap.String("version", acceptance.DisclaimerVersion),
		zap.String("acceptance_id", acceptance.ID))

	return &response_models.AcceptDisclaimerResponse{
		Accepted:   true,
		AcceptedAt: utils.FormatRFC3339UTC(acceptance.ConsentedAt),
		Version:    acceptance.DisclaimerVersion,
	}, nil
}

func (s *CoachService) DisclaimerStatus(ctx context.Context, principal utils.Principal, userID string) (*response_models.DisclaimerStatusResponse, error) {
	if err := ensureSelf(principal, userID); err != nil {
		return nil, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	ok, acceptance, err := s.consentService.HasActiveConsent(checkCtx, principal, s.coachCfg.DisclaimerVersion)
	if err != nil {
		return nil, err
	}

	resp := &response_models.DisclaimerStatusResponse{
		UserID:             principal.UserID.String(),
		DisclaimerAccepted: ok,
	}
	if acceptance != nil {
		resp.Version = acceptance.DisclaimerVersion
	}
	return resp, nil
}

func (s *CoachService) ConsultationLimit(ctx context.Context, principal utils.Principal, userID string) (*response_models.ConsultationLimitResponse, error) {
	if err := ensureSelf(principal, userID); err != nil {
		return nil, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	status, err := s.quotaService.Check(checkCtx, principal)
	if err != nil {
		return nil, err
	}
	return &response_models.ConsultationLimitResponse{
		CanUse:       status.CanUse,
		CurrentCount: status.CurrentCount,
		Limit:        status.Limit,
		Remaining:    status.Remaining,
		Plan:         status.Plan,
	}, nil
}

func (s *CoachService) CreateSession(ctx context.Context, principal utils.Principal, userID string, request request_models.CreateSessionRequest) (*db_models.Session, error) {
	if err := ensureSelf(principal, userID); err != nil {
		return nil, err
	}
	if err := s.ensureEligible(ctx, principal); err != nil {
		return nil, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	status, err := s.quotaService.Check(checkCtx, principal)
	if err != nil {
		return nil, err
	}
	if !status.CanUse {
		return nil, &utils.QuotaExceededError{CurrentCount: status.CurrentCount, Limit: status.Limit}
	}

	dbCtx, cancelDB := context.WithTimeout(ctx, dbTimeout)
	defer cancelDB()
	return s.sessionService.CreateSession(dbCtx, principal, request.Title)
}

func (s *CoachService) ListSessions(ctx context.Context, principal utils.Principal, userID string) ([]db_models.Session, error) {
	if err := ensureSelf(principal, userID); err != nil {
		return nil, err
	}
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return s.sessionService.ListSessions(dbCtx, principal)
}

func (s *CoachService) ListMessages(ctx context.Context, principal utils.Principal, sessionID string) ([]db_models.Message, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, utils.ErrNotFound
	}
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return s.sessionService.ListMessages(dbCtx, principal, id)
}

func (s *CoachService) Search(ctx context.Context, principal utils.Principal, userID, query string) (*response_models.SearchResponse, error) {
	if err := ensureSelf(principal, userID); err != nil {
		return nil, err
	}
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	results, err := s.searchService.Search(dbCtx, principal, query)
	if err != nil {
		return nil, err
	}
	return &response_models.SearchResponse{Query: query, Results: results}, nil
}

// SendMessage runs one coach turn. The user message is stored before the
// model is called; quota is consumed only after the reply is stored.
func (s *CoachService) SendMessage(ctx context.Context, principal utils.Principal, request request_models.SendMessageRequest) (*response_models.SendMessageResponse, error) {
	text := strings.TrimSpace(request.Message)
	if text == "" {
		return nil, utils.NewBadRequest("message is required")
	}
	if len(request.Message) > MaxMessageBytes {
		return nil, utils.NewBadRequest("message is larger than %d bytes", MaxMessageBytes)
	}
	sessionID, err := uuid.Parse(request.SessionID)
	if err != nil {
		return nil, utils.ErrNotFound
	}

	if err := s.ensureEligible(ctx, principal); err != nil {
		return nil, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	status, err := s.quotaService.Check(checkCtx, principal)
	cancel()
	if err != nil {
		return nil, err
	}
	if !status.CanUse {
		return nil, &utils.QuotaExceededError{CurrentCount: status.CurrentCount, Limit: status.Limit}
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	session, err := s.sessionService.GetSession(dbCtx, principal, sessionID)
	cancel()
	if err != nil {
		return nil, err
	}

	dbCtx, cancel = context.WithTimeout(ctx, dbTimeout)
	userMsg, err := s.sessionService.AppendMessage(dbCtx, principal, session.ID, db_models.RoleUser, text, nil)
	cancel()
	if err != nil {
		return nil, err
	}

	// the turn completes even if the client goes away
	turnCtx := context.WithoutCancel(ctx)
	log := s.log.With(
		zap.String("user_id", principal.UserID.String()),
		zap.String("session_id", session.ID.String()),
		zap.String("message_id", userMsg.ID.String()))

	messages, err := s.composeFor(turnCtx, principal, session.ID, userMsg)
	if err != nil {
		s.failTurn(turnCtx, principal, userMsg, log)
		return nil, err
	}

	var completion *utils.Completion
	err = utils.WithRetry(turnCtx, utils.RetryConfig{
		MaxAttempts: 2,
		ShouldRetry: func(err error) bool { return errors.Is(err, utils.ErrUpstreamTimeout) },
	}, func(ctx context.Context, attempt int) error {
		c, err := s.gateway.Complete(ctx, messages, s.llmCfg.Model)
		if err != nil {
			return err
		}
		completion = c
		return nil
	})
	if err != nil {
		log.Warn("coach turn upstream failure", zap.Error(err))
		s.failTurn(turnCtx, principal, userMsg, log)
		return nil, fmt.Errorf("%w: %v", utils.ErrUpstreamUnavailable, err)
	}

	dbCtx, cancel = context.WithTimeout(turnCtx, dbTimeout)
	aiMsg, err := s.sessionService.AppendMessage(dbCtx, principal, session.ID, db_models.RoleAssistant, completion.Text, completion.Tokens)
	cancel()
	if err != nil {
		s.failTurn(turnCtx, principal, userMsg, log)
		return nil, err
	}

	dbCtx, cancel = context.WithTimeout(turnCtx, dbTimeout)
	consumed, err := s.quotaService.Consume(dbCtx, principal)
	cancel()
	if err != nil {
		dbCtx, cancel = context.WithTimeout(turnCtx, dbTimeout)
		rbErr := s.sessionService.RollbackTurn(dbCtx, principal, userMsg.ID, aiMsg.ID)
		cancel()
		if rbErr != nil {
			log.Error("coach turn rollback failed", zap.Error(rbErr))
		}
		log.Info("coach turn rolled back", zap.Error(err))
		return nil, err
	}

	log.Info("coach turn completed",
		zap.Int("count", consumed.CurrentCount),
		zap.Int("remaining", consumed.Remaining))

	return &response_models.SendMessageResponse{
		UserMessage:      *userMsg,
		AIResponse:       *aiMsg,
		ConsultationUsed: true,
		Remaining:        consumed.Remaining,
	}, nil
}

func (s *CoachService) composeFor(ctx context.Context, principal utils.Principal, sessionID uuid.UUID, userMsg *db_models.Message) ([]utils.ChatMessage, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	profile, err := s.profileService.GetProfile(dbCtx, principal)
	if err != nil {
		return nil, err
	}
	history, err := s.sessionService.ListMessages(dbCtx, principal, sessionID)
	if err != nil {
		return nil, err
	}

	prior := make([]db_models.Message, 0, len(history))
	for _, m := range history {
		if m.ID != userMsg.ID {
			prior = append(prior, m)
		}
	}

	return ComposePrompt(PromptInput{
		Profile:  profile,
		History:  prior,
		UserText: userMsg.Text,
		Policy:   PolicyPreamble,
		Version:  s.coachCfg.DisclaimerVersion,
	}), nil
}

func (s *CoachService) failTurn(ctx context.Context, principal utils.Principal, userMsg *db_models.Message, log *zap.Logger) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := s.sessionService.MarkDeliveryFailed(dbCtx, principal, userMsg.ID); err != nil {
		log.Error("mark delivery failed", zap.Error(err))
		return
	}
	userMsg.DeliveryFailed = true
}

// ensureEligible checks the subscription and then the disclaimer consent.
func (s *CoachService) ensureEligible(ctx context.Context, principal utils.Principal) error {
	if err := s.ensureSubscription(ctx, principal); err != nil {
		return err
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	ok, _, err := s.consentService.HasActiveConsent(checkCtx, principal, s.coachCfg.DisclaimerVersion)
	if err != nil {
		return err
	}
	if !ok {
		return utils.ErrConsentRequired
	}
	return nil
}

func (s *CoachService) ensureSubscription(ctx context.Context, principal utils.Principal) error {
	switch principal.SubscriptionStatus {
	case db_models.SubStatusActive:
		return nil
	case db_models.SubStatusTrial:
		dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
		defer cancel()
		user, err := s.accountRepo.FindByID(dbCtx, principal.TenantID, principal.UserID)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if user == nil {
			return utils.ErrUnauthenticated
		}
		if user.TrialEndDate == nil || !s.clock.Now().Before(*user.TrialEndDate) {
			return utils.ErrSubscriptionRequired
		}
		return nil
	default:
		return utils.ErrSubscriptionRequired
	}
}

// ensureSelf rejects paths naming another user; they look like unknown ids.
func ensureSelf(principal utils.Principal, userID string) error {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil || id != principal.UserID {
		return utils.ErrNotFound
	}
	return nil
}
