package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"glucoach/internal/config"
	"glucoach/internal/infra"
	"glucoach/internal/models/db_models"
	"glucoach/internal/models/request_models"
	"glucoach/internal/repositories"
	"glucoach/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var t0 = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

const testHMACSecret = "test-hmac-secret"

type fakeReply struct {
	text string
	err  error
}

// fakeLLM replays scripted replies in order; the last one repeats.
type fakeLLM struct {
	mu      sync.Mutex
	replies []fakeReply
	calls   [][]utils.ChatMessage
	onCall  func(attempt int)
}

func (f *fakeLLM) Complete(ctx context.Context, messages []utils.ChatMessage, model string) (*utils.Completion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	n := len(f.calls)
	reply := fakeReply{text: "Try a spinach omelette with whole grain toast."}
	if len(f.replies) > 0 {
		i := n - 1
		if i >= len(f.replies) {
			i = len(f.replies) - 1
		}
		reply = f.replies[i]
	}
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if reply.err != nil {
		return nil, reply.err
	}
	tokens := EstimateTokens(reply.text)
	return &utils.Completion{Text: reply.text, Tokens: &tokens}, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLLM) lastCall() []utils.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

type testEnv struct {
	db       *gorm.DB
	clock    *utils.ManualClock
	llm      *fakeLLM
	cfg      config.CoachConfig
	accounts repositories.AccountRepository
	consent  ConsentServiceInterface
	quota    QuotaServiceInterface
	sessions SessionServiceInterface
	profiles ProfileServiceInterface
	search   SearchServiceInterface
	coach    CoachServiceInterface
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = infra.CloseDatabase(db) })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	clock := utils.NewManualClock(t0)
	seq, err := utils.NewSnowflakeSequence(1)
	require.NoError(t, err)

	cfg := config.CoachConfig{
		Enabled:           true,
		StandardLimit:     10,
		PremiumLimit:      -1,
		DisclaimerVersion: "1.0",
		TrialDays:         7,
	}
	llmCfg := config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"}

	accounts := repositories.NewAccountRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	messageRepo := repositories.NewMessageRepository(db)

	env := &testEnv{
		db:       db,
		clock:    clock,
		llm:      &fakeLLM{},
		cfg:      cfg,
		accounts: accounts,
		consent:  NewConsentService(repositories.NewConsentRepository(db), testHMACSecret, clock),
		quota:    NewQuotaService(repositories.NewCounterRepository(db), clock, cfg.StandardLimit, cfg.PremiumLimit),
		sessions: NewSessionService(sessionRepo, messageRepo, clock, seq),
		profiles: NewProfileService(repositories.NewProfileRepository(db), clock),
		search:   NewSearchService(sessionRepo, messageRepo),
	}
	env.coach = NewCoachService(
		accounts, env.consent, env.quota, env.sessions, env.profiles, env.search,
		utils.NewLLMGateway(env.llm, time.Second), clock, cfg, llmCfg, zap.NewNop(),
	)
	return env
}

func (e *testEnv) seedUser(t *testing.T, plan db_models.Plan, status db_models.SubscriptionStatus) utils.Principal {
	t.Helper()
	trialEnd := e.clock.Now().AddDate(0, 0, 7)
	user := &db_models.User{
		TenantID:           uuid.New(),
		Email:              uuid.NewString() + "@example.com",
		PasswordHash:       "x",
		Plan:               plan,
		SubscriptionStatus: status,
		TrialEndDate:       &trialEnd,
	}
	require.NoError(t, e.accounts.Insert(context.Background(), user))
	return principalOf(user)
}

// readyUser is an active standard user who accepted the current disclaimer
// and has one session.
func (e *testEnv) readyUser(t *testing.T) (utils.Principal, *db_models.Session) {
	t.Helper()
	p := e.seedUser(t, db_models.PlanStandard, db_models.SubStatusActive)
	e.accept(t, p)
	session, err := e.sessions.CreateSession(context.Background(), p, "")
	require.NoError(t, err)
	return p, session
}

func (e *testEnv) accept(t *testing.T, p utils.Principal) {
	t.Helper()
	_, err := e.coach.AcceptDisclaimer(context.Background(), p, request_models.AcceptDisclaimerRequest{
		UserID: p.UserID.String(),
	}, "go-test")
	require.NoError(t, err)
}

func (e *testEnv) send(p utils.Principal, sessionID uuid.UUID, text string) (*sendResult, error) {
	resp, err := e.coach.SendMessage(context.Background(), p, request_models.SendMessageRequest{
		SessionID: sessionID.String(),
		Message:   text,
	})
	if err != nil {
		return nil, err
	}
	return &sendResult{resp.UserMessage, resp.AIResponse, resp.Remaining}, nil
}

type sendResult struct {
	user      db_models.Message
	assistant db_models.Message
	remaining int
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
