package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"glucoach/internal/models/db_models"
	"glucoach/internal/models/request_models"
	"glucoach/internal/repositories"
	"glucoach/pkg/utils"
)

func TestSendMessageHappyPath(t *testing.T) {
	env := newTestEnv(t)
	p, session := env.readyUser(t)

	res, err := env.send(p, session.ID, "What can I eat for breakfast?")
	require.NoError(t, err)

	assert.Equal(t, db_models.RoleUser, res.user.Role)
	assert.Equal(t, db_models.RoleAssistant, res.assistant.Role)
	assert.NotEmpty(t, res.assistant.Text)
	assert.Equal(t, 9, res.remaining)
	assert.False(t, res.user.CreatedAt.After(res.assistant.CreatedAt))

	messages, err := env.sessions.ListMessages(context.Background(), p, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, res.user.ID, messages[0].ID)
	assert.Equal(t, res.assistant.ID, messages[1].ID)

	limit, err := env.coach.ConsultationLimit(context.Background(), p, p.UserID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, limit.CurrentCount)
	assert.Equal(t, 9, limit.Remaining)
	assert.True(t, limit.CanUse)
}

func TestSendMessageQuotaExhaustion(t *testing.T) {
	env := newTestEnv(t)
	p, session := env.readyUser(t)

	for i := 0; i < 10; i++ {
		res, err := env.send(p, session.ID, "turn")
		require.NoError(t, err)
		assert.Equal(t, 9-i, res.remaining)
	}

	_, err := env.send(p, session.ID, "one more")
	var quotaErr *utils.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 10, quotaErr.CurrentCount)
	assert.Equal(t, 10, quotaErr.Limit)

	messages, err := env.sessions.ListMessages(context.Background(), p, session.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 20, "a rejected turn stores nothing")

	_, err = env.coach.CreateSession(context.Background(), p, p.UserID.String(), request_models.CreateSessionRequest{})
	assert.ErrorIs(t, err, utils.ErrQuotaExceeded)
}

func TestSendMessageQuotaResetsNextMonth(t *testing.T) {
	env := newTestEnv(t)
	env.clock.Set(time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC))
	p, session := env.readyUser(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := env.send(p, session.ID, "turn")
		require.NoError(t, err)
	}
	_, err := env.send(p, session.ID, "one too many")
	require.ErrorIs(t, err, utils.ErrQuotaExceeded)

	env.clock.Advance(2 * time.Second)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 1, 0, time.UTC), env.clock.Now())

	res, err := env.send(p, session.ID, "new month")
	require.NoError(t, err)
	assert.Equal(t, 9, res.remaining)

	counters := repositories.NewCounterRepository(env.db)
	february, err := counters.Find(ctx, p.TenantID, p.UserID, "2025-02")
	require.NoError(t, err)
	require.NotNil(t, february)
	assert.Equal(t, 1, february.Count)

	january, err := counters.Find(ctx, p.TenantID, p.UserID, "2025-01")
	require.NoError(t, err)
	require.NotNil(t, january)
	assert.Equal(t, 10, january.Count)
}

func TestSendMessagePremiumIsUnlimited(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, db_models.PlanPremium, db_models.SubStatusActive)
	env.accept(t, p)
	session, err := env.sessions.CreateSession(context.Background(), p, "")
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		res, err := env.send(p, session.ID, "turn")
		require.NoError(t, err)
		assert.Equal(t, Unlimited, res.remaining)
	}
}

func TestSendMessageUpstreamTimeout(t *testing.T) {
	t.Run("persistent timeout marks the user message", func(t *testing.T) {
		env := newTestEnv(t)
		p, session := env.readyUser(t)
		env.llm.replies = []fakeReply{{err: utils.ErrUpstreamTimeout}}

		_, err := env.send(p, session.ID, "hello")
		require.ErrorIs(t, err, utils.ErrUpstreamUnavailable)
		assert.Equal(t, 2, env.llm.callCount(), "one retry on timeout")

		messages, err := env.sessions.ListMessages(context.Background(), p, session.ID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, db_models.RoleUser, messages[0].Role)
		assert.True(t, messages[0].DeliveryFailed)

		status, err := env.quota.Check(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, 0, status.CurrentCount)
	})

	t.Run("retry succeeds", func(t *testing.T) {
		env := newTestEnv(t)
		p, session := env.readyUser(t)
		env.llm.replies = []fakeReply{{err: utils.ErrUpstreamTimeout}, {text: "Oatmeal with berries."}}

		res, err := env.send(p, session.ID, "hello")
		require.NoError(t, err)
		assert.Equal(t, "Oatmeal with berries.", res.assistant.Text)
		assert.Equal(t, 2, env.llm.callCount())
		assert.False(t, res.user.DeliveryFailed)
	})

	t.Run("other upstream errors are not retried", func(t *testing.T) {
		env := newTestEnv(t)
		p, session := env.readyUser(t)
		env.llm.replies = []fakeReply{{err: utils.ErrUpstreamRateLimited}}

		_, err := env.send(p, session.ID, "hello")
		require.ErrorIs(t, err, utils.ErrUpstreamUnavailable)
		assert.Equal(t, 1, env.llm.callCount())
	})
}

func TestSendMessageConsentRequired(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, db_models.PlanStandard, db_models.SubStatusActive)
	session, err := env.sessions.CreateSession(context.Background(), p, "")
	require.NoError(t, err)

	_, err = env.send(p, session.ID, "hello")
	assert.ErrorIs(t, err, utils.ErrConsentRequired)
	assert.Equal(t, 0, env.llm.callCount())

	_, err = env.coach.CreateSession(context.Background(), p, p.UserID.String(), request_models.CreateSessionRequest{})
	assert.ErrorIs(t, err, utils.ErrConsentRequired)
}

func TestSendMessageOlderDisclaimerVersion(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, db_models.PlanStandard, db_models.SubStatusActive)
	_, err := env.coach.AcceptDisclaimer(context.Background(), p, request_models.AcceptDisclaimerRequest{
		UserID:  p.UserID.String(),
		Version: "0.9",
	}, "")
	require.NoError(t, err)

	status, err := env.coach.DisclaimerStatus(context.Background(), p, p.UserID.String())
	require.NoError(t, err)
	assert.False(t, status.DisclaimerAccepted)

	env.accept(t, p)
	status, err = env.coach.DisclaimerStatus(context.Background(), p, p.UserID.String())
	require.NoError(t, err)
	assert.True(t, status.DisclaimerAccepted)
	assert.Equal(t, "1.0", status.Version)
}

func TestSendMessageCrossTenantSession(t *testing.T) {
	env := newTestEnv(t)
	_, sessionA := env.readyUser(t)
	b, _ := env.readyUser(t)

	_, err := env.send(b, sessionA.ID, "let me in")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = env.coach.ListMessages(context.Background(), b, sessionA.ID.String())
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = env.send(b, uuid.New(), "unknown")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestSendMessageUsesLatestProfile(t *testing.T) {
	env := newTestEnv(t)
	p, session := env.readyUser(t)
	ctx := context.Background()

	_, err := env.profiles.UpsertProfile(ctx, p, request_models.UpsertProfileRequest{
		DiabetesType: "type2",
		Allergies:    []string{"nuts"},
	})
	require.NoError(t, err)
	_, err = env.send(p, session.ID, "dinner ideas?")
	require.NoError(t, err)
	facts := env.llm.lastCall()[1]
	assert.Equal(t, db_models.RoleAssistant, facts.Role)
	assert.Contains(t, facts.Content, "Allergies: nuts.")

	_, err = env.profiles.UpsertProfile(ctx, p, request_models.UpsertProfileRequest{
		DiabetesType: "type2",
		Allergies:    []string{"nuts", "shellfish"},
	})
	require.NoError(t, err)
	_, err = env.send(p, session.ID, "and lunch?")
	require.NoError(t, err)

	call := env.llm.lastCall()
	assert.Contains(t, call[1].Content, "Allergies: nuts, shellfish.")
	// policy, facts, two prior messages, new user message
	require.Len(t, call, 5)
	assert.Equal(t, "dinner ideas?", call[2].Content)
	assert.Equal(t, "and lunch?", call[4].Content)
	assert.Equal(t, db_models.RoleUser, call[4].Role)
}

func TestSendMessageQuotaRaceRollsBack(t *testing.T) {
	env := newTestEnv(t)
	p, session := env.readyUser(t)

	// another turn takes the last consultation while the model is answering
	status, err := env.quota.Check(context.Background(), p)
	require.NoError(t, err)
	for i := 0; i < status.Limit-1; i++ {
		_, err := env.quota.Consume(context.Background(), p)
		require.NoError(t, err)
	}
	env.llm.onCall = func(int) {
		_, err := env.quota.Consume(context.Background(), p)
		require.NoError(t, err)
	}

	_, err = env.send(p, session.ID, "last one")
	var quotaErr *utils.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 10, quotaErr.CurrentCount)

	messages, err := env.sessions.ListMessages(context.Background(), p, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1, "assistant reply is removed")
	assert.Equal(t, db_models.RoleUser, messages[0].Role)
	assert.True(t, messages[0].DeliveryFailed)
}

func TestSendMessageSubscriptionGate(t *testing.T) {
	env := newTestEnv(t)

	trial := env.seedUser(t, db_models.PlanStandard, db_models.SubStatusTrial)
	env.accept(t, trial)
	session, err := env.sessions.CreateSession(context.Background(), trial, "")
	require.NoError(t, err)

	_, err = env.send(trial, session.ID, "within trial")
	require.NoError(t, err)

	env.clock.Advance(8 * 24 * time.Hour)
	_, err = env.send(trial, session.ID, "after trial")
	assert.ErrorIs(t, err, utils.ErrSubscriptionRequired)

	cancelled := env.seedUser(t, db_models.PlanStandard, db_models.SubStatusCancelled)
	env.accept(t, cancelled)
	_, err = env.coach.CreateSession(context.Background(), cancelled, cancelled.UserID.String(), request_models.CreateSessionRequest{})
	assert.ErrorIs(t, err, utils.ErrSubscriptionRequired)
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	p, session := env.readyUser(t)

	_, err := env.send(p, session.ID, "   ")
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = env.send(p, session.ID, strings.Repeat("a", MaxMessageBytes+1))
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = env.coach.SendMessage(context.Background(), p, request_models.SendMessageRequest{SessionID: "nope", Message: "hi"})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestSendMessageStripsMarkdown(t *testing.T) {
	env := newTestEnv(t)
	p, session := env.readyUser(t)
	env.llm.replies = []fakeReply{{text: "# Plan\n**Eggs** and __greens__"}}

	res, err := env.send(p, session.ID, "plan?")
	require.NoError(t, err)
	assert.Equal(t, "Plan\nEggs and greens", res.assistant.Text)
}

func TestSendMessageEmptyReplyIsUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	p, session := env.readyUser(t)
	env.llm.replies = []fakeReply{{text: "**  **"}}

	_, err := env.send(p, session.ID, "hi")
	assert.True(t, errors.Is(err, utils.ErrUpstreamUnavailable))
}

func TestCoachPathsNamingOtherUsers(t *testing.T) {
	env := newTestEnv(t)
	a, _ := env.readyUser(t)
	b, _ := env.readyUser(t)
	ctx := context.Background()

	_, err := env.coach.DisclaimerStatus(ctx, a, b.UserID.String())
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = env.coach.ConsultationLimit(ctx, a, b.UserID.String())
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = env.coach.ListSessions(ctx, a, b.UserID.String())
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = env.coach.Search(ctx, a, b.UserID.String(), "hi")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = env.coach.AcceptDisclaimer(ctx, a, request_models.AcceptDisclaimerRequest{UserID: b.UserID.String()}, "")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = env.coach.ListSessions(ctx, a, "not-a-uuid")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestFeatureFlags(t *testing.T) {
	env := newTestEnv(t)
	flags := env.coach.FeatureFlags()
	assert.True(t, flags.CoachEnabled)
	assert.Equal(t, "openai", flags.LLMProvider)
	assert.Equal(t, "gpt-4o-mini", flags.LLMModel)
	assert.Equal(t, 10, flags.StandardLimit)
	assert.Equal(t, "unlimited", flags.PremiumLimit)
}

func TestAcceptDisclaimerRecordsSignedRow(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, db_models.PlanStandard, db_models.SubStatusActive)
	env.clock.Set(t0.Add(450 * time.Millisecond))

	resp, err := env.coach.AcceptDisclaimer(context.Background(), p, request_models.AcceptDisclaimerRequest{
		UserID:        p.UserID.String(),
		ConsentSource: "demo_auto",
		IsDemo:        true,
		Locale:        "en-US",
	}, "Mozilla/5.0")
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	assert.Equal(t, "2025-01-10T09:00:00Z", resp.AcceptedAt)
	assert.Equal(t, "1.0", resp.Version)

	ok, acceptance, err := env.consent.HasActiveConsent(context.Background(), p, "1.0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, db_models.ConsentSourceDemoAuto, acceptance.ConsentSource)
	assert.Equal(t, "Mozilla/5.0", acceptance.UserAgent)
	assert.True(t, env.consent.Verify(acceptance))

	_, err = env.coach.AcceptDisclaimer(context.Background(), p, request_models.AcceptDisclaimerRequest{
		UserID:        p.UserID.String(),
		ConsentSource: "popup",
	}, "")
	assert.ErrorIs(t, err, utils.ErrBadRequest)
}

func TestSearchThroughCoach(t *testing.T) {
	env := newTestEnv(t)
	p, session := env.readyUser(t)

	_, err := env.send(p, session.ID, "Is brown rice okay?")
	require.NoError(t, err)

	resp, err := env.coach.Search(context.Background(), p, p.UserID.String(), "brown rice")
	require.NoError(t, err)
	assert.Equal(t, "brown rice", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, session.ID, resp.Results[0].Session.ID)
	require.Len(t, resp.Results[0].Messages, 1)
	assert.Equal(t, "Is brown rice okay?", resp.Results[0].Messages[0].Text)
}
