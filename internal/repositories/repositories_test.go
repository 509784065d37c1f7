package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"glucoach/internal/infra"
	"glucoach/internal/models/db_models"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = infra.CloseDatabase(db) })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *db_models.User {
	t.Helper()
	user := &db_models.User{
		TenantID:           uuid.New(),
		Email:              email,
		PasswordHash:       "x",
		Plan:               db_models.PlanStandard,
		SubscriptionStatus: db_models.SubStatusActive,
	}
	require.NoError(t, NewAccountRepository(db).Insert(context.Background(), user))
	return user
}

var t0 = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func TestAccountRepositoryTenantFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()
	a := seedUser(t, db, "a@example.com")
	b := seedUser(t, db, "b@example.com")

	got, err := repo.FindByID(ctx, a.TenantID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a@example.com", got.Email)

	cross, err := repo.FindByID(ctx, b.TenantID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, cross)

	byEmail, err := repo.FindByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byEmail.ID)

	dup := &db_models.User{TenantID: uuid.New(), Email: "a@example.com", PasswordHash: "x", Plan: "standard", SubscriptionStatus: "trial"}
	assert.Error(t, repo.Insert(ctx, dup))
}

func TestProfileUpsertKeepsIdentity(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "p@example.com")

	first := &db_models.Profile{
		BaseModel:    db_models.BaseModel{CreatedAt: t0, UpdatedAt: t0},
		TenantID:     u.TenantID,
		UserID:       u.ID,
		DiabetesType: db_models.DiabetesType2,
		Allergies:    []string{"nuts"},
	}
	require.NoError(t, repo.Upsert(ctx, first))
	stored, err := repo.FindByUser(ctx, u.TenantID, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	second := &db_models.Profile{
		BaseModel:    db_models.BaseModel{CreatedAt: t0.Add(time.Hour), UpdatedAt: t0.Add(time.Hour)},
		TenantID:     u.TenantID,
		UserID:       u.ID,
		DiabetesType: db_models.DiabetesType1,
		Allergies:    []string{"nuts", "shellfish"},
	}
	require.NoError(t, repo.Upsert(ctx, second))

	got, err := repo.FindByUser(ctx, u.TenantID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, db_models.DiabetesType1, got.DiabetesType)
	assert.Equal(t, []string{"nuts", "shellfish"}, got.Allergies)
	assert.True(t, got.CreatedAt.Equal(t0))

	other, err := repo.FindByUser(ctx, uuid.New(), u.ID)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestConsentRepositoryIsAppendOnly(t *testing.T) {
	db := newTestDB(t)
	repo := NewConsentRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "c@example.com")

	acc := &db_models.DisclaimerAcceptance{
		ID:                "2aY4lZ0kF8d3nQ1sX7wP9vR5tU6",
		TenantID:          u.TenantID,
		UserID:            u.ID,
		DisclaimerVersion: "1.0",
		ConsentSource:     db_models.ConsentSourceGlobalScreen,
		ConsentedAt:       t0,
		Signature:         "00",
	}
	require.NoError(t, repo.Insert(ctx, acc))

	err := db.Model(acc).Update("disclaimer_version", "9.9").Error
	assert.ErrorIs(t, err, db_models.ErrImmutableRecord)
	err = db.Delete(acc).Error
	assert.ErrorIs(t, err, db_models.ErrImmutableRecord)

	list, err := repo.ListByUser(ctx, u.TenantID, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1.0", list[0].DisclaimerVersion)
}

func TestCounterIncrementBelow(t *testing.T) {
	db := newTestDB(t)
	repo := NewCounterRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "q@example.com")

	counter := &db_models.ConsultationCounter{
		UserID: u.ID, MonthBucket: "2025-01", TenantID: u.TenantID,
		PlanSnapshot: db_models.PlanStandard, CreatedAt: t0, UpdatedAt: t0,
	}
	require.NoError(t, repo.Ensure(ctx, counter))
	require.NoError(t, repo.Ensure(ctx, &db_models.ConsultationCounter{
		UserID: u.ID, MonthBucket: "2025-01", TenantID: u.TenantID, Count: 7,
		PlanSnapshot: db_models.PlanPremium, CreatedAt: t0, UpdatedAt: t0,
	}))

	for i := 1; i <= 2; i++ {
		count, ok, err := repo.IncrementBelow(ctx, u.TenantID, u.ID, "2025-01", 2, t0)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, count)
	}
	_, ok, err := repo.IncrementBelow(ctx, u.TenantID, u.ID, "2025-01", 2, t0)
	require.NoError(t, err)
	assert.False(t, ok)

	count, ok, err := repo.IncrementBelow(ctx, u.TenantID, u.ID, "2025-01", -1, t0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, count)

	got, err := repo.Find(ctx, u.TenantID, u.ID, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, db_models.PlanStandard, got.PlanSnapshot)

	_, ok, err = repo.IncrementBelow(ctx, uuid.New(), u.ID, "2025-01", -1, t0)
	require.NoError(t, err)
	assert.False(t, ok)

	missing, err := repo.Find(ctx, u.TenantID, u.ID, "2025-02")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionAndMessageOrdering(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	messages := NewMessageRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "s@example.com")

	older := &db_models.Session{BaseModel: db_models.BaseModel{CreatedAt: t0, UpdatedAt: t0}, TenantID: u.TenantID, UserID: u.ID, Title: "older"}
	newer := &db_models.Session{BaseModel: db_models.BaseModel{CreatedAt: t0.Add(time.Minute), UpdatedAt: t0.Add(time.Minute)}, TenantID: u.TenantID, UserID: u.ID, Title: "newer"}
	require.NoError(t, sessions.Create(ctx, older))
	require.NoError(t, sessions.Create(ctx, newer))

	// same timestamp, seq decides
	for i, role := range []db_models.Role{db_models.RoleUser, db_models.RoleAssistant} {
		require.NoError(t, messages.Create(ctx, &db_models.Message{
			Seq: int64(100 + i), TenantID: u.TenantID, SessionID: older.ID,
			Role: role, Text: string(role), CreatedAt: t0.Add(time.Hour),
		}))
	}
	require.NoError(t, sessions.Touch(ctx, u.TenantID, older.ID, t0.Add(time.Hour)))
	require.NoError(t, sessions.Touch(ctx, u.TenantID, older.ID, t0))

	list, err := sessions.ListByUser(ctx, u.TenantID, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "older", list[0].Title)
	assert.True(t, list[0].UpdatedAt.Equal(t0.Add(time.Hour)))

	msgs, err := messages.ListBySession(ctx, u.TenantID, older.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, db_models.RoleUser, msgs[0].Role)
	assert.Equal(t, db_models.RoleAssistant, msgs[1].Role)

	cross, err := messages.ListBySession(ctx, uuid.New(), older.ID)
	require.NoError(t, err)
	assert.Empty(t, cross)

	crossSession, err := sessions.FindByID(ctx, uuid.New(), older.ID)
	require.NoError(t, err)
	assert.Nil(t, crossSession)
}

func TestMessageRejectsUnknownRole(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, "r@example.com")

	err := NewMessageRepository(db).Create(context.Background(), &db_models.Message{
		Seq: 1, TenantID: u.TenantID, SessionID: uuid.New(), Role: "tool", Text: "x", CreatedAt: t0,
	})
	assert.Error(t, err)
}

func TestRollbackTurn(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "rb@example.com")
	sessionID := uuid.New()

	userMsg := &db_models.Message{Seq: 1, TenantID: u.TenantID, SessionID: sessionID, Role: db_models.RoleUser, Text: "q", CreatedAt: t0}
	aiMsg := &db_models.Message{Seq: 2, TenantID: u.TenantID, SessionID: sessionID, Role: db_models.RoleAssistant, Text: "a", CreatedAt: t0}
	require.NoError(t, repo.Create(ctx, userMsg))
	require.NoError(t, repo.Create(ctx, aiMsg))

	require.NoError(t, repo.RollbackTurn(ctx, u.TenantID, userMsg.ID, aiMsg.ID))

	msgs, err := repo.ListBySession(ctx, u.TenantID, sessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, db_models.RoleUser, msgs[0].Role)
	assert.True(t, msgs[0].DeliveryFailed)
}

func TestSearchText(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()
	a := seedUser(t, db, "sa@example.com")
	b := seedUser(t, db, "sb@example.com")
	sessionID := uuid.New()

	texts := []string{"Greek Yogurt with berries", "Oatmeal breakfast", "100% whole grain toast"}
	for i, text := range texts {
		require.NoError(t, repo.Create(ctx, &db_models.Message{
			Seq: int64(i + 1), TenantID: a.TenantID, SessionID: sessionID,
			Role: db_models.RoleUser, Text: text, CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, &db_models.Message{
		Seq: 99, TenantID: b.TenantID, SessionID: uuid.New(),
		Role: db_models.RoleUser, Text: "yogurt parfait", CreatedAt: t0,
	}))

	got, err := repo.SearchText(ctx, a.TenantID, []string{"yogurt", "toast"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "100% whole grain toast", got[0].Text)

	pct, err := repo.SearchText(ctx, a.TenantID, []string{"100%"}, 10)
	require.NoError(t, err)
	require.Len(t, pct, 1)

	literal, err := repo.SearchText(ctx, a.TenantID, []string{"%"}, 10)
	require.NoError(t, err)
	assert.Len(t, literal, 1)
}
