package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"glucoach/internal/models/db_models"
	"glucoach/pkg/utils"
)

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"brown", "rice", "ok"}, SearchTerms("Brown rice, a OK? brown"))
	assert.Empty(t, SearchTerms("a b"))
	assert.Equal(t, []string{"100%"}, SearchTerms("100%"))
}

func TestScoreMessage(t *testing.T) {
	terms := []string{"brown", "rice"}
	assert.Equal(t, 3.0, ScoreMessage("I love Brown Rice bowls", "brown rice", terms))
	assert.Equal(t, 1.0, ScoreMessage("rice that is brown", "brown rice", terms))
	assert.Equal(t, 0.5, ScoreMessage("white rice", "brown rice", terms))
	assert.Equal(t, 0.0, ScoreMessage("quinoa", "brown rice", terms))
}

func TestSearchRanking(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, db_models.PlanStandard, db_models.SubStatusActive)
	ctx := context.Background()

	older, err := env.sessions.CreateSession(ctx, p, "older")
	require.NoError(t, err)
	newer, err := env.sessions.CreateSession(ctx, p, "newer")
	require.NoError(t, err)

	add := func(s *db_models.Session, text string) *db_models.Message {
		env.clock.Advance(time.Minute)
		m, err := env.sessions.AppendMessage(ctx, p, s.ID, db_models.RoleUser, text, nil)
		require.NoError(t, err)
		return m
	}
	phraseOld := add(older, "Is brown rice good for me?")
	overlap := add(newer, "rice or pasta")
	phraseNew := add(newer, "BROWN RICE again")
	add(older, "nothing relevant")

	results, err := env.search.Search(ctx, p, "  Brown   Rice ")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// newest phrase hit first, so its session leads
	assert.Equal(t, newer.ID, results[0].Session.ID)
	require.Len(t, results[0].Messages, 2)
	assert.Equal(t, phraseNew.ID, results[0].Messages[0].ID)
	assert.Equal(t, overlap.ID, results[0].Messages[1].ID)

	assert.Equal(t, older.ID, results[1].Session.ID)
	require.Len(t, results[1].Messages, 1)
	assert.Equal(t, phraseOld.ID, results[1].Messages[0].ID)
}

func TestSearchScopedToCaller(t *testing.T) {
	env := newTestEnv(t)
	a := env.seedUser(t, db_models.PlanStandard, db_models.SubStatusActive)
	b := env.seedUser(t, db_models.PlanStandard, db_models.SubStatusActive)
	ctx := context.Background()

	sa, err := env.sessions.CreateSession(ctx, a, "")
	require.NoError(t, err)
	_, err = env.sessions.AppendMessage(ctx, a, sa.ID, db_models.RoleUser, "secret avocado toast", nil)
	require.NoError(t, err)

	results, err := env.search.Search(ctx, b, "avocado")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = env.search.Search(ctx, a, "AVOCADO")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchCapsResults(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, db_models.PlanStandard, db_models.SubStatusActive)
	ctx := context.Background()
	s, err := env.sessions.CreateSession(ctx, p, "")
	require.NoError(t, err)

	for i := 0; i < MaxSearchResults+10; i++ {
		_, err := env.sessions.AppendMessage(ctx, p, s.ID, db_models.RoleUser, fmt.Sprintf("oatmeal %d", i), nil)
		require.NoError(t, err)
	}

	results, err := env.search.Search(ctx, p, "oatmeal")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Messages, MaxSearchResults)
	assert.Equal(t, fmt.Sprintf("oatmeal %d", MaxSearchResults+9), results[0].Messages[0].Text)
}

func TestSearchEmptyQuery(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, db_models.PlanStandard, db_models.SubStatusActive)

	_, err := env.search.Search(context.Background(), p, "   ")
	assert.ErrorIs(t, err, utils.ErrBadRequest)
}

func TestSearchSingleCharacterQuery(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedUser(t, db_models.PlanStandard, db_models.SubStatusActive)
	ctx := context.Background()
	s, err := env.sessions.CreateSession(ctx, p, "")
	require.NoError(t, err)
	_, err = env.sessions.AppendMessage(ctx, p, s.ID, db_models.RoleUser, "vitamin D", nil)
	require.NoError(t, err)

	results, err := env.search.Search(ctx, p, "d")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
