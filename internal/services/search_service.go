package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"glucoach/internal/models/db_models"
	"glucoach/internal/models/response_models"
	"glucoach/internal/repositories"
	"glucoach/pkg/utils"
)

const (
	MaxSearchResults  = 50
	searchCandidates  = 500
	phraseMatchWeight = 2.0
)

type SearchServiceInterface interface {
	// Search ranks the caller's messages against query and groups the best
	// MaxSearchResults hits by session.
	Search(ctx context.Context, principal utils.Principal, query string) ([]response_models.SearchResult, error)
}

type SearchService struct {
	sessionRepo repositories.SessionRepository
	messageRepo repositories.MessageRepository
}

func NewSearchService(sessionRepo repositories.SessionRepository, messageRepo repositories.MessageRepository) SearchServiceInterface {
	return &SearchService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
	}
}

type scoredMessage struct {
	message db_models.Message
	score   float64
}

func (s *SearchService) Search(ctx context.Context, principal utils.Principal, query string) ([]response_models.SearchResult, error) {
	phrase := normalizePhrase(query)
	if phrase == "" {
		return nil, utils.NewBadRequest("q is required")
	}
	terms := SearchTerms(phrase)
	if len(terms) == 0 {
		terms = []string{phrase}
	}

	candidates, err := s.messageRepo.SearchText(ctx, principal.TenantID, terms, searchCandidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	sessions := make(map[uuid.UUID]*db_models.Session)
	var hits []scoredMessage
	for _, m := range candidates {
		session, ok := sessions[m.SessionID]
		if !ok {
			session, err = s.sessionRepo.FindByID(ctx, principal.TenantID, m.SessionID)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
			}
			sessions[m.SessionID] = session
		}
		if session == nil || session.UserID != principal.UserID {
			continue
		}
		if score := ScoreMessage(m.Text, phrase, terms); score > 0 {
			hits = append(hits, scoredMessage{message: m, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if !hits[i].message.CreatedAt.Equal(hits[j].message.CreatedAt) {
			return hits[i].message.CreatedAt.After(hits[j].message.CreatedAt)
		}
		return hits[i].message.Seq > hits[j].message.Seq
	})
	if len(hits) > MaxSearchResults {
		hits = hits[:MaxSearchResults]
	}

	results := []response_models.SearchResult{}
	index := make(map[uuid.UUID]int)
	for _, h := range hits {
		i, ok := index[h.message.SessionID]
		if !ok {
			i = len(results)
			index[h.message.SessionID] = i
			results = append(results, response_models.SearchResult{Session: *sessions[h.message.SessionID]})
		}
		results[i].Messages = append(results[i].Messages, h.message)
	}
	return results, nil
}

// ScoreMessage is 0 for no match, the share of matched terms for a partial
// match, and more than phraseMatchWeight when the whole phrase occurs.
func ScoreMessage(text, phrase string, terms []string) float64 {
	lower := strings.ToLower(text)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	overlap := 0.0
	if len(terms) > 0 {
		overlap = float64(matched) / float64(len(terms))
	}
	if strings.Contains(lower, phrase) {
		return phraseMatchWeight + overlap
	}
	return overlap
}

// SearchTerms splits a query into distinct lowercase words of two or more
// characters.
func SearchTerms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '%' && r != '_'
	})
	seen := make(map[string]bool)
	var terms []string
	for _, w := range words {
		if utf8.RuneCountInString(w) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

func normalizePhrase(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
