package response_models

import "glucoach/internal/models/db_models"

type FeatureFlags struct {
	CoachEnabled  bool   `json:"coach_enabled"`
	LLMProvider   string `json:"llm_provider"`
	LLMModel      string `json:"llm_model"`
	StandardLimit any    `json:"standard_limit"`
	PremiumLimit  any    `json:"premium_limit"`
}

type AcceptDisclaimerResponse struct {
	Accepted   bool   `json:"accepted"`
	AcceptedAt string `json:"accepted_at"`
	Version    string `json:"version"`
}

type DisclaimerStatusResponse struct {
	UserID             string `json:"user_id"`
	DisclaimerAccepted bool   `json:"disclaimer_accepted"`
	Version            string `json:"version,omitempty"`
}

type ConsultationLimitResponse struct {
	CanUse       bool           `json:"can_use"`
	CurrentCount int            `json:"current_count"`
	Limit        int            `json:"limit"`
	Remaining    int            `json:"remaining"`
	Plan         db_models.Plan `json:"plan"`
}

type SendMessageResponse struct {
	UserMessage      db_models.Message `json:"user_message"`
	AIResponse       db_models.Message `json:"ai_response"`
	ConsultationUsed bool              `json:"consultation_used"`
	Remaining        int               `json:"remaining"`
}

type SearchResult struct {
	Session  db_models.Session   `json:"session"`
	Messages []db_models.Message `json:"messages"`
}

type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}
