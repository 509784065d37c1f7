package services

import (
	"context"
	"fmt"
	"strings"

	"glucoach/internal/models/db_models"
	"glucoach/internal/models/request_models"
	"glucoach/internal/repositories"
	"glucoach/pkg/utils"
)

type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, principal utils.Principal) (*db_models.Profile, error)
	UpsertProfile(ctx context.Context, principal utils.Principal, request request_models.UpsertProfileRequest) (*db_models.Profile, error)
}

type ProfileService struct {
	profileRepo repositories.ProfileRepository
	clock       utils.Clock
}

func NewProfileService(profileRepo repositories.ProfileRepository, clock utils.Clock) ProfileServiceInterface {
	return &ProfileService{
		profileRepo: profileRepo,
		clock:       clock,
	}
}

// GetProfile returns nil without error when the user has no profile yet.
func (p *ProfileService) GetProfile(ctx context.Context, principal utils.Principal) (*db_models.Profile, error) {
	profile, err := p.profileRepo.FindByUser(ctx, principal.TenantID, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return profile, nil
}

func (p *ProfileService) UpsertProfile(ctx context.Context, principal utils.Principal, request request_models.UpsertProfileRequest) (*db_models.Profile, error) {
	diabetesType, err := db_models.ParseDiabetesType(strings.TrimSpace(request.DiabetesType))
	if err != nil {
		return nil, utils.NewBadRequest("%v", err)
	}
	if request.Age != nil && (*request.Age < 0 || *request.Age > 130) {
		return nil, utils.NewBadRequest("age out of range")
	}

	lists := map[string][]string{
		"health_goals":     request.HealthGoals,
		"food_preferences": request.FoodPreferences,
		"allergies":        request.Allergies,
		"dislikes":         request.Dislikes,
	}
	for name, items := range lists {
		if len(items) > db_models.MaxProfileListLen {
			return nil, utils.NewBadRequest("%s has more than %d entries", name, db_models.MaxProfileListLen)
		}
	}

	now := p.clock.Now()
	profile := &db_models.Profile{
		BaseModel:          db_models.BaseModel{CreatedAt: now, UpdatedAt: now},
		TenantID:           principal.TenantID,
		UserID:             principal.UserID,
		DiabetesType:       diabetesType,
		Age:                request.Age,
		Gender:             cleanOptional(request.Gender),
		ActivityLevel:      cleanOptional(request.ActivityLevel),
		HealthGoals:        cleanList(request.HealthGoals),
		FoodPreferences:    cleanList(request.FoodPreferences),
		CulturalBackground: cleanOptional(request.CulturalBackground),
		Allergies:          cleanList(request.Allergies),
		Dislikes:           cleanList(request.Dislikes),
		CookingSkill:       cleanOptional(request.CookingSkill),
	}
	if err := p.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	// the conflict path keeps the stored id, so read it back
	return p.GetProfile(ctx, principal)
}

func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}
