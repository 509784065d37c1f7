package request_models

type UpsertProfileRequest struct {
	DiabetesType       string   `json:"diabetes_type" binding:"required"`
	Age                *int     `json:"age"`
	Gender             *string  `json:"gender"`
	ActivityLevel      *string  `json:"activity_level"`
	HealthGoals        []string `json:"health_goals"`
	FoodPreferences    []string `json:"food_preferences"`
	CulturalBackground *string  `json:"cultural_background"`
	Allergies          []string `json:"allergies"`
	Dislikes           []string `json:"dislikes"`
	CookingSkill       *string  `json:"cooking_skill"`
}
