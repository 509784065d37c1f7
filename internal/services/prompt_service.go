package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"glucoach/internal/models/db_models"
	"glucoach/pkg/utils"
)

// PolicyPreamble is the coach persona sent first on every turn.
const PolicyPreamble = `You are a warm, practical nutrition coach for people living with diabetes or prediabetes.

Safety:
- You give general nutrition education and meal ideas. You do not diagnose, prescribe, or change medication or insulin doses.
- If the user describes symptoms of very low or very high blood sugar, chest pain, or any emergency, tell them to contact emergency services or their care team right away.
- Encourage the user to confirm changes to their diet plan with their doctor or dietitian.
- Respect every allergy and dislike you are told about. Never suggest a food the user is allergic to.

Measurements:
- Use US customary units only: cups, tablespoons, teaspoons, ounces, pounds and degrees Fahrenheit.
- Give carbohydrate amounts in grams per serving when you suggest a recipe or meal.

Formatting:
- Reply in plain text. Do not use markdown, headings, bold, italics or tables.
- Keep answers short and conversational. Use simple numbered steps for recipes.

Follow-up:
- After suggesting a recipe or meal plan, offer to turn the ingredients into a shopping list.`

const (
	MaxHistoryMessages = 20
	HistoryTokenBudget = 3000
)

// PromptInput is everything one coach turn needs to build the model input.
type PromptInput struct {
	Profile  *db_models.Profile
	History  []db_models.Message
	UserText string
	Policy   string
	// Version is the disclaimer version the user accepted; it is stated in the
	// preamble when set.
	Version string
}

// ComposePrompt builds the ordered message list for the model: policy,
// profile facts, the session tail and the new user message. It has no side
// effects.
func ComposePrompt(in PromptInput) []utils.ChatMessage {
	policy := in.Policy
	if policy == "" {
		policy = PolicyPreamble
	}
	if in.Version != "" {
		policy += "\n\nThe user accepted disclaimer version " + in.Version + "."
	}

	out := []utils.ChatMessage{{Role: db_models.RoleSystem, Content: policy}}
	if facts := ProfileFacts(in.Profile); facts != "" {
		out = append(out, utils.ChatMessage{Role: db_models.RoleAssistant, Content: facts})
	}
	for _, m := range historyTail(in.History) {
		out = append(out, utils.ChatMessage{Role: m.Role, Content: m.Text})
	}
	return append(out, utils.ChatMessage{Role: db_models.RoleUser, Content: in.UserText})
}

// ProfileFacts states the present profile fields as short sentences. Absent
// fields are left out.
func ProfileFacts(p *db_models.Profile) string {
	if p == nil {
		return ""
	}
	var facts []string
	switch p.DiabetesType {
	case db_models.DiabetesType1:
		facts = append(facts, "User has type 1 diabetes.")
	case db_models.DiabetesType2:
		facts = append(facts, "User has type 2 diabetes.")
	case db_models.DiabetesPrediabetes:
		facts = append(facts, "User has prediabetes.")
	}
	if p.Age != nil {
		facts = append(facts, fmt.Sprintf("Age: %d.", *p.Age))
	}
	facts = appendOptional(facts, "Gender", p.Gender)
	facts = appendOptional(facts, "Activity level", p.ActivityLevel)
	facts = appendList(facts, "Allergies", p.Allergies)
	facts = appendList(facts, "Dislikes", p.Dislikes)
	facts = appendList(facts, "Preferences", p.FoodPreferences)
	facts = appendList(facts, "Goals", p.HealthGoals)
	facts = appendOptional(facts, "Cultural background", p.CulturalBackground)
	facts = appendOptional(facts, "Cooking skill", p.CookingSkill)
	return strings.Join(facts, " ")
}

func appendOptional(facts []string, label string, v *string) []string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return facts
	}
	return append(facts, label+": "+strings.TrimSpace(*v)+".")
}

func appendList(facts []string, label string, items []string) []string {
	if len(items) == 0 {
		return facts
	}
	return append(facts, label+": "+strings.Join(items, ", ")+".")
}

// historyTail keeps the newest delivered messages that fit both the message
// cap and the token budget, in their original order.
func historyTail(history []db_models.Message) []db_models.Message {
	var kept []db_models.Message
	budget := HistoryTokenBudget
	for i := len(history) - 1; i >= 0 && len(kept) < MaxHistoryMessages; i-- {
		m := history[i]
		if m.DeliveryFailed || m.Role == db_models.RoleSystem {
			continue
		}
		cost := EstimateTokens(m.Text)
		if cost > budget {
			break
		}
		budget -= cost
		kept = append(kept, m)
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

// EstimateTokens approximates tokens as four characters each.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
