package db_models

import "fmt"

type Plan string

const (
	PlanStandard Plan = "standard"
	PlanPremium  Plan = "premium"
)

func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanStandard, PlanPremium:
		return Plan(s), nil
	default:
		return "", fmt.Errorf("unknown plan %q", s)
	}
}

type SubscriptionStatus string

const (
	SubStatusTrial     SubscriptionStatus = "trial"
	SubStatusActive    SubscriptionStatus = "active"
	SubStatusInactive  SubscriptionStatus = "inactive"
	SubStatusCancelled SubscriptionStatus = "cancelled"
)

func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch SubscriptionStatus(s) {
	case SubStatusTrial, SubStatusActive, SubStatusInactive, SubStatusCancelled:
		return SubscriptionStatus(s), nil
	default:
		return "", fmt.Errorf("unknown subscription status %q", s)
	}
}
