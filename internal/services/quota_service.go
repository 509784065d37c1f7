package services

import (
	"context"
	"fmt"

	"glucoach/internal/models/db_models"
	"glucoach/internal/repositories"
	"glucoach/pkg/utils"
)

// Unlimited is the limit value for plans without a monthly cap.
const Unlimited = -1

type QuotaStatus struct {
	CanUse       bool
	CurrentCount int
	Limit        int
	// Remaining is -1 when the plan is unlimited.
	Remaining   int
	Plan        db_models.Plan
	MonthBucket string
}

type QuotaServiceInterface interface {
	Check(ctx context.Context, principal utils.Principal) (*QuotaStatus, error)
	// Consume counts one successful turn in the current month. It fails with
	// *utils.QuotaExceededError when the limit was reached in the meantime.
	Consume(ctx context.Context, principal utils.Principal) (*QuotaStatus, error)
	LimitFor(plan db_models.Plan) int
}

type QuotaService struct {
	counterRepo repositories.CounterRepository
	clock       utils.Clock
	limits      map[db_models.Plan]int
}

func NewQuotaService(counterRepo repositories.CounterRepository, clock utils.Clock, standardLimit, premiumLimit int) QuotaServiceInterface {
	return &QuotaService{
		counterRepo: counterRepo,
		clock:       clock,
		limits: map[db_models.Plan]int{
			db_models.PlanStandard: standardLimit,
			db_models.PlanPremium:  premiumLimit,
		},
	}
}

func (q *QuotaService) LimitFor(plan db_models.Plan) int {
	limit, ok := q.limits[plan]
	if !ok {
		return q.limits[db_models.PlanStandard]
	}
	return limit
}

func (q *QuotaService) Check(ctx context.Context, principal utils.Principal) (*QuotaStatus, error) {
	bucket := utils.MonthBucket(q.clock.Now())
	counter, err := q.ensureCounter(ctx, principal, bucket)
	if err != nil {
		return nil, err
	}
	return q.status(principal.Plan, bucket, counter.Count), nil
}

func (q *QuotaService) Consume(ctx context.Context, principal utils.Principal) (*QuotaStatus, error) {
	now := q.clock.Now()
	bucket := utils.MonthBucket(now)
	limit := q.LimitFor(principal.Plan)

	var counter *db_models.ConsultationCounter
	// a second attempt covers a counter row that did not exist yet
	for attempt := 0; attempt < 2; attempt++ {
		count, ok, err := q.counterRepo.IncrementBelow(ctx, principal.TenantID, principal.UserID, bucket, limit, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if ok {
			return q.status(principal.Plan, bucket, count), nil
		}
		counter, err = q.counterRepo.Find(ctx, principal.TenantID, principal.UserID, bucket)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if counter != nil {
			return nil, &utils.QuotaExceededError{CurrentCount: counter.Count, Limit: limit}
		}
		if _, err := q.ensureCounter(ctx, principal, bucket); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: counter %s for user %s missing", utils.ErrDatabaseError, bucket, principal.UserID)
}

// ensureCounter creates the month's row on first touch, snapshotting the plan.
func (q *QuotaService) ensureCounter(ctx context.Context, principal utils.Principal, bucket string) (*db_models.ConsultationCounter, error) {
	counter, err := q.counterRepo.Find(ctx, principal.TenantID, principal.UserID, bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if counter != nil {
		return counter, nil
	}

	now := q.clock.Now()
	err = q.counterRepo.Ensure(ctx, &db_models.ConsultationCounter{
		UserID:       principal.UserID,
		MonthBucket:  bucket,
		TenantID:     principal.TenantID,
		PlanSnapshot: principal.Plan,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	counter, err = q.counterRepo.Find(ctx, principal.TenantID, principal.UserID, bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if counter == nil {
		return nil, fmt.Errorf("%w: counter %s for user %s missing", utils.ErrDatabaseError, bucket, principal.UserID)
	}
	return counter, nil
}

func (q *QuotaService) status(plan db_models.Plan, bucket string, count int) *QuotaStatus {
	limit := q.LimitFor(plan)
	remaining := Unlimited
	canUse := true
	if limit != Unlimited {
		remaining = limit - count
		if remaining < 0 {
			remaining = 0
		}
		canUse = count < limit
	}
	return &QuotaStatus{
		CanUse:       canUse,
		CurrentCount: count,
		Limit:        limit,
		Remaining:    remaining,
		Plan:         plan,
		MonthBucket:  bucket,
	}
}
