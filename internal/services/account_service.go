package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"glucoach/internal/models/db_models"
	"glucoach/internal/models/request_models"
	"glucoach/internal/repositories"
	"glucoach/pkg/utils"
	"go.uber.org/zap"
)

type AccountServiceInterface interface {
	Login(ctx context.Context, request request_models.LoginRequest) (string, *db_models.User, error)
	CreateAccount(ctx context.Context, request request_models.SignUpRequest) (string, *db_models.User, error)
	Me(ctx context.Context, principal utils.Principal) (*db_models.User, error)
}

type AccountService struct {
	accountRepo repositories.AccountRepository
	tokens      *utils.TokenIssuer
	clock       utils.Clock
	trialDays   int
	log         *zap.Logger
}

func NewAccountService(
	accountRepo repositories.AccountRepository,
	tokens *utils.TokenIssuer,
	clock utils.Clock,
	trialDays int,
	log *zap.Logger,
) AccountServiceInterface {
	return &AccountService{
		accountRepo: accountRepo,
		tokens:      tokens,
		clock:       clock,
		trialDays:   trialDays,
		log:         log,
	}
}

func (a *AccountService) Login(ctx context.Context, request request_models.LoginRequest) (string, *db_models.User, error) {
	startTime := time.Now()

	user, err := a.accountRepo.FindByEmail(ctx, normalizeEmail(request.Email))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if user == nil {
		return "", nil, utils.ErrInvalidCredentials
	}

	if err := utils.ComparePasswords(user.PasswordHash, request.Password); err != nil {
		return "", nil, utils.ErrInvalidCredentials
	}

	token, err := a.tokens.CreateToken(principalOf(user))
	if err != nil {
		return "", nil, err
	}

	a.log.Debug("login", zap.String("user_id", user.ID.String()), zap.Duration("took", time.Since(startTime)))
	return token, user, nil
}

// CreateAccount registers a standard user in a fresh tenant with a trial
// subscription. Plan upgrades come from billing, never from signup.
func (a *AccountService) CreateAccount(ctx context.Context, request request_models.SignUpRequest) (string, *db_models.User, error) {
	email := normalizeEmail(request.Email)

	existing, err := a.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if existing != nil {
		return "", nil, utils.ErrEmailAlreadyExists
	}

	hashedPassword, err := utils.HashPassword(request.Password)
	if err != nil {
		return "", nil, err
	}

	now := a.clock.Now()
	trialEnd := now.AddDate(0, 0, a.trialDays)
	user := &db_models.User{
		BaseModel:          db_models.BaseModel{CreatedAt: now, UpdatedAt: now},
		TenantID:           uuid.New(),
		Email:              email,
		PasswordHash:       hashedPassword,
		Plan:               db_models.PlanStandard,
		SubscriptionStatus: db_models.SubStatusTrial,
		TrialEndDate:       &trialEnd,
	}
	if err := a.accountRepo.Insert(ctx, user); err != nil {
		return "", nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	token, err := a.tokens.CreateToken(principalOf(user))
	if err != nil {
		return "", nil, err
	}

	a.log.Info("account created", zap.String("user_id", user.ID.String()), zap.String("plan", string(user.Plan)))
	return token, user, nil
}

func (a *AccountService) Me(ctx context.Context, principal utils.Principal) (*db_models.User, error) {
	user, err := a.accountRepo.FindByID(ctx, principal.TenantID, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if user == nil {
		return nil, utils.ErrNotFound
	}
	return user, nil
}

func principalOf(user *db_models.User) utils.Principal {
	return utils.Principal{
		UserID:             user.ID,
		TenantID:           user.TenantID,
		Plan:               user.Plan,
		SubscriptionStatus: user.SubscriptionStatus,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
