package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"glucoach/internal/models/db_models"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID             uuid.UUID
	TenantID           uuid.UUID
	Plan               db_models.Plan
	SubscriptionStatus db_models.SubscriptionStatus
}

type Claims struct {
	UserID             string `json:"user_id"`
	TenantID           string `json:"tenant_id"`
	Plan               string `json:"plan"`
	SubscriptionStatus string `json:"subscription_status"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	key    []byte
	expiry time.Duration
	clock  Clock
}

func NewTokenIssuer(secret string, expiry time.Duration, clock Clock) *TokenIssuer {
	return &TokenIssuer{
		key:    []byte(secret),
		expiry: expiry,
		clock:  clock,
	}
}

func (t *TokenIssuer) CreateToken(p Principal) (string, error) {
	now := t.clock.Now()
	claims := &Claims{
		UserID:             p.UserID.String(),
		TenantID:           p.TenantID.String(),
		Plan:               string(p.Plan),
		SubscriptionStatus: string(p.SubscriptionStatus),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.key)
}

// Authenticate validates the token and returns its principal. Every failure
// wraps ErrUnauthenticated.
func (t *TokenIssuer) Authenticate(tokenString string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil || !token.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user_id claim", ErrUnauthenticated)
	}
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad tenant_id claim", ErrUnauthenticated)
	}
	plan, err := db_models.ParsePlan(claims.Plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	status, err := db_models.ParseSubscriptionStatus(claims.SubscriptionStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	return &Principal{
		UserID:             userID,
		TenantID:           tenantID,
		Plan:               plan,
		SubscriptionStatus: status,
	}, nil
}
