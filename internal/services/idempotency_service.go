package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mem "glucoach/pkg/memcache"
	"glucoach/pkg/utils"
	"go.uber.org/zap"
)

const IdempotencyTTL = 24 * time.Hour

type IdempotencyServiceInterface interface {
	// Execute runs fn once per (user, key). A repeat with the same body gets the
	// stored response; a failed run releases the key.
	Execute(ctx context.Context, principal utils.Principal, key string, body []byte, fn func() (any, error)) ([]byte, error)
}

type IdempotencyService struct {
	store mem.IdempotencyStore
	log   *zap.Logger
}

func NewIdempotencyService(store mem.IdempotencyStore, log *zap.Logger) IdempotencyServiceInterface {
	return &IdempotencyService{store: store, log: log}
}

func (s *IdempotencyService) Execute(ctx context.Context, principal utils.Principal, key string, body []byte, fn func() (any, error)) ([]byte, error) {
	storeKey := principal.UserID.String() + ":" + key
	requestHash := utils.SHA256Hex(body)

	existing, acquired, err := s.store.Begin(ctx, storeKey, requestHash, IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("idempotency begin: %w", err)
	}
	if !acquired {
		switch {
		case existing.RequestHash != requestHash:
			return nil, utils.ErrIdempotencyConflict
		case existing.Status != mem.StatusCompleted:
			return nil, utils.ErrRequestInProgress
		default:
			s.log.Debug("idempotent replay", zap.String("user_id", principal.UserID.String()), zap.String("key", key))
			return existing.Response, nil
		}
	}

	result, err := fn()
	if err != nil {
		if relErr := s.store.Release(context.WithoutCancel(ctx), storeKey); relErr != nil {
			s.log.Warn("idempotency release failed", zap.String("key", key), zap.Error(relErr))
		}
		return nil, err
	}

	response, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if err := s.store.Complete(context.WithoutCancel(ctx), storeKey, response, IdempotencyTTL); err != nil {
		s.log.Warn("idempotency complete failed", zap.String("key", key), zap.Error(err))
	}
	return response, nil
}
