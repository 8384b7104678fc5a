package service

import (
	"context"
	"fmt"

	"creator_chat/internal/domain"
	"creator_chat/internal/repository"
	apperrors "creator_chat/pkg/errors"
	"creator_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow counts one hit against rule for key and fails with a rate
	// limited error once the window is used up.
	Allow(ctx context.Context, rule domain.RateLimitRule, key string) error
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

// NewRateLimitService returns a limiter that lets everything through when
// no store is configured.
func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, rule domain.RateLimitRule, key string) error {
	if s.rateLimitRepo == nil || rule.Limit <= 0 {
		return nil
	}

	count, err := s.rateLimitRepo.Hit(ctx, rule.Scope, key, rule.Window)
	if err != nil {
		// Fail open.
		s.log.Warn("Rate limit check failed", "scope", rule.Scope, "key", key, "error", err)
		return nil
	}
	if count > int64(rule.Limit) {
		return &apperrors.DomainError{
			Kind:    apperrors.ErrRateLimited,
			Message: fmt.Sprintf("too many requests, limit is %d per %s", rule.Limit, rule.Window),
		}
	}
	return nil
}
