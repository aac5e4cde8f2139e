package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/norrhem/stagecraft/internal/core/domain"
	"github.com/norrhem/stagecraft/internal/core/ports"
)

// ProfileQueryUseCase serves the current-profile and swipe-count reads,
// read-through via the profile cache when one is wired.
type ProfileQueryUseCase struct {
	profiles ports.ProfileRepository
	swipes   ports.SwipeLogRepository
	cache    ports.ProfileCache
	logger   *slog.Logger
}

func NewProfileQueryUseCase(
	profiles ports.ProfileRepository,
	swipes ports.SwipeLogRepository,
	cache ports.ProfileCache,
	logger *slog.Logger,
) *ProfileQueryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileQueryUseCase{
		profiles: profiles,
		swipes:   swipes,
		cache:    cache,
		logger:   logger,
	}
}

func (uc *ProfileQueryUseCase) ProfileBySubject(ctx context.Context, subjectID string) (*domain.StyleProfile, error) {
	if subjectID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "profile query", errors.New("subject id is required"))
	}

	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, subjectID)
		if err != nil {
			uc.logger.Warn("profile_cache_get_failed", "subject_id", subjectID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	profile, err := uc.profiles.GetBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, profile); err != nil {
			uc.logger.Warn("profile_cache_set_failed", "subject_id", subjectID, "error", err)
		}
	}
	return profile, nil
}

func (uc *ProfileQueryUseCase) SwipeCount(ctx context.Context, subjectID string) (int64, error) {
	if subjectID == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "swipe count", errors.New("subject id is required"))
	}
	count, err := uc.swipes.Count(ctx, subjectID)
	if err != nil {
		return 0, fmt.Errorf("count swipes: %w", err)
	}
	return count, nil
}
