package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/norrhem/stagecraft/internal/core/domain"
	"github.com/norrhem/stagecraft/internal/core/ports"
)

// RecomputeProfileUseCase runs one full recomputation cycle for a subject:
// fetch the recent window, aggregate scores, estimate confidence, and
// atomically replace the subject's profile row. The cycle is a pure function
// of the swipe log (lastUpdatedAt aside), so redundant or out-of-order runs
// are harmless.
type RecomputeProfileUseCase struct {
	swipes   ports.SwipeLogRepository
	profiles ports.ProfileRepository
	cache    ports.ProfileCache
	notifier ports.ProfileNotifier
	params   ScoringParams
	logger   *slog.Logger
	now      func() time.Time

	completionHook func(subjectID string)
}

func NewRecomputeProfileUseCase(
	swipes ports.SwipeLogRepository,
	profiles ports.ProfileRepository,
	cache ports.ProfileCache,
	notifier ports.ProfileNotifier,
	params ScoringParams,
	logger *slog.Logger,
) *RecomputeProfileUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecomputeProfileUseCase{
		swipes:   swipes,
		profiles: profiles,
		cache:    cache,
		notifier: notifier,
		params:   params.normalize(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *RecomputeProfileUseCase) RecomputeBySubject(ctx context.Context, subjectID string) error {
	window, err := uc.swipes.RecentWindow(ctx, subjectID, uc.params.WindowSize)
	if err != nil {
		return fmt.Errorf("fetch recent window: %w", err)
	}
	count, err := uc.swipes.Count(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("count swipes: %w", err)
	}

	matrix, evidence := aggregateScores(window, uc.params)
	dimensionConf, overall := estimateConfidence(matrix, evidence, uc.params)

	now := uc.now()
	profile := &domain.StyleProfile{
		SubjectID:           subjectID,
		Scores:              matrix,
		DimensionConfidence: dimensionConf,
		OverallConfidence:   overall,
		SwipeCount:          count,
		LastUpdatedAt:       now,
	}
	if overall >= uc.params.CompletionThreshold {
		// The store keeps any earlier latch timestamp; this value only lands
		// if the latch was still unset.
		profile.CompletedAt = &now
	}

	if err := uc.profiles.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	stored := uc.publishCommitted(ctx, profile)
	if stored != nil && profile.CompletedAt != nil && stored.CompletedAt != nil && stored.CompletedAt.Equal(*profile.CompletedAt) {
		// The stored latch carries this run's timestamp, so this cycle is the
		// one that crossed the threshold.
		uc.logger.Info("profile_completed", "subject_id", subjectID, "overall_confidence", overall)
		if uc.completionHook != nil {
			uc.completionHook(subjectID)
		}
	}
	return nil
}

// SetCompletionHook registers a callback fired once per subject, on the
// cycle whose latch timestamp the store accepted.
func (uc *RecomputeProfileUseCase) SetCompletionHook(hook func(subjectID string)) {
	uc.completionHook = hook
}

// publishCommitted refreshes the cache and notifies watchers with the stored
// row, so downstream always sees the authoritative latch timestamp rather
// than this run's candidate. Both steps are best effort. Returns the stored
// row, or nil when the read-back failed — the candidate goes out to watchers
// anyway, but without the stored row there is no proof this run owns any
// latch it carries.
func (uc *RecomputeProfileUseCase) publishCommitted(ctx context.Context, computed *domain.StyleProfile) *domain.StyleProfile {
	profile := computed
	var stored *domain.StyleProfile
	if readBack, err := uc.profiles.GetBySubject(ctx, computed.SubjectID); err == nil {
		stored = readBack
		profile = readBack
	} else {
		uc.logger.Warn("profile_readback_failed", "subject_id", computed.SubjectID, "error", err)
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, profile); err != nil {
			uc.logger.Warn("profile_cache_set_failed", "subject_id", profile.SubjectID, "error", err)
		}
	}
	if uc.notifier != nil {
		if err := uc.notifier.NotifyUpdated(ctx, profile); err != nil {
			uc.logger.Warn("profile_notify_failed", "subject_id", profile.SubjectID, "error", err)
		}
	}
	return stored
}
