package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/norrhem/stagecraft/internal/core/domain"
	"github.com/norrhem/stagecraft/internal/core/ports"
)

// RecordSwipeUseCase is the fast path: durably append one swipe, then
// schedule an asynchronous recomputation.
type RecordSwipeUseCase struct {
	swipes ports.SwipeLogRepository
	queue  ports.RecomputeQueue
	logger *slog.Logger

	publishFailureHook func()
}

func NewRecordSwipeUseCase(
	swipes ports.SwipeLogRepository,
	queue ports.RecomputeQueue,
	logger *slog.Logger,
) *RecordSwipeUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordSwipeUseCase{
		swipes: swipes,
		queue:  queue,
		logger: logger,
	}
}

func (uc *RecordSwipeUseCase) Record(
	ctx context.Context,
	subjectID, imageID string,
	direction domain.SwipeDirection,
) (*domain.Swipe, error) {
	if subjectID == "" || imageID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "record swipe", errors.New("subject id and image id are required"))
	}
	if !direction.IsValid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "record swipe", fmt.Errorf("direction %q is not like/dislike", direction))
	}

	swipe := &domain.Swipe{
		SubjectID: subjectID,
		ImageID:   imageID,
		Direction: direction,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.swipes.Append(ctx, swipe); err != nil {
		return nil, fmt.Errorf("append swipe: %w", err)
	}

	// The swipe itself is durable; a dropped trigger is healed by the next
	// swipe's recomputation reading the full window.
	if err := uc.queue.PublishRecompute(ctx, subjectID); err != nil {
		uc.logger.Warn("recompute_publish_failed",
			"subject_id", subjectID,
			"image_id", imageID,
			"error", err,
		)
		if uc.publishFailureHook != nil {
			uc.publishFailureHook()
		}
	}

	return swipe, nil
}

// SetPublishFailureHook registers a callback fired whenever a recompute
// trigger is dropped at publish time.
func (uc *RecordSwipeUseCase) SetPublishFailureHook(hook func()) {
	uc.publishFailureHook = hook
}
