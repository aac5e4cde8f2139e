package ports

import (
	"context"

	"github.com/norrhem/stagecraft/internal/core/domain"
)

// SwipeLogRepository persists the append-only swipe log and serves the
// scoring reads derived from it.
type SwipeLogRepository interface {
	// Append unconditionally inserts a new immutable swipe record.
	Append(ctx context.Context, swipe *domain.Swipe) error
	// RecentWindow returns the newest limit swipes for a subject,
	// newest-first, joined with each image's tag set. Swipes whose image was
	// deleted after the swipe are excluded.
	RecentWindow(ctx context.Context, subjectID string, limit int) ([]domain.TaggedSwipe, error)
	// Count returns the raw log count including swipes on deleted images.
	Count(ctx context.Context, subjectID string) (int64, error)
}

// ImageRepository reads the externally managed reference-image catalog.
type ImageRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ReferenceImage, error)
	// PickUnswiped returns up to limit uniform-random confirmed, non-deleted
	// images the subject has never swiped.
	PickUnswiped(ctx context.Context, subjectID string, limit int) ([]domain.ReferenceImage, error)
}

// ProfileRepository persists the one-per-subject derived profile.
type ProfileRepository interface {
	// Upsert atomically replaces the whole profile row. The completion
	// timestamp is written set-if-unset so the latch survives any
	// interleaving of concurrent recomputations.
	Upsert(ctx context.Context, profile *domain.StyleProfile) error
	GetBySubject(ctx context.Context, subjectID string) (*domain.StyleProfile, error)
}

// RecomputeQueue dispatches and consumes profile recomputation jobs with
// at-least-once delivery.
type RecomputeQueue interface {
	PublishRecompute(ctx context.Context, subjectID string) error
	SubscribeRecompute(ctx context.Context, handler func(context.Context, string) error) error
}

// ProfileCache is a read-through cache over the profile store.
type ProfileCache interface {
	// Get returns (nil, nil) on a cache miss.
	Get(ctx context.Context, subjectID string) (*domain.StyleProfile, error)
	Set(ctx context.Context, profile *domain.StyleProfile) error
}

// ProfileNotifier fans out committed profile updates to reactive consumers.
type ProfileNotifier interface {
	NotifyUpdated(ctx context.Context, profile *domain.StyleProfile) error
	// WatchUpdates streams updates for one subject until ctx is done.
	WatchUpdates(ctx context.Context, subjectID string) (<-chan domain.StyleProfile, error)
}
