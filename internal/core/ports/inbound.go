package ports

import (
	"context"

	"github.com/norrhem/stagecraft/internal/core/domain"
)

// SwipeRecorder is the inbound contract for the swipe append fast path.
type SwipeRecorder interface {
	Record(ctx context.Context, subjectID, imageID string, direction domain.SwipeDirection) (*domain.Swipe, error)
}

// ProfileReader serves the reactive profile and progress queries.
type ProfileReader interface {
	ProfileBySubject(ctx context.Context, subjectID string) (*domain.StyleProfile, error)
	SwipeCount(ctx context.Context, subjectID string) (int64, error)
}

// ProfileRecomputer is the inbound contract for one asynchronous
// recomputation cycle.
type ProfileRecomputer interface {
	RecomputeBySubject(ctx context.Context, subjectID string) error
}

// ImagePicker selects the next unswiped eligible images for a subject.
type ImagePicker interface {
	NextImages(ctx context.Context, subjectID string, limit int) ([]domain.ReferenceImage, error)
}
