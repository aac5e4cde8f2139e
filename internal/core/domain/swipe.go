package domain

import "time"

type SwipeDirection string

const (
	DirectionLike    SwipeDirection = "like"
	DirectionDislike SwipeDirection = "dislike"
)

// IsValid reports whether d is one of the two legal directions.
func (d SwipeDirection) IsValid() bool {
	return d == DirectionLike || d == DirectionDislike
}

// Swipe is a single immutable like/dislike event. Seq is the insertion order
// and doubles as the chronological order; uniqueness of (subject, image) is
// deliberately not enforced.
type Swipe struct {
	Seq       int64          `json:"seq"`
	SubjectID string         `json:"subject_id"`
	ImageID   string         `json:"image_id"`
	Direction SwipeDirection `json:"direction"`
	CreatedAt time.Time      `json:"created_at"`
}

// TaggedSwipe is a swipe joined with the tag sets of the swiped image, the
// scoring input shape. Swipes whose image was deleted never appear as a
// TaggedSwipe.
type TaggedSwipe struct {
	Direction SwipeDirection
	Tags      TagSet
	CreatedAt time.Time
}
