package domain

import "time"

type ImageStatus string

const (
	ImageUnconfirmed ImageStatus = "unconfirmed"
	ImageConfirmed   ImageStatus = "confirmed"
	ImageDeleted     ImageStatus = "deleted"
)

// TagSet maps a dimension to the 0-2 tag values the image carries there.
// The 2-per-dimension cap is enforced by the ingestion pipeline, not here.
type TagSet map[Dimension][]string

// ReferenceImage is a curated interior shot prospects swipe on. Only
// confirmed, non-deleted images are eligible for swiping; scoring never
// touches the image itself, only its tag set.
type ReferenceImage struct {
	ID        string      `json:"id"`
	RoomType  string      `json:"room_type"`
	Tags      TagSet      `json:"tags"`
	Status    ImageStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Eligible reports whether the image may be offered for swiping.
func (img *ReferenceImage) Eligible() bool {
	return img.Status == ImageConfirmed
}
