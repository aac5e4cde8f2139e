package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/norrhem/stagecraft/internal/core/domain"
)

// SwipeRepository persists the append-only swipe log. Rows are never updated
// or deleted; seq order is the chronological order scoring relies on.
type SwipeRepository struct {
	db *sql.DB
}

func NewSwipeRepository(db *sql.DB) *SwipeRepository {
	return &SwipeRepository{db: db}
}

func (r *SwipeRepository) Append(ctx context.Context, swipe *domain.Swipe) error {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO swipes (subject_id, image_id, direction, created_at)
VALUES ($1,$2,$3,$4)
RETURNING seq
`, swipe.SubjectID, swipe.ImageID, string(swipe.Direction), swipe.CreatedAt)

	if err := row.Scan(&swipe.Seq); err != nil {
		return mapReferenceError("append swipe", err)
	}
	return nil
}

// RecentWindow joins the newest swipes with their image tag sets. The window
// is cut from the raw log first, then swipes on deleted (or vanished) images
// drop out of it; older log rows never slide in to take their place.
func (r *SwipeRepository) RecentWindow(ctx context.Context, subjectID string, limit int) ([]domain.TaggedSwipe, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT s.direction, s.created_at, i.tags
FROM (
	SELECT seq, image_id, direction, created_at
	FROM swipes
	WHERE subject_id = $1
	ORDER BY seq DESC
	LIMIT $2
) s
JOIN reference_images i ON i.id = s.image_id AND i.status <> 'deleted'
ORDER BY s.seq DESC
`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent window: %w", err)
	}
	defer rows.Close()

	out := make([]domain.TaggedSwipe, 0, limit)
	for rows.Next() {
		var direction string
		var swipe domain.TaggedSwipe
		var tagsRaw []byte
		if err := rows.Scan(&direction, &swipe.CreatedAt, &tagsRaw); err != nil {
			return nil, fmt.Errorf("scan window row: %w", err)
		}
		if err := json.Unmarshal(tagsRaw, &swipe.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal image tags: %w", err)
		}
		swipe.Direction = domain.SwipeDirection(direction)
		out = append(out, swipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window rows: %w", err)
	}
	return out, nil
}

// Count is the raw log count: swipes on since-deleted images still count.
func (r *SwipeRepository) Count(ctx context.Context, subjectID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM swipes WHERE subject_id = $1
`, subjectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count swipes: %w", err)
	}
	return count, nil
}
