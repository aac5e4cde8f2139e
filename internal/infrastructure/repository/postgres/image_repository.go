package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/norrhem/stagecraft/internal/core/domain"
)

// ImageRepository reads the reference-image catalog. Image ingestion and
// review live in an external pipeline; this service only consumes the
// confirmed, non-deleted state.
type ImageRepository struct {
	db *sql.DB
}

func NewImageRepository(db *sql.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) GetByID(ctx context.Context, id string) (*domain.ReferenceImage, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, room_type, tags, status, created_at, updated_at
FROM reference_images
WHERE id = $1
`, id)

	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrImageNotFound, "get image", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get image by id: %w", err)
	}
	return img, nil
}

// PickUnswiped selects uniform-random confirmed images the subject has not
// swiped yet. ORDER BY random() is fine at catalog scale (hundreds of
// curated images per organization).
func (r *ImageRepository) PickUnswiped(ctx context.Context, subjectID string, limit int) ([]domain.ReferenceImage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT i.id, i.room_type, i.tags, i.status, i.created_at, i.updated_at
FROM reference_images i
WHERE i.status = 'confirmed'
AND NOT EXISTS (
	SELECT 1 FROM swipes s WHERE s.subject_id = $1 AND s.image_id = i.id
)
ORDER BY random()
LIMIT $2
`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("pick unswiped images: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ReferenceImage, 0, limit)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		out = append(out, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(row rowScanner) (*domain.ReferenceImage, error) {
	var img domain.ReferenceImage
	var tagsRaw []byte
	var status string
	err := row.Scan(&img.ID, &img.RoomType, &tagsRaw, &status, &img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tagsRaw, &img.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal image tags: %w", err)
	}
	img.Status = domain.ImageStatus(status)
	return &img, nil
}
