package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/norrhem/stagecraft/internal/core/domain"
)

// ProfileRepository stores the one-per-subject derived profile.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert replaces the whole profile row in one atomic statement. Concurrent
// recomputations for the same subject may land in either order; whichever
// commits last wins wholesale, except completed_at which is set-if-unset via
// COALESCE so the latch can never be cleared or overwritten.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.StyleProfile) error {
	scoresJSON, err := json.Marshal(profile.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	confidenceJSON, err := json.Marshal(profile.DimensionConfidence)
	if err != nil {
		return fmt.Errorf("marshal dimension confidence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO style_profiles (
	subject_id, scores, dimension_confidence, overall_confidence, swipe_count, completed_at, last_updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (subject_id) DO UPDATE SET
	scores = EXCLUDED.scores,
	dimension_confidence = EXCLUDED.dimension_confidence,
	overall_confidence = EXCLUDED.overall_confidence,
	swipe_count = EXCLUDED.swipe_count,
	completed_at = COALESCE(style_profiles.completed_at, EXCLUDED.completed_at),
	last_updated_at = EXCLUDED.last_updated_at
`,
		profile.SubjectID, scoresJSON, confidenceJSON, profile.OverallConfidence,
		profile.SwipeCount, profile.CompletedAt, profile.LastUpdatedAt,
	)
	if err != nil {
		return mapReferenceError("upsert profile", err)
	}
	return nil
}

func (r *ProfileRepository) GetBySubject(ctx context.Context, subjectID string) (*domain.StyleProfile, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT subject_id, scores, dimension_confidence, overall_confidence, swipe_count, completed_at, last_updated_at
FROM style_profiles
WHERE subject_id = $1
`, subjectID)

	var profile domain.StyleProfile
	var scoresRaw, confidenceRaw []byte
	err := row.Scan(
		&profile.SubjectID,
		&scoresRaw,
		&confidenceRaw,
		&profile.OverallConfidence,
		&profile.SwipeCount,
		&profile.CompletedAt,
		&profile.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrProfileNotFound, "get profile", fmt.Errorf("subject=%s", subjectID))
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	if err := json.Unmarshal(scoresRaw, &profile.Scores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	if err := json.Unmarshal(confidenceRaw, &profile.DimensionConfidence); err != nil {
		return nil, fmt.Errorf("unmarshal dimension confidence: %w", err)
	}
	return &profile, nil
}
