package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/norrhem/stagecraft/internal/core/domain"
)

func TestProfileRepositoryUpsertKeepsExistingLatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProfileRepository(db)
	// The latch lives in the statement itself: completed_at must be written
	// set-if-unset, and every derived column replaced wholesale.
	mock.ExpectExec(`completed_at = COALESCE\(style_profiles\.completed_at, EXCLUDED\.completed_at\)`).
		WithArgs("sub-1", sqlmock.AnyArg(), sqlmock.AnyArg(), 0.85, int64(20), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now().UTC()
	profile := &domain.StyleProfile{
		SubjectID:           "sub-1",
		Scores:              domain.NewScoreMatrix(),
		DimensionConfidence: map[domain.Dimension]float64{},
		OverallConfidence:   0.85,
		SwipeCount:          20,
		CompletedAt:         &now,
		LastUpdatedAt:       now,
	}
	if err := repo.Upsert(context.Background(), profile); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProfileRepositoryUpsertMapsUnknownSubject(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProfileRepository(db)
	mock.ExpectExec("INSERT INTO style_profiles").
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})

	profile := &domain.StyleProfile{
		SubjectID:           "ghost",
		Scores:              domain.NewScoreMatrix(),
		DimensionConfidence: map[domain.Dimension]float64{},
		LastUpdatedAt:       time.Now().UTC(),
	}
	err = repo.Upsert(context.Background(), profile)
	if !domain.IsKind(err, domain.ErrUnknownReference) {
		t.Fatalf("expected unknown reference error, got %v", err)
	}
}

func TestProfileRepositoryGetBySubjectNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProfileRepository(db)
	mock.ExpectQuery("FROM style_profiles").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"subject_id"}))

	_, err = repo.GetBySubject(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected profile not found, got %v", err)
	}
}

func TestProfileRepositoryGetBySubjectRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewProfileRepository(db)
	completed := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"subject_id", "scores", "dimension_confidence", "overall_confidence", "swipe_count", "completed_at", "last_updated_at",
	}).AddRow(
		"sub-1",
		[]byte(`{"style":{"modern":2.94}}`),
		[]byte(`{"style":0.2}`),
		0.05,
		int64(3),
		completed,
		time.Now(),
	)
	mock.ExpectQuery("FROM style_profiles").
		WithArgs("sub-1").
		WillReturnRows(rows)

	profile, err := repo.GetBySubject(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("GetBySubject() error = %v", err)
	}
	if profile.Scores[domain.DimensionStyle]["modern"] != 2.94 {
		t.Fatalf("scores did not round-trip: %+v", profile.Scores)
	}
	if profile.CompletedAt == nil || !profile.CompletedAt.Equal(completed) {
		t.Fatalf("completedAt = %v, want %v", profile.CompletedAt, completed)
	}
}
