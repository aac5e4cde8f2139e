package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/norrhem/stagecraft/internal/core/domain"
)

type swipeLogFake struct {
	window    []domain.TaggedSwipe
	count     int64
	windowErr error
	countErr  error
	appended  []*domain.Swipe
	appendErr error
}

func (f *swipeLogFake) Append(_ context.Context, swipe *domain.Swipe) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	swipe.Seq = int64(len(f.appended) + 1)
	f.appended = append(f.appended, swipe)
	return nil
}

func (f *swipeLogFake) RecentWindow(context.Context, string, int) ([]domain.TaggedSwipe, error) {
	if f.windowErr != nil {
		return nil, f.windowErr
	}
	return f.window, nil
}

func (f *swipeLogFake) Count(context.Context, string) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.count, nil
}

// profileRepoFake mirrors the store contract: whole-record replace with a
// set-if-unset completion latch.
type profileRepoFake struct {
	stored    map[string]*domain.StyleProfile
	upsertErr error
	getErr    error
	upserts   int
}

func newProfileRepoFake() *profileRepoFake {
	return &profileRepoFake{stored: make(map[string]*domain.StyleProfile)}
}

func (f *profileRepoFake) Upsert(_ context.Context, profile *domain.StyleProfile) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	replacement := *profile
	if existing, ok := f.stored[profile.SubjectID]; ok && existing.CompletedAt != nil {
		replacement.CompletedAt = existing.CompletedAt
	}
	f.stored[profile.SubjectID] = &replacement
	return nil
}

func (f *profileRepoFake) GetBySubject(_ context.Context, subjectID string) (*domain.StyleProfile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	profile, ok := f.stored[subjectID]
	if !ok {
		return nil, domain.WrapError(domain.ErrProfileNotFound, "get profile", errors.New(subjectID))
	}
	copied := *profile
	return &copied, nil
}

type notifierFake struct {
	updates []domain.StyleProfile
	err     error
}

func (f *notifierFake) NotifyUpdated(_ context.Context, profile *domain.StyleProfile) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, *profile)
	return nil
}

func (f *notifierFake) WatchUpdates(context.Context, string) (<-chan domain.StyleProfile, error) {
	return nil, nil
}

type cacheFake struct {
	entries map[string]*domain.StyleProfile
	getErr  error
	setErr  error
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: make(map[string]*domain.StyleProfile)}
}

func (f *cacheFake) Get(_ context.Context, subjectID string) (*domain.StyleProfile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.entries[subjectID], nil
}

func (f *cacheFake) Set(_ context.Context, profile *domain.StyleProfile) error {
	if f.setErr != nil {
		return f.setErr
	}
	copied := *profile
	f.entries[profile.SubjectID] = &copied
	return nil
}

func fullyTaggedLikes(n int) []domain.TaggedSwipe {
	tags := domain.TagSet{
		domain.DimensionStyle:             {"scandinavian"},
		domain.DimensionColorPalette:      {"lightAndAiry"},
		domain.DimensionMaterialFocus:     {"naturalWood"},
		domain.DimensionSpatialPhilosophy: {"minimalist"},
	}
	window := make([]domain.TaggedSwipe, 0, n)
	for i := 0; i < n; i++ {
		window = append(window, likeTagged(tags))
	}
	return window
}

func TestRecomputeIdempotentUnderRedundantTriggering(t *testing.T) {
	log := &swipeLogFake{window: fullyTaggedLikes(10), count: 10}
	repo := newProfileRepoFake()
	uc := NewRecomputeProfileUseCase(log, repo, nil, nil, DefaultScoringParams(), nil)

	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("first recompute error = %v", err)
	}
	first := *repo.stored["sub-1"]

	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("second recompute error = %v", err)
	}
	second := *repo.stored["sub-1"]

	if !almostEqual(first.OverallConfidence, second.OverallConfidence) {
		t.Fatalf("overall confidence drifted: %v vs %v", first.OverallConfidence, second.OverallConfidence)
	}
	for _, dim := range domain.Dimensions() {
		if !almostEqual(first.DimensionConfidence[dim], second.DimensionConfidence[dim]) {
			t.Fatalf("dimension %s confidence drifted", dim)
		}
		for _, value := range domain.DimensionValues(dim) {
			if !almostEqual(first.Scores[dim][value], second.Scores[dim][value]) {
				t.Fatalf("score %s/%s drifted: %v vs %v", dim, value, first.Scores[dim][value], second.Scores[dim][value])
			}
		}
	}
}

func TestRecomputeSetsCompletionLatchOnce(t *testing.T) {
	log := &swipeLogFake{window: fullyTaggedLikes(20), count: 20}
	repo := newProfileRepoFake()
	notifier := &notifierFake{}
	uc := NewRecomputeProfileUseCase(log, repo, nil, notifier, DefaultScoringParams(), nil)

	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("recompute error = %v", err)
	}
	completed := repo.stored["sub-1"].CompletedAt
	if completed == nil {
		t.Fatalf("expected completedAt latch to trip at full confidence")
	}

	// A later recomputation over a low-confidence window must not touch the
	// latch, and watchers must see the stored timestamp.
	log.window = []domain.TaggedSwipe{dislikeTagged(styleOnly("modern"))}
	log.count = 21
	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("recompute error = %v", err)
	}

	stored := repo.stored["sub-1"]
	if stored.OverallConfidence >= DefaultScoringParams().CompletionThreshold {
		t.Fatalf("test setup broken: second window should be low confidence, got %v", stored.OverallConfidence)
	}
	if stored.CompletedAt == nil || !stored.CompletedAt.Equal(*completed) {
		t.Fatalf("completedAt changed: %v -> %v", completed, stored.CompletedAt)
	}
	last := notifier.updates[len(notifier.updates)-1]
	if last.CompletedAt == nil || !last.CompletedAt.Equal(*completed) {
		t.Fatalf("notifier saw completedAt %v, want stored latch %v", last.CompletedAt, completed)
	}
}

func TestRecomputeCompletionHookFiresOnLatchingCycleOnly(t *testing.T) {
	log := &swipeLogFake{window: fullyTaggedLikes(20), count: 20}
	repo := newProfileRepoFake()
	uc := NewRecomputeProfileUseCase(log, repo, nil, nil, DefaultScoringParams(), nil)

	var completions []string
	uc.SetCompletionHook(func(subjectID string) {
		completions = append(completions, subjectID)
	})

	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("recompute error = %v", err)
	}
	if len(completions) != 1 || completions[0] != "sub-1" {
		t.Fatalf("expected one completion for sub-1, got %v", completions)
	}

	// Still above threshold on rerun, but the latch is already set.
	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("recompute error = %v", err)
	}
	if len(completions) != 1 {
		t.Fatalf("completion hook refired on an already-latched profile: %v", completions)
	}
}

func TestRecomputeCompletionHookSkippedWhenReadBackFails(t *testing.T) {
	log := &swipeLogFake{window: fullyTaggedLikes(20), count: 20}
	repo := newProfileRepoFake()
	repo.getErr = errors.New("storage flaky")
	uc := NewRecomputeProfileUseCase(log, repo, nil, nil, DefaultScoringParams(), nil)

	fired := 0
	uc.SetCompletionHook(func(string) { fired++ })

	// Without the stored row there is no proof this cycle owns the latch; a
	// concurrent run may have set it first.
	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("recompute error = %v", err)
	}
	if fired != 0 {
		t.Fatalf("completion hook fired %d times without a stored-row confirmation", fired)
	}

	// Once the read-back works again, the next latch-owning cycle reports.
	repo.getErr = nil
	delete(repo.stored, "sub-1")
	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("recompute error = %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected one completion after read-back recovered, got %d", fired)
	}
}

func TestRecomputeBelowThresholdLeavesLatchUnset(t *testing.T) {
	log := &swipeLogFake{window: fullyTaggedLikes(3), count: 3}
	repo := newProfileRepoFake()
	uc := NewRecomputeProfileUseCase(log, repo, nil, nil, DefaultScoringParams(), nil)

	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("recompute error = %v", err)
	}
	if repo.stored["sub-1"].CompletedAt != nil {
		t.Fatalf("completedAt set at overall confidence %v", repo.stored["sub-1"].OverallConfidence)
	}
}

func TestRecomputeCountsDeletedImageSwipes(t *testing.T) {
	// Five swipes in the raw log, one targeting a since-deleted image: the
	// window excludes it but the stored count keeps it.
	log := &swipeLogFake{window: fullyTaggedLikes(4), count: 5}
	repo := newProfileRepoFake()
	uc := NewRecomputeProfileUseCase(log, repo, nil, nil, DefaultScoringParams(), nil)

	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("recompute error = %v", err)
	}
	profile := repo.stored["sub-1"]
	if profile.SwipeCount != 5 {
		t.Fatalf("swipe count = %d, want raw log count 5", profile.SwipeCount)
	}
	wantWeight := 1.0 + 0.98 + 0.98*0.98 + 0.98*0.98*0.98
	if got := profile.Scores[domain.DimensionStyle]["scandinavian"]; !almostEqual(got, wantWeight) {
		t.Fatalf("score built from %v, want the 4 surviving swipes (%v)", got, wantWeight)
	}
}

func TestRecomputeUpdatesCacheWithStoredProfile(t *testing.T) {
	log := &swipeLogFake{window: fullyTaggedLikes(20), count: 20}
	repo := newProfileRepoFake()
	cache := newCacheFake()
	uc := NewRecomputeProfileUseCase(log, repo, cache, nil, DefaultScoringParams(), nil)

	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("recompute error = %v", err)
	}
	cached := cache.entries["sub-1"]
	if cached == nil {
		t.Fatalf("expected cache refresh after commit")
	}
	if cached.CompletedAt == nil {
		t.Fatalf("cached profile missing latch timestamp")
	}
}

func TestRecomputePropagatesWindowFetchError(t *testing.T) {
	log := &swipeLogFake{windowErr: errors.New("storage down")}
	repo := newProfileRepoFake()
	uc := NewRecomputeProfileUseCase(log, repo, nil, nil, DefaultScoringParams(), nil)

	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err == nil {
		t.Fatalf("expected error")
	}
	if repo.upserts != 0 {
		t.Fatalf("upsert ran despite failed window fetch")
	}
}

func TestRecomputeLastUpdatedAdvances(t *testing.T) {
	log := &swipeLogFake{window: fullyTaggedLikes(5), count: 5}
	repo := newProfileRepoFake()
	uc := NewRecomputeProfileUseCase(log, repo, nil, nil, DefaultScoringParams(), nil)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	uc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("recompute error = %v", err)
	}
	first := repo.stored["sub-1"].LastUpdatedAt
	if err := uc.RecomputeBySubject(context.Background(), "sub-1"); err != nil {
		t.Fatalf("recompute error = %v", err)
	}
	second := repo.stored["sub-1"].LastUpdatedAt
	if !second.After(first) {
		t.Fatalf("lastUpdatedAt did not advance: %v -> %v", first, second)
	}
}
