package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/norrhem/stagecraft/internal/core/domain"
	"github.com/norrhem/stagecraft/internal/core/ports"
)

// DefaultPickBatchMax caps a single next-images request.
const DefaultPickBatchMax = 5

// PickImagesUseCase serves the "next unswiped eligible image(s)" query.
// Selection is uniform random with no weighting.
type PickImagesUseCase struct {
	images   ports.ImageRepository
	batchMax int
}

func NewPickImagesUseCase(images ports.ImageRepository, batchMax int) *PickImagesUseCase {
	if batchMax <= 0 {
		batchMax = DefaultPickBatchMax
	}
	return &PickImagesUseCase{
		images:   images,
		batchMax: batchMax,
	}
}

func (uc *PickImagesUseCase) NextImages(ctx context.Context, subjectID string, limit int) ([]domain.ReferenceImage, error) {
	if subjectID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "next images", errors.New("subject id is required"))
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > uc.batchMax {
		limit = uc.batchMax
	}

	picks, err := uc.images.PickUnswiped(ctx, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("pick unswiped images: %w", err)
	}
	return picks, nil
}
