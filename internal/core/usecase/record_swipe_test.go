package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/norrhem/stagecraft/internal/core/domain"
)

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishRecompute(_ context.Context, subjectID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, subjectID)
	return nil
}

func (f *queueFake) SubscribeRecompute(context.Context, func(context.Context, string) error) error {
	return nil
}

func TestRecordSwipeAppendsAndSchedulesRecompute(t *testing.T) {
	log := &swipeLogFake{}
	queue := &queueFake{}
	uc := NewRecordSwipeUseCase(log, queue, nil)

	swipe, err := uc.Record(context.Background(), "sub-1", "img-1", domain.DirectionLike)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if swipe.Seq == 0 {
		t.Fatalf("expected sequence assigned on append")
	}
	if len(log.appended) != 1 {
		t.Fatalf("expected 1 appended swipe, got %d", len(log.appended))
	}
	if len(queue.published) != 1 || queue.published[0] != "sub-1" {
		t.Fatalf("expected recompute scheduled for sub-1, got %v", queue.published)
	}
}

func TestRecordSwipeRejectsInvalidDirection(t *testing.T) {
	log := &swipeLogFake{}
	queue := &queueFake{}
	uc := NewRecordSwipeUseCase(log, queue, nil)

	_, err := uc.Record(context.Background(), "sub-1", "img-1", domain.SwipeDirection("maybe"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if len(log.appended) != 0 {
		t.Fatalf("invalid swipe must not reach the log")
	}
}

func TestRecordSwipeRejectsMissingIdentifiers(t *testing.T) {
	uc := NewRecordSwipeUseCase(&swipeLogFake{}, &queueFake{}, nil)

	if _, err := uc.Record(context.Background(), "", "img-1", domain.DirectionLike); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty subject, got %v", err)
	}
	if _, err := uc.Record(context.Background(), "sub-1", "", domain.DirectionDislike); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty image, got %v", err)
	}
}

func TestRecordSwipeToleratesPublishFailure(t *testing.T) {
	log := &swipeLogFake{}
	queue := &queueFake{err: errors.New("nats down")}
	uc := NewRecordSwipeUseCase(log, queue, nil)

	swipe, err := uc.Record(context.Background(), "sub-1", "img-1", domain.DirectionDislike)
	if err != nil {
		t.Fatalf("Record() error = %v, append succeeded so the swipe must be accepted", err)
	}
	if swipe == nil || len(log.appended) != 1 {
		t.Fatalf("swipe not recorded despite tolerated publish failure")
	}
}

func TestRecordSwipePublishFailureHookFiresOnDrop(t *testing.T) {
	log := &swipeLogFake{}
	queue := &queueFake{err: errors.New("nats down")}
	uc := NewRecordSwipeUseCase(log, queue, nil)

	dropped := 0
	uc.SetPublishFailureHook(func() { dropped++ })

	if _, err := uc.Record(context.Background(), "sub-1", "img-1", domain.DirectionLike); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if dropped != 1 {
		t.Fatalf("expected one dropped-trigger callback, got %d", dropped)
	}

	// A healthy publish must not fire it.
	queue.err = nil
	if _, err := uc.Record(context.Background(), "sub-1", "img-2", domain.DirectionLike); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if dropped != 1 {
		t.Fatalf("callback fired on successful publish, count %d", dropped)
	}
}

func TestRecordSwipePropagatesAppendFailure(t *testing.T) {
	log := &swipeLogFake{appendErr: errors.New("fk violation")}
	queue := &queueFake{}
	uc := NewRecordSwipeUseCase(log, queue, nil)

	if _, err := uc.Record(context.Background(), "sub-1", "img-1", domain.DirectionLike); err == nil {
		t.Fatalf("expected error")
	}
	if len(queue.published) != 0 {
		t.Fatalf("recompute must not be scheduled when append fails")
	}
}
