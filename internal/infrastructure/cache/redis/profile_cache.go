package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/norrhem/stagecraft/internal/core/domain"
)

const (
	profileKeyPrefix     = "profile:"
	profileChannelPrefix = "profile-updated:"
	defaultProfileTTL    = 10 * time.Minute
)

// ProfileCache is a read-through JSON cache over the profile store plus a
// pub/sub fanout for reactive profile reads. Everything here is best effort;
// Postgres stays the source of truth for the derived record.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr, password string, db int) (*ProfileCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &ProfileCache{
		client: client,
		ttl:    defaultProfileTTL,
	}, nil
}

func (c *ProfileCache) Close() error {
	return c.client.Close()
}

func (c *ProfileCache) Get(ctx context.Context, subjectID string) (*domain.StyleProfile, error) {
	raw, err := c.client.Get(ctx, profileKeyPrefix+subjectID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var profile domain.StyleProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("unmarshal cached profile: %w", err)
	}
	return &profile, nil
}

func (c *ProfileCache) Set(ctx context.Context, profile *domain.StyleProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := c.client.Set(ctx, profileKeyPrefix+profile.SubjectID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// NotifyUpdated publishes the committed profile on the subject's channel so
// SSE streams see completedAt transitions without polling Postgres.
func (c *ProfileCache) NotifyUpdated(ctx context.Context, profile *domain.StyleProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile event: %w", err)
	}
	if err := c.client.Publish(ctx, profileChannelPrefix+profile.SubjectID, raw).Err(); err != nil {
		return fmt.Errorf("publish profile event: %w", err)
	}
	return nil
}

// WatchUpdates streams committed profile updates for one subject until ctx
// is done. Malformed payloads are skipped rather than tearing the stream
// down.
func (c *ProfileCache) WatchUpdates(ctx context.Context, subjectID string) (<-chan domain.StyleProfile, error) {
	sub := c.client.Subscribe(ctx, profileChannelPrefix+subjectID)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe profile events: %w", err)
	}

	out := make(chan domain.StyleProfile)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var profile domain.StyleProfile
				if err := json.Unmarshal([]byte(msg.Payload), &profile); err != nil {
					continue
				}
				select {
				case out <- profile:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
