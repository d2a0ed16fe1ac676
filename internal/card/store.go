package card

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/flexcard/internal/shared"
)

const maxUpdateAttempts = 5

// Store persists card snapshots between requests.
type Store interface {
	Create(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, id string) (Snapshot, error)
	Update(ctx context.Context, id string, fn func(*Snapshot) error) (Snapshot, error)
}

// RedisStore keeps snapshots in Redis with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Create stores a new snapshot, failing if the id is taken.
func (s *RedisStore) Create(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("card store: encode: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.key(snap.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("card store: create: %w", err)
	}
	if !created {
		return fmt.Errorf("card store: card %s already exists", snap.ID)
	}
	return nil
}

// Get loads a snapshot and refreshes its TTL.
func (s *RedisStore) Get(ctx context.Context, id string) (Snapshot, error) {
	data, err := s.client.GetEx(ctx, s.key(id), s.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("card store: get: %w", err)
	}
	return decodeSnapshot(data)
}

// Update applies fn to the stored snapshot under optimistic locking.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Snapshot) error) (Snapshot, error) {
	key := s.key(id)
	var updated Snapshot
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}
		snap, err := decodeSnapshot(data)
		if err != nil {
			return err
		}
		if err := fn(&snap); err != nil {
			return err
		}
		encoded, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err == nil {
			updated = snap
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrNotFound) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("card store: update: %w", err)
	}
	return Snapshot{}, fmt.Errorf("card store: update %s: too much contention", id)
}

func (s *RedisStore) key(id string) string {
	return shared.CardKey(id)
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("card store: decode: %w", err)
	}
	if snap.Selection == nil {
		snap.Selection = NewDocumentSelection()
	}
	return snap, nil
}
