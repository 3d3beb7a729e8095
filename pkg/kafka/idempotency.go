package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore tracks processed event IDs so redelivered messages can be
// skipped. Implementations must be safe for concurrent use.
type IdempotencyStore interface {
	// Contains returns true if the event ID has already been processed.
	Contains(ctx context.Context, eventID string) (bool, error)
	// Add marks an event ID as processed. Call it only after successful processing.
	Add(ctx context.Context, eventID string) error
}

// MemoryIdempotencyStore is an in-memory IdempotencyStore for development and
// single-instance deployments. Entries expire after the configured TTL:
// lookups drop expired entries lazily, and Add sweeps the whole map once per
// TTL period so IDs that are never looked up again do not accumulate.
type MemoryIdempotencyStore struct {
	mu        sync.RWMutex
	entries   map[string]time.Time
	ttl       time.Duration
	lastSweep time.Time
}

// NewMemoryIdempotencyStore creates an in-memory idempotency store with the
// given TTL.
func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries:   make(map[string]time.Time),
		ttl:       ttl,
		lastSweep: time.Now(),
	}
}

// Contains checks if the event ID exists and is not expired.
func (s *MemoryIdempotencyStore) Contains(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	ts, exists := s.entries[eventID]
	s.mu.RUnlock()

	if !exists {
		return false, nil
	}

	if time.Since(ts) > s.ttl {
		s.mu.Lock()
		delete(s.entries, eventID)
		s.mu.Unlock()
		return false, nil
	}

	return true, nil
}

// Add marks the event ID as processed with the current timestamp.
func (s *MemoryIdempotencyStore) Add(_ context.Context, eventID string) error {
	now := time.Now()

	s.mu.Lock()
	s.entries[eventID] = now
	if now.Sub(s.lastSweep) > s.ttl {
		for id, ts := range s.entries {
			if now.Sub(ts) > s.ttl {
				delete(s.entries, id)
			}
		}
		s.lastSweep = now
	}
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries in the store, including ones past their
// TTL that have not been swept yet.
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// RedisIdempotencyStore keeps processed event IDs in Redis so deduplication
// holds across consumer replicas and restarts. Redis expires each entry after
// the configured TTL.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisIdempotencyStore creates a Redis-backed idempotency store. Event IDs
// are written as "<prefix>:<eventID>".
func NewRedisIdempotencyStore(client *redis.Client, prefix string, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisIdempotencyStore) key(eventID string) string {
	return s.prefix + ":" + eventID
}

// Contains checks whether the event ID is recorded in Redis.
func (s *RedisIdempotencyStore) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Add records the event ID with the store's TTL.
func (s *RedisIdempotencyStore) Add(ctx context.Context, eventID string) error {
	return s.client.Set(ctx, s.key(eventID), "1", s.ttl).Err()
}

// IdempotentHandler wraps a Handler with deduplication. If the event's EventID
// has already been processed according to the store, the message is skipped
// and nil is returned. Store failures fail open: the message is processed
// rather than risk dropping it.
func IdempotentHandler(store IdempotencyStore, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, event *Event) error {
		if event.EventID == "" {
			// Nothing to key the dedup on.
			return inner(ctx, event)
		}

		exists, err := store.Contains(ctx, event.EventID)
		if err != nil {
			logger.Warn("idempotency store lookup failed, processing anyway",
				slog.String("event_id", event.EventID),
				slog.String("error", err.Error()),
			)
			return inner(ctx, event)
		}

		if exists {
			ConsumerMessagesDuplicate.WithLabelValues(event.EventType).Inc()
			logger.Debug("skipping duplicate event",
				slog.String("event_id", event.EventID),
				slog.String("event_type", event.EventType),
				slog.String("aggregate_id", event.AggregateID),
			)
			return nil
		}

		if err := inner(ctx, event); err != nil {
			return err
		}

		// Only successfully handled events are recorded; a failed run must
		// stay redeliverable.
		if addErr := store.Add(ctx, event.EventID); addErr != nil {
			logger.Warn("failed to record event ID in idempotency store",
				slog.String("event_id", event.EventID),
				slog.String("error", addErr.Error()),
			)
		}

		return nil
	}
}
