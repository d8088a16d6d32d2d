package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// scheduleKey is the single well-known key holding the schedule record.
const scheduleKey = "cloudcleaner:schedule"

// watchRetries bounds optimistic-transaction retries under write contention.
const watchRetries = 5

// RedisStore implements Store on Redis, for deployments where the API
// process and the scheduling process are separate. All read-modify-write
// operations run as optimistic WATCH transactions on the one record key.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore connects to Redis at addr ("host:port") and verifies
// connectivity before returning.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: connect to redis at %s: %v", ErrStoreUnavailable, addr, err)
	}

	return &RedisStore{client: client, now: time.Now}, nil
}

// Close shuts down the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) load(ctx context.Context) (*record, error) {
	data, err := s.client.Get(ctx, scheduleKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read record: %v", ErrStoreUnavailable, err)
	}

	rec := &record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("%w: decode record: %v", ErrStoreUnavailable, err)
	}
	return rec, nil
}

// mutate runs fn over the current record inside a WATCH transaction so a
// concurrent writer forces a retry instead of a torn update.
func (s *RedisStore) mutate(ctx context.Context, fn func(rec *record) record) error {
	txn := func(tx *redis.Tx) error {
		var rec *record
		data, err := tx.Get(ctx, scheduleKey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			rec = &record{}
			if err := json.Unmarshal(data, rec); err != nil {
				return err
			}
		}

		next := fn(rec)
		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, scheduleKey, payload, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < watchRetries; i++ {
		err = s.client.Watch(ctx, txn, scheduleKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("%w: update record: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Config returns the stored policy, or ErrNotConfigured before the first write.
func (s *RedisStore) Config(ctx context.Context) (types.ScheduleConfig, error) {
	rec, err := s.load(ctx)
	if err != nil {
		return types.ScheduleConfig{}, err
	}
	if rec == nil {
		return types.DefaultScheduleConfig(), ErrNotConfigured
	}
	return rec.Config, nil
}

// SetConfig validates and atomically replaces the whole policy.
func (s *RedisStore) SetConfig(ctx context.Context, cfg types.ScheduleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return s.mutate(ctx, func(rec *record) record {
		next := record{Version: 1, Config: cfg, UpdatedAt: s.now()}
		if rec != nil {
			next.Version = rec.Version + 1
			next.LastScanAt = rec.LastScanAt
		}
		return next
	})
}

// Enable flips only the enabled flag, preserving every other field.
func (s *RedisStore) Enable(ctx context.Context) error {
	return s.setEnabled(ctx, true)
}

// Disable flips only the enabled flag, preserving every other field.
func (s *RedisStore) Disable(ctx context.Context) error {
	return s.setEnabled(ctx, false)
}

func (s *RedisStore) setEnabled(ctx context.Context, enabled bool) error {
	return s.mutate(ctx, func(rec *record) record {
		if rec == nil {
			rec = &record{Config: types.DefaultScheduleConfig()}
		}
		return rec.toggle(enabled, s.now())
	})
}

// Status returns the observed state with the derived next fire time.
func (s *RedisStore) Status(ctx context.Context) (types.ScheduleStatus, error) {
	rec, err := s.load(ctx)
	if err != nil {
		return types.ScheduleStatus{}, err
	}
	if rec == nil {
		return types.ScheduleStatus{}, nil
	}
	return rec.status(s.now()), nil
}

// RecordScanCompleted stamps last_scan_at atomically.
func (s *RedisStore) RecordScanCompleted(ctx context.Context, at time.Time) error {
	return s.mutate(ctx, func(rec *record) record {
		if rec == nil {
			rec = &record{Config: types.DefaultScheduleConfig()}
		}
		next := *rec
		next.LastScanAt = &at
		next.Version++
		next.UpdatedAt = s.now()
		return next
	})
}
