package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// Bucket and key names in bbolt
var (
	bucketSchedule = []byte("schedule")
	keyRecord      = []byte("record")
)

// BoltStore implements Store on an embedded bbolt database. Suited to
// single-node deployments where the API and the scheduler share a process.
type BoltStore struct {
	mu sync.RWMutex
	db *bbolt.DB

	now func() time.Time
}

// NewBoltStore opens (and initializes) the schedule database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStoreUnavailable, path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSchedule)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: init bucket: %v", ErrStoreUnavailable, err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) load() (*record, error) {
	var rec *record

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSchedule).Get(keyRecord)
		if data == nil {
			return nil
		}
		rec = &record{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read record: %v", ErrStoreUnavailable, err)
	}
	return rec, nil
}

func (s *BoltStore) save(rec record) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSchedule).Put(keyRecord, data)
	})
	if err != nil {
		return fmt.Errorf("%w: write record: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Config returns the stored policy, or ErrNotConfigured before the first write.
func (s *BoltStore) Config(_ context.Context) (types.ScheduleConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.load()
	if err != nil {
		return types.ScheduleConfig{}, err
	}
	if rec == nil {
		return types.DefaultScheduleConfig(), ErrNotConfigured
	}
	return rec.Config, nil
}

// SetConfig validates and atomically replaces the whole policy. The last
// scan timestamp survives config changes.
func (s *BoltStore) SetConfig(_ context.Context, cfg types.ScheduleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return err
	}
	next := record{Version: 1, Config: cfg, UpdatedAt: s.now()}
	if rec != nil {
		next.Version = rec.Version + 1
		next.LastScanAt = rec.LastScanAt
	}
	return s.save(next)
}

// Enable flips only the enabled flag. A never-configured store starts from
// the defaults, matching first-boot behavior.
func (s *BoltStore) Enable(ctx context.Context) error {
	return s.setEnabled(ctx, true)
}

// Disable flips only the enabled flag, preserving every other field.
func (s *BoltStore) Disable(ctx context.Context) error {
	return s.setEnabled(ctx, false)
}

func (s *BoltStore) setEnabled(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &record{Config: types.DefaultScheduleConfig()}
	}
	return s.save(rec.toggle(enabled, s.now()))
}

// Status returns the observed state with the derived next fire time.
func (s *BoltStore) Status(_ context.Context) (types.ScheduleStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.load()
	if err != nil {
		return types.ScheduleStatus{}, err
	}
	if rec == nil {
		return types.ScheduleStatus{}, nil
	}
	return rec.status(s.now()), nil
}

// RecordScanCompleted stamps last_scan_at atomically.
func (s *BoltStore) RecordScanCompleted(_ context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &record{Config: types.DefaultScheduleConfig()}
	}
	next := *rec
	next.LastScanAt = &at
	next.Version++
	next.UpdatedAt = s.now()
	return s.save(next)
}
