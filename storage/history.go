// Package storage persists completed scan reports so the dashboard can
// show recent activity and trends across restarts.
package storage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// Bucket names in bbolt
var (
	bucketReports     = []byte("reports")
	bucketHistoryMeta = []byte("meta")
)

var keySequence = []byte("sequence")

// defaultKeepReports bounds history growth when no limit is configured.
const defaultKeepReports = 50

// ReportSummary is the in-memory index entry for one stored report.
// Recent() and trend queries read these without touching disk.
type ReportSummary struct {
	Seq            int64     `json:"seq"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	TotalResources int       `json:"total_resources"`
	TotalSavings   float64   `json:"total_savings"`
	FailedTargets  int       `json:"failed_targets"`
	PartialFailure bool      `json:"partial_failure"`
	TotalFailure   bool      `json:"total_failure"`
}

// HistoryStore stores scan reports in bbolt with a btree index ordered
// by sequence number.
type HistoryStore struct {
	mu sync.RWMutex

	index *btree.BTreeG[*ReportSummary]
	db    *bbolt.DB

	currentSeq int64
	keep       int
}

// NewHistoryStore opens or creates the report history at path.
func NewHistoryStore(path string) (*HistoryStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketReports, bucketHistoryMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	store := &HistoryStore{
		index: btree.NewG[*ReportSummary](32, func(a, b *ReportSummary) bool {
			return a.Seq < b.Seq
		}),
		db:   db,
		keep: defaultKeepReports,
	}

	if err := store.loadSequence(); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.rebuildIndex(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// WithKeep sets how many reports are retained before pruning.
func (s *HistoryStore) WithKeep(n int) *HistoryStore {
	if n > 0 {
		s.keep = n
	}
	return s
}

// Close closes the underlying database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// RecordReport appends a completed report and prunes history beyond the
// retention limit in the same transaction.
func (s *HistoryStore) RecordReport(report *types.ScanReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentSeq++
	seq := s.currentSeq

	var pruned []int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketReports)
		value, err := json.Marshal(report)
		if err != nil {
			return err
		}
		if err := bucket.Put(makeReportKey(seq), value); err != nil {
			return err
		}

		cutoff := seq - int64(s.keep)
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			rev := parseReportKey(k)
			if rev > cutoff {
				break
			}
			if err := bucket.Delete(k); err != nil {
				return err
			}
			pruned = append(pruned, rev)
		}

		metaBucket := tx.Bucket(bucketHistoryMeta)
		return metaBucket.Put(keySequence, int64ToBytes(seq))
	})
	if err != nil {
		s.currentSeq--
		return fmt.Errorf("failed to record scan report: %w", err)
	}

	s.index.ReplaceOrInsert(summarize(seq, report))
	for _, rev := range pruned {
		s.index.Delete(&ReportSummary{Seq: rev})
	}

	return nil
}

// Recent returns summaries of the last n reports, newest first.
func (s *HistoryStore) Recent(n int) []*ReportSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		return nil
	}

	results := make([]*ReportSummary, 0, n)
	s.index.Descend(func(summary *ReportSummary) bool {
		results = append(results, summary)
		return len(results) < n
	})
	return results
}

// LastReport returns the most recent full report, or nil when history
// is empty.
func (s *HistoryStore) LastReport() (*types.ScanReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *ReportSummary
	s.index.Descend(func(summary *ReportSummary) bool {
		latest = summary
		return false
	})
	if latest == nil {
		return nil, nil
	}
	return s.getReport(latest.Seq)
}

// Report returns the full report stored at seq.
func (s *HistoryStore) Report(seq int64) (*types.ScanReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getReport(seq)
}

// CurrentSeq returns the sequence number of the newest report.
func (s *HistoryStore) CurrentSeq() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSeq
}

func (s *HistoryStore) getReport(seq int64) (*types.ScanReport, error) {
	var report *types.ScanReport

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketReports).Get(makeReportKey(seq))
		if data == nil {
			return fmt.Errorf("report %d not found", seq)
		}
		report = &types.ScanReport{}
		return json.Unmarshal(data, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *HistoryStore) loadSequence() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketHistoryMeta).Get(keySequence)
		if data != nil {
			s.currentSeq = bytesToInt64(data)
		}
		return nil
	})
}

func (s *HistoryStore) rebuildIndex() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketReports).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var report types.ScanReport
			if err := json.Unmarshal(v, &report); err != nil {
				return fmt.Errorf("corrupt report at key %q: %w", k, err)
			}
			s.index.ReplaceOrInsert(summarize(parseReportKey(k), &report))
		}
		return nil
	})
}

func summarize(seq int64, report *types.ScanReport) *ReportSummary {
	return &ReportSummary{
		Seq:            seq,
		StartedAt:      report.StartedAt,
		CompletedAt:    report.CompletedAt,
		TotalResources: report.TotalResources,
		TotalSavings:   report.TotalEstimatedSavings,
		FailedTargets:  report.FailedTargets(),
		PartialFailure: report.PartialFailure,
		TotalFailure:   report.TotalFailure,
	}
}

func makeReportKey(seq int64) []byte {
	return []byte(fmt.Sprintf("%016d", seq))
}

func parseReportKey(key []byte) int64 {
	var seq int64
	fmt.Sscanf(string(key), "%016d", &seq)
	return seq
}

func int64ToBytes(n int64) []byte {
	return []byte(fmt.Sprintf("%d", n))
}

func bytesToInt64(b []byte) int64 {
	var n int64
	fmt.Sscanf(string(b), "%d", &n)
	return n
}
