package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"

	"sawtfeel/pkg/models"
)

// Cache entry kinds written by the pipeline.
const (
	KindTranscript      = "transcript"
	KindEmotions        = "emotions"
	KindCompleteResults = "complete_results"
	KindError           = "error"
)

// SegmentCache stores JSON payloads keyed by (fileID, kind). Every entry
// expires a fixed TTL after it was written; reads never refresh it.
type SegmentCache interface {
	Put(fileID, kind string, payload interface{}) error
	Get(fileID, kind string, out interface{}) (bool, error)
	RemoveAll(fileID string) (int, error)
	SweepExpired() (SweepStats, error)
}

type cacheEnvelope struct {
	CachedAt time.Time       `json:"cached_at"`
	FileID   string          `json:"file_id"`
	DataType string          `json:"data_type"`
	Data     json.RawMessage `json:"data"`
}

// SweepStats summarizes one SweepExpired pass.
type SweepStats struct {
	RemovedCount   int
	FilesRemoved   int
	BytesFreed     int64
	ExpiredFileIDs []string
}

// Put overwrites any existing entry for (fileID, kind) and restarts
// its TTL from now.
func (s *Store) Put(fileID, kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	raw, err := json.Marshal(cacheEnvelope{
		CachedAt: time.Now(),
		FileID:   fileID,
		DataType: kind,
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache envelope: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(fileID, kind), raw)
	})
}

// Get unmarshals the cached payload into out. Absent, expired and
// unreadable entries all report a miss; the latter two are deleted.
func (s *Store) Get(fileID, kind string, out interface{}) (bool, error) {
	var raw []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(fileID, kind))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})

	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var env cacheEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("Segment Cache: dropping unreadable %s entry for %s: %v", kind, fileID, err)
		s.deleteCacheEntry(fileID, kind)
		return false, nil
	}

	if time.Since(env.CachedAt) >= s.ttl {
		s.deleteCacheEntry(fileID, kind)
		return false, nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		log.Printf("Segment Cache: dropping unreadable %s entry for %s: %v", kind, fileID, err)
		s.deleteCacheEntry(fileID, kind)
		return false, nil
	}

	return true, nil
}

func (s *Store) deleteCacheEntry(fileID, kind string) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(cacheKey(fileID, kind))
	})
	if err != nil {
		log.Printf("Segment Cache: failed to delete %s entry for %s: %v", kind, fileID, err)
	}
}

// RemoveAll deletes every cached kind for a file and returns how many
// entries existed.
func (s *Store) RemoveAll(fileID string) (int, error) {
	removed := 0

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(cachePrefix + fileID + ":")

		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache for %s: %w", fileID, err)
	}

	return removed, nil
}

// SweepExpired removes expired uploads along with their metadata,
// drops expired, orphaned and unreadable cache entries, then evicts
// the oldest remaining entries until the cache fits its size cap.
func (s *Store) SweepExpired() (SweepStats, error) {
	var stats SweepStats
	now := time.Now()

	metas, err := s.ListMetadata()
	if err != nil {
		return stats, err
	}

	var expired []*models.UploadedFile
	live := make(map[string]bool, len(metas))
	for _, meta := range metas {
		if now.After(meta.ExpiresAt) {
			expired = append(expired, meta)
			stats.ExpiredFileIDs = append(stats.ExpiredFileIDs, meta.ID)
			continue
		}
		live[meta.ID] = true
	}

	for _, meta := range expired {
		if info, statErr := os.Stat(meta.StoredPath); statErr == nil {
			if os.Remove(meta.StoredPath) == nil {
				stats.FilesRemoved++
				stats.BytesFreed += info.Size()
			}
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(fileKey(meta.ID))
		})
		if err != nil {
			log.Printf("Segment Cache: failed to delete metadata for %s: %v", meta.ID, err)
		}
	}

	type cacheEntry struct {
		key      []byte
		cachedAt time.Time
		size     int64
	}

	var keep []cacheEntry
	var drop [][]byte
	var dropBytes int64

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(cachePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			var env cacheEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				drop = append(drop, key)
				dropBytes += int64(len(raw))
				continue
			}

			if now.Sub(env.CachedAt) >= s.ttl || !live[ownerFromKey(key)] {
				drop = append(drop, key)
				dropBytes += int64(len(raw))
				continue
			}

			keep = append(keep, cacheEntry{key: key, cachedAt: env.CachedAt, size: int64(len(raw))})
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to scan cache: %w", err)
	}

	var total int64
	for _, e := range keep {
		total += e.size
	}
	if s.maxCacheBytes > 0 && total > s.maxCacheBytes {
		sort.Slice(keep, func(i, j int) bool {
			return keep[i].cachedAt.Before(keep[j].cachedAt)
		})
		for _, e := range keep {
			if total <= s.maxCacheBytes {
				break
			}
			drop = append(drop, e.key)
			dropBytes += e.size
			total -= e.size
		}
	}

	if len(drop) > 0 {
		err = s.db.Update(func(txn *badger.Txn) error {
			for _, key := range drop {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return stats, fmt.Errorf("failed to delete cache entries: %w", err)
		}
	}

	stats.RemovedCount = len(drop)
	stats.BytesFreed += dropBytes

	return stats, nil
}

func ownerFromKey(key []byte) string {
	rest := strings.TrimPrefix(string(key), cachePrefix)
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		return rest[:i]
	}
	return rest
}
