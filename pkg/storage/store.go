package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
)

const (
	filePrefix  = "file:"
	cachePrefix = "cache:"
)

// Store persists upload metadata and processed artifacts in a single
// badger database. Raw uploads live on the filesystem under uploadDir.
type Store struct {
	db            *badger.DB
	uploadDir     string
	ttl           time.Duration
	maxCacheBytes int64
}

func Open(dataDir, uploadDir string, ttl time.Duration, maxCacheBytes int64) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(dataDir, "badger"))
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &Store{
		db:            db,
		uploadDir:     uploadDir,
		ttl:           ttl,
		maxCacheBytes: maxCacheBytes,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func fileKey(fileID string) []byte {
	return []byte(filePrefix + fileID)
}

func cacheKey(fileID, kind string) []byte {
	return []byte(cachePrefix + fileID + ":" + kind)
}
