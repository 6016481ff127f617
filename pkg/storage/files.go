package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v3"

	"sawtfeel/pkg/models"
)

var ErrFileNotFound = fmt.Errorf("file not found")

// FileStore manages raw uploads and their metadata records.
type FileStore interface {
	SaveUpload(meta *models.UploadedFile, r io.Reader) error
	GetMetadata(fileID string) (*models.UploadedFile, error)
	ListMetadata() ([]*models.UploadedFile, error)
	UpdateFileStatus(fileID string, status models.ProcessingStatus) error
	DeleteFile(fileID string) (fileRemoved, metadataRemoved bool, err error)
}

// SaveUpload streams the upload to disk, hashing it as it goes, then
// persists the metadata record. StoredPath, SizeBytes and FileHash are
// filled in on meta.
func (s *Store) SaveUpload(meta *models.UploadedFile, r io.Reader) error {
	path := filepath.Join(s.uploadDir, storedFilename(meta.ID, meta.Filename))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write upload: %w", err)
	}

	meta.StoredPath = path
	meta.SizeBytes = size
	meta.FileHash = hex.EncodeToString(hash.Sum(nil))

	if err := s.putMetadata(meta); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func (s *Store) putMetadata(meta *models.UploadedFile) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal file metadata: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(fileKey(meta.ID), data)
	})
}

func (s *Store) GetMetadata(fileID string) (*models.UploadedFile, error) {
	var meta models.UploadedFile

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(fileID))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})

	if err == badger.ErrKeyNotFound {
		return nil, ErrFileNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get file metadata: %w", err)
	}

	return &meta, nil
}

// ListMetadata returns all file records, newest upload first.
func (s *Store) ListMetadata() ([]*models.UploadedFile, error) {
	var files []*models.UploadedFile

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(filePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var meta models.UploadedFile
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				log.Printf("File Store: skipping unreadable metadata %s: %v", it.Item().Key(), err)
				continue
			}
			files = append(files, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list file metadata: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})

	return files, nil
}

// UpdateFileStatus rewrites the metadata record with the new status.
// A missing record is not an error; the file may have been deleted
// while its run was still in flight.
func (s *Store) UpdateFileStatus(fileID string, status models.ProcessingStatus) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(fileID))
		if err != nil {
			return err
		}

		var meta models.UploadedFile
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return err
		}

		meta.Status = status
		data, err := json.Marshal(&meta)
		if err != nil {
			return err
		}
		return txn.Set(fileKey(fileID), data)
	})

	if err == badger.ErrKeyNotFound {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to update file status: %w", err)
	}

	return nil
}

// DeleteFile removes the stored upload and its metadata record,
// reporting which of the two actually existed.
func (s *Store) DeleteFile(fileID string) (fileRemoved, metadataRemoved bool, err error) {
	meta, err := s.GetMetadata(fileID)
	if err == ErrFileNotFound {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}

	if meta.StoredPath != "" {
		switch rmErr := os.Remove(meta.StoredPath); {
		case rmErr == nil:
			fileRemoved = true
		case !os.IsNotExist(rmErr):
			return false, false, fmt.Errorf("failed to remove stored file: %w", rmErr)
		}
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(fileKey(fileID))
	})
	if err != nil {
		return fileRemoved, false, fmt.Errorf("failed to delete file metadata: %w", err)
	}

	return fileRemoved, true, nil
}

// storedFilename builds a filesystem-safe name of the form
// {fileID}_{stem}{ext}, truncating the stem to 50 characters.
func storedFilename(fileID, original string) string {
	base := filepath.Base(original)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if len(stem) > 50 {
		stem = stem[:50]
	}

	name := fileID + "_" + stem + ext
	for _, c := range `<>:"/\|?*` {
		name = strings.ReplaceAll(name, string(c), "_")
	}
	return name
}
