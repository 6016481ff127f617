package storage

import (
	"sync"

	"sawtfeel/pkg/models"
)

// StatusStore holds the live processing status per file. Records are
// overwritten on every stage transition and dropped when the file is
// deleted or its retention lapses.
type StatusStore interface {
	Set(record models.ProcessingStatusRecord)
	Get(fileID string) (*models.ProcessingStatusRecord, bool)
	Delete(fileID string) bool
}

type statusStore struct {
	records map[string]models.ProcessingStatusRecord
	mu      sync.RWMutex
}

func NewStatusStore() StatusStore {
	return &statusStore{
		records: make(map[string]models.ProcessingStatusRecord),
	}
}

func (s *statusStore) Set(record models.ProcessingStatusRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.FileID] = record
}

func (s *statusStore) Get(fileID string) (*models.ProcessingStatusRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[fileID]
	if !exists {
		return nil, false
	}

	return &record, true
}

func (s *statusStore) Delete(fileID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.records[fileID]
	delete(s.records, fileID)
	return exists
}
