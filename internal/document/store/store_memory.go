package store

import (
	"context"
	"sort"
	"sync"

	"fisco/internal/document/models"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// MemoryStore keeps document records in memory. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[domain.DocumentID]models.DocumentRecord
}

// NewMemory constructs an empty in-memory document store.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[domain.DocumentID]models.DocumentRecord)}
}

func (s *MemoryStore) Save(_ context.Context, record models.DocumentRecord) error {
	if record.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "document id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id domain.DocumentID) (models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return models.DocumentRecord{}, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	return record, nil
}

func (s *MemoryStore) ListByPeriod(_ context.Context, period domain.Period) ([]models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DocumentRecord
	for _, record := range s.records {
		if record.Period == period {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
