package store

import (
	"context"
	"sort"
	"sync"

	"fisco/internal/obligation/models"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// MemoryStore keeps obligations in memory. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[domain.ObligationID]models.Obligation
	external map[externalKey]bool
}

type externalKey struct {
	period     domain.Period
	externalID string
}

// NewMemory constructs an empty in-memory obligation store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[domain.ObligationID]models.Obligation),
		external: make(map[externalKey]bool),
	}
}

func (s *MemoryStore) Insert(_ context.Context, ob models.Obligation) error {
	if ob.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "obligation id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := externalKey{period: ob.Period, externalID: ob.ExternalID}
	if s.external[key] {
		return dErrors.Newf(dErrors.CodeConflict, "external id %q already imported for %s", ob.ExternalID, ob.Period)
	}
	s.byID[ob.ID] = ob
	s.external[key] = true
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id domain.ObligationID) (models.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ob, ok := s.byID[id]
	if !ok {
		return models.Obligation{}, dErrors.New(dErrors.CodeNotFound, "obligation not found")
	}
	return ob, nil
}

func (s *MemoryStore) ListByPeriod(_ context.Context, period domain.Period) ([]models.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Obligation
	for _, ob := range s.byID {
		if ob.Period == period {
			out = append(out, ob)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
