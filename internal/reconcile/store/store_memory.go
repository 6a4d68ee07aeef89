package store

import (
	"context"
	"sort"
	"sync"

	"fisco/internal/reconcile/models"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// MemoryStore keeps reports in memory. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[domain.ReportID]models.Report
}

// NewMemory constructs an empty in-memory report store.
func NewMemory() *MemoryStore {
	return &MemoryStore{reports: make(map[domain.ReportID]models.Report)}
}

func (s *MemoryStore) Save(_ context.Context, report models.Report) error {
	if report.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "report id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "report %s already exists", report.ID.String())
	}
	s.reports[report.ID] = report
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id domain.ReportID) (models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return models.Report{}, dErrors.New(dErrors.CodeNotFound, "report not found")
	}
	return report, nil
}

func (s *MemoryStore) ListByPeriod(_ context.Context, period domain.Period) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Report
	for _, report := range s.reports {
		if report.Period == period {
			out = append(out, report)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
