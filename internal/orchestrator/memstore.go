package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
)

// MemoryJobStore keeps jobs in memory. Suitable for tests and single-node
// runs without Postgres.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.ExtractionJob
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]domain.ExtractionJob)}
}

// Create implements JobStore.
func (s *MemoryJobStore) Create(_ context.Context, job *domain.ExtractionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = *job
	return nil
}

// Get implements JobStore.
func (s *MemoryJobStore) Get(_ context.Context, id string) (*domain.ExtractionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return &job, nil
}

// Finish implements JobStore.
func (s *MemoryJobStore) Finish(_ context.Context, job *domain.ExtractionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.jobs[job.ID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, job.ID)
	}
	if err := domain.ValidateJobTransition(stored.Status, job.Status); err != nil {
		return err
	}
	s.jobs[job.ID] = *job
	return nil
}
