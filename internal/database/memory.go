package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"liquiditymining/internal/models"
)

// MemoryStore keeps the run ledger in process memory. The service uses it
// when PostgreSQL is disabled; runs are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	runs    map[int64]models.Run
	results map[int64][]models.CaseResult
}

// NewMemoryStore creates an empty in-memory ledger
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[int64]models.Run),
		results: make(map[int64][]models.CaseResult),
	}
}

func (m *MemoryStore) CreateRun(_ context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	run.ID = m.nextID
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, id int64) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

// ListRuns returns runs newest first
func (m *MemoryStore) ListRuns(_ context.Context, limit, offset int) ([]models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := m.sortedLocked()
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })

	if offset >= len(runs) {
		return []models.Run{}, nil
	}
	end := offset + limit
	if end > len(runs) {
		end = len(runs)
	}
	return runs[offset:end], nil
}

func (m *MemoryStore) NextQueuedRun(_ context.Context) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, run := range m.sortedLocked() {
		if run.Status == models.RunStatusQueued {
			run := run
			return &run, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) MarkRunStarted(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok || run.Status != models.RunStatusQueued {
		return false, nil
	}
	now := time.Now().UTC()
	run.Status = models.RunStatusRunning
	run.StartedAt = &now
	m.runs[id] = run
	return true, nil
}

func (m *MemoryStore) FinishRun(_ context.Context, run *models.Run, results []models.CaseResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *run
	if prev, ok := m.runs[run.ID]; ok && stored.StartedAt == nil {
		stored.StartedAt = prev.StartedAt
	}
	m.runs[run.ID] = stored
	m.results[run.ID] = append([]models.CaseResult(nil), results...)
	return nil
}

func (m *MemoryStore) GetCaseResults(_ context.Context, runID int64) ([]models.CaseResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.CaseResult(nil), m.results[runID]...), nil
}

// sortedLocked returns a copy of all runs in creation order
func (m *MemoryStore) sortedLocked() []models.Run {
	runs := make([]models.Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID < runs[j].ID })
	return runs
}
