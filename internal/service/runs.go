package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"liquiditymining/internal/models"
)

var (
	// ErrRunNotFound is returned when a run ID is unknown
	ErrRunNotFound = errors.New("run not found")
	// ErrUnknownCase is returned when a run requests a case that does not exist
	ErrUnknownCase = errors.New("unknown case")
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// RunStore persists runs and their case results
type RunStore interface {
	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id int64) (*models.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]models.Run, error)
	NextQueuedRun(ctx context.Context) (*models.Run, error)
	MarkRunStarted(ctx context.Context, id int64) (bool, error)
	FinishRun(ctx context.Context, run *models.Run, results []models.CaseResult) error
	GetCaseResults(ctx context.Context, runID int64) ([]models.CaseResult, error)
}

// RunDetail is a run together with its case results
type RunDetail struct {
	Run   *models.Run         `json:"run"`
	Cases []models.CaseResult `json:"cases"`
}

// RunPage is one page of runs with the paging actually applied
type RunPage struct {
	Runs   []models.Run
	Limit  int
	Offset int
}

// Outcome is what a finished rehearsal reports back to the ledger
type Outcome struct {
	ProposalID  string
	StakingPool string
	Results     []models.CaseResult
	Err         error
}

// Passed reports whether the rehearsal completed and every case passed
func (o *Outcome) Passed() bool {
	if o.Err != nil || len(o.Results) == 0 {
		return false
	}
	for _, r := range o.Results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// RunService handles the run lifecycle
type RunService struct {
	store  RunStore
	logger *zap.Logger
}

// NewRunService creates a new run service
func NewRunService(store RunStore, logger *zap.Logger) *RunService {
	return &RunService{
		store:  store,
		logger: logger,
	}
}

// Enqueue queues a rehearsal of cases. No cases means all of them.
func (s *RunService) Enqueue(ctx context.Context, cases []string) (*models.Run, error) {
	for _, c := range cases {
		if !models.IsKnownCase(c) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCase, c)
		}
	}

	run := &models.Run{
		Status:    models.RunStatusQueued,
		Cases:     strings.Join(cases, ","),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	s.logger.Info("Run queued",
		zap.Int64("run_id", run.ID),
		zap.Strings("cases", cases))

	return run, nil
}

// Get returns a run with its case results
func (s *RunService) Get(ctx context.Context, id int64) (*RunDetail, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}

	cases, err := s.store.GetCaseResults(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get case results: %w", err)
	}
	if cases == nil {
		cases = []models.CaseResult{}
	}

	return &RunDetail{Run: run, Cases: cases}, nil
}

// List returns runs newest first. A non-positive limit selects the default
// page size and limits above the maximum are capped.
func (s *RunService) List(ctx context.Context, limit, offset int) (*RunPage, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := s.store.ListRuns(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if runs == nil {
		runs = []models.Run{}
	}
	return &RunPage{Runs: runs, Limit: limit, Offset: offset}, nil
}

// NextQueued returns the oldest queued run, or nil when the queue is empty
func (s *RunService) NextQueued(ctx context.Context) (*models.Run, error) {
	return s.store.NextQueuedRun(ctx)
}

// Claim moves a queued run to RUNNING. It returns false when another executor
// already took it.
func (s *RunService) Claim(ctx context.Context, run *models.Run) (bool, error) {
	claimed, err := s.store.MarkRunStarted(ctx, run.ID)
	if err != nil {
		return false, fmt.Errorf("failed to claim run %d: %w", run.ID, err)
	}
	if claimed {
		now := time.Now().UTC()
		run.Status = models.RunStatusRunning
		run.StartedAt = &now
	}
	return claimed, nil
}

// CaseNames splits the cases requested by a run. An empty list means all.
func CaseNames(run *models.Run) []string {
	if run.Cases == "" {
		return nil
	}
	return strings.Split(run.Cases, ",")
}

// Record persists the outcome of a rehearsal and finalizes the run
func (s *RunService) Record(ctx context.Context, run *models.Run, outcome *Outcome) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = models.RunStatusFailed
	if outcome.Passed() {
		run.Status = models.RunStatusPassed
	}
	if outcome.ProposalID != "" {
		run.ProposalID = &outcome.ProposalID
	}
	if outcome.StakingPool != "" {
		run.StakingPool = &outcome.StakingPool
	}
	if outcome.Err != nil {
		msg := outcome.Err.Error()
		run.ErrorMessage = &msg
	}

	results := make([]models.CaseResult, len(outcome.Results))
	for i, r := range outcome.Results {
		r.RunID = run.ID
		results[i] = r
	}

	if err := s.store.FinishRun(ctx, run, results); err != nil {
		return fmt.Errorf("failed to record run %d: %w", run.ID, err)
	}

	s.logger.Info("Run finished",
		zap.Int64("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("cases", len(results)))

	return nil
}
