package scenario

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"liquiditymining/internal/blockchain/evm"
	"liquiditymining/internal/models"
)

// stateReader reads the on-chain state of a proposal
type stateReader interface {
	State(ctx context.Context, proposalID *big.Int) (uint8, error)
}

// Tracker follows a proposal through its lifecycle. Each milestone is a
// channel closed exactly once, when the state is first observed.
type Tracker struct {
	reader     stateReader
	proposalID *big.Int
	poll       time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	last      models.ProposalState
	seen      bool
	isVotable chan struct{}
	isPassed  chan struct{}
	executed  chan struct{}
	failed    chan struct{}
	closed    map[chan struct{}]bool
}

// NewTracker creates a tracker for proposalID polling every poll interval
func NewTracker(reader stateReader, proposalID *big.Int, poll time.Duration, logger *zap.Logger) *Tracker {
	t := &Tracker{
		reader:     reader,
		proposalID: proposalID,
		poll:       poll,
		logger:     logger.Named("tracker"),
		isVotable:  make(chan struct{}),
		isPassed:   make(chan struct{}),
		executed:   make(chan struct{}),
		failed:     make(chan struct{}),
		closed:     make(map[chan struct{}]bool),
	}
	return t
}

// Observe records a state and releases the milestones it implies
func (t *Tracker) Observe(state models.ProposalState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.seen || state != t.last {
		t.logger.Debug("Proposal state",
			zap.String("proposal_id", t.proposalID.String()),
			zap.Stringer("state", state))
	}
	t.last = state
	t.seen = true

	// A passed or executed proposal has been votable
	if state.IsVotable() || state.IsPassed() {
		t.closeLocked(t.isVotable)
	}
	if state.IsPassed() {
		t.closeLocked(t.isPassed)
	}
	if state == models.ProposalStateExecuted {
		t.closeLocked(t.executed)
	}
	if state.IsFailed() {
		t.closeLocked(t.failed)
	}
}

func (t *Tracker) closeLocked(ch chan struct{}) {
	if !t.closed[ch] {
		close(ch)
		t.closed[ch] = true
	}
}

// Last returns the latest observed state
func (t *Tracker) Last() (models.ProposalState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.seen
}

// Refresh reads the state once and observes it
func (t *Tracker) Refresh(ctx context.Context) (models.ProposalState, error) {
	raw, err := t.reader.State(ctx, t.proposalID)
	if err != nil {
		return 0, fmt.Errorf("failed to read proposal %s state: %w", t.proposalID, err)
	}
	state := models.ProposalState(raw)
	t.Observe(state)
	return state, nil
}

// Watch polls the proposal state until it is executed or failed, or ctx ends.
// Read errors are logged and retried on the next tick.
func (t *Tracker) Watch(ctx context.Context) {
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		if _, err := t.Refresh(ctx); err != nil && ctx.Err() == nil {
			t.logger.Warn("Failed to refresh proposal state", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-t.executed:
			return
		case <-t.failed:
			return
		case <-ticker.C:
		}
	}
}

// WaitVotable blocks until the proposal accepts votes
func (t *Tracker) WaitVotable(ctx context.Context) error {
	return t.wait(ctx, t.isVotable, "votable")
}

// WaitPassed blocks until the vote has succeeded
func (t *Tracker) WaitPassed(ctx context.Context) error {
	return t.wait(ctx, t.isPassed, "passed")
}

// WaitExecuted blocks until the proposal has been executed
func (t *Tracker) WaitExecuted(ctx context.Context) error {
	return t.wait(ctx, t.executed, "executed")
}

func (t *Tracker) wait(ctx context.Context, milestone chan struct{}, name string) error {
	select {
	case <-milestone:
		return nil
	default:
	}

	select {
	case <-milestone:
		return nil
	case <-t.failed:
		last, _ := t.Last()
		return fmt.Errorf("%w: proposal %s is %s, waiting for %s", ErrProposalFailed, t.proposalID, last, name)
	case <-ctx.Done():
		last, _ := t.Last()
		return fmt.Errorf("proposal %s not %s (last state %s): %w", t.proposalID, name, last, ctx.Err())
	}
}

// Schedule is the timeline of a proposal in unix seconds
type Schedule struct {
	VotingStart  uint64
	VotingEnd    uint64
	ExecutableAt uint64
	ExpiresAt    uint64
}

// NewSchedule derives the timeline from the stored proposal and governance delays
func NewSchedule(info *evm.ProposalInfo, timing *evm.Timing) Schedule {
	executableAt := info.EndTime + uint64(timing.ExecutionDelay/time.Second)
	return Schedule{
		VotingStart:  info.StartTime,
		VotingEnd:    info.EndTime,
		ExecutableAt: executableAt,
		ExpiresAt:    executableAt + uint64(timing.ExecutionExpiration/time.Second),
	}
}

// Expected returns the state the governance reports at now when the vote passes
func (s Schedule) Expected(now uint64) models.ProposalState {
	switch {
	case now <= s.VotingStart:
		return models.ProposalStatePending
	case now <= s.VotingEnd:
		return models.ProposalStateActive
	case now <= s.ExecutableAt:
		return models.ProposalStateTimelocked
	case now <= s.ExpiresAt:
		return models.ProposalStateAwaitingExecution
	default:
		return models.ProposalStateExpired
	}
}
