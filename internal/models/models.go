package models

import "time"

// RunStatus represents the state of a rehearsal run
type RunStatus string

const (
	RunStatusQueued  RunStatus = "QUEUED"
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusPassed  RunStatus = "PASSED"
	RunStatusFailed  RunStatus = "FAILED"
)

// IsFinal reports whether the run will not change anymore
func (s RunStatus) IsFinal() bool {
	return s == RunStatusPassed || s == RunStatusFailed
}

// Case names of the rehearsal
const (
	CaseEarnRewards          = "earn_rewards"
	CaseDecreasePeriodFinish = "decrease_period_finish"
	CaseOwnerIsGovernance    = "owner_is_governance"
)

// AllCases lists the rehearsal cases in execution order
var AllCases = []string{
	CaseEarnRewards,
	CaseDecreasePeriodFinish,
	CaseOwnerIsGovernance,
}

// IsKnownCase reports whether name is a rehearsal case
func IsKnownCase(name string) bool {
	for _, c := range AllCases {
		if c == name {
			return true
		}
	}
	return false
}

// ProposalState mirrors the governance ProposalState enum
type ProposalState uint8

const (
	ProposalStatePending ProposalState = iota
	ProposalStateActive
	ProposalStateDefeated
	ProposalStateTimelocked
	ProposalStateAwaitingExecution
	ProposalStateExecuted
	ProposalStateExpired
)

var proposalStateNames = [...]string{
	"Pending",
	"Active",
	"Defeated",
	"Timelocked",
	"AwaitingExecution",
	"Executed",
	"Expired",
}

func (s ProposalState) String() string {
	if int(s) < len(proposalStateNames) {
		return proposalStateNames[s]
	}
	return "Unknown"
}

// IsVotable reports whether votes are accepted
func (s ProposalState) IsVotable() bool {
	return s == ProposalStateActive
}

// IsPassed reports whether the vote succeeded, including after execution
func (s ProposalState) IsPassed() bool {
	return s == ProposalStateTimelocked || s == ProposalStateAwaitingExecution || s == ProposalStateExecuted
}

// IsFailed reports whether the proposal can no longer be executed
func (s ProposalState) IsFailed() bool {
	return s == ProposalStateDefeated || s == ProposalStateExpired
}

// Run represents one rehearsal against the fork
type Run struct {
	ID           int64      `db:"id"           json:"id"`
	Status       RunStatus  `db:"status"       json:"status"`
	Cases        string     `db:"cases"        json:"cases"` // comma separated, empty means all
	ProposalID   *string    `db:"proposal_id"  json:"proposal_id,omitempty"`
	StakingPool  *string    `db:"staking_pool" json:"staking_pool,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time  `db:"created_at"   json:"created_at"`
	StartedAt    *time.Time `db:"started_at"   json:"started_at,omitempty"`
	FinishedAt   *time.Time `db:"finished_at"  json:"finished_at,omitempty"`
}

// CaseResult is the outcome of a single rehearsal case
type CaseResult struct {
	ID          int64  `db:"id"           json:"-"`
	RunID       int64  `db:"run_id"       json:"run_id"`
	Name        string `db:"name"         json:"name"`
	Passed      bool   `db:"passed"       json:"passed"`
	Detail      string `db:"detail"       json:"detail,omitempty"`
	RewardDelta string `db:"reward_delta" json:"reward_delta,omitempty"` // wei
	DurationMS  int64  `db:"duration_ms"  json:"duration_ms"`
}
