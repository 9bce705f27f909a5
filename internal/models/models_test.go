package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProposalState(t *testing.T) {
	tests := []struct {
		state   ProposalState
		name    string
		votable bool
		passed  bool
		failed  bool
	}{
		{ProposalStatePending, "Pending", false, false, false},
		{ProposalStateActive, "Active", true, false, false},
		{ProposalStateDefeated, "Defeated", false, false, true},
		{ProposalStateTimelocked, "Timelocked", false, true, false},
		{ProposalStateAwaitingExecution, "AwaitingExecution", false, true, false},
		{ProposalStateExecuted, "Executed", false, true, false},
		{ProposalStateExpired, "Expired", false, false, true},
		{ProposalState(9), "Unknown", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.state.String())
			assert.Equal(t, tt.votable, tt.state.IsVotable())
			assert.Equal(t, tt.passed, tt.state.IsPassed())
			assert.Equal(t, tt.failed, tt.state.IsFailed())
		})
	}
}

func TestRunStatusIsFinal(t *testing.T) {
	assert.False(t, RunStatusQueued.IsFinal())
	assert.False(t, RunStatusRunning.IsFinal())
	assert.True(t, RunStatusPassed.IsFinal())
	assert.True(t, RunStatusFailed.IsFinal())
}

func TestIsKnownCase(t *testing.T) {
	for _, c := range AllCases {
		assert.True(t, IsKnownCase(c))
	}
	assert.False(t, IsKnownCase("withdraw_everything"))
}
