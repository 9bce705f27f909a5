package api

import "liquiditymining/internal/models"

// ==================== Runs ====================

// CreateRunRequest represents a request to queue a rehearsal
type CreateRunRequest struct {
	Cases []string `json:"cases"` // empty means all cases
}

// RunResponse represents a run with its case results
type RunResponse struct {
	Run   *models.Run         `json:"run"`
	Cases []models.CaseResult `json:"cases"`
}

// ListRunsResponse represents a page of runs
type ListRunsResponse struct {
	Runs   []models.Run `json:"runs"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ==================== Pools ====================

// PoolStatusResponse represents the live parameters of a staking pool
type PoolStatusResponse struct {
	Address          string `json:"address"`
	Owner            string `json:"owner"`
	RewardsToken     string `json:"rewards_token"`
	StakingToken     string `json:"staking_token"`
	PeriodFinish     uint64 `json:"period_finish"`
	PeriodFinishTime string `json:"period_finish_time"`
	RewardRate       string `json:"reward_rate"`     // wei per second
	RewardsPerDay    string `json:"rewards_per_day"` // in ether
	TotalStaked      string `json:"total_staked"`    // in ether
}

// ==================== Error Response ====================

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==================== Health Check ====================

// HealthResponse represents health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
