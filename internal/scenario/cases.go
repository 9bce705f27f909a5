package scenario

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"liquiditymining/internal/blockchain/evm"
	"liquiditymining/internal/models"
	"liquiditymining/internal/service"
)

// liquidityDeadline is how long the router accepts the liquidity transaction
const liquidityDeadline = time.Hour

// lpTransfer is the pool token amount handed to the second staker
var lpTransfer = big.NewInt(10)

// caseFunc runs one case and returns the staker's reward delta, if any
type caseFunc func(ctx context.Context) (*big.Int, error)

func (h *Harness) cases() map[string]caseFunc {
	return map[string]caseFunc{
		models.CaseEarnRewards:          h.EarnRewards,
		models.CaseDecreasePeriodFinish: h.DecreasePeriodFinish,
		models.CaseOwnerIsGovernance:    h.OwnerIsGovernance,
	}
}

// EarnRewards stakes the staker's liquidity, waits and claims
func (h *Harness) EarnRewards(ctx context.Context) (*big.Int, error) {
	staked, err := h.provideLiquidity(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.pool.Stake(ctx, h.staker, staked); err != nil {
		return nil, fmt.Errorf("failed to stake: %w", err)
	}

	if err := h.chain.IncreaseTime(ctx, h.cfg.Scenario.RewardWait); err != nil {
		return nil, err
	}

	return h.claim(ctx)
}

// DecreasePeriodFinish shortens the reward period through the governance and
// checks the staker is still paid after the new end
func (h *Harness) DecreasePeriodFinish(ctx context.Context) (*big.Int, error) {
	oldFinish, err := h.pool.PeriodFinish(ctx)
	if err != nil {
		return nil, err
	}

	lpBalance, err := h.provideLiquidity(ctx)
	if err != nil {
		return nil, err
	}
	if lpBalance.Cmp(lpTransfer) <= 0 {
		return nil, fmt.Errorf("liquidity %s too small to share with a second staker", lpBalance)
	}

	second := h.deployer
	if err := h.lpToken.Transfer(ctx, h.staker, second.Address(), lpTransfer); err != nil {
		return nil, fmt.Errorf("failed to transfer pool tokens: %w", err)
	}
	if err := h.pool.Stake(ctx, h.staker, new(big.Int).Sub(lpBalance, lpTransfer)); err != nil {
		return nil, fmt.Errorf("failed to stake: %w", err)
	}

	rewind := service.Seconds(h.cfg.Scenario.PeriodFinishRewind)
	if oldFinish <= rewind {
		return nil, fmt.Errorf("period finish %d is earlier than the rewind", oldFinish)
	}
	if err := h.chain.SetTime(ctx, oldFinish-rewind); err != nil {
		return nil, err
	}

	if err := h.lpToken.Approve(ctx, second, h.pool.Address(), evm.MaxUint256); err != nil {
		return nil, fmt.Errorf("failed to approve staking pool for second staker: %w", err)
	}
	if err := h.pool.Stake(ctx, second, big.NewInt(1)); err != nil {
		return nil, fmt.Errorf("failed to stake for second staker: %w", err)
	}

	gov, err := h.impersonate(ctx, h.governance.Address(), h.funding)
	if err != nil {
		return nil, err
	}
	newFinish := oldFinish - service.Seconds(h.cfg.Scenario.PeriodFinishCut)
	if err := h.pool.UpdatePeriodFinish(ctx, gov, newFinish); err != nil {
		return nil, err
	}

	current, err := h.pool.PeriodFinish(ctx)
	if err != nil {
		return nil, err
	}
	if current != newFinish {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrPeriodFinishMismatch, current, newFinish)
	}

	if err := h.chain.SetTime(ctx, newFinish+service.Seconds(service.Day)); err != nil {
		return nil, err
	}

	return h.claim(ctx)
}

// OwnerIsGovernance checks the staking pool is owned by the governance
func (h *Harness) OwnerIsGovernance(ctx context.Context) (*big.Int, error) {
	owner, err := h.pool.Owner(ctx)
	if err != nil {
		return nil, err
	}
	if owner != h.governance.Address() {
		return nil, fmt.Errorf("%w: owner %s", ErrOwnerMismatch, owner.Hex())
	}
	return nil, nil
}

// provideLiquidity pairs the staker's tokens with ETH and returns the staker's pool token balance
func (h *Harness) provideLiquidity(ctx context.Context) (*big.Int, error) {
	latest, err := h.client.LatestTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	err = h.router.AddLiquidityETH(ctx, h.staker, evm.LiquidityParams{
		Token:          h.torn.Address(),
		AmountToken:    h.liquidityTokens,
		AmountTokenMin: big.NewInt(1),
		AmountETHMin:   big.NewInt(1),
		To:             h.staker.Address(),
		Deadline:       latest + service.Seconds(liquidityDeadline),
		Value:          h.liquidityETH,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add liquidity: %w", err)
	}

	return h.lpToken.BalanceOf(ctx, h.staker.Address())
}

// claim calls getReward for the staker and returns the token balance delta
func (h *Harness) claim(ctx context.Context) (*big.Int, error) {
	earned, err := h.pool.Earned(ctx, h.staker.Address())
	if err != nil {
		return nil, err
	}
	if earned.Sign() <= 0 {
		return earned, fmt.Errorf("%w: nothing earned", ErrNoReward)
	}

	before, err := h.torn.BalanceOf(ctx, h.staker.Address())
	if err != nil {
		return nil, err
	}
	if err := h.pool.GetReward(ctx, h.staker); err != nil {
		return nil, fmt.Errorf("failed to claim reward: %w", err)
	}
	after, err := h.torn.BalanceOf(ctx, h.staker.Address())
	if err != nil {
		return nil, err
	}

	delta := service.Delta(before, after)
	if delta.Sign() <= 0 {
		return delta, fmt.Errorf("%w: %s", ErrNoReward, delta)
	}
	return delta, nil
}

// runCase executes fn under the case timeout and turns its outcome into a result
func runCase(ctx context.Context, name string, timeout time.Duration, fn caseFunc, logger *zap.Logger) models.CaseResult {
	caseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	delta, err := fn(caseCtx)
	result := models.CaseResult{
		Name:       name,
		Passed:     err == nil,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if delta != nil {
		result.RewardDelta = delta.String()
	}

	if err != nil {
		result.Detail = err.Error()
		logger.Warn("Case failed", zap.String("case", name), zap.Error(err))
		return result
	}

	if delta != nil {
		result.Detail = fmt.Sprintf("earned %s", service.FormatEther(delta))
	}
	logger.Info("Case passed",
		zap.String("case", name),
		zap.String("reward_delta", result.RewardDelta),
		zap.Int64("duration_ms", result.DurationMS))
	return result
}

// Run executes the named cases, all of them when names is empty, restoring
// the post-setup snapshot after each. A failed case does not stop the others.
func (h *Harness) Run(ctx context.Context, names []string) ([]models.CaseResult, error) {
	if h.snapshot == "" {
		return nil, ErrNotSetUp
	}
	if len(names) == 0 {
		names = models.AllCases
	}

	cases := h.cases()
	results := make([]models.CaseResult, 0, len(names))
	for _, name := range names {
		fn, ok := cases[name]
		if !ok {
			return results, fmt.Errorf("%w: %s", service.ErrUnknownCase, name)
		}

		results = append(results, runCase(ctx, name, h.cfg.Scenario.CaseTimeout, fn, h.logger))

		if err := h.Reset(ctx); err != nil {
			return results, fmt.Errorf("failed to restore snapshot after %s: %w", name, err)
		}
	}
	return results, nil
}

// Rehearse sets up, runs the cases and tears down, reporting everything in
// one outcome. Teardown also runs after a panic, which is reported as an error.
func (h *Harness) Rehearse(ctx context.Context, names []string) (outcome *service.Outcome) {
	outcome = &service.Outcome{}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Rehearsal panicked", zap.Any("panic", r))
			outcome.Err = multierr.Append(outcome.Err, fmt.Errorf("rehearsal panicked: %v", r))
		}
		if id := h.ProposalID(); id != nil {
			outcome.ProposalID = id.String()
		}
		if pool := h.StakingPool(); pool != nil {
			outcome.StakingPool = pool.Address().Hex()
		}

		// Teardown runs even when ctx is done
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.cfg.Chain.TxTimeout)
		defer cancel()
		outcome.Err = multierr.Append(outcome.Err, h.Close(closeCtx))
	}()

	if err := h.Setup(ctx); err != nil {
		outcome.Err = fmt.Errorf("setup failed: %w", err)
		return outcome
	}
	outcome.Results, outcome.Err = h.Run(ctx, names)
	return outcome
}
