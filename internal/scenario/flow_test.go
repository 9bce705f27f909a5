package scenario

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquiditymining/internal/blockchain/evm/evmtest"
	"liquiditymining/internal/models"
	"liquiditymining/internal/service"
)

// sentSince returns contract.method for every transaction after the first skip
func (f *fakeFork) sentSince(skip int) []string {
	var names []string
	for _, tx := range f.node.Sent()[skip:] {
		contract := f.contractName(tx.To)
		method, _, ok := f.args(contract, tx)
		if !ok {
			continue
		}
		names = append(names, contract+"."+method)
	}
	return names
}

func (f *fakeFork) txArgs(t *testing.T, abiName string, tx evmtest.Tx) []interface{} {
	t.Helper()
	_, args, ok := f.args(abiName, tx)
	require.True(t, ok)
	return args
}

func TestSetupPassesAndExecutesProposal(t *testing.T) {
	f := newFakeFork(t)
	h := f.harness()
	ctx := context.Background()

	require.NoError(t, h.Setup(ctx))

	assert.Equal(t, []uint64{testVotingDelay + 1, testVotingPeriod + testExecutionDelay}, f.increases())
	assert.Equal(t, big.NewInt(1), h.ProposalID())
	assert.Equal(t, testStakingPool, h.StakingPool().Address())

	gov := f.cfg.Contracts.GovernanceAddress()
	whale := common.HexToAddress(f.cfg.Accounts.Whale)

	locks := f.sentTo(gov, "governance", "lockWithApproval")
	require.Len(t, locks, 1)
	assert.Equal(t, whale, locks[0].From)

	proposals := f.sentTo(gov, "governance", "propose")
	require.Len(t, proposals, 1)
	args := f.txArgs(t, "governance", proposals[0])
	assert.Equal(t, testProposal, args[0])
	assert.Equal(t, f.cfg.Scenario.ProposalDescription, args[1])

	votes := f.sentTo(gov, "governance", "castVote")
	require.Len(t, votes, 1)
	assert.Equal(t, true, f.txArgs(t, "governance", votes[0])[1])
	assert.Len(t, f.sentTo(gov, "governance", "execute"), 1)

	lp := common.HexToAddress(f.cfg.Contracts.Pool)
	approvals := f.sentTo(lp, "erc20", "approve")
	require.Len(t, approvals, 1)
	assert.Equal(t, testStakingPool, f.txArgs(t, "erc20", approvals[0])[0])

	assert.True(t, f.snapshot().executed)

	require.NoError(t, h.Close(ctx))
	state := f.snapshot()
	assert.False(t, state.proposed, "closing reverts the fork to its baseline")
	assert.Equal(t, testGenesis, state.now)
	assert.Len(t, f.node.Calls("hardhat_stopImpersonatingAccount"), 2)
}

func TestSetupChecksLockedVotes(t *testing.T) {
	f := newFakeFork(t)
	f.ignoreLock = true
	h := f.harness()

	err := h.Setup(context.Background())
	assert.True(t, errors.Is(err, ErrLockFailed), "got %v", err)
	assert.Empty(t, f.sentTo(f.cfg.Contracts.GovernanceAddress(), "governance", "propose"))
}

func TestSetupChecksProposalSchedule(t *testing.T) {
	f := newFakeFork(t)
	f.stuckTimelocked = true
	h := f.harness()

	err := h.Setup(context.Background())
	assert.True(t, errors.Is(err, ErrScheduleMismatch), "got %v", err)
	assert.Empty(t, f.sentTo(f.cfg.Contracts.GovernanceAddress(), "governance", "execute"))
}

func TestSetupRejectsArtifactWithoutEntrypoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Token.json")
	artifact := `{"contractName":"Token","abi":[{"type":"function","name":"transfer","inputs":[],"outputs":[],"stateMutability":"nonpayable"}],"bytecode":"0x6080"}`
	require.NoError(t, os.WriteFile(path, []byte(artifact), 0o600))

	f := newFakeFork(t)
	f.cfg.Contracts.Proposal = ""
	f.cfg.Contracts.ProposalArtifact = path
	h := f.harness()

	err := h.Setup(context.Background())
	assert.True(t, errors.Is(err, ErrNotProposal), "got %v", err)
	assert.Empty(t, f.node.Sent())
}

func TestEarnRewardsFlow(t *testing.T) {
	f := newFakeFork(t)
	h := f.harness()
	ctx := context.Background()
	require.NoError(t, h.Setup(ctx))
	skip := len(f.node.Sent())

	reward, err := h.EarnRewards(ctx)
	require.NoError(t, err)
	assert.Equal(t, testReward, reward)

	assert.Equal(t, []string{"router.addLiquidityETH", "staking.stake", "staking.getReward"}, f.sentSince(skip))
	assert.Equal(t, service.Seconds(f.cfg.Scenario.RewardWait), f.increases()[2])

	staker := common.HexToAddress(f.cfg.Accounts.Staker)
	stakes := f.sentTo(testStakingPool, "staking", "stake")
	require.Len(t, stakes, 1)
	assert.Equal(t, staker, stakes[0].From)
	assert.Equal(t, testLiquidity, f.txArgs(t, "staking", stakes[0])[0])

	liquidity := f.sentTo(common.HexToAddress(f.cfg.Contracts.Router), "router", "addLiquidityETH")
	require.Len(t, liquidity, 1)
	wantETH, err := service.ParseEther(f.cfg.Scenario.LiquidityETH)
	require.NoError(t, err)
	assert.Equal(t, wantETH, liquidity[0].Value)
}

func TestEarnRewardsWithoutReward(t *testing.T) {
	f := newFakeFork(t)
	f.withholdReward = true
	h := f.harness()
	ctx := context.Background()
	require.NoError(t, h.Setup(ctx))

	_, err := h.EarnRewards(ctx)
	assert.True(t, errors.Is(err, ErrNoReward), "got %v", err)
	assert.Empty(t, f.sentTo(testStakingPool, "staking", "getReward"))
}

func TestDecreasePeriodFinishFlow(t *testing.T) {
	f := newFakeFork(t)
	h := f.harness()
	ctx := context.Background()
	require.NoError(t, h.Setup(ctx))
	skip := len(f.node.Sent())

	reward, err := h.DecreasePeriodFinish(ctx)
	require.NoError(t, err)
	assert.Equal(t, testReward, reward)

	assert.Equal(t, []string{
		"router.addLiquidityETH",
		"erc20.transfer",
		"staking.stake",
		"erc20.approve",
		"staking.stake",
		"staking.updatePeriodFinish",
		"staking.getReward",
	}, f.sentSince(skip))

	newFinish := testPeriodFinish - service.Seconds(f.cfg.Scenario.PeriodFinishCut)
	assert.Equal(t, []uint64{
		testPeriodFinish - service.Seconds(f.cfg.Scenario.PeriodFinishRewind),
		newFinish + service.Seconds(service.Day),
	}, f.timestamps())

	staker := common.HexToAddress(f.cfg.Accounts.Staker)
	transfers := f.sentTo(common.HexToAddress(f.cfg.Contracts.Pool), "erc20", "transfer")
	require.Len(t, transfers, 1)
	assert.Equal(t, staker, transfers[0].From)
	args := f.txArgs(t, "erc20", transfers[0])
	assert.Equal(t, testDevAccount, args[0])
	assert.Equal(t, lpTransfer, args[1])

	stakes := f.sentTo(testStakingPool, "staking", "stake")
	require.Len(t, stakes, 2)
	assert.Equal(t, staker, stakes[0].From)
	assert.Equal(t, new(big.Int).Sub(testLiquidity, lpTransfer), f.txArgs(t, "staking", stakes[0])[0])
	assert.Equal(t, testDevAccount, stakes[1].From)
	assert.Equal(t, big.NewInt(1), f.txArgs(t, "staking", stakes[1])[0])

	gov := f.cfg.Contracts.GovernanceAddress()
	updates := f.sentTo(testStakingPool, "staking", "updatePeriodFinish")
	require.Len(t, updates, 1)
	assert.Equal(t, gov, updates[0].From)
	assert.Equal(t, new(big.Int).SetUint64(newFinish), f.txArgs(t, "staking", updates[0])[0])

	impersonation, ok := f.node.LastCall("hardhat_impersonateAccount")
	require.True(t, ok)
	assert.Equal(t, gov, common.HexToAddress(impersonation.Params.Array()[0].String()))
}

func TestDecreasePeriodFinishNotApplied(t *testing.T) {
	f := newFakeFork(t)
	f.ignorePeriodUpdate = true
	h := f.harness()
	ctx := context.Background()
	require.NoError(t, h.Setup(ctx))

	_, err := h.DecreasePeriodFinish(ctx)
	assert.True(t, errors.Is(err, ErrPeriodFinishMismatch), "got %v", err)
	assert.Len(t, f.timestamps(), 1, "the clock is not moved past a finish that did not change")
	assert.Empty(t, f.sentTo(testStakingPool, "staking", "getReward"))
}

func TestRepeatedCasesImpersonateOnce(t *testing.T) {
	f := newFakeFork(t)
	h := f.harness()
	ctx := context.Background()
	require.NoError(t, h.Setup(ctx))

	results, err := h.Run(ctx, []string{models.CaseDecreasePeriodFinish, models.CaseDecreasePeriodFinish})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Passed, r.Detail)
	}
	assert.Len(t, h.impersonated, 3, "whale, staker and governance")

	require.NoError(t, h.Close(ctx))
	assert.Len(t, f.node.Calls("hardhat_stopImpersonatingAccount"), 3)
}

func TestRehearseAllCases(t *testing.T) {
	f := newFakeFork(t)
	h := f.harness()

	outcome := h.Rehearse(context.Background(), nil)
	require.NoError(t, outcome.Err)
	assert.True(t, outcome.Passed())
	assert.Equal(t, "1", outcome.ProposalID)
	assert.Equal(t, testStakingPool.Hex(), outcome.StakingPool)
	require.Len(t, outcome.Results, len(models.AllCases))

	state := f.snapshot()
	assert.False(t, state.executed)
	assert.Equal(t, testGenesis, state.now)
}

func TestRehearseRevertsForkAfterPanic(t *testing.T) {
	f := newFakeFork(t)
	h := f.harness()
	h.torn = nil

	outcome := h.Rehearse(context.Background(), nil)
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "rehearsal panicked")

	_, reverted := f.node.LastCall("evm_revert")
	assert.True(t, reverted)
	f.mu.Lock()
	assert.Empty(t, f.snapshots, "the baseline snapshot was consumed")
	f.mu.Unlock()
	assert.Len(t, f.node.Calls("hardhat_stopImpersonatingAccount"), 2)
}
