package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"liquiditymining/internal/blockchain/evm"
	"liquiditymining/internal/config"
	"liquiditymining/internal/service"
)

var (
	// ErrNoReward is returned when claiming rewards did not increase the staker's balance
	ErrNoReward = errors.New("reward delta is not positive")
	// ErrOwnerMismatch is returned when the staking pool is not owned by the governance
	ErrOwnerMismatch = errors.New("staking pool owner is not the governance")
	// ErrPeriodFinishMismatch is returned when updatePeriodFinish did not take effect
	ErrPeriodFinishMismatch = errors.New("period finish was not updated")
	// ErrProposalFailed is returned when the proposal is defeated or expired
	ErrProposalFailed = errors.New("proposal failed")
	// ErrNotSetUp is returned when cases run before Setup succeeded
	ErrNotSetUp = errors.New("harness is not set up")
	// ErrLockFailed is returned when the whale's votes were not locked
	ErrLockFailed = errors.New("votes were not locked")
	// ErrScheduleMismatch is returned when the governance reports a state its timeline does not predict
	ErrScheduleMismatch = errors.New("proposal state does not match its schedule")
	// ErrNotProposal is returned when the proposal artifact has no executeProposal entrypoint
	ErrNotProposal = errors.New("artifact is not a governance proposal")
)

// proposalEntrypoint is the method the governance delegatecalls on execution
const proposalEntrypoint = "executeProposal"

// Harness rehearses the liquidity mining proposal on a forked chain
type Harness struct {
	cfg    *config.Config
	client *evm.Client
	chain  *evm.DevChain
	logger *zap.Logger

	governance *evm.Governance
	torn       *evm.ERC20
	lpToken    *evm.ERC20
	router     *evm.Router
	pool       *evm.StakingRewards

	deployer evm.Signer
	whale    evm.Signer
	staker   evm.Signer

	lockAmount      *big.Int
	liquidityTokens *big.Int
	liquidityETH    *big.Int
	funding         *big.Int

	proposal     common.Address
	proposalID   *big.Int
	baseline     string
	snapshot     string
	impersonated []common.Address
}

// NewHarness binds the external contracts and parses the configured amounts
func NewHarness(cfg *config.Config, client *evm.Client, logger *zap.Logger) (*Harness, error) {
	h := &Harness{
		cfg:    cfg,
		client: client,
		chain:  evm.NewDevChain(client, cfg.Chain.Flavor, logger),
		logger: logger.Named("harness"),
	}

	amounts := []struct {
		name  string
		value string
		dst   **big.Int
	}{
		{"lock amount", cfg.Scenario.LockAmount, &h.lockAmount},
		{"liquidity tokens", cfg.Scenario.LiquidityTokens, &h.liquidityTokens},
		{"liquidity ETH", cfg.Scenario.LiquidityETH, &h.liquidityETH},
		{"impersonation funds", cfg.Chain.ImpersonationFunds, &h.funding},
	}
	for _, a := range amounts {
		wei, err := service.ParseEther(a.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}
		*a.dst = wei
	}

	var err error
	if h.governance, err = evm.NewGovernance(client, cfg.Contracts.GovernanceAddress(), logger); err != nil {
		return nil, err
	}
	if h.torn, err = evm.NewERC20(client, "torn", common.HexToAddress(cfg.Contracts.Token), logger); err != nil {
		return nil, err
	}
	if h.lpToken, err = evm.NewERC20(client, "uni_pool", common.HexToAddress(cfg.Contracts.Pool), logger); err != nil {
		return nil, err
	}
	if h.router, err = evm.NewRouter(client, common.HexToAddress(cfg.Contracts.Router), logger); err != nil {
		return nil, err
	}

	return h, nil
}

// ProposalID returns the id of the rehearsed proposal, nil before Setup
func (h *Harness) ProposalID() *big.Int {
	return h.proposalID
}

// StakingPool returns the pool created by the proposal, nil before Setup
func (h *Harness) StakingPool() *evm.StakingRewards {
	return h.pool
}

// Setup deploys the proposal, passes and executes it, discovers the staking
// pool and prepares the staker. It ends with the snapshot every case starts from.
func (h *Harness) Setup(ctx context.Context) error {
	var err error
	if h.baseline, err = h.chain.Snapshot(ctx); err != nil {
		return err
	}

	if h.deployer, err = h.deployerSigner(ctx); err != nil {
		return err
	}
	if h.proposal, err = h.proposalAddress(ctx); err != nil {
		return err
	}

	if h.whale, err = h.impersonate(ctx, common.HexToAddress(h.cfg.Accounts.Whale), h.funding); err != nil {
		return err
	}
	stakerFunds := new(big.Int).Add(h.funding, h.liquidityETH)
	if h.staker, err = h.impersonate(ctx, common.HexToAddress(h.cfg.Accounts.Staker), stakerFunds); err != nil {
		return err
	}

	// Lock votes
	if err := h.torn.Approve(ctx, h.whale, h.governance.Address(), h.lockAmount); err != nil {
		return fmt.Errorf("failed to approve lock: %w", err)
	}
	if err := h.governance.LockWithApproval(ctx, h.whale, h.lockAmount); err != nil {
		return fmt.Errorf("failed to lock votes: %w", err)
	}
	locked, err := h.governance.LockedBalance(ctx, h.whale.Address())
	if err != nil {
		return err
	}
	if locked.Cmp(h.lockAmount) < 0 {
		return fmt.Errorf("%w: locked %s, want at least %s", ErrLockFailed, locked, h.lockAmount)
	}

	// Propose
	if err := h.governance.Propose(ctx, h.whale, h.proposal, h.cfg.Scenario.ProposalDescription); err != nil {
		return fmt.Errorf("failed to propose: %w", err)
	}
	if h.proposalID, err = h.governance.ProposalCount(ctx); err != nil {
		return err
	}

	receipt, err := h.passAndExecute(ctx)
	if err != nil {
		return err
	}

	poolAddress, err := evm.FindStakingPool(receipt, h.cfg.Contracts.StakingPoolTopicHash())
	if err != nil {
		return err
	}
	if h.pool, err = evm.NewStakingRewards(h.client, poolAddress, h.logger); err != nil {
		return err
	}

	// Staker approvals
	if err := h.torn.Approve(ctx, h.staker, h.router.Address(), evm.MaxUint256); err != nil {
		return fmt.Errorf("failed to approve router: %w", err)
	}
	if err := h.lpToken.Approve(ctx, h.staker, poolAddress, evm.MaxUint256); err != nil {
		return fmt.Errorf("failed to approve staking pool: %w", err)
	}

	if h.snapshot, err = h.chain.Snapshot(ctx); err != nil {
		return err
	}

	h.logger.Info("Rehearsal set up",
		zap.String("proposal", h.proposal.Hex()),
		zap.String("proposal_id", h.proposalID.String()),
		zap.String("staking_pool", poolAddress.Hex()))

	return nil
}

// passAndExecute votes the proposal through while a tracker follows its state
func (h *Harness) passAndExecute(ctx context.Context) (*types.Receipt, error) {
	timing, err := h.governance.Timing(ctx)
	if err != nil {
		return nil, err
	}

	tracker := NewTracker(h.governance, h.proposalID, h.cfg.Chain.ReceiptPoll, h.logger)
	watchCtx, stopWatch := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tracker.Watch(watchCtx)
	}()
	defer func() {
		stopWatch()
		wg.Wait()
	}()

	waitCtx, cancel := context.WithTimeout(ctx, h.cfg.Scenario.CaseTimeout)
	defer cancel()

	if err := h.chain.IncreaseTime(ctx, timing.VotingDelay+time.Second); err != nil {
		return nil, err
	}
	if err := tracker.WaitVotable(waitCtx); err != nil {
		return nil, err
	}
	if err := h.governance.CastVote(ctx, h.whale, h.proposalID, true); err != nil {
		return nil, fmt.Errorf("failed to vote: %w", err)
	}

	info, err := h.governance.Proposal(ctx, h.proposalID)
	if err != nil {
		return nil, err
	}
	schedule := NewSchedule(info, timing)
	h.logger.Debug("Proposal schedule",
		zap.Uint64("voting_start", schedule.VotingStart),
		zap.Uint64("voting_end", schedule.VotingEnd),
		zap.Uint64("executable_at", schedule.ExecutableAt),
		zap.String("for_votes", service.FormatEther(info.ForVotes)))

	if err := h.chain.IncreaseTime(ctx, timing.VotingPeriod+timing.ExecutionDelay); err != nil {
		return nil, err
	}
	if err := tracker.WaitPassed(waitCtx); err != nil {
		return nil, err
	}
	if err := h.checkSchedule(ctx, tracker, schedule); err != nil {
		return nil, err
	}

	receipt, err := h.governance.Execute(ctx, h.whale, h.proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute proposal: %w", err)
	}
	if err := tracker.WaitExecuted(waitCtx); err != nil {
		return nil, err
	}

	return receipt, nil
}

// checkSchedule compares the live proposal state with the one its timeline predicts
func (h *Harness) checkSchedule(ctx context.Context, tracker *Tracker, schedule Schedule) error {
	now, err := h.client.LatestTimestamp(ctx)
	if err != nil {
		return err
	}
	state, err := tracker.Refresh(ctx)
	if err != nil {
		return err
	}
	if want := schedule.Expected(now); state != want {
		return fmt.Errorf("%w: proposal %s is %s at %d, expected %s", ErrScheduleMismatch, h.proposalID, state, now, want)
	}
	return nil
}

// Reset restores the post-setup snapshot and takes a fresh one, since
// snapshots are single use
func (h *Harness) Reset(ctx context.Context) error {
	if h.snapshot == "" {
		return ErrNotSetUp
	}
	if err := h.chain.Revert(ctx, h.snapshot); err != nil {
		return err
	}
	id, err := h.chain.Snapshot(ctx)
	if err != nil {
		return err
	}
	h.snapshot = id
	return nil
}

// Close stops every impersonation and returns the fork to its state before Setup
func (h *Harness) Close(ctx context.Context) error {
	var errs error
	for _, addr := range h.impersonated {
		errs = multierr.Append(errs, h.chain.StopImpersonating(ctx, addr))
	}
	h.impersonated = nil

	if h.baseline != "" {
		errs = multierr.Append(errs, h.chain.Revert(ctx, h.baseline))
		h.baseline = ""
		h.snapshot = ""
	}
	return errs
}

// impersonate returns a funded signer for address, remembering it once for Close
func (h *Harness) impersonate(ctx context.Context, address common.Address, funds *big.Int) (evm.Signer, error) {
	signer, err := h.chain.SignerFromAddress(ctx, address, funds)
	if err != nil {
		return nil, err
	}
	for _, a := range h.impersonated {
		if a == address {
			return signer, nil
		}
	}
	h.impersonated = append(h.impersonated, address)
	return signer, nil
}

func (h *Harness) deployerSigner(ctx context.Context) (evm.Signer, error) {
	return DeployerSigner(ctx, h.client, &h.cfg.Chain)
}

// DeployerSigner returns the keyed deployer, or the node's first dev account
func DeployerSigner(ctx context.Context, client *evm.Client, chain *config.ChainConfig) (evm.Signer, error) {
	if chain.DeployerKey != "" {
		return evm.NewKeyedSigner(client, chain.DeployerKey)
	}

	accounts, err := client.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("node has no unlocked accounts and no deployer key is configured")
	}
	return evm.NewUnlockedSigner(client, accounts[0]), nil
}

// proposalAddress returns the configured proposal or deploys it from its artifact
func (h *Harness) proposalAddress(ctx context.Context) (common.Address, error) {
	if h.cfg.Contracts.Proposal != "" {
		return common.HexToAddress(h.cfg.Contracts.Proposal), nil
	}

	artifact, err := evm.LoadArtifact(h.cfg.Contracts.ProposalArtifact)
	if err != nil {
		return common.Address{}, err
	}
	ok, err := artifact.HasMethod(proposalEntrypoint)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s has no %s method", ErrNotProposal, artifact.ContractName, proposalEntrypoint)
	}

	address, _, err := evm.NewDeployer(h.client, h.deployer, h.logger).Deploy(ctx, artifact.Bytecode)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy %s: %w", artifact.ContractName, err)
	}
	return address, nil
}
