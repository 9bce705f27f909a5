package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Governance provides methods to interact with the governance contract
type Governance struct {
	contract *BoundContract
	logger   *zap.Logger
}

// Timing holds the governance delays
type Timing struct {
	VotingDelay         time.Duration
	VotingPeriod        time.Duration
	ExecutionDelay      time.Duration
	ExecutionExpiration time.Duration
}

// ProposalInfo mirrors the proposals(uint256) getter
type ProposalInfo struct {
	Proposer     common.Address
	Target       common.Address
	StartTime    uint64
	EndTime      uint64
	ForVotes     *big.Int
	AgainstVotes *big.Int
	Executed     bool
	Extended     bool
}

// NewGovernance binds the governance contract at address
func NewGovernance(client *Client, address common.Address, logger *zap.Logger) (*Governance, error) {
	contract, err := NewBoundContract(client, "governance", address, GovernanceABI, logger)
	if err != nil {
		return nil, err
	}
	return &Governance{contract: contract, logger: logger}, nil
}

// Address returns the governance address
func (g *Governance) Address() common.Address {
	return g.contract.Address()
}

// LockWithApproval locks previously approved tokens as voting power
func (g *Governance) LockWithApproval(ctx context.Context, signer Signer, amount *big.Int) error {
	_, err := g.contract.Transact(ctx, signer, nil, "lockWithApproval", amount)
	return err
}

// Propose submits a proposal executing target
func (g *Governance) Propose(ctx context.Context, signer Signer, target common.Address, description string) error {
	_, err := g.contract.Transact(ctx, signer, nil, "propose", target, description)
	return err
}

// ProposalCount returns the id of the latest proposal
func (g *Governance) ProposalCount(ctx context.Context) (*big.Int, error) {
	return g.contract.callBig(ctx, "proposalCount")
}

// CastVote votes on a proposal
func (g *Governance) CastVote(ctx context.Context, signer Signer, proposalID *big.Int, support bool) error {
	_, err := g.contract.Transact(ctx, signer, nil, "castVote", proposalID, support)
	return err
}

// Execute executes a passed proposal and returns the receipt with its logs
func (g *Governance) Execute(ctx context.Context, signer Signer, proposalID *big.Int) (*types.Receipt, error) {
	receipt, err := g.contract.Transact(ctx, signer, nil, "execute", proposalID)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Proposal executed",
		zap.String("proposal_id", proposalID.String()),
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.Uint64("gas_used", receipt.GasUsed),
		zap.Int("logs", len(receipt.Logs)))

	return receipt, nil
}

// State returns the on-chain state of a proposal
func (g *Governance) State(ctx context.Context, proposalID *big.Int) (uint8, error) {
	out, err := g.contract.Call(ctx, "state", proposalID)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("state returned no values")
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// LockedBalance returns the tokens locked by account
func (g *Governance) LockedBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return g.contract.callBig(ctx, "lockedBalance", account)
}

// Proposal returns the stored proposal
func (g *Governance) Proposal(ctx context.Context, proposalID *big.Int) (*ProposalInfo, error) {
	out, err := g.contract.Call(ctx, "proposals", proposalID)
	if err != nil {
		return nil, err
	}
	if len(out) != 8 {
		return nil, fmt.Errorf("proposals returned %d values, expected 8", len(out))
	}

	return &ProposalInfo{
		Proposer:     *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		Target:       *abi.ConvertType(out[1], new(common.Address)).(*common.Address),
		StartTime:    abi.ConvertType(out[2], new(big.Int)).(*big.Int).Uint64(),
		EndTime:      abi.ConvertType(out[3], new(big.Int)).(*big.Int).Uint64(),
		ForVotes:     abi.ConvertType(out[4], new(big.Int)).(*big.Int),
		AgainstVotes: abi.ConvertType(out[5], new(big.Int)).(*big.Int),
		Executed:     *abi.ConvertType(out[6], new(bool)).(*bool),
		Extended:     *abi.ConvertType(out[7], new(bool)).(*bool),
	}, nil
}

// Timing reads the governance delays concurrently
func (g *Governance) Timing(ctx context.Context) (*Timing, error) {
	var t Timing
	constants := map[string]*time.Duration{
		"VOTING_DELAY":         &t.VotingDelay,
		"VOTING_PERIOD":        &t.VotingPeriod,
		"EXECUTION_DELAY":      &t.ExecutionDelay,
		"EXECUTION_EXPIRATION": &t.ExecutionExpiration,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for method, dst := range constants {
		method, dst := method, dst
		group.Go(func() error {
			seconds, err := g.contract.callBig(groupCtx, method)
			if err != nil {
				return err
			}
			*dst = time.Duration(seconds.Int64()) * time.Second
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read governance timing: %w", err)
	}

	return &t, nil
}
