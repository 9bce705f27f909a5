package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StakingRewards binds a staking pool created by a proposal
type StakingRewards struct {
	contract *BoundContract
	logger   *zap.Logger
}

// PoolStatus is a point-in-time view of a staking pool
type PoolStatus struct {
	Address      common.Address
	Owner        common.Address
	RewardsToken common.Address
	StakingToken common.Address
	PeriodFinish uint64
	RewardRate   *big.Int
	TotalSupply  *big.Int
}

// NewStakingRewards binds the staking pool at address
func NewStakingRewards(client *Client, address common.Address, logger *zap.Logger) (*StakingRewards, error) {
	contract, err := NewBoundContract(client, "staking_pool", address, StakingRewardsABI, logger)
	if err != nil {
		return nil, err
	}
	return &StakingRewards{contract: contract, logger: logger}, nil
}

func (s *StakingRewards) Address() common.Address {
	return s.contract.Address()
}

// Stake deposits pool tokens from signer
func (s *StakingRewards) Stake(ctx context.Context, signer Signer, amount *big.Int) error {
	_, err := s.contract.Transact(ctx, signer, nil, "stake", amount)
	return err
}

// GetReward pays out the rewards earned by signer
func (s *StakingRewards) GetReward(ctx context.Context, signer Signer) error {
	_, err := s.contract.Transact(ctx, signer, nil, "getReward")
	return err
}

// UpdatePeriodFinish moves the end of the reward period. Owner only.
func (s *StakingRewards) UpdatePeriodFinish(ctx context.Context, signer Signer, periodFinish uint64) error {
	_, err := s.contract.Transact(ctx, signer, nil, "updatePeriodFinish", new(big.Int).SetUint64(periodFinish))
	if err != nil {
		return err
	}
	s.logger.Info("Period finish updated",
		zap.String("pool", s.Address().Hex()),
		zap.Uint64("period_finish", periodFinish))
	return nil
}

func (s *StakingRewards) Earned(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.contract.callBig(ctx, "earned", account)
}

func (s *StakingRewards) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.contract.callBig(ctx, "balanceOf", account)
}

func (s *StakingRewards) PeriodFinish(ctx context.Context) (uint64, error) {
	finish, err := s.contract.callBig(ctx, "periodFinish")
	if err != nil {
		return 0, err
	}
	return finish.Uint64(), nil
}

func (s *StakingRewards) RewardRate(ctx context.Context) (*big.Int, error) {
	return s.contract.callBig(ctx, "rewardRate")
}

func (s *StakingRewards) TotalSupply(ctx context.Context) (*big.Int, error) {
	return s.contract.callBig(ctx, "totalSupply")
}

func (s *StakingRewards) Owner(ctx context.Context) (common.Address, error) {
	return s.contract.callAddress(ctx, "owner")
}

// Status reads every pool parameter concurrently
func (s *StakingRewards) Status(ctx context.Context) (*PoolStatus, error) {
	status := &PoolStatus{Address: s.Address()}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		status.Owner, err = s.Owner(groupCtx)
		return err
	})
	group.Go(func() (err error) {
		status.RewardsToken, err = s.contract.callAddress(groupCtx, "rewardsToken")
		return err
	})
	group.Go(func() (err error) {
		status.StakingToken, err = s.contract.callAddress(groupCtx, "stakingToken")
		return err
	})
	group.Go(func() (err error) {
		status.PeriodFinish, err = s.PeriodFinish(groupCtx)
		return err
	})
	group.Go(func() (err error) {
		status.RewardRate, err = s.RewardRate(groupCtx)
		return err
	})
	group.Go(func() (err error) {
		status.TotalSupply, err = s.TotalSupply(groupCtx)
		return err
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return status, nil
}
