package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"liquiditymining/internal/config"
)

var (
	// ErrTimeInPast is returned when asked to move the chain clock backwards
	ErrTimeInPast = errors.New("target timestamp is not after the latest block")
	// ErrSnapshotNotFound is returned when the node refuses to revert to a snapshot
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// DevChain drives the development node: impersonation, balances, clock and snapshots
type DevChain struct {
	client *Client
	prefix string
	logger *zap.Logger
}

// NewDevChain creates a controller for the node behind client
func NewDevChain(client *Client, flavor string, logger *zap.Logger) *DevChain {
	prefix := "hardhat"
	if flavor == config.FlavorAnvil {
		prefix = "anvil"
	}
	return &DevChain{
		client: client,
		prefix: prefix,
		logger: logger.Named("devchain"),
	}
}

func (d *DevChain) method(name string) string {
	return d.prefix + "_" + name
}

// Impersonate lets the node accept transactions from address without its key
func (d *DevChain) Impersonate(ctx context.Context, address common.Address) error {
	if err := d.client.rpcClient.CallContext(ctx, nil, d.method("impersonateAccount"), address); err != nil {
		return fmt.Errorf("failed to impersonate %s: %w", address.Hex(), err)
	}
	d.logger.Debug("Impersonating account", zap.String("address", address.Hex()))
	return nil
}

// StopImpersonating reverts Impersonate
func (d *DevChain) StopImpersonating(ctx context.Context, address common.Address) error {
	if err := d.client.rpcClient.CallContext(ctx, nil, d.method("stopImpersonatingAccount"), address); err != nil {
		return fmt.Errorf("failed to stop impersonating %s: %w", address.Hex(), err)
	}
	return nil
}

// SetBalance overwrites the ETH balance of an address
func (d *DevChain) SetBalance(ctx context.Context, address common.Address, wei *big.Int) error {
	if err := d.client.rpcClient.CallContext(ctx, nil, d.method("setBalance"), address, hexutil.EncodeBig(wei)); err != nil {
		return fmt.Errorf("failed to set balance of %s: %w", address.Hex(), err)
	}
	return nil
}

// Mine mines a single block
func (d *DevChain) Mine(ctx context.Context) error {
	if err := d.client.rpcClient.CallContext(ctx, nil, "evm_mine"); err != nil {
		return fmt.Errorf("failed to mine block: %w", err)
	}
	return nil
}

// IncreaseTime moves the chain clock forward and mines a block
func (d *DevChain) IncreaseTime(ctx context.Context, delta time.Duration) error {
	seconds := int64(delta / time.Second)
	if seconds <= 0 {
		return fmt.Errorf("invalid time increase: %s", delta)
	}
	if err := d.client.rpcClient.CallContext(ctx, nil, "evm_increaseTime", seconds); err != nil {
		return fmt.Errorf("failed to increase time: %w", err)
	}
	if err := d.Mine(ctx); err != nil {
		return err
	}
	d.logger.Debug("Advanced time", zap.Int64("seconds", seconds))
	return nil
}

// SetTime mines the next block at exactly timestamp
func (d *DevChain) SetTime(ctx context.Context, timestamp uint64) error {
	latest, err := d.client.LatestTimestamp(ctx)
	if err != nil {
		return err
	}
	if timestamp <= latest {
		return fmt.Errorf("%w: target=%d latest=%d", ErrTimeInPast, timestamp, latest)
	}
	if err := d.client.rpcClient.CallContext(ctx, nil, "evm_setNextBlockTimestamp", timestamp); err != nil {
		return fmt.Errorf("failed to set next block timestamp: %w", err)
	}
	if err := d.Mine(ctx); err != nil {
		return err
	}
	d.logger.Debug("Set time", zap.Uint64("timestamp", timestamp))
	return nil
}

// Snapshot records the current chain state and returns its id
func (d *DevChain) Snapshot(ctx context.Context) (string, error) {
	var id string
	if err := d.client.rpcClient.CallContext(ctx, &id, "evm_snapshot"); err != nil {
		return "", fmt.Errorf("failed to take snapshot: %w", err)
	}
	return id, nil
}

// Revert restores the chain to a snapshot. Snapshots are single use.
func (d *DevChain) Revert(ctx context.Context, id string) error {
	var ok bool
	if err := d.client.rpcClient.CallContext(ctx, &ok, "evm_revert", id); err != nil {
		return fmt.Errorf("failed to revert to snapshot %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return nil
}

// SignerFromAddress impersonates address and makes sure it can pay for gas
func (d *DevChain) SignerFromAddress(ctx context.Context, address common.Address, minBalance *big.Int) (*UnlockedSigner, error) {
	if err := d.Impersonate(ctx, address); err != nil {
		return nil, err
	}

	balance, err := d.client.GetETHBalance(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", address.Hex(), err)
	}
	if balance.Cmp(minBalance) < 0 {
		if err := d.SetBalance(ctx, address, minBalance); err != nil {
			return nil, err
		}
		d.logger.Debug("Funded impersonated account",
			zap.String("address", address.Hex()),
			zap.String("balance", minBalance.String()))
	}

	return NewUnlockedSigner(d.client, address), nil
}
