package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// BoundContract pairs a parsed ABI with a deployed address
type BoundContract struct {
	name    string
	address common.Address
	abi     abi.ABI
	client  *Client
	logger  *zap.Logger
}

// NewBoundContract parses abiJSON and binds it to address
func NewBoundContract(client *Client, name string, address common.Address, abiJSON string, logger *zap.Logger) (*BoundContract, error) {
	parsedABI, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s ABI: %w", name, err)
	}

	return &BoundContract{
		name:    name,
		address: address,
		abi:     parsedABI,
		client:  client,
		logger:  logger,
	}, nil
}

// Address returns the contract address
func (b *BoundContract) Address() common.Address {
	return b.address
}

// Call executes a view method and returns the unpacked outputs
func (b *BoundContract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	result, err := b.client.CallContract(ctx, ethereum.CallMsg{
		To:   &b.address,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call %s.%s: %w", b.name, method, err)
	}

	out, err := b.abi.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

func (b *BoundContract) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := b.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

func (b *BoundContract) callAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	out, err := b.Call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) == 0 {
		return common.Address{}, fmt.Errorf("%s returned no values", method)
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// Transact sends method from signer and waits for the receipt
func (b *BoundContract) Transact(
	ctx context.Context,
	signer Signer,
	value *big.Int,
	method string,
	args ...interface{},
) (*types.Receipt, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	txHash, err := signer.Send(ctx, &b.address, data, value)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s.%s from %s: %w", b.name, method, signer.Address().Hex(), err)
	}

	receipt, err := b.client.WaitForTransaction(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("%s.%s failed: %w", b.name, method, err)
	}

	b.logger.Debug("Transaction confirmed",
		zap.String("contract", b.name),
		zap.String("method", method),
		zap.String("from", signer.Address().Hex()),
		zap.String("tx_hash", txHash.Hex()),
		zap.Uint64("gas_used", receipt.GasUsed))

	return receipt, nil
}
