package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// MaxUint256 is the "infinite" allowance
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ERC20 binds a fungible token: the governance token or the pool token
type ERC20 struct {
	contract *BoundContract
}

// NewERC20 binds the token at address
func NewERC20(client *Client, name string, address common.Address, logger *zap.Logger) (*ERC20, error) {
	contract, err := NewBoundContract(client, name, address, ERC20ABI, logger)
	if err != nil {
		return nil, err
	}
	return &ERC20{contract: contract}, nil
}

func (t *ERC20) Address() common.Address {
	return t.contract.Address()
}

// Approve sets the allowance of spender over signer's tokens
func (t *ERC20) Approve(ctx context.Context, signer Signer, spender common.Address, amount *big.Int) error {
	_, err := t.contract.Transact(ctx, signer, nil, "approve", spender, amount)
	return err
}

// Transfer moves tokens from signer to recipient
func (t *ERC20) Transfer(ctx context.Context, signer Signer, recipient common.Address, amount *big.Int) error {
	_, err := t.contract.Transact(ctx, signer, nil, "transfer", recipient, amount)
	return err
}

func (t *ERC20) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.contract.callBig(ctx, "balanceOf", account)
}

// Router binds the Uniswap V2 router
type Router struct {
	contract *BoundContract
}

// LiquidityParams holds the arguments of addLiquidityETH
type LiquidityParams struct {
	Token          common.Address
	AmountToken    *big.Int // desired token amount
	AmountTokenMin *big.Int
	AmountETHMin   *big.Int
	To             common.Address // receiver of the pool tokens
	Deadline       uint64         // unix seconds
	Value          *big.Int       // ETH sent along
}

// NewRouter binds the router at address
func NewRouter(client *Client, address common.Address, logger *zap.Logger) (*Router, error) {
	contract, err := NewBoundContract(client, "router", address, RouterABI, logger)
	if err != nil {
		return nil, err
	}
	return &Router{contract: contract}, nil
}

func (r *Router) Address() common.Address {
	return r.contract.Address()
}

// AddLiquidityETH pairs tokens with ETH and mints pool tokens to params.To
func (r *Router) AddLiquidityETH(ctx context.Context, signer Signer, params LiquidityParams) error {
	_, err := r.contract.Transact(ctx, signer, params.Value, "addLiquidityETH",
		params.Token,
		params.AmountToken,
		params.AmountTokenMin,
		params.AmountETHMin,
		params.To,
		new(big.Int).SetUint64(params.Deadline),
	)
	return err
}
