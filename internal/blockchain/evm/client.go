package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"liquiditymining/internal/config"
)

// gasBufferPercent is added on top of every gas estimate
const gasBufferPercent = 20

// Client wraps the RPC connection to the forked development node
type Client struct {
	ethClient   *ethclient.Client
	rpcClient   *rpc.Client
	chainConfig *config.ChainConfig
	logger      *zap.Logger
}

// NewClient connects to the RPC endpoint of the chain
func NewClient(ctx context.Context, chainCfg *config.ChainConfig, logger *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, chainCfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint %s: %w", chainCfg.RPCURL, err)
	}

	c := &Client{
		ethClient:   ethclient.NewClient(rpcClient),
		rpcClient:   rpcClient,
		chainConfig: chainCfg,
		logger:      logger.Named("evm"),
	}

	logger.Info("EVM client initialized",
		zap.String("rpc_url", chainCfg.RPCURL),
		zap.String("flavor", chainCfg.Flavor))

	return c, nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	c.ethClient.Close()
}

// ChainID returns the chain ID from the network
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// BlockNumber returns the number of the latest block
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// LatestTimestamp returns the timestamp of the latest block
func (c *Client) LatestTimestamp(ctx context.Context) (uint64, error) {
	header, err := c.ethClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest header: %w", err)
	}
	return header.Time, nil
}

// GetETHBalance returns the ETH balance of an address
func (c *Client) GetETHBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return c.ethClient.BalanceAt(ctx, address, nil)
}

// IsContractDeployed checks if a contract exists at the given address
func (c *Client) IsContractDeployed(ctx context.Context, address common.Address) (bool, error) {
	code, err := c.ethClient.CodeAt(ctx, address, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get code at address: %w", err)
	}
	return len(code) > 0, nil
}

// Accounts returns the accounts unlocked on the node
func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := c.rpcClient.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// CallContract executes a read-only call against the latest block
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, nil)
}

// GetNonce returns the pending nonce of an address
func (c *Client) GetNonce(ctx context.Context, address common.Address) (uint64, error) {
	return c.ethClient.PendingNonceAt(ctx, address)
}

// estimateGas estimates gas for a transaction and adds the buffer
func (c *Client) estimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gasLimit, err := c.ethClient.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gasLimit * (100 + gasBufferPercent) / 100, nil
}

// sendTxArgs is the eth_sendTransaction payload for unlocked accounts
type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Gas   hexutil.Uint64  `json:"gas"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

// SendAs submits a transaction from an account unlocked on the node. A nil
// recipient creates a contract.
func (c *Client) SendAs(
	ctx context.Context,
	from common.Address,
	to *common.Address,
	data []byte,
	value *big.Int,
) (common.Hash, error) {
	if value == nil {
		value = new(big.Int)
	}

	gasLimit, err := c.estimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    to,
		Data:  data,
		Value: value,
	})
	if err != nil {
		return common.Hash{}, err
	}

	args := sendTxArgs{
		From:  from,
		To:    to,
		Gas:   hexutil.Uint64(gasLimit),
		Value: (*hexutil.Big)(value),
		Data:  data,
	}

	var txHash common.Hash
	if err := c.rpcClient.CallContext(ctx, &txHash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Debug("Transaction sent",
		zap.String("tx_hash", txHash.Hex()),
		zap.String("from", from.Hex()),
		zap.Stringer("to", to),
		zap.Uint64("gas_limit", gasLimit))

	return txHash, nil
}

// SignAndSendTransaction creates, signs, and sends a transaction with a private key
func (c *Client) SignAndSendTransaction(
	ctx context.Context,
	key *ecdsa.PrivateKey,
	to *common.Address,
	data []byte,
	value *big.Int,
) (common.Hash, error) {
	if value == nil {
		value = new(big.Int)
	}
	from := addressFromKey(key)

	chainID, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chain ID: %w", err)
	}

	nonce, err := c.ethClient.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	gasLimit, err := c.estimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    to,
		Data:  data,
		Value: value,
	})
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.ethClient.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Debug("Signed transaction sent",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("from", from.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas_limit", gasLimit))

	return signedTx.Hash(), nil
}

// WaitForTransaction waits for a transaction to be mined
func (c *Client) WaitForTransaction(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.chainConfig.TxTimeout)
	defer cancel()

	ticker := time.NewTicker(c.chainConfig.ReceiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := c.ethClient.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("transaction failed: %s", txHash.Hex())
			}
			return receipt, nil
		}

		// Transaction not yet mined, continue waiting
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for transaction %s", txHash.Hex())
		case <-ticker.C:
		}
	}
}
