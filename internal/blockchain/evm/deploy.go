package evm

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// DeterministicDeployerAddress is the deterministic deployment proxy deployed on all EVM chains
// See: https://github.com/Arachnid/deterministic-deployment-proxy
var DeterministicDeployerAddress = common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C")

// ErrEmptyInitCode is returned when there is nothing to deploy
var ErrEmptyInitCode = errors.New("init code cannot be empty")

// ComputeCreateAddress returns the address of a contract created by deployer at nonce
func ComputeCreateAddress(deployer common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress(deployer, nonce)
}

// ComputeCreate2Address computes the CREATE2 address of initCode deployed by factory
//
// CREATE2 formula: address = keccak256(0xff ++ factoryAddress ++ salt ++ keccak256(initCode))[12:]
func ComputeCreate2Address(factory common.Address, salt [32]byte, initCode []byte) (common.Address, error) {
	if factory == (common.Address{}) {
		return common.Address{}, fmt.Errorf("factory address cannot be zero")
	}
	if len(initCode) == 0 {
		return common.Address{}, ErrEmptyInitCode
	}

	initCodeHash := crypto.Keccak256Hash(initCode)

	// 1 byte (0xff) + 20 bytes (address) + 32 bytes (salt) + 32 bytes (initCodeHash)
	data := make([]byte, 1+20+32+32)
	data[0] = 0xff
	copy(data[1:21], factory.Bytes())
	copy(data[21:53], salt[:])
	copy(data[53:85], initCodeHash.Bytes())

	hash := crypto.Keccak256(data)
	return common.BytesToAddress(hash[12:]), nil
}

// GenerateSalt derives a CREATE2 salt from a deployment label and chain ID
func GenerateSalt(label, chainID string) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s:%s", label, chainID)))
}

// Deployer deploys contracts from a signer
type Deployer struct {
	client *Client
	signer Signer
	logger *zap.Logger
}

// NewDeployer creates a deployer sending from signer
func NewDeployer(client *Client, signer Signer, logger *zap.Logger) *Deployer {
	return &Deployer{
		client: client,
		signer: signer,
		logger: logger.Named("deployer"),
	}
}

// Deploy creates initCode with a plain CREATE and verifies the code landed
func (d *Deployer) Deploy(ctx context.Context, initCode []byte) (common.Address, common.Hash, error) {
	if len(initCode) == 0 {
		return common.Address{}, common.Hash{}, ErrEmptyInitCode
	}

	nonce, err := d.client.GetNonce(ctx, d.signer.Address())
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("failed to get deployer nonce: %w", err)
	}
	expected := ComputeCreateAddress(d.signer.Address(), nonce)

	txHash, err := d.signer.Send(ctx, nil, initCode, nil)
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("failed to send deployment tx: %w", err)
	}

	receipt, err := d.client.WaitForTransaction(ctx, txHash)
	if err != nil {
		return common.Address{}, txHash, fmt.Errorf("deployment failed: %w", err)
	}

	address := receipt.ContractAddress
	if address != expected {
		d.logger.Warn("Deployed address differs from nonce prediction",
			zap.String("expected", expected.Hex()),
			zap.String("actual", address.Hex()))
	}

	if err := d.verify(ctx, address); err != nil {
		return address, txHash, err
	}

	d.logger.Info("Contract deployed",
		zap.String("address", address.Hex()),
		zap.String("deployer", d.signer.Address().Hex()),
		zap.String("tx_hash", txHash.Hex()),
		zap.Uint64("gas_used", receipt.GasUsed))

	return address, txHash, nil
}

// DeployCreate2 deploys initCode through the deterministic deployment proxy, so
// the same label and init code give the same address on every chain run.
// An already deployed contract is returned with a zero tx hash.
func (d *Deployer) DeployCreate2(ctx context.Context, label string, initCode []byte) (common.Address, common.Hash, error) {
	chainID, err := d.client.ChainID(ctx)
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("failed to get chain ID: %w", err)
	}

	salt := GenerateSalt(label, chainID.String())
	expected, err := ComputeCreate2Address(DeterministicDeployerAddress, salt, initCode)
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("failed to compute expected address: %w", err)
	}

	deployed, err := d.client.IsContractDeployed(ctx, expected)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	if deployed {
		d.logger.Info("Contract already deployed",
			zap.String("address", expected.Hex()),
			zap.String("label", label))
		return expected, common.Hash{}, nil
	}

	// The proxy expects: salt (32 bytes) + init code
	deployData := append(salt[:], initCode...)

	txHash, err := d.signer.Send(ctx, &DeterministicDeployerAddress, deployData, nil)
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("failed to send CREATE2 deployment tx: %w", err)
	}

	if _, err := d.client.WaitForTransaction(ctx, txHash); err != nil {
		return expected, txHash, fmt.Errorf("CREATE2 deployment failed: %w", err)
	}

	if err := d.verify(ctx, expected); err != nil {
		return expected, txHash, err
	}

	d.logger.Info("Contract deployed via CREATE2",
		zap.String("address", expected.Hex()),
		zap.String("label", label),
		zap.String("tx_hash", txHash.Hex()))

	return expected, txHash, nil
}

func (d *Deployer) verify(ctx context.Context, address common.Address) error {
	deployed, err := d.client.IsContractDeployed(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to verify deployment: %w", err)
	}
	if !deployed {
		return fmt.Errorf("contract not found at expected address %s", address.Hex())
	}
	return nil
}
