package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer submits transactions on behalf of an address
type Signer interface {
	Address() common.Address
	Send(ctx context.Context, to *common.Address, data []byte, value *big.Int) (common.Hash, error)
}

// UnlockedSigner sends through eth_sendTransaction. It serves both the
// node's own dev accounts and impersonated addresses.
type UnlockedSigner struct {
	client  *Client
	address common.Address
}

// NewUnlockedSigner returns a signer for an address the node already accepts
func NewUnlockedSigner(client *Client, address common.Address) *UnlockedSigner {
	return &UnlockedSigner{client: client, address: address}
}

func (s *UnlockedSigner) Address() common.Address {
	return s.address
}

func (s *UnlockedSigner) Send(ctx context.Context, to *common.Address, data []byte, value *big.Int) (common.Hash, error) {
	return s.client.SendAs(ctx, s.address, to, data, value)
}

// KeyedSigner signs transactions locally with a private key
type KeyedSigner struct {
	client  *Client
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeyedSigner parses a hex private key, with or without 0x prefix
func NewKeyedSigner(client *Client, privateKeyHex string) (*KeyedSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &KeyedSigner{
		client:  client,
		key:     key,
		address: addressFromKey(key),
	}, nil
}

func (s *KeyedSigner) Address() common.Address {
	return s.address
}

func (s *KeyedSigner) Send(ctx context.Context, to *common.Address, data []byte, value *big.Int) (common.Hash, error) {
	return s.client.SignAndSendTransaction(ctx, s.key, to, data, value)
}

func addressFromKey(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}
