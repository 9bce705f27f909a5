package evm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrStakingPoolNotFound is returned when no log carries the creation topic
	ErrStakingPoolNotFound = errors.New("staking pool creation log not found")
	// ErrMalformedLog is returned when a matching log is too short to hold the address
	ErrMalformedLog = errors.New("malformed staking pool creation log")
)

const (
	wordSize = 32
	// the pool address is the second word of the creation log data
	stakingPoolWord = 1
)

// FindStakingPools returns the pool addresses announced by logs carrying topic
func FindStakingPools(logs []*types.Log, topic common.Hash) ([]common.Address, error) {
	var pools []common.Address
	for _, log := range logs {
		if log == nil || len(log.Topics) == 0 || log.Topics[0] != topic {
			continue
		}
		addr, err := AddressFromWord(log.Data, stakingPoolWord)
		if err != nil {
			return nil, fmt.Errorf("log %d of tx %s: %w", log.Index, log.TxHash.Hex(), err)
		}
		pools = append(pools, addr)
	}
	return pools, nil
}

// FindStakingPool returns the first pool announced in a receipt
func FindStakingPool(receipt *types.Receipt, topic common.Hash) (common.Address, error) {
	if receipt == nil {
		return common.Address{}, ErrStakingPoolNotFound
	}
	pools, err := FindStakingPools(receipt.Logs, topic)
	if err != nil {
		return common.Address{}, err
	}
	if len(pools) == 0 {
		return common.Address{}, fmt.Errorf("%w: topic %s in tx %s", ErrStakingPoolNotFound, topic.Hex(), receipt.TxHash.Hex())
	}
	return pools[0], nil
}

// AddressFromWord reads the address right-aligned in the ABI word at index
func AddressFromWord(data []byte, index int) (common.Address, error) {
	end := (index + 1) * wordSize
	if index < 0 || len(data) < end {
		return common.Address{}, fmt.Errorf("%w: %d bytes, need %d", ErrMalformedLog, len(data), end)
	}
	return common.BytesToAddress(data[end-common.AddressLength : end]), nil
}
