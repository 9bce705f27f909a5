package service

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Day is one chain day
const Day = 24 * time.Hour

const etherDecimals = 18

// ParseEther converts a decimal ether amount such as "1736.2" to wei
func ParseEther(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	wei := d.Shift(etherDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", amount, etherDecimals)
	}
	return wei.BigInt(), nil
}

// MustParseEther is ParseEther for constants
func MustParseEther(amount string) *big.Int {
	wei, err := ParseEther(amount)
	if err != nil {
		panic(err)
	}
	return wei
}

// FormatEther renders wei as a decimal ether amount
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -etherDecimals).String()
}

// Delta returns after - before
func Delta(before, after *big.Int) *big.Int {
	return new(big.Int).Sub(after, before)
}

// Seconds converts a duration to whole chain seconds
func Seconds(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Second)
}
