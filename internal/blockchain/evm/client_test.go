package evm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liquiditymining/internal/blockchain/evm/evmtest"
	"liquiditymining/internal/config"
)

func newTestClient(t *testing.T, node *evmtest.Node, flavor string) *Client {
	t.Helper()

	client, err := NewClient(context.Background(), &config.ChainConfig{
		RPCURL:      node.Start(t),
		Flavor:      flavor,
		ReceiptPoll: 10 * time.Millisecond,
		TxTimeout:   time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}
