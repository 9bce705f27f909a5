package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liquiditymining/internal/config"
	"liquiditymining/internal/models"
)

func TestRunCasePassed(t *testing.T) {
	reward, ok := new(big.Int).SetString("1500000000000000000", 10)
	require.True(t, ok)

	result := runCase(context.Background(), models.CaseEarnRewards, time.Second,
		func(context.Context) (*big.Int, error) { return reward, nil }, zap.NewNop())

	assert.True(t, result.Passed)
	assert.Equal(t, models.CaseEarnRewards, result.Name)
	assert.Equal(t, "1500000000000000000", result.RewardDelta)
	assert.Equal(t, "earned 1.5", result.Detail)
}

func TestRunCaseFailed(t *testing.T) {
	result := runCase(context.Background(), models.CaseEarnRewards, time.Second,
		func(context.Context) (*big.Int, error) {
			return big.NewInt(0), fmt.Errorf("%w: 0", ErrNoReward)
		}, zap.NewNop())

	assert.False(t, result.Passed)
	assert.Equal(t, "0", result.RewardDelta)
	assert.Contains(t, result.Detail, ErrNoReward.Error())
}

func TestRunCaseTimeout(t *testing.T) {
	result := runCase(context.Background(), models.CaseOwnerIsGovernance, 10*time.Millisecond,
		func(ctx context.Context) (*big.Int, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}, zap.NewNop())

	assert.False(t, result.Passed)
	assert.Empty(t, result.RewardDelta)
	assert.Contains(t, result.Detail, context.DeadlineExceeded.Error())
}

func TestRunRequiresSetup(t *testing.T) {
	h := &Harness{cfg: config.Default(), logger: zap.NewNop()}

	_, err := h.Run(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrNotSetUp))
	assert.True(t, errors.Is(h.Reset(context.Background()), ErrNotSetUp))
	assert.NoError(t, h.Close(context.Background()), "closing an idle harness is a no-op")
}

func TestCaseRegistryCoversAllCases(t *testing.T) {
	h := &Harness{}
	cases := h.cases()
	for _, name := range models.AllCases {
		_, ok := cases[name]
		assert.True(t, ok, "case %s has no implementation", name)
	}
	assert.Len(t, cases, len(models.AllCases))
}
