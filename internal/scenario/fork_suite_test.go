package scenario

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"liquiditymining/internal/blockchain/evm"
	"liquiditymining/internal/config"
	"liquiditymining/internal/models"
)

// ForkSuite rehearses the proposal against a live forked node. It needs
// LM_FORK_RPC_URL pointing at a hardhat or anvil node forked from mainnet.
type ForkSuite struct {
	suite.Suite
	rpcURL  string
	ctx     context.Context
	cancel  context.CancelFunc
	client  *evm.Client
	harness *Harness
}

func TestForkSuite(t *testing.T) {
	rpcURL := os.Getenv("LM_FORK_RPC_URL")
	if rpcURL == "" {
		t.Skip("LM_FORK_RPC_URL is not set")
	}
	suite.Run(t, &ForkSuite{rpcURL: rpcURL})
}

func (s *ForkSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 30*time.Minute)

	cfg, err := config.LoadConfig(os.Getenv("LM_CONFIG_FILE"))
	s.Require().NoError(err)
	cfg.Chain.RPCURL = s.rpcURL

	logger := zaptest.NewLogger(s.T())
	s.client, err = evm.NewClient(s.ctx, &cfg.Chain, logger)
	s.Require().NoError(err)

	s.harness, err = NewHarness(cfg, s.client, logger)
	s.Require().NoError(err)
	s.Require().NoError(s.harness.Setup(s.ctx))
}

func (s *ForkSuite) TearDownTest() {
	s.Require().NoError(s.harness.Reset(s.ctx))
}

func (s *ForkSuite) TearDownSuite() {
	if s.harness != nil {
		s.NoError(s.harness.Close(s.ctx))
	}
	if s.client != nil {
		s.client.Close()
	}
	s.cancel()
}

func (s *ForkSuite) TestEarnRewards() {
	delta, err := s.harness.EarnRewards(s.ctx)
	s.Require().NoError(err)
	s.Require().Positive(delta.Sign())
}

func (s *ForkSuite) TestDecreasePeriodFinish() {
	delta, err := s.harness.DecreasePeriodFinish(s.ctx)
	s.Require().NoError(err)
	s.Require().Positive(delta.Sign())
}

func (s *ForkSuite) TestOwnerIsGovernance() {
	owner, err := s.harness.StakingPool().Owner(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(s.harness.cfg.Contracts.GovernanceAddress(), owner)

	_, err = s.harness.OwnerIsGovernance(s.ctx)
	s.Require().NoError(err)
}

func (s *ForkSuite) TestRunAllCasesFromSameSnapshot() {
	first, err := s.harness.Run(s.ctx, []string{models.CaseOwnerIsGovernance, models.CaseEarnRewards})
	s.Require().NoError(err)
	second, err := s.harness.Run(s.ctx, []string{models.CaseEarnRewards})
	s.Require().NoError(err)

	s.Require().Len(first, 2)
	s.Require().Len(second, 1)
	for _, r := range append(first, second...) {
		s.Require().True(r.Passed, "%s: %s", r.Name, r.Detail)
	}
}
