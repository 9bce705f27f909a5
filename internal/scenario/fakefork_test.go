package scenario

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"liquiditymining/internal/blockchain/evm"
	"liquiditymining/internal/blockchain/evm/evmtest"
	"liquiditymining/internal/config"
)

// Governance constants of the forked contract, in seconds
const (
	testVotingDelay         = 75
	testVotingPeriod        = 432_000
	testExecutionDelay      = 172_800
	testExecutionExpiration = 259_200
)

var (
	testDevAccount  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testProposal    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testStakingPool = common.HexToAddress("0x1111111111111111111111111111111111111111")

	testGenesis      = uint64(1_700_000_000)
	testPeriodFinish = testGenesis + 200*24*3600
	testLiquidity    = big.NewInt(1_000_000)
	testReward       = big.NewInt(5_000_000_000)
)

// forkState is the contract state the fake fork keeps. Values are replaced,
// never mutated in place, so snapshots can share them.
type forkState struct {
	now          uint64
	block        uint64
	locked       *big.Int
	proposed     bool
	startTime    uint64
	endTime      uint64
	forVotes     *big.Int
	executed     bool
	periodFinish uint64
	lpBalance    *big.Int
	tornBalance  *big.Int
	earned       *big.Int
}

// fakeFork simulates the governance, the tokens, the router and the staking
// pool on top of an evmtest node
type fakeFork struct {
	t    *testing.T
	node *evmtest.Node
	cfg  *config.Config
	abis map[string]abi.ABI

	// knobs turning on failure branches
	ignoreLock         bool
	ignorePeriodUpdate bool
	withholdReward     bool
	stuckTimelocked    bool

	mu        sync.Mutex
	state     forkState
	snapshots []forkState
	receipts  map[common.Hash]string
}

func newFakeFork(t *testing.T) *fakeFork {
	t.Helper()

	f := &fakeFork{
		t:    t,
		node: evmtest.NewNode(),
		abis: make(map[string]abi.ABI),
		state: forkState{
			now:          testGenesis,
			block:        19_000_000,
			locked:       new(big.Int),
			forVotes:     new(big.Int),
			periodFinish: testPeriodFinish,
			lpBalance:    new(big.Int),
			tornBalance:  new(big.Int),
			earned:       new(big.Int),
		},
		receipts: make(map[common.Hash]string),
	}
	for name, raw := range map[string]string{
		"governance": evm.GovernanceABI,
		"erc20":      evm.ERC20ABI,
		"router":     evm.RouterABI,
		"staking":    evm.StakingRewardsABI,
	} {
		parsed, err := abi.JSON(strings.NewReader(raw))
		require.NoError(t, err)
		f.abis[name] = parsed
	}

	cfg := config.Default()
	cfg.Chain.RPCURL = f.node.Start(t)
	cfg.Chain.ReceiptPoll = 5 * time.Millisecond
	cfg.Chain.TxTimeout = time.Second
	cfg.Contracts.Proposal = testProposal.Hex()
	cfg.Scenario.CaseTimeout = 5 * time.Second
	f.cfg = cfg

	f.routeNode()
	f.routeViews()
	return f
}

// harness binds a harness to the fake fork
func (f *fakeFork) harness() *Harness {
	f.t.Helper()

	client, err := evm.NewClient(context.Background(), &f.cfg.Chain, zap.NewNop())
	require.NoError(f.t, err)
	f.t.Cleanup(client.Close)

	h, err := NewHarness(f.cfg, client, zap.NewNop())
	require.NoError(f.t, err)
	return h
}

func (f *fakeFork) snapshot() forkState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeFork) selector(contract, method string) string {
	return hexutil.Encode(f.abis[contract].Methods[method].ID)
}

// args unpacks the arguments of a transaction sent to contract
func (f *fakeFork) args(contract string, tx evmtest.Tx) (string, []interface{}, bool) {
	if len(tx.Data) < 4 {
		return "", nil, false
	}
	parsed := f.abis[contract]
	method, err := parsed.MethodById(tx.Data[:4])
	if err != nil {
		f.t.Errorf("unexpected %s transaction: %v", contract, err)
		return "", nil, false
	}
	args, err := method.Inputs.Unpack(tx.Data[4:])
	if err != nil {
		f.t.Errorf("malformed %s.%s arguments: %v", contract, method.Name, err)
		return "", nil, false
	}
	return method.Name, args, true
}

func (f *fakeFork) contractName(address common.Address) string {
	switch address {
	case f.cfg.Contracts.GovernanceAddress():
		return "governance"
	case common.HexToAddress(f.cfg.Contracts.Token), common.HexToAddress(f.cfg.Contracts.Pool):
		return "erc20"
	case common.HexToAddress(f.cfg.Contracts.Router):
		return "router"
	case testStakingPool:
		return "staking"
	}
	return ""
}

func (f *fakeFork) routeNode() {
	n := f.node
	n.On("eth_accounts", fmt.Sprintf(`[%q]`, testDevAccount.Hex()))
	n.On("eth_estimateGas", `"0x5208"`)
	n.On("eth_getBalance", `"0x0"`)
	for _, prefix := range []string{"hardhat", "anvil"} {
		n.On(prefix+"_impersonateAccount", "true")
		n.On(prefix+"_stopImpersonatingAccount", "true")
		n.On(prefix+"_setBalance", "true")
	}

	n.OnFunc("eth_getBlockByNumber", func(gjson.Result) string {
		s := f.snapshot()
		return evmtest.HeaderJSON(s.block, s.now)
	})
	n.OnFunc("evm_mine", func(gjson.Result) string {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.state.block++
		return `"0x0"`
	})
	n.OnFunc("evm_increaseTime", func(params gjson.Result) string {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.state.now += params.Array()[0].Uint()
		return fmt.Sprintf("%d", params.Array()[0].Uint())
	})
	n.OnFunc("evm_setNextBlockTimestamp", func(params gjson.Result) string {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.state.now = params.Array()[0].Uint()
		return "null"
	})
	n.OnFunc("evm_snapshot", func(gjson.Result) string {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.snapshots = append(f.snapshots, f.state)
		return fmt.Sprintf(`"0x%x"`, len(f.snapshots))
	})
	n.OnFunc("evm_revert", func(params gjson.Result) string {
		f.mu.Lock()
		defer f.mu.Unlock()
		id, err := hexutil.DecodeUint64(params.Array()[0].String())
		if err != nil || id == 0 || id > uint64(len(f.snapshots)) {
			return "false"
		}
		// reverting also drops every later snapshot
		f.state = f.snapshots[id-1]
		f.snapshots = f.snapshots[:id-1]
		return "true"
	})

	n.OnFunc("eth_sendTransaction", func(params gjson.Result) string {
		tx := evmtest.DecodeTx(params)
		f.mu.Lock()
		defer f.mu.Unlock()
		hash := common.BigToHash(big.NewInt(int64(len(f.receipts) + 1)))
		f.receipts[hash] = f.applyLocked(hash, tx)
		return fmt.Sprintf("%q", hash.Hex())
	})
	n.OnFunc("eth_getTransactionReceipt", func(params gjson.Result) string {
		hash := common.HexToHash(params.Array()[0].String())
		f.mu.Lock()
		defer f.mu.Unlock()
		logs, ok := f.receipts[hash]
		if !ok {
			return "null"
		}
		return evmtest.ReceiptJSON(hash.Hex(), 1, logs)
	})
}

// applyLocked runs the effects of tx and returns the raw logs of its receipt
func (f *fakeFork) applyLocked(hash common.Hash, tx evmtest.Tx) string {
	s := &f.state
	contract := f.contractName(tx.To)
	if contract == "" {
		return "[]"
	}
	method, args, ok := f.args(contract, tx)
	if !ok {
		return "[]"
	}

	switch contract + "." + method {
	case "governance.lockWithApproval":
		if !f.ignoreLock {
			s.locked = new(big.Int).Add(s.locked, args[0].(*big.Int))
		}
	case "governance.propose":
		s.proposed = true
		s.startTime = s.now + testVotingDelay
		s.endTime = s.startTime + testVotingPeriod
	case "governance.castVote":
		if args[1].(bool) {
			s.forVotes = s.locked
		}
	case "governance.execute":
		s.executed = true
		data := append(common.LeftPadBytes(testProposal.Bytes(), 32), common.LeftPadBytes(testStakingPool.Bytes(), 32)...)
		return "[" + evmtest.LogJSON(f.cfg.Contracts.GovernanceAddress(), f.cfg.Contracts.StakingPoolTopicHash(), data, hash.Hex()) + "]"
	case "router.addLiquidityETH":
		s.lpBalance = new(big.Int).Add(s.lpBalance, testLiquidity)
	case "erc20.transfer":
		if tx.To == common.HexToAddress(f.cfg.Contracts.Pool) {
			s.lpBalance = new(big.Int).Sub(s.lpBalance, args[1].(*big.Int))
		}
	case "staking.stake":
		if !f.withholdReward {
			s.earned = testReward
		}
	case "staking.updatePeriodFinish":
		if !f.ignorePeriodUpdate {
			s.periodFinish = args[0].(*big.Int).Uint64()
		}
	case "staking.getReward":
		s.tornBalance = new(big.Int).Add(s.tornBalance, s.earned)
		s.earned = new(big.Int)
	}
	return "[]"
}

// proposalStateLocked follows the governance state() rules
func (f *fakeFork) proposalStateLocked() uint64 {
	s := f.state
	executableAt := s.endTime + testExecutionDelay
	switch {
	case s.executed:
		return 5
	case s.now <= s.startTime:
		return 0
	case s.now <= s.endTime:
		return 1
	case s.forVotes.Sign() == 0:
		return 2
	case f.stuckTimelocked || s.now < executableAt:
		return 3
	case s.now < executableAt+testExecutionExpiration:
		return 4
	default:
		return 6
	}
}

func (f *fakeFork) routeViews() {
	gov := f.cfg.Contracts.GovernanceAddress()
	torn := common.HexToAddress(f.cfg.Contracts.Token)
	lp := common.HexToAddress(f.cfg.Contracts.Pool)
	view := func(contract common.Address, abiName, method string, fn func(s forkState, params gjson.Result) string) {
		f.node.OnView(contract, f.selector(abiName, method), func(params gjson.Result) string {
			f.mu.Lock()
			defer f.mu.Unlock()
			return fn(f.state, params)
		})
	}

	for method, seconds := range map[string]uint64{
		"VOTING_DELAY":         testVotingDelay,
		"VOTING_PERIOD":        testVotingPeriod,
		"EXECUTION_DELAY":      testExecutionDelay,
		"EXECUTION_EXPIRATION": testExecutionExpiration,
	} {
		result := evmtest.Uint(seconds)
		view(gov, "governance", method, func(forkState, gjson.Result) string { return result })
	}
	view(gov, "governance", "lockedBalance", func(s forkState, _ gjson.Result) string { return evmtest.Word(s.locked) })
	view(gov, "governance", "proposalCount", func(s forkState, _ gjson.Result) string {
		if s.proposed {
			return evmtest.Uint(1)
		}
		return evmtest.Uint(0)
	})
	f.node.OnView(gov, f.selector("governance", "state"), func(gjson.Result) string {
		f.mu.Lock()
		defer f.mu.Unlock()
		return evmtest.Uint(f.proposalStateLocked())
	})
	view(gov, "governance", "proposals", func(s forkState, _ gjson.Result) string {
		executed := new(big.Int)
		if s.executed {
			executed.SetUint64(1)
		}
		return evmtest.Words(
			common.HexToAddress(f.cfg.Accounts.Whale).Bytes(),
			testProposal.Bytes(),
			new(big.Int).SetUint64(s.startTime).Bytes(),
			new(big.Int).SetUint64(s.endTime).Bytes(),
			s.forVotes.Bytes(),
			nil,
			executed.Bytes(),
			nil,
		)
	})

	view(torn, "erc20", "balanceOf", func(s forkState, _ gjson.Result) string { return evmtest.Word(s.tornBalance) })
	view(lp, "erc20", "balanceOf", func(s forkState, _ gjson.Result) string { return evmtest.Word(s.lpBalance) })

	view(testStakingPool, "staking", "periodFinish", func(s forkState, _ gjson.Result) string { return evmtest.Uint(s.periodFinish) })
	view(testStakingPool, "staking", "owner", func(forkState, gjson.Result) string { return evmtest.AddressWord(gov) })
	view(testStakingPool, "staking", "earned", func(s forkState, _ gjson.Result) string { return evmtest.Word(s.earned) })
}

// sentTo returns the transactions sent to contract calling method, in order
func (f *fakeFork) sentTo(contract common.Address, abiName, method string) []evmtest.Tx {
	var txs []evmtest.Tx
	sel := f.selector(abiName, method)
	for _, tx := range f.node.Sent() {
		if tx.To == contract && tx.Selector() == sel {
			txs = append(txs, tx)
		}
	}
	return txs
}

// increases returns the seconds of every evm_increaseTime call
func (f *fakeFork) increases() []uint64 {
	var out []uint64
	for _, c := range f.node.Calls("evm_increaseTime") {
		out = append(out, c.Params.Array()[0].Uint())
	}
	return out
}

// timestamps returns the targets of every evm_setNextBlockTimestamp call
func (f *fakeFork) timestamps() []uint64 {
	var out []uint64
	for _, c := range f.node.Calls("evm_setNextBlockTimestamp") {
		out = append(out, c.Params.Array()[0].Uint())
	}
	return out
}
