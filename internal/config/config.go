package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by LoadConfig
const EnvPrefix = "LM"

// Dev chain flavors, selecting the prefix of the node-specific RPC methods
const (
	FlavorHardhat = "hardhat"
	FlavorAnvil   = "anvil"
)

// Config holds all configuration for the harness and the rehearsal service
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Chain     ChainConfig     `yaml:"chain"`
	Contracts ContractsConfig `yaml:"contracts"`
	Accounts  AccountsConfig  `yaml:"accounts"`
	Scenario  ScenarioConfig  `yaml:"scenario"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" envconfig:"LM_SERVER_PORT"`
}

// DatabaseConfig holds PostgreSQL configuration for the run ledger
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"  envconfig:"LM_DATABASE_ENABLED"`
	Host     string `yaml:"host"     envconfig:"LM_DATABASE_HOST"`
	Port     int    `yaml:"port"     envconfig:"LM_DATABASE_PORT"`
	User     string `yaml:"user"     envconfig:"LM_DATABASE_USER"`
	Password string `yaml:"password" envconfig:"LM_DATABASE_PASSWORD"`
	DBName   string `yaml:"dbName"   envconfig:"LM_DATABASE_NAME"`
	SSLMode  string `yaml:"sslMode"  envconfig:"LM_DATABASE_SSL_MODE"`
}

// ChainConfig holds configuration of the forked development node
type ChainConfig struct {
	RPCURL             string        `yaml:"rpcUrl"             envconfig:"LM_CHAIN_RPC_URL"`
	Flavor             string        `yaml:"flavor"             envconfig:"LM_CHAIN_FLAVOR"`
	ReceiptPoll        time.Duration `yaml:"receiptPoll"        envconfig:"LM_CHAIN_RECEIPT_POLL"`
	TxTimeout          time.Duration `yaml:"txTimeout"          envconfig:"LM_CHAIN_TX_TIMEOUT"`
	ImpersonationFunds string        `yaml:"impersonationFunds" envconfig:"LM_CHAIN_IMPERSONATION_FUNDS"` // ether units
	DeployerKey        string        `yaml:"deployerKey"        envconfig:"LM_CHAIN_DEPLOYER_KEY"`        // optional, hex
}

// ContractsConfig holds the addresses of the external contracts
type ContractsConfig struct {
	Governance        string `yaml:"governance"        envconfig:"LM_CONTRACTS_GOVERNANCE"`
	Token             string `yaml:"token"             envconfig:"LM_CONTRACTS_TOKEN"`
	Pool              string `yaml:"pool"              envconfig:"LM_CONTRACTS_POOL"`
	Router            string `yaml:"router"            envconfig:"LM_CONTRACTS_ROUTER"`
	StakingPoolTopic  string `yaml:"stakingPoolTopic"  envconfig:"LM_CONTRACTS_STAKING_POOL_TOPIC"`
	Proposal          string `yaml:"proposal"          envconfig:"LM_CONTRACTS_PROPOSAL"`          // already deployed proposal
	ProposalArtifact  string `yaml:"proposalArtifact"  envconfig:"LM_CONTRACTS_PROPOSAL_ARTIFACT"` // compiler artifact to deploy
}

// AccountsConfig holds the live accounts impersonated by the rehearsal
type AccountsConfig struct {
	Whale  string `yaml:"whale"  envconfig:"LM_ACCOUNTS_WHALE"`
	Staker string `yaml:"staker" envconfig:"LM_ACCOUNTS_STAKER"`
}

// ScenarioConfig holds amounts and durations of the rehearsal, amounts in ether units
type ScenarioConfig struct {
	LockAmount          string        `yaml:"lockAmount"          envconfig:"LM_SCENARIO_LOCK_AMOUNT"`
	LiquidityTokens     string        `yaml:"liquidityTokens"     envconfig:"LM_SCENARIO_LIQUIDITY_TOKENS"`
	LiquidityETH        string        `yaml:"liquidityEth"        envconfig:"LM_SCENARIO_LIQUIDITY_ETH"`
	RewardWait          time.Duration `yaml:"rewardWait"          envconfig:"LM_SCENARIO_REWARD_WAIT"`
	PeriodFinishRewind  time.Duration `yaml:"periodFinishRewind"  envconfig:"LM_SCENARIO_PERIOD_FINISH_REWIND"`
	PeriodFinishCut     time.Duration `yaml:"periodFinishCut"     envconfig:"LM_SCENARIO_PERIOD_FINISH_CUT"`
	ProposalDescription string        `yaml:"proposalDescription" envconfig:"LM_SCENARIO_PROPOSAL_DESCRIPTION"`
	CaseTimeout         time.Duration `yaml:"caseTimeout"         envconfig:"LM_SCENARIO_CASE_TIMEOUT"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	PollInterval time.Duration `yaml:"pollInterval" envconfig:"LM_WORKER_POLL_INTERVAL"`
	RunTimeout   time.Duration `yaml:"runTimeout"   envconfig:"LM_WORKER_RUN_TIMEOUT"`
}

const day = 24 * time.Hour

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			DBName:   "liquidity_mining",
			SSLMode:  "disable",
		},
		Chain: ChainConfig{
			RPCURL:             "http://127.0.0.1:8545",
			Flavor:             FlavorHardhat,
			ReceiptPoll:        200 * time.Millisecond,
			TxTimeout:          time.Minute,
			ImpersonationFunds: "10",
		},
		Contracts: ContractsConfig{
			Governance:       "0x5efda50f22d34F262c29268506C5Fa42cB56A1Ce",
			Token:            "0x77777FeDdddFfC19Ff86DB637967013e6C6A116C",
			Pool:             "0x0C722a487876989Af8a05FFfB6e32e45cc23FB3A",
			Router:           "0x7a250d5630b4cf539739df2c5dacb4c659f2488d",
			StakingPoolTopic: "0x06633ee22fe8e793dec66ce36696e948bb0cc0d018ab361e8dfeb34151a4d466",
			ProposalArtifact: "artifacts/contracts/LiquidityMiningProposal.sol/LiquidityMiningProposal.json",
		},
		Accounts: AccountsConfig{
			Whale:  "0x5f48c2a71b2cc96e3f0ccae4e39318ff0dc375b2",
			Staker: "0xa2b2fbcac668d86265c45f62da80aaf3fd1dede3",
		},
		Scenario: ScenarioConfig{
			LockAmount:          "25000",
			LiquidityTokens:     "1736.2",
			LiquidityETH:        "100",
			RewardWait:          30 * day,
			PeriodFinishRewind:  90 * day,
			PeriodFinishCut:     30 * day,
			ProposalDescription: "Enable anonymity mining",
			CaseTimeout:         5 * time.Minute,
		},
		Worker: WorkerConfig{
			PollInterval: 10 * time.Second,
			RunTimeout:   20 * time.Minute,
		},
	}
}

// LoadConfig loads defaults, then the optional YAML file, then environment variables
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Enabled && c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain RPC URL is required")
	}

	switch c.Chain.Flavor {
	case FlavorHardhat, FlavorAnvil:
	default:
		return fmt.Errorf("unknown chain flavor: %q", c.Chain.Flavor)
	}

	if c.Chain.ReceiptPoll <= 0 || c.Chain.TxTimeout <= 0 {
		return fmt.Errorf("receipt poll interval and tx timeout must be positive")
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker poll interval must be positive")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"worker run timeout", c.Worker.RunTimeout},
		{"case timeout", c.Scenario.CaseTimeout},
		{"reward wait", c.Scenario.RewardWait},
		{"period finish rewind", c.Scenario.PeriodFinishRewind},
		{"period finish cut", c.Scenario.PeriodFinishCut},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	// the chain clock moves in whole seconds
	if c.Scenario.RewardWait < time.Second {
		return fmt.Errorf("reward wait must be at least one second: %s", c.Scenario.RewardWait)
	}

	addresses := map[string]string{
		"governance": c.Contracts.Governance,
		"token":      c.Contracts.Token,
		"pool":       c.Contracts.Pool,
		"router":     c.Contracts.Router,
		"whale":      c.Accounts.Whale,
		"staker":     c.Accounts.Staker,
	}
	for name, addr := range addresses {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s address: %q", name, addr)
		}
	}

	if c.Contracts.Proposal != "" && !common.IsHexAddress(c.Contracts.Proposal) {
		return fmt.Errorf("invalid proposal address: %q", c.Contracts.Proposal)
	}
	if c.Contracts.Proposal == "" && c.Contracts.ProposalArtifact == "" {
		return fmt.Errorf("either a proposal address or a proposal artifact is required")
	}

	topic := strings.TrimPrefix(c.Contracts.StakingPoolTopic, "0x")
	if len(topic) != 64 {
		return fmt.Errorf("invalid staking pool topic length: %d (expected 64)", len(topic))
	}

	amounts := map[string]string{
		"lock amount":         c.Scenario.LockAmount,
		"liquidity tokens":    c.Scenario.LiquidityTokens,
		"liquidity ETH":       c.Scenario.LiquidityETH,
		"impersonation funds": c.Chain.ImpersonationFunds,
	}
	for name, amount := range amounts {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d.Sign() <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.Scenario.PeriodFinishCut >= c.Scenario.PeriodFinishRewind {
		return fmt.Errorf("period finish cut (%s) must be shorter than the rewind (%s)",
			c.Scenario.PeriodFinishCut, c.Scenario.PeriodFinishRewind)
	}

	return nil
}

// GovernanceAddress returns the governance address
func (c *ContractsConfig) GovernanceAddress() common.Address {
	return common.HexToAddress(c.Governance)
}

// StakingPoolTopicHash returns the topic identifying the staking pool creation log
func (c *ContractsConfig) StakingPoolTopicHash() common.Hash {
	return common.HexToHash(c.StakingPoolTopic)
}
