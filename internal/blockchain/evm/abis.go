package evm

// GovernanceABI is the subset of the governance contract used by the rehearsal
const GovernanceABI = `[
	{"inputs": [{"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "lockWithApproval", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [{"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "unlock", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [{"internalType": "address", "name": "target", "type": "address"}, {"internalType": "string", "name": "description", "type": "string"}], "name": "propose", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [{"internalType": "uint256", "name": "proposalId", "type": "uint256"}, {"internalType": "bool", "name": "support", "type": "bool"}], "name": "castVote", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [{"internalType": "uint256", "name": "proposalId", "type": "uint256"}], "name": "execute", "outputs": [], "stateMutability": "payable", "type": "function"},
	{"inputs": [{"internalType": "uint256", "name": "proposalId", "type": "uint256"}], "name": "state", "outputs": [{"internalType": "enum Governance.ProposalState", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "proposalCount", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [{"internalType": "address", "name": "", "type": "address"}], "name": "lockedBalance", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{
		"inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"name": "proposals",
		"outputs": [
			{"internalType": "address", "name": "proposer", "type": "address"},
			{"internalType": "address", "name": "target", "type": "address"},
			{"internalType": "uint256", "name": "startTime", "type": "uint256"},
			{"internalType": "uint256", "name": "endTime", "type": "uint256"},
			{"internalType": "uint256", "name": "forVotes", "type": "uint256"},
			{"internalType": "uint256", "name": "againstVotes", "type": "uint256"},
			{"internalType": "bool", "name": "executed", "type": "bool"},
			{"internalType": "bool", "name": "extended", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{"inputs": [], "name": "VOTING_DELAY", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "VOTING_PERIOD", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "EXECUTION_DELAY", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "EXECUTION_EXPIRATION", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{
		"anonymous": false,
		"inputs": [{"indexed": true, "internalType": "uint256", "name": "proposalId", "type": "uint256"}],
		"name": "ProposalExecuted",
		"type": "event"
	}
]`

// ERC20ABI covers the governance token and the liquidity pool token
const ERC20ABI = `[
	{"inputs": [{"internalType": "address", "name": "spender", "type": "address"}, {"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "approve", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [{"internalType": "address", "name": "recipient", "type": "address"}, {"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "transfer", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [{"internalType": "address", "name": "owner", "type": "address"}, {"internalType": "address", "name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "from", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "to", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
		],
		"name": "Transfer",
		"type": "event"
	}
]`

// RouterABI is the subset of the Uniswap V2 router used to mint pool tokens
const RouterABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "token", "type": "address"},
			{"internalType": "uint256", "name": "amountTokenDesired", "type": "uint256"},
			{"internalType": "uint256", "name": "amountTokenMin", "type": "uint256"},
			{"internalType": "uint256", "name": "amountETHMin", "type": "uint256"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "deadline", "type": "uint256"}
		],
		"name": "addLiquidityETH",
		"outputs": [
			{"internalType": "uint256", "name": "amountToken", "type": "uint256"},
			{"internalType": "uint256", "name": "amountETH", "type": "uint256"},
			{"internalType": "uint256", "name": "liquidity", "type": "uint256"}
		],
		"stateMutability": "payable",
		"type": "function"
	},
	{"inputs": [], "name": "WETH", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "pure", "type": "function"}
]`

// StakingRewardsABI is the staking pool created by the proposal
const StakingRewardsABI = `[
	{"inputs": [{"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "stake", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [{"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "withdraw", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [], "name": "getReward", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [], "name": "exit", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [{"internalType": "uint256", "name": "_periodFinish", "type": "uint256"}], "name": "updatePeriodFinish", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
	{"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "earned", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "periodFinish", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "rewardRate", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "owner", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "rewardsToken", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "stakingToken", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "user", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "reward", "type": "uint256"}
		],
		"name": "RewardPaid",
		"type": "event"
	}
]`
