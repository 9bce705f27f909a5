// Package evmtest provides an in-process JSON-RPC node for tests of code
// that talks to a forked development chain.
package evmtest

import (
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tidwall/gjson"
)

// ZeroHash is a 32 byte zero value in JSON-RPC hex form
var ZeroHash = "0x" + strings.Repeat("0", 64)

// Handler returns the raw JSON result for the params of a request
type Handler func(params gjson.Result) string

// Call is one request received by the node
type Call struct {
	Method string
	Params gjson.Result
}

// Tx is a decoded eth_sendTransaction request
type Tx struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Selector returns the hex method selector of the transaction data
func (tx Tx) Selector() string {
	if len(tx.Data) < 4 {
		return ""
	}
	return hexutil.Encode(tx.Data[:4])
}

type viewKey struct {
	to       common.Address
	selector string
}

// Node answers JSON-RPC requests with canned results and records every call.
// eth_call requests without a method handler are routed by contract and selector.
type Node struct {
	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
	views    map[viewKey]Handler
}

// NewNode returns a node with no handlers
func NewNode() *Node {
	return &Node{
		handlers: make(map[string]Handler),
		views:    make(map[viewKey]Handler),
	}
}

// On answers method with a raw JSON result
func (n *Node) On(method, result string) {
	n.OnFunc(method, func(gjson.Result) string { return result })
}

// OnFunc answers method with the result of handler
func (n *Node) OnFunc(method string, handler Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = handler
}

// OnView answers eth_call requests to contract whose data starts with selector
func (n *Node) OnView(contract common.Address, selector string, handler Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.views[viewKey{to: contract, selector: strings.ToLower(selector)}] = handler
}

func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := gjson.ParseBytes(body)
	method := req.Get("method").String()
	params := req.Get("params")

	n.mu.Lock()
	n.calls = append(n.calls, Call{Method: method, Params: params})
	handler, ok := n.handlers[method]
	if !ok && method == "eth_call" {
		handler, ok = n.views[viewKey{to: CallTarget(params), selector: Selector(params)}]
	}
	n.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32601,"message":"method %s not found"}}`, req.Get("id").Raw, method)
		return
	}
	fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.Get("id").Raw, handler(params))
}

// Start serves the node over HTTP until the test ends and returns its URL
func (n *Node) Start(t testing.TB) string {
	t.Helper()
	server := httptest.NewServer(n)
	t.Cleanup(server.Close)
	return server.URL
}

// Methods returns the method of every call in order
func (n *Node) Methods() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	methods := make([]string, 0, len(n.calls))
	for _, c := range n.calls {
		methods = append(methods, c.Method)
	}
	return methods
}

// Calls returns every call of method in order
func (n *Node) Calls(method string) []Call {
	n.mu.Lock()
	defer n.mu.Unlock()
	var calls []Call
	for _, c := range n.calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

// LastCall returns the most recent call of method
func (n *Node) LastCall(method string) (Call, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.calls) - 1; i >= 0; i-- {
		if n.calls[i].Method == method {
			return n.calls[i], true
		}
	}
	return Call{}, false
}

// Sent returns every eth_sendTransaction request in order
func (n *Node) Sent() []Tx {
	calls := n.Calls("eth_sendTransaction")
	txs := make([]Tx, 0, len(calls))
	for _, c := range calls {
		txs = append(txs, DecodeTx(c.Params))
	}
	return txs
}

// DecodeTx decodes the first param of an eth_sendTransaction request
func DecodeTx(params gjson.Result) Tx {
	arg := params.Array()[0]
	tx := Tx{
		From:  common.HexToAddress(arg.Get("from").String()),
		To:    common.HexToAddress(arg.Get("to").String()),
		Value: new(big.Int),
	}
	if data := arg.Get("data").String(); data != "" {
		tx.Data = hexutil.MustDecode(data)
	}
	if value := arg.Get("value").String(); value != "" {
		tx.Value = hexutil.MustDecodeBig(value)
	}
	return tx
}

// CallData returns the calldata of an eth_call or eth_estimateGas request
func CallData(params gjson.Result) string {
	arg := params.Array()[0]
	if input := arg.Get("input").String(); input != "" {
		return input
	}
	return arg.Get("data").String()
}

// CallTarget returns the recipient of an eth_call or eth_estimateGas request
func CallTarget(params gjson.Result) common.Address {
	return common.HexToAddress(params.Array()[0].Get("to").String())
}

// Selector returns the lower case hex selector of an eth_call request
func Selector(params gjson.Result) string {
	data := strings.ToLower(CallData(params))
	if len(data) < 10 {
		return ""
	}
	return data[:10]
}

// Arg returns the i-th 32 byte argument of an eth_call request
func Arg(params gjson.Result, i int) []byte {
	data := hexutil.MustDecode(CallData(params))
	start := 4 + 32*i
	if len(data) < start+32 {
		return nil
	}
	return data[start : start+32]
}

// Word encodes v as a JSON quoted 32 byte word
func Word(v *big.Int) string {
	return fmt.Sprintf(`"%s"`, hexutil.Encode(common.LeftPadBytes(v.Bytes(), 32)))
}

// Uint encodes v as a JSON quoted 32 byte word
func Uint(v uint64) string {
	return Word(new(big.Int).SetUint64(v))
}

// AddressWord encodes addr as a JSON quoted 32 byte word
func AddressWord(addr common.Address) string {
	return fmt.Sprintf(`"%s"`, hexutil.Encode(common.LeftPadBytes(addr.Bytes(), 32)))
}

// Words concatenates raw 32 byte words into one JSON quoted result
func Words(words ...[]byte) string {
	var out []byte
	for _, w := range words {
		out = append(out, common.LeftPadBytes(w, 32)...)
	}
	return fmt.Sprintf(`"%s"`, hexutil.Encode(out))
}

// HeaderJSON is a minimal block header at timestamp
func HeaderJSON(number, timestamp uint64) string {
	return fmt.Sprintf(`{
		"parentHash": %q,
		"sha3Uncles": %q,
		"miner": "0x0000000000000000000000000000000000000000",
		"stateRoot": %q,
		"transactionsRoot": %q,
		"receiptsRoot": %q,
		"logsBloom": "0x%s",
		"difficulty": "0x0",
		"number": "0x%x",
		"gasLimit": "0x1c9c380",
		"gasUsed": "0x0",
		"timestamp": "0x%x",
		"extraData": "0x",
		"mixHash": %q,
		"nonce": "0x0000000000000000",
		"hash": %q
	}`, ZeroHash, ZeroHash, ZeroHash, ZeroHash, ZeroHash, strings.Repeat("0", 512), number, timestamp, ZeroHash, ZeroHash)
}

// ReceiptJSON is a minimal receipt with the given status and raw logs array
func ReceiptJSON(txHash string, status uint64, logs string) string {
	return fmt.Sprintf(`{
		"transactionHash": %q,
		"transactionIndex": "0x0",
		"blockHash": %q,
		"blockNumber": "0x10",
		"cumulativeGasUsed": "0x5208",
		"gasUsed": "0x5208",
		"contractAddress": null,
		"logs": %s,
		"logsBloom": "0x%s",
		"status": "0x%x",
		"type": "0x0"
	}`, txHash, ZeroHash, logs, strings.Repeat("0", 512), status)
}

// LogJSON is a receipt log emitted by address with a single topic
func LogJSON(address common.Address, topic common.Hash, data []byte, txHash string) string {
	return fmt.Sprintf(`{
		"address": %q,
		"topics": [%q],
		"data": %q,
		"blockNumber": "0x10",
		"transactionHash": %q,
		"transactionIndex": "0x0",
		"blockHash": %q,
		"logIndex": "0x0",
		"removed": false
	}`, address.Hex(), topic.Hex(), hexutil.Encode(data), txHash, ZeroHash)
}
