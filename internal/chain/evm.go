package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/revokehq/revokectl/internal/config"
)

// ErrConfirmTimeout is returned by WaitForReceipt when a transaction is not
// mined within the polling budget. Callers must not treat it as a revert —
// the transaction may still land later.
var ErrConfirmTimeout = errors.New("transaction confirmation timeout")

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url    string
	client *http.Client
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string) *EVMClient {
	return &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: config.RPCTimeout,
		},
	}
}

// Log is one decoded event log record. Immutable once fetched.
type Log struct {
	Address     common.Address
	Topics      []common.Hash
	Data        []byte
	TxHash      common.Hash
	BlockNumber uint64
	TxIndex     uint64
	LogIndex    uint64
	Timestamp   uint64 // 0 when the node does not report one
}

// Before reports whether l precedes other in the chain's total event order
// (blockNumber, transactionIndex, logIndex ascending).
func (l Log) Before(other Log) bool {
	if l.BlockNumber != other.BlockNumber {
		return l.BlockNumber < other.BlockNumber
	}
	if l.TxIndex != other.TxIndex {
		return l.TxIndex < other.TxIndex
	}
	return l.LogIndex < other.LogIndex
}

// SortLogs orders logs ascending by (block, txIndex, logIndex) in place.
func SortLogs(logs []Log) {
	sort.Slice(logs, func(i, j int) bool { return logs[i].Before(logs[j]) })
}

// Filter describes an eth_getLogs query. A nil entry in Topics is a wildcard
// for that position. FromBlock/ToBlock take hex block numbers or tags
// ("earliest", "latest").
type Filter struct {
	Address   string
	Topics    []*string
	FromBlock string
	ToBlock   string
}

// FetchLogs queries event logs matching the filter and returns them sorted by
// the chain's total event order. The node either returns the complete set for
// the range or errors — there is no silent truncation on this path.
func (c *EVMClient) FetchLogs(ctx context.Context, f Filter) ([]Log, error) {
	filter := map[string]interface{}{
		"fromBlock": f.FromBlock,
		"toBlock":   f.ToBlock,
	}
	if f.Address != "" {
		filter["address"] = f.Address
	}
	if len(f.Topics) > 0 {
		topics := make([]interface{}, len(f.Topics))
		for i, t := range f.Topics {
			if t != nil {
				topics[i] = *t
			}
		}
		filter["topics"] = topics
	}

	result, err := c.callCtx(ctx, "eth_getLogs", filter)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	var rawLogs []rawLog
	if err := json.Unmarshal(raw, &rawLogs); err != nil {
		return nil, fmt.Errorf("parsing logs: %w", err)
	}

	logs := make([]Log, 0, len(rawLogs))
	for _, rl := range rawLogs {
		l, err := rl.toLog()
		if err != nil {
			return nil, fmt.Errorf("decoding log: %w", err)
		}
		logs = append(logs, l)
	}
	SortLogs(logs)
	return logs, nil
}

type rawLog struct {
	Address  string   `json:"address"`
	Topics   []string `json:"topics"`
	Data     string   `json:"data"`
	BlockNum string   `json:"blockNumber"`
	TxHash   string   `json:"transactionHash"`
	TxIndex  string   `json:"transactionIndex"`
	LogIndex string   `json:"logIndex"`
}

func (rl rawLog) toLog() (Log, error) {
	l := Log{
		Address: common.HexToAddress(rl.Address),
		TxHash:  common.HexToHash(rl.TxHash),
	}
	for _, t := range rl.Topics {
		l.Topics = append(l.Topics, common.HexToHash(t))
	}
	if rl.Data != "" && rl.Data != "0x" {
		data, err := hex.DecodeString(strings.TrimPrefix(rl.Data, "0x"))
		if err != nil {
			return Log{}, fmt.Errorf("log data: %w", err)
		}
		l.Data = data
	}
	bn, ok := parseBigHex(rl.BlockNum)
	if !ok {
		return Log{}, fmt.Errorf("log block number: %q", rl.BlockNum)
	}
	l.BlockNumber = bn.Uint64()
	if ti, ok := parseBigHex(rl.TxIndex); ok {
		l.TxIndex = ti.Uint64()
	}
	if li, ok := parseBigHex(rl.LogIndex); ok {
		l.LogIndex = li.Uint64()
	}
	return l, nil
}

// GetBlockNumber returns the latest block number.
func (c *EVMClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	result, err := c.callCtx(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	hexStr, ok := result.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected result: %T", result)
	}
	n, ok := parseBigHex(hexStr)
	if !ok {
		return 0, fmt.Errorf("could not parse block number: %s", hexStr)
	}
	return n.Uint64(), nil
}

// CallContract calls a read-only contract function with raw calldata and
// returns the raw hex result.
func (c *EVMClient) CallContract(ctx context.Context, toAddr, calldata string) (string, error) {
	result, err := c.callCtx(ctx, "eth_call", map[string]string{
		"to":   toAddr,
		"data": calldata,
	}, "latest")
	if err != nil {
		return "", err
	}
	s, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result: %T", result)
	}
	return s, nil
}

// SimulateCall executes a candidate transaction as a read-only eth_call
// against current chain state. Returns (true, returnData, nil) on success or
// (false, revertReason, nil) if the call reverts. Network errors return
// (false, "", err).
func (c *EVMClient) SimulateCall(ctx context.Context, from, to, data string, value *big.Int) (bool, string, error) {
	params := map[string]string{
		"from": from,
		"to":   to,
	}
	if data != "" {
		params["data"] = data
	}
	if value != nil && value.Sign() > 0 {
		params["value"] = "0x" + value.Text(16)
	}

	result, err := c.callCtx(ctx, "eth_call", params, "latest")
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "revert") || strings.Contains(errMsg, "execution") {
			return false, extractRevertReason(errMsg), nil
		}
		return false, "", err
	}

	hexStr, _ := result.(string)
	return true, hexStr, nil
}

// extractRevertReason tries to pull the revert reason out of an RPC error message.
func extractRevertReason(errMsg string) string {
	// Common pattern: "execution reverted: <reason>"
	if idx := strings.Index(errMsg, "execution reverted:"); idx >= 0 {
		return strings.TrimSpace(errMsg[idx:])
	}
	if idx := strings.Index(errMsg, "revert"); idx >= 0 {
		return strings.TrimSpace(errMsg[idx:])
	}
	return errMsg
}

// SendRawTransaction broadcasts a signed raw transaction.
func (c *EVMClient) SendRawTransaction(ctx context.Context, rawTx string) (string, error) {
	result, err := c.callCtx(ctx, "eth_sendRawTransaction", rawTx)
	if err != nil {
		return "", err
	}
	hash, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result: %T", result)
	}
	return hash, nil
}

// EstimateGas estimates gas for a transaction.
func (c *EVMClient) EstimateGas(ctx context.Context, from, to, data string, value *big.Int) (uint64, error) {
	params := map[string]string{
		"from": from,
		"to":   to,
	}
	if data != "" {
		params["data"] = data
	}
	if value != nil && value.Sign() > 0 {
		params["value"] = "0x" + value.Text(16)
	}

	result, err := c.callCtx(ctx, "eth_estimateGas", params, "latest")
	if err != nil {
		return 0, err
	}

	hexStr, ok := result.(string)
	if !ok {
		return 21000, nil
	}
	n, ok := parseBigHex(hexStr)
	if !ok {
		return 21000, nil
	}
	return n.Uint64(), nil
}

// GasPrice returns the current gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	result, err := c.callCtx(ctx, "eth_gasPrice")
	if err != nil {
		return nil, err
	}
	hexStr, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected result: %T", result)
	}
	gp, ok := parseBigHex(hexStr)
	if !ok {
		return nil, fmt.Errorf("could not parse gas price: %s", hexStr)
	}
	return gp, nil
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (int64, error) {
	result, err := c.callCtx(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	hexStr, ok := result.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected result: %T", result)
	}
	id, ok := parseBigHex(hexStr)
	if !ok {
		return 0, fmt.Errorf("could not parse chain id: %s", hexStr)
	}
	return id.Int64(), nil
}

// GetPendingNonce returns the transaction count including pending (queued)
// transactions, using the "pending" block tag.
func (c *EVMClient) GetPendingNonce(ctx context.Context, address string) (uint64, error) {
	result, err := c.callCtx(ctx, "eth_getTransactionCount", address, "pending")
	if err != nil {
		return 0, err
	}
	hexStr, ok := result.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected result: %T", result)
	}
	n, ok := parseBigHex(hexStr)
	if !ok {
		return 0, fmt.Errorf("could not parse pending nonce: %s", hexStr)
	}
	return n.Uint64(), nil
}

// GetCode returns the bytecode at an address. Empty "0x" means EOA (no code).
func (c *EVMClient) GetCode(ctx context.Context, address string) (string, error) {
	result, err := c.callCtx(ctx, "eth_getCode", address, "latest")
	if err != nil {
		return "", err
	}
	s, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result: %T", result)
	}
	return s, nil
}

// TxReceipt holds the on-chain receipt of a mined transaction.
type TxReceipt struct {
	Hash        string
	Status      uint64 // 1 = success, 0 = reverted
	BlockNumber uint64
	GasUsed     uint64
}

// GetTransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash string) (*TxReceipt, error) {
	result, err := c.callCtx(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil // still pending
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	var r struct {
		Status      string `json:"status"`
		BlockNumber string `json:"blockNumber"`
		GasUsed     string `json:"gasUsed"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}

	receipt := &TxReceipt{Hash: hash}
	if s, ok := parseBigHex(r.Status); ok {
		receipt.Status = s.Uint64()
	}
	if bn, ok := parseBigHex(r.BlockNumber); ok {
		receipt.BlockNumber = bn.Uint64()
	}
	if gu, ok := parseBigHex(r.GasUsed); ok {
		receipt.GasUsed = gu.Uint64()
	}
	return receipt, nil
}

// errStillPending drives the polling loop; never escapes WaitForReceipt.
var errStillPending = errors.New("still pending")

// WaitForReceipt polls at a fixed interval until the transaction is mined or
// the attempt budget runs out. A reverted transaction returns the receipt
// together with an error; exhausting the budget returns ErrConfirmTimeout,
// which is distinct from an on-chain revert.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash string, interval time.Duration, maxAttempts uint64) (*TxReceipt, error) {
	var receipt *TxReceipt

	operation := func() error {
		r, err := c.GetTransactionReceipt(ctx, hash)
		if err != nil {
			return backoff.Permanent(err)
		}
		if r == nil {
			return errStillPending
		}
		receipt = r
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), maxAttempts),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, errStillPending) {
			return nil, fmt.Errorf("%w: %s not mined after %d attempts", ErrConfirmTimeout, hash, maxAttempts)
		}
		return nil, err
	}

	if receipt.Status == 0 {
		return receipt, fmt.Errorf("transaction reverted (hash: %s)", hash)
	}
	return receipt, nil
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *EVMClient) callCtx(ctx context.Context, method string, params ...interface{}) (interface{}, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	var result interface{}
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return nil, fmt.Errorf("parsing result: %w", err)
	}

	return result, nil
}

func parseBigHex(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	n, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	return n, ok
}

// FormatUnits formats a raw token amount with the given decimals.
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		return ""
	}
	if decimals <= 0 {
		return raw.String()
	}
	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f := new(big.Float).SetInt(raw)
	f.Quo(f, new(big.Float).SetInt(div))
	return f.Text('f', decimals)
}
