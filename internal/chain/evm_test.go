package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcMock creates a test server answering each method with a fixed result.
func rpcMock(t *testing.T, responses map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck

		resp, ok := responses[req.Method]
		if !ok {
			http.Error(w, "method not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  resp,
		})
	}))
}

// rpcErrorServer answers every call with a JSON-RPC error.
func rpcErrorServer(t *testing.T, code int, message string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": code, "message": message},
		})
	}))
}

func TestLogOrdering(t *testing.T) {
	a := Log{BlockNumber: 5, TxIndex: 1, LogIndex: 3}
	b := Log{BlockNumber: 5, TxIndex: 2, LogIndex: 0}
	c := Log{BlockNumber: 6, TxIndex: 0, LogIndex: 0}
	d := Log{BlockNumber: 5, TxIndex: 1, LogIndex: 4}

	assert.True(t, a.Before(b))
	assert.True(t, a.Before(c))
	assert.True(t, a.Before(d))
	assert.False(t, b.Before(a))

	logs := []Log{c, d, b, a}
	SortLogs(logs)
	assert.Equal(t, []Log{a, d, b, c}, logs)
}

func TestFetchLogs(t *testing.T) {
	server := rpcMock(t, map[string]interface{}{
		"eth_getLogs": []map[string]interface{}{
			{
				"address":          "0x00000000000000000000000000000000000aaaaa",
				"topics":           []string{"0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"},
				"data":             "0x0000000000000000000000000000000000000000000000000000000000000064",
				"blockNumber":      "0x11",
				"transactionHash":  "0x1000000000000000000000000000000000000000000000000000000000000002",
				"transactionIndex": "0x0",
				"logIndex":         "0x1",
			},
			{
				"address":          "0x00000000000000000000000000000000000aaaaa",
				"topics":           []string{"0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"},
				"data":             "0x",
				"blockNumber":      "0x10",
				"transactionHash":  "0x1000000000000000000000000000000000000000000000000000000000000001",
				"transactionIndex": "0x2",
				"logIndex":         "0x0",
			},
		},
	})
	defer server.Close()

	client := NewEVMClient(server.URL)
	topic := "0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"
	logs, err := client.FetchLogs(context.Background(), Filter{
		Topics:    []*string{&topic},
		FromBlock: "earliest",
		ToBlock:   "latest",
	})
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// Returned sorted by (block, txIndex, logIndex), not RPC order.
	assert.Equal(t, uint64(0x10), logs[0].BlockNumber)
	assert.Equal(t, uint64(0x11), logs[1].BlockNumber)
	assert.Nil(t, logs[0].Data)
	assert.Equal(t, big.NewInt(100).Bytes(), logs[1].Data[31:])
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000aaaaa"), logs[0].Address)
}

func TestFetchLogsRPCError(t *testing.T) {
	server := rpcErrorServer(t, -32005, "query returned more than 10000 results")
	defer server.Close()

	client := NewEVMClient(server.URL)
	_, err := client.FetchLogs(context.Background(), Filter{FromBlock: "earliest", ToBlock: "latest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10000 results")
}

func TestSimulateCallSuccess(t *testing.T) {
	server := rpcMock(t, map[string]interface{}{"eth_call": "0x"})
	defer server.Close()

	client := NewEVMClient(server.URL)
	ok, _, err := client.SimulateCall(context.Background(), "0x1", "0x2", "0x095ea7b3", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSimulateCallRevert(t *testing.T) {
	server := rpcErrorServer(t, 3, "execution reverted: ERC20: approve from the zero address")
	defer server.Close()

	client := NewEVMClient(server.URL)
	ok, reason, err := client.SimulateCall(context.Background(), "0x1", "0x2", "0x095ea7b3", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "ERC20: approve from the zero address")
}

func TestWaitForReceiptConfirmed(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck

		// Pending on the first two polls, mined on the third.
		var result interface{}
		if calls.Add(1) >= 3 {
			result = map[string]interface{}{
				"status":      "0x1",
				"blockNumber": "0x20",
				"gasUsed":     "0xa410",
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0", "id": req.ID, "result": result,
		})
	}))
	defer server.Close()

	client := NewEVMClient(server.URL)
	receipt, err := client.WaitForReceipt(context.Background(), "0xabc", time.Millisecond, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Status)
	assert.Equal(t, uint64(0x20), receipt.BlockNumber)
}

func TestWaitForReceiptReverted(t *testing.T) {
	server := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{
			"status":      "0x0",
			"blockNumber": "0x20",
			"gasUsed":     "0xa410",
		},
	})
	defer server.Close()

	client := NewEVMClient(server.URL)
	receipt, err := client.WaitForReceipt(context.Background(), "0xabc", time.Millisecond, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverted")
	require.NotNil(t, receipt)
	assert.Equal(t, uint64(0), receipt.Status)
	assert.NotErrorIs(t, err, ErrConfirmTimeout)
}

func TestWaitForReceiptTimeout(t *testing.T) {
	server := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": nil,
	})
	defer server.Close()

	client := NewEVMClient(server.URL)
	_, err := client.WaitForReceipt(context.Background(), "0xabc", time.Millisecond, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfirmTimeout)
}

func TestGetBlockNumber(t *testing.T) {
	server := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0xE5E534"})
	defer server.Close()

	client := NewEVMClient(server.URL)
	n, err := client.GetBlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0xE5E534), n)
}

func TestGetCode(t *testing.T) {
	server := rpcMock(t, map[string]interface{}{"eth_getCode": "0x6080"})
	defer server.Close()

	client := NewEVMClient(server.URL)
	code, err := client.GetCode(context.Background(), "0x1")
	require.NoError(t, err)
	assert.Equal(t, "0x6080", code)
}

func TestParseBigHex(t *testing.T) {
	n, ok := parseBigHex("0x64")
	require.True(t, ok)
	assert.Equal(t, int64(100), n.Int64())

	_, ok = parseBigHex("")
	assert.False(t, ok)

	_, ok = parseBigHex("0xzz")
	assert.False(t, ok)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1.500000", FormatUnits(big.NewInt(1_500_000), 6))
	assert.Equal(t, "42", FormatUnits(big.NewInt(42), 0))
	assert.Equal(t, "", FormatUnits(nil, 18))
}
