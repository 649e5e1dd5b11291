package events

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revokehq/revokectl/internal/chain"
	"github.com/revokehq/revokectl/internal/token"
)

// fakeFetcher answers FetchLogs from a topic0-keyed map and records every
// filter it sees.
type fakeFetcher struct {
	mu      sync.Mutex
	byTopic map[string][]chain.Log
	filters []chain.Filter
	err     error
}

func (f *fakeFetcher) FetchLogs(_ context.Context, filter chain.Filter) ([]chain.Log, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(filter.Topics) == 0 || filter.Topics[0] == nil {
		return nil, nil
	}
	return f.byTopic[strings.ToLower(*filter.Topics[0])], nil
}

var testOwner = common.HexToAddress("0x0000000000000000000000000000000000001111")

func approvalLog(block uint64) chain.Log {
	return chain.Log{
		Address:     common.HexToAddress("0xaaaa"),
		Topics:      []common.Hash{token.TopicApproval, common.HexToHash(token.AddressTopic(testOwner)), common.HexToHash("0x02")},
		BlockNumber: block,
	}
}

func TestAggregateCollectsFiveStreams(t *testing.T) {
	transferLog := chain.Log{
		Address:     common.HexToAddress("0xaaaa"),
		Topics:      []common.Hash{token.TopicTransfer, common.HexToHash("0x02"), common.HexToHash(token.AddressTopic(testOwner))},
		BlockNumber: 7,
	}
	f := &fakeFetcher{byTopic: map[string][]chain.Log{
		strings.ToLower(token.TopicApproval.Hex()): {approvalLog(9)},
		strings.ToLower(token.TopicTransfer.Hex()): {transferLog},
	}}

	bundle, err := NewAggregator(f, nil).Aggregate(context.Background(), testOwner, "earliest", "latest")
	require.NoError(t, err)

	assert.Len(t, bundle.Approval, 1)
	assert.Empty(t, bundle.ApprovalForAll)
	assert.Empty(t, bundle.Permit2Approval)
	// The transfer topic serves both directions; the fake answers both.
	assert.Len(t, bundle.TransferIn, 1)
	assert.Len(t, bundle.TransferOut, 1)

	// 4 token streams + 3 permit2 queries.
	assert.Len(t, f.filters, 7)

	permit2Queries := 0
	for _, filter := range f.filters {
		if strings.EqualFold(filter.Address, Permit2Address.Hex()) {
			permit2Queries++
		}
	}
	assert.Equal(t, 3, permit2Queries)
}

func TestAggregateFailFast(t *testing.T) {
	f := &fakeFetcher{err: errors.New("rate limited")}
	_, err := NewAggregator(f, nil).Aggregate(context.Background(), testOwner, "earliest", "latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestAggregatePermit2Merged(t *testing.T) {
	mk := func(topic0 common.Hash, block uint64) chain.Log {
		return chain.Log{
			Address:     Permit2Address,
			Topics:      []common.Hash{topic0, common.HexToHash(token.AddressTopic(testOwner)), common.HexToHash("0xaa"), common.HexToHash("0xbb")},
			BlockNumber: block,
		}
	}
	lockdown := chain.Log{
		Address:     Permit2Address,
		Topics:      []common.Hash{TopicPermit2Lockdown, common.HexToHash(token.AddressTopic(testOwner))},
		Data:        make([]byte, 64),
		BlockNumber: 10,
	}
	f := &fakeFetcher{byTopic: map[string][]chain.Log{
		strings.ToLower(TopicPermit2Approval.Hex()): {mk(TopicPermit2Approval, 30)},
		strings.ToLower(TopicPermit2Lockdown.Hex()): {lockdown},
		strings.ToLower(TopicPermit2Permit.Hex()):   {mk(TopicPermit2Permit, 20)},
	}}

	bundle, err := NewAggregator(f, nil).Aggregate(context.Background(), testOwner, "earliest", "latest")
	require.NoError(t, err)

	// Merged into one stream, ordered by block.
	require.Len(t, bundle.Permit2Approval, 3)
	assert.Equal(t, uint64(10), bundle.Permit2Approval[0].BlockNumber)
	assert.Equal(t, uint64(20), bundle.Permit2Approval[1].BlockNumber)
	assert.Equal(t, uint64(30), bundle.Permit2Approval[2].BlockNumber)
}

func TestParsePermit2Log(t *testing.T) {
	tokenAddr := common.HexToAddress("0xaaaa")
	spender := common.HexToAddress("0xbbbb")
	topics := []common.Hash{
		TopicPermit2Approval,
		common.HexToHash(token.AddressTopic(testOwner)),
		common.HexToHash(token.AddressTopic(tokenAddr)),
		common.HexToHash(token.AddressTopic(spender)),
	}

	data := make([]byte, 64)
	big.NewInt(500).FillBytes(data[:32])
	big.NewInt(1900000000).FillBytes(data[32:64])

	ev, ok := ParsePermit2Log(chain.Log{Topics: topics, Data: data})
	require.True(t, ok)
	assert.Equal(t, tokenAddr, ev.Token)
	assert.Equal(t, spender, ev.Spender)
	assert.Equal(t, "500", ev.Amount.String())
	assert.Equal(t, uint64(1900000000), ev.Expiration)

	// Lockdown indexes only the owner: token and spender come from the
	// data payload, and the amount is zero.
	lockData := make([]byte, 64)
	copy(lockData[12:32], tokenAddr.Bytes())
	copy(lockData[44:64], spender.Bytes())
	ev, ok = ParsePermit2Log(chain.Log{
		Topics: []common.Hash{TopicPermit2Lockdown, common.HexToHash(token.AddressTopic(testOwner))},
		Data:   lockData,
	})
	require.True(t, ok)
	assert.Equal(t, tokenAddr, ev.Token)
	assert.Equal(t, spender, ev.Spender)
	assert.Equal(t, int64(0), ev.Amount.Int64())

	// Malformed shapes are rejected.
	_, ok = ParsePermit2Log(chain.Log{Topics: topics[:2], Data: data})
	assert.False(t, ok)
	_, ok = ParsePermit2Log(chain.Log{Topics: topics, Data: []byte{0x01}})
	assert.False(t, ok)
	_, ok = ParsePermit2Log(chain.Log{
		Topics: []common.Hash{TopicPermit2Lockdown, topics[1]},
		Data:   []byte{0x01},
	})
	assert.False(t, ok)
}
