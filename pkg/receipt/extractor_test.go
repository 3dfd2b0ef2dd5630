package receipt

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/speedrun-hq/safe-relay-runner/pkg/config"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addressA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	addressB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	topicT1  = common.HexToHash("0x01")
	topicT2  = common.HexToHash("0x02")
)

// fakeReceipts serves receipts by hash
type fakeReceipts struct {
	receipts map[common.Hash]*types.Receipt
	err      error
	calls    int
}

func (f *fakeReceipts) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.receipts[hash], nil
}

func TestMatchLogs(t *testing.T) {
	logs := []*types.Log{
		{Address: addressA, Topics: []common.Hash{topicT1}},
		{Address: addressB, Topics: []common.Hash{topicT2}},
	}

	tests := []struct {
		name     string
		logs     []*types.Log
		topic    common.Hash
		expected []common.Address
	}{
		{name: "single match", logs: logs, topic: topicT1, expected: []common.Address{addressA}},
		{name: "no match", logs: logs, topic: common.HexToHash("0x03"), expected: []common.Address{}},
		{name: "no logs", logs: nil, topic: topicT1, expected: []common.Address{}},
		{
			name: "multiple matches keep log order",
			logs: []*types.Log{
				{Address: addressB, Topics: []common.Hash{topicT2, topicT1}},
				nil,
				{Address: addressA, Topics: []common.Hash{topicT1, topicT1}},
			},
			topic:    topicT1,
			expected: []common.Address{addressB, addressA},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MatchLogs(tc.logs, tc.topic))
		})
	}
}

func TestExtract(t *testing.T) {
	hash := common.HexToHash("0xdead")
	safe := common.HexToAddress("0x5afe000000000000000000000000000000005afe")
	target := common.HexToHash(config.TargetTopic)

	t.Run("safe setup log", func(t *testing.T) {
		source := &fakeReceipts{receipts: map[common.Hash]*types.Receipt{
			hash: {Logs: []*types.Log{
				{Address: common.HexToAddress(config.SafeProxyFactoryAddress), Topics: []common.Hash{common.HexToHash("0x4f51faf6")}},
				{Address: safe, Topics: []common.Hash{target, common.HexToHash("0x01")}},
			}},
		}}

		addresses, err := NewExtractor(source, target, 80001, nil).Extract(context.Background(), hash)
		require.NoError(t, err)
		assert.Equal(t, []common.Address{safe}, addresses)
	})

	t.Run("receipt without matching log", func(t *testing.T) {
		source := &fakeReceipts{receipts: map[common.Hash]*types.Receipt{hash: {}}}

		addresses, err := NewExtractor(source, target, 80001, nil).Extract(context.Background(), hash)
		require.NoError(t, err)
		assert.Empty(t, addresses)
	})

	t.Run("missing receipt", func(t *testing.T) {
		source := &fakeReceipts{receipts: map[common.Hash]*types.Receipt{}}

		_, err := NewExtractor(source, target, 80001, nil).Extract(context.Background(), hash)
		require.ErrorIs(t, err, models.ErrReceiptUnavailable)
		assert.Equal(t, 1, source.calls, "receipt fetch is not retried")
	})

	t.Run("not found error", func(t *testing.T) {
		source := &fakeReceipts{err: ethereum.NotFound}

		_, err := NewExtractor(source, target, 80001, nil).Extract(context.Background(), hash)
		require.ErrorIs(t, err, models.ErrReceiptUnavailable)
	})

	t.Run("rpc error", func(t *testing.T) {
		source := &fakeReceipts{err: errors.New("rpc down")}

		_, err := NewExtractor(source, target, 80001, nil).Extract(context.Background(), hash)
		require.Error(t, err)
		assert.False(t, models.IsNonFatal(err))
	})
}
