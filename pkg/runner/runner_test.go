package runner

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/speedrun-hq/safe-relay-runner/pkg/chainclient"
	"github.com/speedrun-hq/safe-relay-runner/pkg/config"
	"github.com/speedrun-hq/safe-relay-runner/pkg/contracts"
	"github.com/speedrun-hq/safe-relay-runner/pkg/metrics"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
	"github.com/speedrun-hq/safe-relay-runner/pkg/relay"
	"github.com/speedrun-hq/safe-relay-runner/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	proxyFactoryABIPath = "../../abis/SafeProxyFactoryABI.json"
	singletonABIPath    = "../../abis/SafeSingletonABI.json"
)

var (
	relayedHash = common.HexToHash("0x6a1cbe0e0f2bc1b2a3a6b1c9e4ee4ea5b0f1c5f7aa8a0a9d3c3b2e1f00112233")
	safeAddress = common.HexToAddress("0x2eda891667839213a0a7b827b33ff55756d9fc73")
	recipient   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// fakeChain serves balances and receipts, and mines every funding transfer instantly
type fakeChain struct {
	mu           sync.Mutex
	balances     map[common.Address]*big.Int
	receipts     map[common.Hash]*types.Receipt
	receiptCalls map[common.Hash]int
	sent         []*types.Transaction
	sendErr      error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balances:     make(map[common.Address]*big.Int),
		receipts:     make(map[common.Hash]*types.Receipt),
		receiptCalls: make(map[common.Hash]int),
	}
}

func (f *fakeChain) GetBalance(_ context.Context, address common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if balance, ok := f.balances[address]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChain) SendTransaction(_ context.Context, to common.Address, value *big.Int, data []byte) (*chainclient.PendingTx, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}

	f.mu.Lock()
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    uint64(len(f.sent)),
		To:       &to,
		Value:    value,
		Gas:      21000,
		GasPrice: big.NewInt(1),
		Data:     data,
	})
	f.sent = append(f.sent, tx)
	f.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}
	current, ok := f.balances[to]
	if !ok {
		current = big.NewInt(0)
	}
	f.balances[to] = new(big.Int).Add(current, value)
	f.mu.Unlock()

	return chainclient.NewPendingTx(tx, f), nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptCalls[hash]++
	return f.receipts[hash], nil
}

func (f *fakeChain) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	return nil, nil
}

// fakeAccount is a Safe that wraps every transfer in a fixed intent
type fakeAccount struct {
	deployed bool
	intent   models.TransactionIntent
	received []models.TransactionIntent
}

func (a *fakeAccount) Address() common.Address {
	return safeAddress
}

func (a *fakeAccount) IsDeployed(_ context.Context) (bool, error) {
	return a.deployed, nil
}

func (a *fakeAccount) BuildRelayIntent(_ context.Context, intents []models.TransactionIntent) (models.TransactionIntent, error) {
	a.received = append(a.received, intents...)
	return a.intent, nil
}

type relayRequest struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

// startRelay answers submissions with submitStatus and status requests from statuses in order
func startRelay(t *testing.T, submitStatus int, statuses ...string) (*httptest.Server, *[]relayRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []relayRequest
		polls    int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		rec := relayRequest{Method: r.Method, Path: r.URL.Path}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &rec.Body))
		}
		requests = append(requests, rec)

		switch {
		case r.Method == http.MethodPost && submitStatus != http.StatusOK:
			w.WriteHeader(submitStatus)
			_, _ = w.Write([]byte(`{"message":"Unauthorized sponsor"}`))
		case r.Method == http.MethodPost:
			_, _ = w.Write([]byte(`{"taskId":"task-1"}`))
		case strings.HasPrefix(r.URL.Path, relay.TaskStatusEndpoint) && polls < len(statuses):
			_, _ = w.Write([]byte(statuses[polls]))
			polls++
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func hashStatus(hash common.Hash) string {
	return `{"task":{"transactionHash":"` + hash.Hex() + `","taskState":"ExecSuccess"}}`
}

func testConfig(t *testing.T, relayURL string) *config.Config {
	t.Helper()

	network, ok := config.GetNetwork("mumbai")
	require.True(t, ok)

	owner := testutil.NewAccount(t)
	onRamp := testutil.NewAccount(t)

	return &config.Config{
		Network:            network,
		RelayURL:           relayURL,
		RelayStatusURL:     relayURL,
		RelayAPIKey:        "sponsor-key",
		DeployerPrivateKey: owner.PrivateKey,
		OnRampPrivateKey:   onRamp.PrivateKey,
		RecipientAddress:   recipient,
		TransferValue:      big.NewInt(6000000000000000),
		Safe: config.SafeConfig{
			Owners:    []common.Address{owner.Address},
			Threshold: 1,
			SaltNonce: big.NewInt(1234),
		},
		Poller: config.PollerConfig{MaxAttempts: 2},
	}
}

func newTestRunner(t *testing.T, cfg *config.Config, chain Chain) *Runner {
	t.Helper()

	abis, err := contracts.LoadSafeABIs(proxyFactoryABIPath, singletonABIPath)
	require.NoError(t, err)

	relayClient := relay.NewClient(relay.ClientConfig{
		RelayURL:          cfg.RelayURL,
		StatusURL:         cfg.RelayStatusURL,
		APIKey:            cfg.RelayAPIKey,
		ChainID:           cfg.Network.ChainID,
		MultiSendCallOnly: common.HexToAddress(cfg.Network.MultiSendCallOnlyAddress),
	}, nil)

	return New(cfg, "run-1", abis, chain, relayClient, nil)
}

func TestDeploySafe(t *testing.T) {
	topic := common.HexToHash(config.TargetTopic)

	t.Run("extracts the deployed safe", func(t *testing.T) {
		server, requests := startRelay(t, http.StatusOK, `{"task":{"taskState":"CheckPending"}}`, hashStatus(relayedHash))
		cfg := testConfig(t, server.URL)

		chain := newFakeChain()
		chain.receipts[relayedHash] = &types.Receipt{
			Status: types.ReceiptStatusSuccessful,
			Logs: []*types.Log{
				{Address: common.HexToAddress(cfg.Network.SafeProxyFactoryAddress), Topics: []common.Hash{common.HexToHash("0x01")}},
				{Address: safeAddress, Topics: []common.Hash{topic}},
			},
		}

		r := newTestRunner(t, cfg, chain)
		result, err := r.DeploySafe(testutil.TestContext(t))
		require.NoError(t, err)

		assert.Equal(t, OutcomeCompleted, result.Outcome)
		assert.Equal(t, "task-1", result.TaskID)
		assert.Equal(t, relayedHash.Hex(), result.TransactionHash)
		assert.Equal(t, []common.Address{safeAddress}, result.SafeAddresses)
		assert.Equal(t, 1, chain.receiptCalls[relayedHash])

		require.Len(t, *requests, 3, "one submission and two status polls")
		submission := (*requests)[0]
		assert.Equal(t, relay.SponsoredCallEndpoint, submission.Path)
		assert.Equal(t, "80001", submission.Body["chainId"])
		assert.Equal(t, "sponsor-key", submission.Body["sponsorApiKey"])
		assert.True(t, strings.EqualFold(cfg.Network.SafeProxyFactoryAddress, submission.Body["target"].(string)))

		selector := hexutil.Encode(r.abis.ProxyFactory.Methods["createProxyWithNonce"].ID)
		assert.True(t, strings.HasPrefix(submission.Body["data"].(string), selector))
		assert.Equal(t, relay.TaskStatusEndpoint+"task-1", (*requests)[1].Path)
	})

	t.Run("no matching logs", func(t *testing.T) {
		server, _ := startRelay(t, http.StatusOK, hashStatus(relayedHash))
		cfg := testConfig(t, server.URL)

		chain := newFakeChain()
		chain.receipts[relayedHash] = &types.Receipt{Status: types.ReceiptStatusSuccessful}

		result, err := newTestRunner(t, cfg, chain).DeploySafe(testutil.TestContext(t))
		require.NoError(t, err)
		assert.Equal(t, OutcomeCompleted, result.Outcome)
		assert.NotNil(t, result.SafeAddresses)
		assert.Empty(t, result.SafeAddresses)
	})

	t.Run("reverted deployment", func(t *testing.T) {
		server, _ := startRelay(t, http.StatusOK,
			`{"task":{"transactionHash":"`+relayedHash.Hex()+`","taskState":"ExecReverted"}}`)
		cfg := testConfig(t, server.URL)

		chain := newFakeChain()
		chain.receipts[relayedHash] = &types.Receipt{Status: types.ReceiptStatusFailed}

		result, err := newTestRunner(t, cfg, chain).DeploySafe(testutil.TestContext(t))
		require.NoError(t, err)
		assert.Equal(t, OutcomeReverted, result.Outcome)
		assert.Empty(t, result.SafeAddresses)
		assert.Equal(t, 1, chain.receiptCalls[relayedHash])
	})

	t.Run("polling exhausted skips the receipt", func(t *testing.T) {
		server, requests := startRelay(t, http.StatusOK, `{"task":{}}`, `{"task":{}}`, hashStatus(relayedHash))
		cfg := testConfig(t, server.URL)
		chain := newFakeChain()

		result, err := newTestRunner(t, cfg, chain).DeploySafe(testutil.TestContext(t))
		require.NoError(t, err)
		assert.Equal(t, OutcomeExhausted, result.Outcome)
		assert.Empty(t, result.TransactionHash)
		assert.Empty(t, chain.receiptCalls)
		assert.Len(t, *requests, 3)
	})

	t.Run("cancelled task", func(t *testing.T) {
		server, _ := startRelay(t, http.StatusOK, `{"task":{"taskState":"Cancelled","lastCheckMessage":"gas too high"}}`)
		cfg := testConfig(t, server.URL)
		chain := newFakeChain()

		result, err := newTestRunner(t, cfg, chain).DeploySafe(testutil.TestContext(t))
		require.NoError(t, err)
		assert.Equal(t, OutcomeCancelled, result.Outcome)
		assert.Empty(t, chain.receiptCalls)
	})

	t.Run("receipt unavailable", func(t *testing.T) {
		server, _ := startRelay(t, http.StatusOK, hashStatus(relayedHash))
		cfg := testConfig(t, server.URL)
		chain := newFakeChain()

		result, err := newTestRunner(t, cfg, chain).DeploySafe(testutil.TestContext(t))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoReceipt, result.Outcome)
		assert.Equal(t, 1, chain.receiptCalls[relayedHash], "receipt is fetched exactly once")
		assert.Nil(t, result.SafeAddresses)
	})

	t.Run("relay rejection is fatal", func(t *testing.T) {
		server, requests := startRelay(t, http.StatusUnauthorized)
		cfg := testConfig(t, server.URL)

		result, err := newTestRunner(t, cfg, newFakeChain()).DeploySafe(testutil.TestContext(t))
		require.Error(t, err)
		assert.Nil(t, result)

		var relayErr *models.RelayError
		require.ErrorAs(t, err, &relayErr)
		assert.Equal(t, http.StatusUnauthorized, relayErr.StatusCode)
		assert.Len(t, *requests, 1, "submission is never retried")
	})

	t.Run("invalid threshold is rejected before submitting", func(t *testing.T) {
		server, requests := startRelay(t, http.StatusOK)
		cfg := testConfig(t, server.URL)
		cfg.Safe.Threshold = 2

		_, err := newTestRunner(t, cfg, newFakeChain()).DeploySafe(testutil.TestContext(t))
		var encErr *models.EncodingError
		require.ErrorAs(t, err, &encErr)
		assert.Empty(t, *requests)
	})
}

func TestSendTransaction(t *testing.T) {
	relayed := models.NewTransactionIntent(
		common.HexToAddress("0x40A2aCCbd92BCA938b02010E17A5b8929b49130D"), []byte{0x8d, 0x80, 0xff, 0x0a}, nil, models.OperationCall)

	t.Run("funds the safe and relays the transfer", func(t *testing.T) {
		server, requests := startRelay(t, http.StatusOK, hashStatus(relayedHash))
		cfg := testConfig(t, server.URL)
		chain := newFakeChain()
		account := &fakeAccount{intent: relayed}

		result, err := newTestRunner(t, cfg, chain).SendTransaction(testutil.TestContext(t), account)
		require.NoError(t, err)
		assert.Equal(t, OutcomeCompleted, result.Outcome)
		assert.Equal(t, relayedHash.Hex(), result.TransactionHash)

		require.Len(t, chain.sent, 1)
		funding := chain.sent[0]
		assert.Equal(t, safeAddress, *funding.To())
		testutil.AssertBigIntEqual(t, cfg.TransferValue, funding.Value())
		testutil.AssertBigIntEqual(t, cfg.TransferValue, chain.balances[safeAddress])

		require.Len(t, account.received, 1)
		transfer := account.received[0]
		assert.Equal(t, recipient, transfer.Destination())
		testutil.AssertBigIntEqual(t, cfg.TransferValue, transfer.Value())
		assert.Empty(t, transfer.CallData())
		assert.Equal(t, models.OperationCall, transfer.Operation())

		submission := (*requests)[0]
		assert.True(t, strings.EqualFold(relayed.Destination().Hex(), submission.Body["target"].(string)))
		assert.Equal(t, "0x8d80ff0a", submission.Body["data"])
		assert.Empty(t, chain.receiptCalls[relayedHash], "the send flow does not read the relayed receipt")
	})

	t.Run("reverted transfer is reported", func(t *testing.T) {
		server, _ := startRelay(t, http.StatusOK,
			`{"task":{"transactionHash":"`+relayedHash.Hex()+`","taskState":"ExecReverted","lastCheckMessage":"GS013"}}`)
		cfg := testConfig(t, server.URL)

		result, err := newTestRunner(t, cfg, newFakeChain()).SendTransaction(testutil.TestContext(t), &fakeAccount{intent: relayed})
		require.NoError(t, err)
		assert.Equal(t, OutcomeReverted, result.Outcome)
		assert.Equal(t, relayedHash.Hex(), result.TransactionHash)
	})

	t.Run("funding failure stops before relaying", func(t *testing.T) {
		server, requests := startRelay(t, http.StatusOK)
		cfg := testConfig(t, server.URL)
		chain := newFakeChain()
		chain.sendErr = assert.AnError
		account := &fakeAccount{intent: relayed}

		_, err := newTestRunner(t, cfg, chain).SendTransaction(testutil.TestContext(t), account)
		require.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, account.received)
		assert.Empty(t, *requests)
	})

	t.Run("missing transfer value", func(t *testing.T) {
		server, _ := startRelay(t, http.StatusOK)
		cfg := testConfig(t, server.URL)
		cfg.TransferValue = nil
		chain := newFakeChain()

		_, err := newTestRunner(t, cfg, chain).SendTransaction(testutil.TestContext(t), &fakeAccount{intent: relayed})
		var cfgErr *models.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "TRANSFER_VALUE_ETHER", cfgErr.Key)
		assert.Empty(t, chain.sent)
	})
}

func TestFinish(t *testing.T) {
	cfg := testConfig(t, "http://relay.invalid")
	r := newTestRunner(t, cfg, newFakeChain())

	completed := metrics.Runs.WithLabelValues(string(config.CommandDeploySafe), string(OutcomeCompleted))
	failed := metrics.Runs.WithLabelValues(string(config.CommandDeploySafe), string(OutcomeFailed))
	beforeCompleted := promtestutil.ToFloat64(completed)
	beforeFailed := promtestutil.ToFloat64(failed)

	r.Finish(config.CommandDeploySafe, &Result{Outcome: OutcomeCompleted}, nil)
	r.Finish(config.CommandDeploySafe, &Result{Outcome: OutcomeCompleted}, assert.AnError)

	assert.Equal(t, beforeCompleted+1, promtestutil.ToFloat64(completed))
	assert.Equal(t, beforeFailed+1, promtestutil.ToFloat64(failed))
}

func TestNewRunID(t *testing.T) {
	first, second := NewRunID(), NewRunID()
	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}
