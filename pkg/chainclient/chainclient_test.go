package chainclient

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/speedrun-hq/safe-relay-runner/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	sim, account := testutil.SetupSimulation(t)
	ctx := testutil.TestContext(t)

	client, err := NewWithBackend(ctx, sim.Client(), account.PrivateKey, 1.1, nil)
	require.NoError(t, err)

	t.Run("address and chain id", func(t *testing.T) {
		assert.Equal(t, account.Address, client.Address())
		assert.Equal(t, 1, client.ChainID.Sign())
	})

	t.Run("get balance", func(t *testing.T) {
		balance, err := client.GetBalance(ctx, account.Address)
		require.NoError(t, err)
		testutil.AssertBigIntEqual(t, testutil.CreateBigInt("10000000000000000000"), balance)
	})

	t.Run("send transaction and wait", func(t *testing.T) {
		recipient := testutil.GenerateAddress()
		value := big.NewInt(6_000_000_000_000_000)

		pending, err := client.SendTransaction(ctx, recipient, value, nil)
		require.NoError(t, err)
		sim.Commit()

		receipt, err := pending.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
		assert.Equal(t, pending.Hash(), receipt.TxHash)

		balance, err := client.GetBalance(ctx, recipient)
		require.NoError(t, err)
		testutil.AssertBigIntEqual(t, value, balance)

		fetched, err := client.TransactionReceipt(ctx, pending.Hash())
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, receipt.BlockNumber, fetched.BlockNumber)
	})

	t.Run("unknown receipt is nil", func(t *testing.T) {
		receipt, err := client.TransactionReceipt(ctx, common.HexToHash("0xdead"))
		require.NoError(t, err)
		assert.Nil(t, receipt)
	})

	t.Run("wait honours context", func(t *testing.T) {
		pending, err := client.SendTransaction(ctx, testutil.GenerateAddress(), big.NewInt(1), nil)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err = pending.Wait(cancelled)
		require.ErrorIs(t, err, context.Canceled)
		sim.Commit()
	})

	t.Run("externally owned account is not a contract", func(t *testing.T) {
		isContract, err := IsContract(ctx, client.Backend, account.Address)
		require.NoError(t, err)
		assert.False(t, isContract)
	})

	t.Run("gas multiplier", func(t *testing.T) {
		doubled, err := NewWithBackend(ctx, sim.Client(), "", 2, nil)
		require.NoError(t, err)

		base, err := sim.Client().SuggestGasPrice(ctx)
		require.NoError(t, err)

		gasPrice, err := doubled.SuggestGasPrice(ctx)
		require.NoError(t, err)
		testutil.AssertBigIntEqual(t, new(big.Int).Mul(base, big.NewInt(2)), gasPrice)
	})

	t.Run("read-only client cannot send", func(t *testing.T) {
		readOnly, err := NewWithBackend(ctx, sim.Client(), "", 1.1, nil)
		require.NoError(t, err)
		assert.Equal(t, common.Address{}, readOnly.Address())

		_, err = readOnly.SendTransaction(ctx, account.Address, big.NewInt(1), nil)
		require.Error(t, err)
	})
}

func TestNewWithBackendInvalidKey(t *testing.T) {
	sim, _ := testutil.SetupSimulation(t)

	_, err := NewWithBackend(testutil.TestContext(t), sim.Client(), "not-a-key", 1.1, nil)
	require.Error(t, err)
}
