package testutil

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Constants for testing
const (
	DefaultTestTimeout = 5 * time.Second
)

// Account is a funded key of the simulated chain
type Account struct {
	Key        *ecdsa.PrivateKey
	PrivateKey string
	Address    common.Address
}

// NewAccount generates a random account
func NewAccount(t *testing.T) Account {
	t.Helper()

	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err, "Failed to generate private key")

	return Account{
		Key:        privateKey,
		PrivateKey: hexutil.Encode(crypto.FromECDSA(privateKey))[2:],
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}
}

// SetupSimulation creates a simulated chain where account holds 10 ether
func SetupSimulation(t *testing.T) (*simulated.Backend, Account) {
	t.Helper()

	account := NewAccount(t)

	balance := CreateBigInt("10000000000000000000") // 10 ETH
	//nolint:SA1019 // Using deprecated GenesisAccount for compatibility
	genesisAlloc := map[common.Address]core.GenesisAccount{
		account.Address: {
			Balance: balance,
		},
	}

	sim := simulated.NewBackend(genesisAlloc)
	t.Cleanup(func() {
		_ = sim.Close()
	})

	return sim, account
}

// GenerateAddress creates a random address for testing
func GenerateAddress() common.Address {
	privateKey, _ := crypto.GenerateKey()
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// CreateBigInt parses a string into a big.Int
func CreateBigInt(value string) *big.Int {
	result := new(big.Int)
	result.SetString(value, 10)
	return result
}

// AssertBigIntEqual compares two big.Int values for equality in tests
func AssertBigIntEqual(t *testing.T, expected, actual *big.Int, msgAndArgs ...interface{}) {
	if expected == nil && actual == nil {
		return
	}

	if (expected == nil && actual != nil) || (expected != nil && actual == nil) {
		assert.Fail(t, "Values not equal", msgAndArgs...)
		return
	}

	assert.Equal(t, 0, expected.Cmp(actual), msgAndArgs...)
}

// TestContext returns a context cancelled after DefaultTestTimeout
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	t.Cleanup(cancel)
	return ctx
}
