package chainclient

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/speedrun-hq/safe-relay-runner/pkg/logger"
)

const rpcTimeout = 10 * time.Second

// Backend is the part of the JSON-RPC client used by Client
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Client wraps a JSON-RPC connection and the key signing plain transactions
type Client struct {
	ChainID       *big.Int
	RPCURL        string
	Backend       Backend
	Auth          *bind.TransactOpts
	GasMultiplier float64
	logger        logger.Logger
}

// New connects to rpcURL and creates a client signing with privateKey
func New(ctx context.Context, rpcURL string, privateKey string, gasMultiplier float64, log logger.Logger) (*Client, error) {
	backend, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", rpcURL, err)
	}

	client, err := NewWithBackend(ctx, backend, privateKey, gasMultiplier, log)
	if err != nil {
		backend.Close()
		return nil, err
	}
	client.RPCURL = rpcURL

	return client, nil
}

// NewWithBackend creates a client on top of an existing backend
func NewWithBackend(ctx context.Context, backend Backend, privateKey string, gasMultiplier float64, log logger.Logger) (*Client, error) {
	if gasMultiplier <= 0 {
		gasMultiplier = 1
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	chainID, err := backend.ChainID(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %v", err)
	}

	client := &Client{
		ChainID:       chainID,
		Backend:       backend,
		GasMultiplier: gasMultiplier,
		logger:        log,
	}

	if privateKey != "" {
		auth, err := createAuthenticator(privateKey, chainID)
		if err != nil {
			return nil, fmt.Errorf("failed to create authenticator: %v", err)
		}
		client.Auth = auth
	}

	return client, nil
}

// Address returns the address of the signing key
func (c *Client) Address() common.Address {
	if c.Auth == nil {
		return common.Address{}
	}
	return c.Auth.From
}

// Close releases the underlying connection when the backend supports it
func (c *Client) Close() {
	if closer, ok := c.Backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

// GetBalance returns the latest balance of address in wei
func (c *Client) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	balance, err := c.Backend.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %v", address.Hex(), err)
	}
	return balance, nil
}

// SuggestGasPrice returns the network gas price with the gas multiplier applied
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	gasPrice, err := c.Backend.SuggestGasPrice(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %v", err)
	}

	// Apply gas multiplier (e.g. 1.1 = 10% buffer)
	multiplied := new(big.Float).Mul(
		new(big.Float).SetInt(gasPrice),
		big.NewFloat(c.GasMultiplier),
	)

	finalGasPrice := new(big.Int)
	multiplied.Int(finalGasPrice)

	return finalGasPrice, nil
}

// SendTransaction signs and broadcasts a transaction from the client key
func (c *Client) SendTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (*PendingTx, error) {
	if c.Auth == nil {
		return nil, errors.New("client has no signing key")
	}
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := c.Backend.PendingNonceAt(ctx, c.Auth.From)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %v", err)
	}

	gasPrice, err := c.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	gasLimit, err := c.Backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.Auth.From,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %v", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	})

	signedTx, err := c.Auth.Signer(c.Auth.From, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %v", err)
	}

	if err := c.Backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %v", err)
	}

	c.logger.Debug("Sent transaction %s (nonce %d, gas %d, gas price %s)",
		signedTx.Hash().Hex(), nonce, gasLimit, gasPrice.String())

	return NewPendingTx(signedTx, c.Backend), nil
}

// TransactionReceipt returns the receipt of hash, or nil if the node has none
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := c.Backend.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt of %s: %v", hash.Hex(), err)
	}
	return receipt, nil
}

// IsContract reports whether code is deployed at address
func IsContract(ctx context.Context, reader bind.ContractCaller, address common.Address) (bool, error) {
	code, err := reader.CodeAt(ctx, address, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get code at %s: %v", address.Hex(), err)
	}
	return len(code) > 0, nil
}

// Helper function to create authenticator
func createAuthenticator(privateKeyHex string, chainID *big.Int) (*bind.TransactOpts, error) {
	privateKey, err := parsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %v", err)
	}

	return auth, nil
}

func parsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}
	return privateKey, nil
}
