package config

import (
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/speedrun-hq/safe-relay-runner/pkg/logger"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

const (
	// DefaultNetwork is the default test network to connect to
	DefaultNetwork = mumbai

	// DefaultPollWarmUp is the wait between submission and the first status check
	DefaultPollWarmUp = 30 * time.Second

	// DefaultPollInterval is the wait between two status checks
	DefaultPollInterval = 3 * time.Second

	// DefaultPollMaxAttempts is the number of status checks before giving up
	DefaultPollMaxAttempts = 2

	// DefaultTransferValueEther is the amount funded into the Safe and sent out of it
	DefaultTransferValueEther = "0.006"

	// DefaultGasMultiplier is applied to the suggested gas price of plain transfers
	DefaultGasMultiplier = 1.1

	// DefaultProxyFactoryABIPath is the location of the Safe proxy factory ABI
	DefaultProxyFactoryABIPath = "abis/SafeProxyFactoryABI.json"

	// DefaultSingletonABIPath is the location of the Safe singleton ABI
	DefaultSingletonABIPath = "abis/SafeSingletonABI.json"

	// DefaultLogLevel defines the default logging level
	DefaultLogLevel = "info"

	// DefaultLogColoring defines whether log prefixes are colored
	DefaultLogColoring = true

	// PredeterminedSaltSeed seeds the salt nonce of the Safe predicted for the signer
	PredeterminedSaltSeed = "Safe Account Abstraction"
)

// GetEnvNetwork returns the static configuration of the selected network
func GetEnvNetwork() (NetworkConfig, error) {
	name := os.Getenv("NETWORK")
	if name == "" {
		name = DefaultNetwork
	}

	network, exists := GetNetwork(name)
	if !exists {
		return NetworkConfig{}, models.NewConfigError("NETWORK", "invalid value: %s, must be '%s' or '%s'", name, mumbai, amoy)
	}

	if rpc := os.Getenv("RPC_URL"); rpc != "" {
		if _, err := url.ParseRequestURI(rpc); err != nil {
			return NetworkConfig{}, models.NewConfigError("RPC_URL", "invalid value: %s, must be a valid URL", rpc)
		}
		network.RPCURL = rpc
	}

	if chainID := os.Getenv("CHAIN_ID"); chainID != "" {
		id, err := strconv.ParseInt(chainID, 10, 64)
		if err != nil || id <= 0 {
			return NetworkConfig{}, models.NewConfigError("CHAIN_ID", "invalid value: %s, must be a positive integer", chainID)
		}
		network.ChainID = id
	}

	overrides := []struct {
		key    string
		target *string
	}{
		{"SAFE_PROXY_FACTORY_ADDRESS", &network.SafeProxyFactoryAddress},
		{"SAFE_SINGLETON_ADDRESS", &network.SafeSingletonAddress},
		{"SAFE_MULTISEND_CALL_ONLY_ADDRESS", &network.MultiSendCallOnlyAddress},
		{"SAFE_FALLBACK_HANDLER_ADDRESS", &network.FallbackHandlerAddress},
	}
	for _, o := range overrides {
		value, err := getEnvAddress(o.key, *o.target)
		if err != nil {
			return NetworkConfig{}, err
		}
		*o.target = value
	}

	return network, nil
}

// GetEnvRelayURL returns the base URL of the relay submission API
func GetEnvRelayURL() (string, error) {
	return getEnvURL("RELAY_URL", DefaultRelayURL)
}

// GetEnvRelayStatusURL returns the base URL of the relay task status API
func GetEnvRelayStatusURL() (string, error) {
	return getEnvURL("RELAY_STATUS_URL", DefaultRelayStatusURL)
}

// GetEnvRelayAPIKey returns the relay sponsor API key
func GetEnvRelayAPIKey() (string, error) {
	key := os.Getenv("GELATO_RELAY_API_KEY")
	if key == "" {
		return "", models.NewConfigError("GELATO_RELAY_API_KEY", "environment variable is required")
	}
	return key, nil
}

// GetEnvPrivateKey returns a required hex private key, without 0x prefix
func GetEnvPrivateKey(name string) (string, error) {
	key := strings.TrimPrefix(os.Getenv(name), "0x")
	if key == "" {
		return "", models.NewConfigError(name, "environment variable is required")
	}
	if _, err := crypto.HexToECDSA(key); err != nil {
		return "", models.NewConfigError(name, "invalid private key: %v", err)
	}
	return key, nil
}

// GetEnvSafeOwners returns the Safe owner list, defaulting to the given signer
func GetEnvSafeOwners(signer common.Address) ([]common.Address, error) {
	raw := os.Getenv("SAFE_OWNERS")
	if raw == "" {
		return []common.Address{signer}, nil
	}

	var owners []common.Address
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if !common.IsHexAddress(part) {
			return nil, models.NewConfigError("SAFE_OWNERS", "invalid owner address: %s", part)
		}
		owners = append(owners, common.HexToAddress(part))
	}
	return owners, nil
}

// GetEnvSafeThreshold returns the number of owner approvals required by the Safe
func GetEnvSafeThreshold(owners int) (int, error) {
	threshold := os.Getenv("SAFE_THRESHOLD")
	if threshold == "" {
		return SafeThreshold, nil
	}

	value, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, models.NewConfigError("SAFE_THRESHOLD", "invalid value: %s, must be an integer", threshold)
	}
	if value <= 0 || value > owners {
		return 0, models.NewConfigError("SAFE_THRESHOLD", "must be between 1 and the number of owners (%d)", owners)
	}
	return value, nil
}

// GetEnvSafeSaltNonce returns the salt nonce of the signer's predicted Safe
func GetEnvSafeSaltNonce() (*big.Int, error) {
	raw := os.Getenv("SAFE_SALT_NONCE")
	if raw == "" {
		return crypto.Keccak256Hash([]byte(PredeterminedSaltSeed)).Big(), nil
	}

	nonce, ok := new(big.Int).SetString(raw, 0)
	if !ok || nonce.Sign() < 0 {
		return nil, models.NewConfigError("SAFE_SALT_NONCE", "invalid value: %s, must be a non-negative integer", raw)
	}
	return nonce, nil
}

// GetEnvABIPaths returns the locations of the Safe ABI files
func GetEnvABIPaths() ABIPaths {
	paths := ABIPaths{
		ProxyFactory: os.Getenv("SAFE_PROXY_FACTORY_ABI_PATH"),
		Singleton:    os.Getenv("SAFE_SINGLETON_ABI_PATH"),
	}
	if paths.ProxyFactory == "" {
		paths.ProxyFactory = DefaultProxyFactoryABIPath
	}
	if paths.Singleton == "" {
		paths.Singleton = DefaultSingletonABIPath
	}
	return paths
}

// GetEnvRecipientAddress returns the receiver of the Safe transfer
func GetEnvRecipientAddress() (common.Address, error) {
	recipient := os.Getenv("RECIPIENT_ADDRESS")
	if recipient == "" {
		return common.Address{}, models.NewConfigError("RECIPIENT_ADDRESS", "environment variable is required")
	}
	if !common.IsHexAddress(recipient) {
		return common.Address{}, models.NewConfigError("RECIPIENT_ADDRESS", "invalid value: %s, must be a valid Ethereum address", recipient)
	}
	return common.HexToAddress(recipient), nil
}

// GetEnvTransferValue returns the transfer amount in wei
func GetEnvTransferValue() (*big.Int, error) {
	raw := os.Getenv("TRANSFER_VALUE_ETHER")
	if raw == "" {
		raw = DefaultTransferValueEther
	}

	wei, err := ParseEther(raw)
	if err != nil {
		return nil, models.NewConfigError("TRANSFER_VALUE_ETHER", "%v", err)
	}
	return wei, nil
}

// GetEnvPollerConfig returns the relay task polling schedule
func GetEnvPollerConfig() (PollerConfig, error) {
	warmUp, err := getEnvDuration("POLL_WARMUP", DefaultPollWarmUp)
	if err != nil {
		return PollerConfig{}, err
	}

	interval, err := getEnvDuration("POLL_INTERVAL", DefaultPollInterval)
	if err != nil {
		return PollerConfig{}, err
	}

	maxAttempts := DefaultPollMaxAttempts
	if raw := os.Getenv("POLL_MAX_ATTEMPTS"); raw != "" {
		maxAttempts, err = strconv.Atoi(raw)
		if err != nil {
			return PollerConfig{}, models.NewConfigError("POLL_MAX_ATTEMPTS", "invalid value: %s, must be an integer", raw)
		}
		if maxAttempts <= 0 {
			return PollerConfig{}, models.NewConfigError("POLL_MAX_ATTEMPTS", "must be greater than 0")
		}
	}

	return PollerConfig{
		WarmUp:      warmUp,
		Interval:    interval,
		MaxAttempts: maxAttempts,
	}, nil
}

// GetEnvGasMultiplier returns the buffer applied to the suggested gas price
func GetEnvGasMultiplier() (float64, error) {
	raw := os.Getenv("GAS_MULTIPLIER")
	if raw == "" {
		return DefaultGasMultiplier, nil
	}

	multiplier, err := strconv.ParseFloat(raw, 64)
	if err != nil || multiplier <= 0 {
		return 0, models.NewConfigError("GAS_MULTIPLIER", "invalid value: %s, must be a positive number", raw)
	}
	return multiplier, nil
}

// GetEnvPushgatewayURL returns the optional Prometheus Pushgateway URL
func GetEnvPushgatewayURL() (string, error) {
	return getEnvURL("PUSHGATEWAY_URL", "")
}

// GetEnvLogLevel returns the logging level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	raw := os.Getenv("LOG_LEVEL")
	if raw == "" {
		raw = DefaultLogLevel
	}

	level, err := logger.ParseLevel(raw)
	if err != nil {
		return 0, models.NewConfigError("LOG_LEVEL", "invalid value: %s, must be 'debug', 'info', 'notice' or 'error'", raw)
	}
	return level, nil
}

// GetEnvLogColoring returns whether log prefixes are colored
func GetEnvLogColoring() (bool, error) {
	enabled := os.Getenv("LOG_COLORING")
	if enabled == "" {
		return DefaultLogColoring, nil
	}

	if enabled == "true" {
		return true, nil
	} else if enabled == "false" {
		return false, nil
	}

	return false, models.NewConfigError("LOG_COLORING", "invalid value: %s, must be 'true' or 'false'", enabled)
}

// ParseEther converts a decimal ether amount into wei
func ParseEther(amount string) (*big.Int, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, models.NewConfigError("", "invalid ether amount: %s", amount)
	}
	if value.Sign() < 0 {
		return nil, models.NewConfigError("", "ether amount must not be negative: %s", amount)
	}

	wei := value.Shift(18)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, models.NewConfigError("", "ether amount has more than 18 decimals: %s", amount)
	}
	return wei.BigInt(), nil
}

// FormatEther converts wei into a decimal ether string
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}

func getEnvURL(name string, fallback string) (string, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}

	if _, err := url.ParseRequestURI(raw); err != nil {
		return "", models.NewConfigError(name, "invalid value: %s, must be a valid URL", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func getEnvAddress(name string, fallback string) (string, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}

	if !common.IsHexAddress(raw) {
		return "", models.NewConfigError(name, "invalid value: %s, must be a valid Ethereum address", raw)
	}
	return raw, nil
}

func getEnvDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, models.NewConfigError(name, "invalid value: %s, must be a valid duration string", raw)
	}
	if parsed < 0 {
		return 0, models.NewConfigError(name, "must not be negative")
	}
	return parsed, nil
}
