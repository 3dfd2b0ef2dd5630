package config

import (
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/speedrun-hq/safe-relay-runner/pkg/logger"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// Command identifies which entry point the configuration is loaded for
type Command string

const (
	// CommandDeploySafe deploys a new Safe through the relay
	CommandDeploySafe Command = "deploy-safe"
	// CommandSendTransaction funds a Safe and relays a transfer out of it
	CommandSendTransaction Command = "send-tx"
)

// Config holds the configuration of a run
type Config struct {
	Network            NetworkConfig
	RelayURL           string
	RelayStatusURL     string
	RelayAPIKey        string
	DeployerPrivateKey string
	OnRampPrivateKey   string
	RecipientAddress   common.Address
	TransferValue      *big.Int
	Safe               SafeConfig
	ABIPaths           ABIPaths
	Poller             PollerConfig
	GasMultiplier      float64
	PushgatewayURL     string
	LoggerConfig       LoggerConfig
}

// SafeConfig describes the Safe account being deployed or used
type SafeConfig struct {
	Owners    []common.Address
	Threshold int
	SaltNonce *big.Int
}

// ABIPaths holds the locations of the contract ABI files
type ABIPaths struct {
	ProxyFactory string
	Singleton    string
}

// PollerConfig holds the relay task polling schedule
type PollerConfig struct {
	WarmUp      time.Duration
	Interval    time.Duration
	MaxAttempts int
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// DeployerAddress returns the address of the deployer key
func (c *Config) DeployerAddress() common.Address {
	return addressOf(c.DeployerPrivateKey)
}

// OnRampAddress returns the address of the on-ramp key
func (c *Config) OnRampAddress() common.Address {
	return addressOf(c.OnRampPrivateKey)
}

func addressOf(hexKey string) common.Address {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(key.PublicKey)
}

// LoadConfig loads the configuration from environment variables
func LoadConfig(cmd Command) (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	network, err := GetEnvNetwork()
	if err != nil {
		return nil, err
	}

	relayURL, err := GetEnvRelayURL()
	if err != nil {
		return nil, err
	}

	relayStatusURL, err := GetEnvRelayStatusURL()
	if err != nil {
		return nil, err
	}

	relayAPIKey, err := GetEnvRelayAPIKey()
	if err != nil {
		return nil, err
	}

	deployerKey, err := GetEnvPrivateKey("OWNER_1_PRIVATE_KEY")
	if err != nil {
		return nil, err
	}

	owners, err := GetEnvSafeOwners(addressOf(deployerKey))
	if err != nil {
		return nil, err
	}

	threshold, err := GetEnvSafeThreshold(len(owners))
	if err != nil {
		return nil, err
	}

	pollerConfig, err := GetEnvPollerConfig()
	if err != nil {
		return nil, err
	}

	gasMultiplier, err := GetEnvGasMultiplier()
	if err != nil {
		return nil, err
	}

	pushgatewayURL, err := GetEnvPushgatewayURL()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Network:            network,
		RelayURL:           relayURL,
		RelayStatusURL:     relayStatusURL,
		RelayAPIKey:        relayAPIKey,
		DeployerPrivateKey: deployerKey,
		Safe: SafeConfig{
			Owners:    owners,
			Threshold: threshold,
		},
		ABIPaths:       GetEnvABIPaths(),
		Poller:         pollerConfig,
		GasMultiplier:  gasMultiplier,
		PushgatewayURL: pushgatewayURL,
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	switch cmd {
	case CommandDeploySafe:
		cfg.Safe.SaltNonce, err = RandomSaltNonce()
		if err != nil {
			return nil, err
		}
	case CommandSendTransaction:
		if err := loadSendConfig(cfg); err != nil {
			return nil, err
		}
	default:
		return nil, models.NewConfigError("", "unknown command: %s", cmd)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSendConfig loads the values only the send command needs
func loadSendConfig(cfg *Config) error {
	// the owner key signs the Safe transfer
	if !containsAddress(cfg.Safe.Owners, cfg.DeployerAddress()) {
		return models.NewConfigError("SAFE_OWNERS", "must include %s, the address of OWNER_1_PRIVATE_KEY", cfg.DeployerAddress().Hex())
	}

	onRampKey, err := GetEnvPrivateKey("ONRAMP_PRIVATE_KEY")
	if err != nil {
		return err
	}
	cfg.OnRampPrivateKey = onRampKey

	expected, err := getEnvAddress("ONRAMP_ADDRESS", "")
	if err != nil {
		return err
	}
	if expected != "" && common.HexToAddress(expected) != cfg.OnRampAddress() {
		return models.NewConfigError("ONRAMP_ADDRESS", "%s does not match the address of ONRAMP_PRIVATE_KEY", expected)
	}

	recipient, err := GetEnvRecipientAddress()
	if err != nil {
		return err
	}
	cfg.RecipientAddress = recipient

	value, err := GetEnvTransferValue()
	if err != nil {
		return err
	}
	cfg.TransferValue = value

	saltNonce, err := GetEnvSafeSaltNonce()
	if err != nil {
		return err
	}
	cfg.Safe.SaltNonce = saltNonce

	return nil
}

func containsAddress(addresses []common.Address, address common.Address) bool {
	for _, a := range addresses {
		if a == address {
			return true
		}
	}
	return false
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.DeployerPrivateKey == "" {
		return models.NewConfigError("OWNER_1_PRIVATE_KEY", "environment variable is required")
	}
	if cfg.RelayAPIKey == "" {
		return models.NewConfigError("GELATO_RELAY_API_KEY", "environment variable is required")
	}
	if len(cfg.Safe.Owners) == 0 {
		return models.NewConfigError("SAFE_OWNERS", "at least one owner is required")
	}
	if cfg.Safe.Threshold <= 0 || cfg.Safe.Threshold > len(cfg.Safe.Owners) {
		return models.NewConfigError("SAFE_THRESHOLD", "must be between 1 and %d", len(cfg.Safe.Owners))
	}
	if cfg.Safe.SaltNonce == nil {
		return models.NewConfigError("SAFE_SALT_NONCE", "salt nonce is required")
	}
	if cfg.Poller.MaxAttempts <= 0 {
		return models.NewConfigError("POLL_MAX_ATTEMPTS", "must be greater than 0")
	}
	return nil
}
