package runner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/safe-relay-runner/pkg/chainclient"
	"github.com/speedrun-hq/safe-relay-runner/pkg/config"
	"github.com/speedrun-hq/safe-relay-runner/pkg/contracts"
	"github.com/speedrun-hq/safe-relay-runner/pkg/encoder"
	"github.com/speedrun-hq/safe-relay-runner/pkg/logger"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
	"github.com/speedrun-hq/safe-relay-runner/pkg/relay"
	"github.com/speedrun-hq/safe-relay-runner/pkg/safe"
)

// Connect loads the ABIs, dials the configured network and creates a runner whose
// plain transactions are signed with privateKey. The caller closes the returned client.
func Connect(ctx context.Context, cfg *config.Config, privateKey string, runID string, log logger.Logger) (*Runner, *chainclient.Client, error) {
	// ABI files are checked before any network call
	abis, err := contracts.LoadSafeABIs(cfg.ABIPaths.ProxyFactory, cfg.ABIPaths.Singleton)
	if err != nil {
		return nil, nil, err
	}

	chain, err := chainclient.New(ctx, cfg.Network.RPCURL, privateKey, cfg.GasMultiplier, log)
	if err != nil {
		return nil, nil, err
	}
	if chain.ChainID.Int64() != cfg.Network.ChainID {
		chain.Close()
		return nil, nil, models.NewConfigError("CHAIN_ID", "RPC endpoint serves chain %s, expected %d",
			chain.ChainID.String(), cfg.Network.ChainID)
	}
	log.Info("Connected to %s (chain %d) at %s", cfg.Network.Name, cfg.Network.ChainID, cfg.Network.RPCURL)

	relayClient := relay.NewClient(relay.ClientConfig{
		RelayURL:          cfg.RelayURL,
		StatusURL:         cfg.RelayStatusURL,
		APIKey:            cfg.RelayAPIKey,
		ChainID:           cfg.Network.ChainID,
		MultiSendCallOnly: common.HexToAddress(cfg.Network.MultiSendCallOnlyAddress),
	}, log)

	return New(cfg, runID, abis, chain, relayClient, log), chain, nil
}

// SafeKit creates the kit of the Safe owned by the configured signer
func (r *Runner) SafeKit(ctx context.Context, caller bind.ContractCaller) (*safe.Kit, error) {
	signer, err := safe.NewPrivateKeySigner(r.cfg.DeployerPrivateKey)
	if err != nil {
		return nil, models.NewConfigError("OWNER_1_PRIVATE_KEY", "%v", err)
	}

	kit, err := safe.NewKit(ctx, caller, r.abis, signer, safe.Config{
		ChainID:           chainID(r.cfg),
		ProxyFactory:      common.HexToAddress(r.cfg.Network.SafeProxyFactoryAddress),
		Singleton:         common.HexToAddress(r.cfg.Network.SafeSingletonAddress),
		MultiSendCallOnly: common.HexToAddress(r.cfg.Network.MultiSendCallOnlyAddress),
		Setup: encoder.SafeSetup{
			Owners:          r.cfg.Safe.Owners,
			Threshold:       r.cfg.Safe.Threshold,
			FallbackHandler: common.HexToAddress(r.cfg.Network.FallbackHandlerAddress),
		},
		SaltNonce: r.cfg.Safe.SaltNonce,
	}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize safe kit: %w", err)
	}

	return kit, nil
}
