package runner

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/safe-relay-runner/pkg/encoder"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// DeploySafe relays a sponsored deployment of a new Safe and reports the address it was created at
func (r *Runner) DeploySafe(ctx context.Context) (*Result, error) {
	result := &Result{RunID: r.runID}
	network := r.cfg.Network
	if len(r.cfg.Safe.Owners) == 0 {
		return nil, models.NewConfigError("SAFE_OWNERS", "at least one owner is required")
	}
	owner := r.cfg.Safe.Owners[0]

	if err := r.logBalance(ctx, "[BEFORE DEPLOYING] Account balance of the owner", owner); err != nil {
		return nil, err
	}

	intent, err := encoder.BuildDeploymentIntent(r.abis, encoder.Deployment{
		ProxyFactory: common.HexToAddress(network.SafeProxyFactoryAddress),
		Singleton:    common.HexToAddress(network.SafeSingletonAddress),
		Setup: encoder.SafeSetup{
			Owners:    r.cfg.Safe.Owners,
			Threshold: r.cfg.Safe.Threshold,
		},
		SaltNonce: r.cfg.Safe.SaltNonce,
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Deploying Safe v%s now (owners: %d, threshold: %d, salt nonce: %s)...",
		network.SafeVersion, len(r.cfg.Safe.Owners), r.cfg.Safe.Threshold, r.cfg.Safe.SaltNonce.String())

	task, err := r.relayer.Submit(ctx, []models.TransactionIntent{intent}, models.RelaySubmissionOptions{Sponsored: true})
	if err != nil {
		return nil, err
	}
	result.TaskID = task.TaskID
	r.logger.InfoWithTask(task.TaskID, "Relay task: %s", r.taskURL(task.TaskID))

	polled, outcome, err := r.awaitHash(ctx, task)
	result.Outcome = outcome
	if err != nil || polled.TransactionHash == "" {
		return result, err
	}
	result.TransactionHash = polled.TransactionHash

	addresses, err := r.extractor.Extract(ctx, common.HexToHash(result.TransactionHash))
	if errors.Is(err, models.ErrReceiptUnavailable) {
		r.logger.Error("No logs found for the transaction.")
		result.Outcome = OutcomeNoReceipt
		return result, nil
	}
	if err != nil {
		result.Outcome = OutcomeFailed
		return result, err
	}

	result.SafeAddresses = addresses
	if len(addresses) == 0 {
		r.logger.Error("Transaction %s emitted no SafeSetup event", result.TransactionHash)
		return result, nil
	}
	for _, address := range addresses {
		r.logger.Notice("Safe Address: %s", address.Hex())
		r.logger.Notice("View on explorer: %s", network.AddressURL(address.Hex()))
	}

	if err := r.logBalance(ctx, "[AFTER DEPLOYING] Account balance of the owner", owner); err != nil {
		return result, err
	}

	return result, nil
}
