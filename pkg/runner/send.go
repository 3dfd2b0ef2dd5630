package runner

import (
	"context"
	"strconv"

	"github.com/speedrun-hq/safe-relay-runner/pkg/config"
	"github.com/speedrun-hq/safe-relay-runner/pkg/metrics"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// SendTransaction funds the Safe from the on-ramp account, then relays a sponsored transfer
// of the same value out of the Safe to the recipient
func (r *Runner) SendTransaction(ctx context.Context, account SafeAccount) (*Result, error) {
	if err := validateSendConfig(r.cfg); err != nil {
		return nil, err
	}

	result := &Result{RunID: r.runID}
	network := r.cfg.Network
	value := r.cfg.TransferValue
	chainID := strconv.FormatInt(network.ChainID, 10)

	r.logger.Info("Executing meta-transaction via the relay, sponsored by the relay balance...")

	safeAddress := account.Address()
	deployed, err := account.IsDeployed(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Safe address: %s (deployed: %t)", safeAddress.Hex(), deployed)

	if err := r.logBalance(ctx, "Safe balance", safeAddress); err != nil {
		return nil, err
	}

	r.logger.Info("Funding the Safe with %s", r.formatBalance(value))
	pending, err := r.chain.SendTransaction(ctx, safeAddress, value, nil)
	if err != nil {
		metrics.FundingTransfers.WithLabelValues(chainID, "failed").Inc()
		return nil, err
	}
	r.logger.Debug("Funding transaction: %s", network.TxURL(pending.Hash().Hex()))

	if _, err := pending.Wait(ctx); err != nil {
		metrics.FundingTransfers.WithLabelValues(chainID, "failed").Inc()
		return nil, err
	}
	metrics.FundingTransfers.WithLabelValues(chainID, "success").Inc()

	if err := r.logBalance(ctx, "Safe balance after funding", safeAddress); err != nil {
		return nil, err
	}

	r.logger.Info("Sending %s to %s...", r.formatBalance(value), r.cfg.RecipientAddress.Hex())
	transfer := models.NewTransactionIntent(r.cfg.RecipientAddress, nil, value, models.OperationCall)

	intent, err := account.BuildRelayIntent(ctx, []models.TransactionIntent{transfer})
	if err != nil {
		return nil, err
	}

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

	return result, nil
}

// validateSendConfig checks the values only the send flow reads
func validateSendConfig(cfg *config.Config) error {
	if cfg.TransferValue == nil || cfg.TransferValue.Sign() <= 0 {
		return models.NewConfigError("TRANSFER_VALUE_ETHER", "must be greater than 0")
	}
	if cfg.OnRampPrivateKey == "" {
		return models.NewConfigError("ONRAMP_PRIVATE_KEY", "environment variable is required")
	}
	return nil
}
