// Package runner drives the deploy and send flows end to end.
package runner

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/speedrun-hq/safe-relay-runner/pkg/chainclient"
	"github.com/speedrun-hq/safe-relay-runner/pkg/config"
	"github.com/speedrun-hq/safe-relay-runner/pkg/contracts"
	"github.com/speedrun-hq/safe-relay-runner/pkg/logger"
	"github.com/speedrun-hq/safe-relay-runner/pkg/metrics"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
	"github.com/speedrun-hq/safe-relay-runner/pkg/receipt"
	"github.com/speedrun-hq/safe-relay-runner/pkg/relay"
)

// Outcome is how a run ended
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeReverted  Outcome = "reverted"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeNoReceipt Outcome = "no_receipt"
	OutcomeFailed    Outcome = "failed"
)

const metricsJobName = "safe_relay_runner"

// Chain is the chain access a run needs
type Chain interface {
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	SendTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (*chainclient.PendingTx, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Relayer submits meta-transactions and reports their task status
type Relayer interface {
	Submit(ctx context.Context, intents []models.TransactionIntent, opts models.RelaySubmissionOptions) (models.RelayTask, error)
	relay.StatusSource
}

// SafeAccount is the Safe a transfer is relayed out of
type SafeAccount interface {
	Address() common.Address
	IsDeployed(ctx context.Context) (bool, error)
	BuildRelayIntent(ctx context.Context, intents []models.TransactionIntent) (models.TransactionIntent, error)
}

// Result summarizes a run
type Result struct {
	RunID           string
	TaskID          string
	TransactionHash string
	Outcome         Outcome
	SafeAddresses   []common.Address
}

// Runner runs the relayed transaction lifecycle for one configuration
type Runner struct {
	cfg       *config.Config
	runID     string
	abis      *contracts.SafeABIs
	chain     Chain
	relayer   Relayer
	poller    *relay.Poller
	extractor *receipt.Extractor
	logger    logger.Logger
}

// NewRunID returns a unique id correlating the logs and metrics of a run
func NewRunID() string {
	return uuid.NewString()
}

// New creates a runner from its collaborators
func New(cfg *config.Config, runID string, abis *contracts.SafeABIs, chain Chain, relayer Relayer, log logger.Logger) *Runner {
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	return &Runner{
		cfg:       cfg,
		runID:     runID,
		abis:      abis,
		chain:     chain,
		relayer:   relayer,
		poller:    relay.NewPoller(relayer, cfg.Poller, cfg.Network.ChainID, log),
		extractor: receipt.NewExtractor(chain, common.HexToHash(config.TargetTopic), cfg.Network.ChainID, log),
		logger:    log,
	}
}

// awaitHash polls the task and turns the non-fatal terminal states into an outcome.
// A hash that came with a reverted task state is reported as OutcomeReverted.
func (r *Runner) awaitHash(ctx context.Context, task models.RelayTask) (relay.PollResult, Outcome, error) {
	result, err := r.poller.Poll(ctx, task)
	if err != nil && !models.IsNonFatal(err) {
		return result, OutcomeFailed, err
	}
	if errors.Is(err, models.ErrPollingExhausted) {
		r.logger.ErrorWithTask(task.TaskID, "Maximum attempts reached. Transaction hash is still undefined.")
		return result, OutcomeExhausted, nil
	}
	if errors.Is(err, models.ErrTaskCancelled) {
		r.logger.ErrorWithTask(task.TaskID, "Relay task was cancelled, no transaction hash available.")
		return result, OutcomeCancelled, nil
	}

	state := result.Status.TaskState
	if state == "" {
		state = "unknown"
	}
	r.logger.NoticeWithTask(task.TaskID, "Transaction hash: %s (task state: %s)",
		r.cfg.Network.TxURL(result.TransactionHash), state)

	if result.Status.TaskState == models.TaskStateExecReverted {
		r.logger.ErrorWithTask(task.TaskID, "Relayed transaction reverted: %s", result.Status.LastCheckMessage)
		return result, OutcomeReverted, nil
	}
	return result, OutcomeCompleted, nil
}

func chainID(cfg *config.Config) *big.Int {
	return big.NewInt(cfg.Network.ChainID)
}

func (r *Runner) taskURL(taskID string) string {
	return strings.TrimRight(r.cfg.RelayStatusURL, "/") + relay.TaskStatusEndpoint + taskID
}

func (r *Runner) formatBalance(wei *big.Int) string {
	return config.FormatEther(wei) + " " + r.cfg.Network.NativeSymbol
}

func (r *Runner) logBalance(ctx context.Context, label string, address common.Address) error {
	balance, err := r.chain.GetBalance(ctx, address)
	if err != nil {
		return err
	}
	r.logger.Info("%s: %s", label, r.formatBalance(balance))
	return nil
}

// Finish records the result of a run and pushes the metrics when a Pushgateway is configured
func (r *Runner) Finish(cmd config.Command, result *Result, err error) {
	outcome := OutcomeFailed
	if err == nil && result != nil {
		outcome = result.Outcome
	}
	metrics.Runs.WithLabelValues(string(cmd), string(outcome)).Inc()

	if pushErr := metrics.Push(r.cfg.PushgatewayURL, metricsJobName, r.runID); pushErr != nil {
		r.logger.Error("%v", pushErr)
	}
}
