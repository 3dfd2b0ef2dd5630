package relay

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/speedrun-hq/safe-relay-runner/pkg/config"
	"github.com/speedrun-hq/safe-relay-runner/pkg/logger"
	"github.com/speedrun-hq/safe-relay-runner/pkg/metrics"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// errHashPending marks a status fetch that returned no hash yet; it is the only retried outcome
var errHashPending = errors.New("transaction hash not assigned yet")

// StatusSource returns the current status of a relay task
type StatusSource interface {
	TaskStatus(ctx context.Context, taskID string) (models.TaskStatus, error)
}

// PollResult is the outcome of polling a relay task
type PollResult struct {
	TransactionHash string
	Status          models.TaskStatus
	Attempts        int
}

// Poller waits for the relay to assign a transaction hash to a task
type Poller struct {
	source  StatusSource
	cfg     config.PollerConfig
	chainID string
	logger  logger.Logger
}

// NewPoller creates a poller following the given schedule
func NewPoller(source StatusSource, cfg config.PollerConfig, chainID int64, log logger.Logger) *Poller {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Poller{
		source:  source,
		cfg:     cfg,
		chainID: strconv.FormatInt(chainID, 10),
		logger:  log,
	}
}

// Poll waits the warm-up delay, then fetches the task status at most MaxAttempts times,
// Interval apart, until a transaction hash appears.
// It returns models.ErrPollingExhausted when no hash was observed and
// models.ErrTaskCancelled when the relay cancelled the task.
func (p *Poller) Poll(ctx context.Context, task models.RelayTask) (PollResult, error) {
	result := PollResult{}
	if p.cfg.MaxAttempts <= 0 {
		return result, models.NewConfigError("POLL_MAX_ATTEMPTS", "must be greater than 0")
	}

	p.logger.InfoWithTask(task.TaskID, "Waiting %s before checking the relay task status", p.cfg.WarmUp)
	if err := sleepWithContext(ctx, p.cfg.WarmUp); err != nil {
		return result, err
	}

	start := time.Now()
	err := retry.Do(
		func() error {
			result.Attempts++

			status, err := p.source.TaskStatus(ctx, task.TaskID)
			if err != nil {
				return err
			}
			result.Status = status
			metrics.TaskStatusPolls.WithLabelValues(p.chainID, stateLabel(status)).Inc()

			if status.HasHash() {
				result.TransactionHash = status.Hash()
				return nil
			}
			if status.TaskState == models.TaskStateCancelled {
				return models.ErrTaskCancelled
			}

			p.logger.DebugWithTask(task.TaskID, "Attempt %d/%d: no transaction hash yet (state: %s, message: %q)",
				result.Attempts, p.cfg.MaxAttempts, stateLabel(status), status.LastCheckMessage)
			return errHashPending
		},
		retry.Attempts(uint(p.cfg.MaxAttempts)),
		retry.Delay(p.cfg.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errHashPending)
		}),
	)

	switch {
	case err == nil:
		metrics.PollOutcomes.WithLabelValues(p.chainID, metrics.OutcomeResolved).Inc()
		metrics.TimeToHash.WithLabelValues(p.chainID).Observe(time.Since(start).Seconds() + p.cfg.WarmUp.Seconds())
		p.logger.NoticeWithTask(task.TaskID, "Transaction hash %s after %d attempt(s)", result.TransactionHash, result.Attempts)
		return result, nil
	case errors.Is(err, errHashPending):
		metrics.PollOutcomes.WithLabelValues(p.chainID, metrics.OutcomeExhausted).Inc()
		p.logger.ErrorWithTask(task.TaskID, "No transaction hash after %d attempt(s)", result.Attempts)
		return result, models.ErrPollingExhausted
	case errors.Is(err, models.ErrTaskCancelled):
		metrics.PollOutcomes.WithLabelValues(p.chainID, metrics.OutcomeCancelled).Inc()
		p.logger.ErrorWithTask(task.TaskID, "Relay cancelled the task: %s", result.Status.LastCheckMessage)
		return result, models.ErrTaskCancelled
	default:
		metrics.PollOutcomes.WithLabelValues(p.chainID, metrics.OutcomeError).Inc()
		return result, err
	}
}

func stateLabel(status models.TaskStatus) string {
	if status.TaskState == "" {
		return "unknown"
	}
	return status.TaskState
}

// sleepWithContext waits for d unless ctx is done first
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
