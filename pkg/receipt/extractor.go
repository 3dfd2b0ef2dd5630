package receipt

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/speedrun-hq/safe-relay-runner/pkg/logger"
	"github.com/speedrun-hq/safe-relay-runner/pkg/metrics"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// ReceiptSource fetches transaction receipts
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Extractor recovers derived addresses from the logs of a confirmed transaction
type Extractor struct {
	source  ReceiptSource
	topic   common.Hash
	chainID string
	logger  logger.Logger
}

// NewExtractor creates an extractor matching logs carrying topic
func NewExtractor(source ReceiptSource, topic common.Hash, chainID int64, log logger.Logger) *Extractor {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Extractor{
		source:  source,
		topic:   topic,
		chainID: strconv.FormatInt(chainID, 10),
		logger:  log,
	}
}

// Extract fetches the receipt of hash once and returns the emitting address of every matching log.
// A missing receipt is reported as models.ErrReceiptUnavailable.
func (e *Extractor) Extract(ctx context.Context, hash common.Hash) ([]common.Address, error) {
	receipt, err := e.source.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) || (err == nil && receipt == nil) {
		metrics.ReceiptsUnavailable.WithLabelValues(e.chainID).Inc()
		return nil, models.ErrReceiptUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt of %s: %w", hash.Hex(), err)
	}

	addresses := MatchLogs(receipt.Logs, e.topic)
	metrics.ExtractedAddresses.WithLabelValues(e.chainID).Add(float64(len(addresses)))
	e.logger.Debug("Receipt of %s has %d log(s), %d matching topic %s",
		hash.Hex(), len(receipt.Logs), len(addresses), e.topic.Hex())

	return addresses, nil
}

// MatchLogs returns, in log order, the address of every log whose topics contain topic
func MatchLogs(logs []*types.Log, topic common.Hash) []common.Address {
	addresses := make([]common.Address, 0)
	for _, log := range logs {
		if log == nil {
			continue
		}
		for _, t := range log.Topics {
			if t == topic {
				addresses = append(addresses, log.Address)
				break
			}
		}
	}
	return addresses
}
