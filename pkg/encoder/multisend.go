package encoder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/speedrun-hq/safe-relay-runner/pkg/contracts"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// PackMultiSendTransactions packs intents in the MultiSend transaction layout:
// operation (1 byte), to (20 bytes), value (32 bytes), data length (32 bytes), data.
func PackMultiSendTransactions(intents []models.TransactionIntent) []byte {
	out := make([]byte, 0)
	for _, intent := range intents {
		data := intent.CallData()

		out = append(out, byte(intent.Operation()))
		out = append(out, intent.Destination().Bytes()...)
		out = append(out, math.U256Bytes(intent.Value())...)
		out = append(out, math.U256Bytes(big.NewInt(int64(len(data))))...)
		out = append(out, data...)
	}
	return out
}

// EncodeMultiSend encodes the multiSend call batching intents
func EncodeMultiSend(intents []models.TransactionIntent) ([]byte, error) {
	if len(intents) == 0 {
		return nil, &models.EncodingError{Method: "multiSend", Err: fmt.Errorf("no transactions to batch")}
	}
	return EncodeCall(contracts.MultiSendABI, "multiSend", PackMultiSendTransactions(intents))
}

// BuildMultiSendIntent batches intents into a single intent for the MultiSendCallOnly contract.
// The batch must be reached with a delegate call when executed from a Safe.
func BuildMultiSendIntent(multiSend common.Address, intents []models.TransactionIntent, operation models.OperationType) (models.TransactionIntent, error) {
	for i, intent := range intents {
		if intent.Operation() != models.OperationCall {
			return models.TransactionIntent{}, &models.EncodingError{
				Method: "multiSend",
				Err:    fmt.Errorf("transaction %d: MultiSendCallOnly does not support %s", i, intent.Operation()),
			}
		}
	}

	data, err := EncodeMultiSend(intents)
	if err != nil {
		return models.TransactionIntent{}, err
	}
	return models.NewTransactionIntent(multiSend, data, big.NewInt(0), operation), nil
}
