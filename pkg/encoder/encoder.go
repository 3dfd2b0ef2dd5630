package encoder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// EncodeCall packs a call of method with positional args against contractABI
func EncodeCall(contractABI abi.ABI, method string, args ...interface{}) ([]byte, error) {
	if _, ok := contractABI.Methods[method]; !ok {
		return nil, &models.EncodingError{Method: method, Err: fmt.Errorf("method not found in ABI")}
	}

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, &models.EncodingError{Method: method, Err: err}
	}
	return data, nil
}

// NewIntent encodes a call and wraps it in a zero-value Call intent targeting destination
func NewIntent(destination common.Address, contractABI abi.ABI, method string, args ...interface{}) (models.TransactionIntent, error) {
	data, err := EncodeCall(contractABI, method, args...)
	if err != nil {
		return models.TransactionIntent{}, err
	}
	return models.NewTransactionIntent(destination, data, big.NewInt(0), models.OperationCall), nil
}
