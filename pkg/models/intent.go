package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OperationType is the Safe call type of a meta-transaction
type OperationType uint8

const (
	// OperationCall executes a regular call
	OperationCall OperationType = 0
	// OperationDelegateCall executes the target code in the caller's context
	OperationDelegateCall OperationType = 1
)

// String returns the name of the operation type
func (o OperationType) String() string {
	switch o {
	case OperationCall:
		return "Call"
	case OperationDelegateCall:
		return "DelegateCall"
	default:
		return "Unknown"
	}
}

// TransactionIntent represents a meta-transaction to be relayed
type TransactionIntent struct {
	destination common.Address
	callData    []byte
	value       *big.Int
	operation   OperationType
}

// NewTransactionIntent creates an intent; call data and value are copied so the intent stays immutable
func NewTransactionIntent(destination common.Address, callData []byte, value *big.Int, operation OperationType) TransactionIntent {
	data := make([]byte, len(callData))
	copy(data, callData)

	v := new(big.Int)
	if value != nil {
		v.Set(value)
	}

	return TransactionIntent{
		destination: destination,
		callData:    data,
		value:       v,
		operation:   operation,
	}
}

// Destination returns the target address
func (t TransactionIntent) Destination() common.Address {
	return t.destination
}

// CallData returns a copy of the call data
func (t TransactionIntent) CallData() []byte {
	data := make([]byte, len(t.callData))
	copy(data, t.callData)
	return data
}

// Value returns a copy of the value in wei
func (t TransactionIntent) Value() *big.Int {
	if t.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(t.value)
}

// Operation returns the call type
func (t TransactionIntent) Operation() OperationType {
	return t.operation
}

// RelaySubmissionOptions describes how the relayed transaction is paid for
type RelaySubmissionOptions struct {
	Sponsored bool
}
