package safe

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// Transaction is a Safe transaction before it is signed.
// Gas refund fields are always zero: the relay pays for execution.
type Transaction struct {
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation models.OperationType
	Nonce     *big.Int
}

var safeTxTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"SafeTx": {
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "data", Type: "bytes"},
		{Name: "operation", Type: "uint8"},
		{Name: "safeTxGas", Type: "uint256"},
		{Name: "baseGas", Type: "uint256"},
		{Name: "gasPrice", Type: "uint256"},
		{Name: "gasToken", Type: "address"},
		{Name: "refundReceiver", Type: "address"},
		{Name: "nonce", Type: "uint256"},
	},
}

// TypedData returns the EIP-712 representation of tx for the Safe at safeAddress
func (tx Transaction) TypedData(chainID *big.Int, safeAddress common.Address) apitypes.TypedData {
	value := tx.Value
	if value == nil {
		value = big.NewInt(0)
	}
	nonce := tx.Nonce
	if nonce == nil {
		nonce = big.NewInt(0)
	}
	data := tx.Data
	if data == nil {
		data = []byte{}
	}
	zero := common.Address{}.Hex()

	return apitypes.TypedData{
		Types:       safeTxTypes,
		PrimaryType: "SafeTx",
		Domain: apitypes.TypedDataDomain{
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
			VerifyingContract: safeAddress.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"to":             tx.To.Hex(),
			"value":          (*math.HexOrDecimal256)(new(big.Int).Set(value)),
			"data":           hexutil.Bytes(data),
			"operation":      (*math.HexOrDecimal256)(big.NewInt(int64(tx.Operation))),
			"safeTxGas":      (*math.HexOrDecimal256)(big.NewInt(0)),
			"baseGas":        (*math.HexOrDecimal256)(big.NewInt(0)),
			"gasPrice":       (*math.HexOrDecimal256)(big.NewInt(0)),
			"gasToken":       zero,
			"refundReceiver": zero,
			"nonce":          (*math.HexOrDecimal256)(new(big.Int).Set(nonce)),
		},
	}
}

// Hash returns the EIP-712 hash the Safe owners sign
func (tx Transaction) Hash(chainID *big.Int, safeAddress common.Address) (common.Hash, error) {
	hash, _, err := apitypes.TypedDataAndHash(tx.TypedData(chainID, safeAddress))
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash safe tx: %w", err)
	}
	return common.BytesToHash(hash), nil
}
