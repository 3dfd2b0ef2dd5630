package safe

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer signs EIP-712 typed data on behalf of a Safe owner
type Signer interface {
	Address() common.Address
	SignTypedData(typedData apitypes.TypedData) ([]byte, error)
}

// PrivateKeySigner implements Signer using a local private key.
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewPrivateKeySigner creates a new signer from a hex-encoded private key.
func NewPrivateKeySigner(hexKey string) (*PrivateKeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &PrivateKeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *PrivateKeySigner) Address() common.Address {
	return s.address
}

// SignTypedData signs EIP-712 typed data and normalizes V to 27/28.
func (s *PrivateKeySigner) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	sighash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}

	signature, err := crypto.Sign(sighash, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}

	if signature[64] < 27 {
		signature[64] += 27
	}

	return signature, nil
}
