package chainclient

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// PendingTx is a broadcast transaction that can be awaited
type PendingTx struct {
	Tx      *types.Transaction
	backend bind.DeployBackend
}

// NewPendingTx tracks tx, waiting for its receipt on backend
func NewPendingTx(tx *types.Transaction, backend bind.DeployBackend) *PendingTx {
	return &PendingTx{Tx: tx, backend: backend}
}

// Hash returns the transaction hash
func (p *PendingTx) Hash() common.Hash {
	return p.Tx.Hash()
}

// Wait blocks until the transaction is mined or ctx is done
func (p *PendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, p.backend, p.Tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", p.Tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("transaction %s reverted", p.Tx.Hash().Hex())
	}
	return receipt, nil
}
