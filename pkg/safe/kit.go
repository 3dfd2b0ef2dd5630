package safe

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/speedrun-hq/safe-relay-runner/pkg/chainclient"
	"github.com/speedrun-hq/safe-relay-runner/pkg/contracts"
	"github.com/speedrun-hq/safe-relay-runner/pkg/encoder"
	"github.com/speedrun-hq/safe-relay-runner/pkg/logger"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// Config describes the Safe a Kit operates on
type Config struct {
	ChainID           *big.Int
	ProxyFactory      common.Address
	Singleton         common.Address
	MultiSendCallOnly common.Address
	Setup             encoder.SafeSetup
	SaltNonce         *big.Int
}

// Kit builds and signs relayed transactions for a single-owner-threshold Safe
type Kit struct {
	cfg     Config
	abis    *contracts.SafeABIs
	caller  bind.ContractCaller
	signer  Signer
	address common.Address
	logger  logger.Logger
}

// NewKit creates a Kit and predicts the address of the Safe described by cfg
func NewKit(ctx context.Context, caller bind.ContractCaller, abis *contracts.SafeABIs, signer Signer, cfg Config, log logger.Logger) (*Kit, error) {
	if cfg.ChainID == nil {
		return nil, fmt.Errorf("chain ID is required")
	}
	if !isOwner(cfg.Setup.Owners, signer.Address()) {
		return nil, models.NewConfigError("SAFE_OWNERS", "signer %s is not one of the Safe owners", signer.Address().Hex())
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	k := &Kit{
		cfg:    cfg,
		abis:   abis,
		caller: caller,
		signer: signer,
		logger: log,
	}

	factory := contracts.NewProxyFactory(cfg.ProxyFactory, abis.ProxyFactory, caller)
	creationCode, err := factory.ProxyCreationCode(&bind.CallOpts{Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy creation code: %v", err)
	}

	address, err := k.predictAddress(creationCode)
	if err != nil {
		return nil, err
	}
	k.address = address

	return k, nil
}

// predictAddress derives the CREATE2 address the factory deploys the Safe at
func (k *Kit) predictAddress(creationCode []byte) (common.Address, error) {
	initializer, err := encoder.EncodeSafeSetup(k.abis, k.cfg.Setup)
	if err != nil {
		return common.Address{}, err
	}
	if k.cfg.SaltNonce == nil {
		return common.Address{}, fmt.Errorf("salt nonce is required")
	}

	return PredictSafeAddress(k.cfg.ProxyFactory, k.cfg.Singleton, creationCode, initializer, k.cfg.SaltNonce), nil
}

// PredictSafeAddress computes the address createProxyWithNonce deploys a proxy at
func PredictSafeAddress(factory, singleton common.Address, creationCode, initializer []byte, saltNonce *big.Int) common.Address {
	salt := crypto.Keccak256(
		crypto.Keccak256(initializer),
		math.U256Bytes(new(big.Int).Set(saltNonce)),
	)

	initCode := make([]byte, 0, len(creationCode)+common.HashLength)
	initCode = append(initCode, creationCode...)
	initCode = append(initCode, common.LeftPadBytes(singleton.Bytes(), common.HashLength)...)

	return crypto.CreateAddress2(factory, common.BytesToHash(salt), crypto.Keccak256(initCode))
}

// Address returns the predicted Safe address
func (k *Kit) Address() common.Address {
	return k.address
}

// IsDeployed reports whether the Safe proxy has code on chain
func (k *Kit) IsDeployed(ctx context.Context) (bool, error) {
	return chainclient.IsContract(ctx, k.caller, k.address)
}

// readNonce returns the nonce of the next transaction of the deployed Safe
func (k *Kit) readNonce(ctx context.Context) (*big.Int, error) {
	nonce, err := contracts.NewSafe(k.address, k.abis.Singleton, k.caller).Nonce(&bind.CallOpts{Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("failed to read safe nonce: %v", err)
	}
	return nonce, nil
}

// checkOwnership verifies on chain that the signer alone can execute transactions of the deployed Safe
func (k *Kit) checkOwnership(ctx context.Context) error {
	deployed := contracts.NewSafe(k.address, k.abis.Singleton, k.caller)
	opts := &bind.CallOpts{Context: ctx}

	owners, err := deployed.GetOwners(opts)
	if err != nil {
		return fmt.Errorf("failed to read safe owners: %v", err)
	}
	if !isOwner(owners, k.signer.Address()) {
		return fmt.Errorf("signer %s is not an owner of safe %s", k.signer.Address().Hex(), k.address.Hex())
	}

	threshold, err := deployed.GetThreshold(opts)
	if err != nil {
		return fmt.Errorf("failed to read safe threshold: %v", err)
	}
	if threshold.Cmp(big.NewInt(1)) != 0 {
		return fmt.Errorf("safe %s requires %s signatures", k.address.Hex(), threshold.String())
	}
	return nil
}

func isOwner(owners []common.Address, address common.Address) bool {
	for _, owner := range owners {
		if owner == address {
			return true
		}
	}
	return false
}

// DeploymentIntent returns the intent deploying the Safe through the proxy factory
func (k *Kit) DeploymentIntent() (models.TransactionIntent, error) {
	return encoder.BuildDeploymentIntent(k.abis, encoder.Deployment{
		ProxyFactory: k.cfg.ProxyFactory,
		Singleton:    k.cfg.Singleton,
		Setup:        k.cfg.Setup,
		SaltNonce:    k.cfg.SaltNonce,
	})
}

// BuildTransaction turns intents into one Safe transaction with the given nonce.
// Several intents are batched as a delegate call to MultiSendCallOnly.
func (k *Kit) BuildTransaction(intents []models.TransactionIntent, nonce *big.Int) (Transaction, error) {
	if len(intents) == 0 {
		return Transaction{}, &models.EncodingError{Method: "execTransaction", Err: fmt.Errorf("no transactions to execute")}
	}

	intent := intents[0]
	if len(intents) > 1 {
		batch, err := encoder.BuildMultiSendIntent(k.cfg.MultiSendCallOnly, intents, models.OperationDelegateCall)
		if err != nil {
			return Transaction{}, err
		}
		intent = batch
	}

	return Transaction{
		To:        intent.Destination(),
		Value:     intent.Value(),
		Data:      intent.CallData(),
		Operation: intent.Operation(),
		Nonce:     nonce,
	}, nil
}

// Sign returns the owner signature of tx, packed as r || s || v
func (k *Kit) Sign(tx Transaction) ([]byte, error) {
	if k.cfg.Setup.Threshold > 1 {
		return nil, fmt.Errorf("safe threshold %d needs more than one signature", k.cfg.Setup.Threshold)
	}

	hash, err := tx.Hash(k.cfg.ChainID, k.address)
	if err != nil {
		return nil, fmt.Errorf("hash safe tx: %w", err)
	}

	signature, err := k.signer.SignTypedData(tx.TypedData(k.cfg.ChainID, k.address))
	if err != nil {
		return nil, fmt.Errorf("sign safe tx: %w", err)
	}
	if len(signature) != crypto.SignatureLength {
		return nil, fmt.Errorf("invalid signature length: expected %d bytes, got %d", crypto.SignatureLength, len(signature))
	}

	// the Safe expects v in {27, 28}, ecrecover wants {0, 1}
	recoverable := append([]byte{}, signature...)
	recoverable[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(hash.Bytes(), recoverable)
	if err != nil || crypto.PubkeyToAddress(*pub) != k.signer.Address() {
		return nil, fmt.Errorf("signature of safe tx %s does not recover to %s", hash.Hex(), k.signer.Address().Hex())
	}

	k.logger.Debug("Signed safe tx %s (nonce %s)", hash.Hex(), tx.Nonce.String())
	return signature, nil
}

// execArgs are the execTransaction arguments of a signed Safe transaction without refund
func execArgs(tx Transaction, signatures []byte) []interface{} {
	value := tx.Value
	if value == nil {
		value = big.NewInt(0)
	}
	data := tx.Data
	if data == nil {
		data = []byte{}
	}

	return []interface{}{
		tx.To,
		value,
		data,
		uint8(tx.Operation),
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
		common.Address{},
		common.Address{},
		signatures,
	}
}

// BuildRelayIntent signs intents as a Safe transaction and returns the intent the relay submits.
// An undeployed Safe is created and used in the same relayed transaction.
func (k *Kit) BuildRelayIntent(ctx context.Context, intents []models.TransactionIntent) (models.TransactionIntent, error) {
	deployed, err := k.IsDeployed(ctx)
	if err != nil {
		return models.TransactionIntent{}, err
	}

	nonce := big.NewInt(0)
	if deployed {
		if err := k.checkOwnership(ctx); err != nil {
			return models.TransactionIntent{}, err
		}
		if nonce, err = k.readNonce(ctx); err != nil {
			return models.TransactionIntent{}, err
		}
	}

	tx, err := k.BuildTransaction(intents, nonce)
	if err != nil {
		return models.TransactionIntent{}, err
	}

	signature, err := k.Sign(tx)
	if err != nil {
		return models.TransactionIntent{}, err
	}

	exec, err := encoder.NewIntent(k.address, k.abis.Singleton, "execTransaction", execArgs(tx, signature)...)
	if err != nil {
		return models.TransactionIntent{}, err
	}

	if deployed {
		k.logger.Debug("Safe %s is deployed, executing with nonce %s", k.address.Hex(), nonce.String())
		return exec, nil
	}

	k.logger.Info("Safe %s is not deployed yet, batching deployment with the transaction", k.address.Hex())
	deployment, err := k.DeploymentIntent()
	if err != nil {
		return models.TransactionIntent{}, err
	}

	return encoder.BuildMultiSendIntent(k.cfg.MultiSendCallOnly, []models.TransactionIntent{deployment, exec}, models.OperationCall)
}
