package encoder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/safe-relay-runner/pkg/contracts"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// SafeSetup holds the owner configuration a new Safe is initialized with
type SafeSetup struct {
	Owners          []common.Address
	Threshold       int
	FallbackHandler common.Address
}

// Deployment describes a Safe proxy to be created by the proxy factory
type Deployment struct {
	ProxyFactory common.Address
	Singleton    common.Address
	Setup        SafeSetup
	SaltNonce    *big.Int
}

// EncodeSafeSetup encodes the singleton setup call used as proxy initializer.
// Module setup, payment token, payment and payment receiver are left empty.
func EncodeSafeSetup(abis *contracts.SafeABIs, setup SafeSetup) ([]byte, error) {
	if len(setup.Owners) == 0 {
		return nil, &models.EncodingError{Method: "setup", Err: fmt.Errorf("at least one owner is required")}
	}
	if setup.Threshold <= 0 || setup.Threshold > len(setup.Owners) {
		return nil, &models.EncodingError{
			Method: "setup",
			Err:    fmt.Errorf("threshold %d out of range for %d owners", setup.Threshold, len(setup.Owners)),
		}
	}

	return EncodeCall(abis.Singleton, "setup",
		setup.Owners,
		big.NewInt(int64(setup.Threshold)),
		common.Address{},
		[]byte{},
		setup.FallbackHandler,
		common.Address{},
		big.NewInt(0),
		common.Address{},
	)
}

// EncodeCreateProxyWithNonce encodes the factory call deploying a proxy of singleton
func EncodeCreateProxyWithNonce(abis *contracts.SafeABIs, singleton common.Address, initializer []byte, saltNonce *big.Int) ([]byte, error) {
	if saltNonce == nil {
		return nil, &models.EncodingError{Method: "createProxyWithNonce", Err: fmt.Errorf("salt nonce is required")}
	}
	return EncodeCall(abis.ProxyFactory, "createProxyWithNonce", singleton, initializer, saltNonce)
}

// BuildDeploymentIntent builds the intent that deploys and initializes a Safe proxy
func BuildDeploymentIntent(abis *contracts.SafeABIs, deployment Deployment) (models.TransactionIntent, error) {
	initializer, err := EncodeSafeSetup(abis, deployment.Setup)
	if err != nil {
		return models.TransactionIntent{}, err
	}

	data, err := EncodeCreateProxyWithNonce(abis, deployment.Singleton, initializer, deployment.SaltNonce)
	if err != nil {
		return models.TransactionIntent{}, err
	}

	return models.NewTransactionIntent(deployment.ProxyFactory, data, big.NewInt(0), models.OperationCall), nil
}
