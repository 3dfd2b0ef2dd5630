package config

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

var (
	// SaltNonceMin is the smallest salt nonce handed out for a deployment
	SaltNonceMin = big.NewInt(1_000)
	// SaltNonceMax is the exclusive upper bound of deployment salt nonces
	SaltNonceMax = big.NewInt(10_000_000_000)
)

// RandomSaltNonce returns an unpredictable salt nonce in [SaltNonceMin, SaltNonceMax)
func RandomSaltNonce() (*big.Int, error) {
	return randomSaltNonce(rand.Reader)
}

func randomSaltNonce(r io.Reader) (*big.Int, error) {
	span := new(big.Int).Sub(SaltNonceMax, SaltNonceMin)
	offset, err := rand.Int(r, span)
	if err != nil {
		return nil, models.NewConfigError("SALT_NONCE", "failed to generate salt nonce: %v", err)
	}
	return saltNonceAt(offset), nil
}

// saltNonceAt maps an offset in [0, span) onto the salt nonce range
func saltNonceAt(offset *big.Int) *big.Int {
	return new(big.Int).Add(SaltNonceMin, offset)
}
