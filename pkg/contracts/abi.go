package contracts

import (
	"bytes"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/speedrun-hq/safe-relay-runner/pkg/models"
)

// SafeABIs holds the parsed ABIs of the Safe deployment contracts
type SafeABIs struct {
	ProxyFactory abi.ABI
	Singleton    abi.ABI
}

// LoadABI reads and parses an ABI JSON file
func LoadABI(path string) (abi.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, models.NewConfigError(path, "failed to read ABI file: %v", err)
	}

	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, models.NewConfigError(path, "failed to parse ABI: %v", err)
	}
	if len(parsed.Methods) == 0 {
		return abi.ABI{}, models.NewConfigError(path, "ABI declares no methods")
	}

	return parsed, nil
}

// LoadSafeABIs loads the proxy factory and singleton ABIs
func LoadSafeABIs(proxyFactoryPath, singletonPath string) (*SafeABIs, error) {
	factory, err := LoadABI(proxyFactoryPath)
	if err != nil {
		return nil, err
	}
	if _, ok := factory.Methods["createProxyWithNonce"]; !ok {
		return nil, models.NewConfigError(proxyFactoryPath, "ABI has no createProxyWithNonce method")
	}

	singleton, err := LoadABI(singletonPath)
	if err != nil {
		return nil, err
	}
	if _, ok := singleton.Methods["setup"]; !ok {
		return nil, models.NewConfigError(singletonPath, "ABI has no setup method")
	}

	return &SafeABIs{ProxyFactory: factory, Singleton: singleton}, nil
}
