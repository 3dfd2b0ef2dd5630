package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ProxyFactory is a read-only binding of the Safe proxy factory
type ProxyFactory struct {
	Address  common.Address
	contract *bind.BoundContract
}

// NewProxyFactory creates a read-only binding of the proxy factory at address
func NewProxyFactory(address common.Address, parsed abi.ABI, caller bind.ContractCaller) *ProxyFactory {
	return &ProxyFactory{
		Address:  address,
		contract: bind.NewBoundContract(address, parsed, caller, nil, nil),
	}
}

// ProxyCreationCode returns the creation code the factory deploys proxies with
func (f *ProxyFactory) ProxyCreationCode(opts *bind.CallOpts) ([]byte, error) {
	var out []interface{}
	if err := f.contract.Call(opts, &out, "proxyCreationCode"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]byte)).(*[]byte), nil
}

// Safe is a read-only binding of a deployed Safe proxy
type Safe struct {
	Address  common.Address
	contract *bind.BoundContract
}

// NewSafe creates a read-only binding of the Safe at address
func NewSafe(address common.Address, parsed abi.ABI, caller bind.ContractCaller) *Safe {
	return &Safe{
		Address:  address,
		contract: bind.NewBoundContract(address, parsed, caller, nil, nil),
	}
}

// Nonce returns the nonce of the next Safe transaction
func (s *Safe) Nonce(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := s.contract.Call(opts, &out, "nonce"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// GetThreshold returns the number of required owner confirmations
func (s *Safe) GetThreshold(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := s.contract.Call(opts, &out, "getThreshold"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// GetOwners returns the owners of the Safe
func (s *Safe) GetOwners(opts *bind.CallOpts) ([]common.Address, error) {
	var out []interface{}
	if err := s.contract.Call(opts, &out, "getOwners"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}
