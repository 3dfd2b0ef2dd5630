package config

import "strings"

// NetworkConfig holds the static values of a supported network
type NetworkConfig struct {
	Name                     string
	ChainID                  int64
	RPCURL                   string
	ExplorerURL              string
	NativeSymbol             string
	SafeVersion              string
	SafeProxyFactoryAddress  string
	SafeSingletonAddress     string
	MultiSendCallOnlyAddress string
	FallbackHandlerAddress   string
}

const (
	mumbai = "mumbai"
	amoy   = "amoy"

	// Safe v1.3.0 canonical deployments, shared by both test networks

	SafeVersion                  = "1.3.0"
	SafeProxyFactoryAddress      = "0xa6B71E26C5e0845f74c812102Ca7114b6a896AB2"
	SafeSingletonAddress         = "0x3E5c63644E683549055b9Be8653de26E0B4CD36E"
	SafeMultiSendCallOnlyAddress = "0x40A2aCCbd92BCA938b02010E17A5b8929b49130D"
	SafeFallbackHandlerAddress   = "0xf48f2B2d2a534e402487b3ee7C18c33Aec0Fe5e4"
	SafeThreshold                = 1
	DefaultRelayURL              = "https://relay.gelato.digital"
	DefaultRelayStatusURL        = "https://api.gelato.digital"

	// TargetTopic is the SafeSetup event signature emitted by a freshly initialized Safe proxy
	TargetTopic = "0x141df868a6331af528e38c83b7aa03edc19be66e37ae67f9285bf4f8e3c6a1a8"

	// Mumbai

	MumbaiChainID     = 80001
	MumbaiRPCURL      = "https://rpc-mumbai.maticvigil.com/"
	MumbaiExplorerURL = "https://mumbai.polygonscan.com"

	// Amoy

	AmoyChainID     = 80002
	AmoyRPCURL      = "https://rpc-amoy.polygon.technology"
	AmoyExplorerURL = "https://amoy.polygonscan.com"
)

// networks maps network names to their static configuration
var networks = map[string]NetworkConfig{
	mumbai: {
		Name:                     mumbai,
		ChainID:                  MumbaiChainID,
		RPCURL:                   MumbaiRPCURL,
		ExplorerURL:              MumbaiExplorerURL,
		NativeSymbol:             "MATIC",
		SafeVersion:              SafeVersion,
		SafeProxyFactoryAddress:  SafeProxyFactoryAddress,
		SafeSingletonAddress:     SafeSingletonAddress,
		MultiSendCallOnlyAddress: SafeMultiSendCallOnlyAddress,
		FallbackHandlerAddress:   SafeFallbackHandlerAddress,
	},
	amoy: {
		Name:                     amoy,
		ChainID:                  AmoyChainID,
		RPCURL:                   AmoyRPCURL,
		ExplorerURL:              AmoyExplorerURL,
		NativeSymbol:             "POL",
		SafeVersion:              SafeVersion,
		SafeProxyFactoryAddress:  SafeProxyFactoryAddress,
		SafeSingletonAddress:     SafeSingletonAddress,
		MultiSendCallOnlyAddress: SafeMultiSendCallOnlyAddress,
		FallbackHandlerAddress:   SafeFallbackHandlerAddress,
	},
}

// GetNetwork returns the static configuration of a network by name
func GetNetwork(name string) (NetworkConfig, bool) {
	network, exists := networks[strings.ToLower(name)]
	return network, exists
}

// TxURL returns the explorer link of a transaction
func (n NetworkConfig) TxURL(hash string) string {
	return strings.TrimRight(n.ExplorerURL, "/") + "/tx/" + hash
}

// AddressURL returns the explorer link of an address
func (n NetworkConfig) AddressURL(address string) string {
	return strings.TrimRight(n.ExplorerURL, "/") + "/address/" + address
}
