package domain

// NetworkID identifies the Flow network that issued an address.
type NetworkID string

const (
	NetworkMainnet  NetworkID = "mainnet"
	NetworkTestnet  NetworkID = "testnet"
	NetworkEmulator NetworkID = "emulator"
	NetworkUnknown  NetworkID = "unknown"
)

// KnownNetworks lists the classifiable networks in classification order.
var KnownNetworks = []NetworkID{NetworkMainnet, NetworkTestnet, NetworkEmulator}

// NetworkToChainID maps a network to the chain id its access nodes report.
var NetworkToChainID = map[NetworkID]string{
	NetworkMainnet:  "flow-mainnet",
	NetworkTestnet:  "flow-testnet",
	NetworkEmulator: "flow-emulator",
}

// ParseNetworkID maps a configuration string to a NetworkID.
// Anything unrecognised is NetworkUnknown.
func ParseNetworkID(s string) NetworkID {
	switch NetworkID(s) {
	case NetworkMainnet, NetworkTestnet, NetworkEmulator:
		return NetworkID(s)
	default:
		return NetworkUnknown
	}
}

// NetworkConfig is the set of endpoints outbound queries use for one network.
type NetworkConfig struct {
	Network         NetworkID `yaml:"network"          json:"network"`
	AccessNode      string    `yaml:"access_node"      json:"access_node"`
	DiscoveryWallet string    `yaml:"discovery_wallet" json:"discovery_wallet"`
	ChainID         string    `yaml:"chain_id"         json:"chain_id"`

	// Contracts maps contract names used in string imports to their address.
	Contracts map[string]string `yaml:"contracts" json:"contracts,omitempty"`
}

// ContractAddress returns the deployment address of a named contract.
func (c NetworkConfig) ContractAddress(name string) (string, bool) {
	addr, ok := c.Contracts[name]
	return addr, ok && addr != ""
}

// DefaultNetworkConfigs returns the public endpoints for every known network.
func DefaultNetworkConfigs() map[NetworkID]NetworkConfig {
	return map[NetworkID]NetworkConfig{
		NetworkMainnet: {
			Network:         NetworkMainnet,
			AccessNode:      "https://rest-mainnet.onflow.org",
			DiscoveryWallet: "https://fcl-discovery.onflow.org/authn",
			ChainID:         NetworkToChainID[NetworkMainnet],
			Contracts: map[string]string{
				"FungibleToken":              "0xf233dcee88fe0abe",
				"FungibleTokenMetadataViews": "0xf233dcee88fe0abe",
			},
		},
		NetworkTestnet: {
			Network:         NetworkTestnet,
			AccessNode:      "https://rest-testnet.onflow.org",
			DiscoveryWallet: "https://fcl-discovery.onflow.org/testnet/authn",
			ChainID:         NetworkToChainID[NetworkTestnet],
			Contracts: map[string]string{
				"FungibleToken":              "0x9a0766d93b6608b7",
				"FungibleTokenMetadataViews": "0x9a0766d93b6608b7",
			},
		},
		NetworkEmulator: {
			Network:         NetworkEmulator,
			AccessNode:      "http://localhost:8888",
			DiscoveryWallet: "http://localhost:8701/fcl/authn",
			ChainID:         NetworkToChainID[NetworkEmulator],
			Contracts: map[string]string{
				"FungibleToken":              "0xee82856bf20e2aa6",
				"FungibleTokenMetadataViews": "0xee82856bf20e2aa6",
				"FtUtils":                    "0xf8d6e0586b0a20c7",
			},
		},
	}
}
