package config

import (
	"time"

	"github.com/vietddude/flowpanel/internal/core/domain"
	redisclient "github.com/vietddude/flowpanel/internal/infra/redis"
	"github.com/vietddude/flowpanel/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Network    string             `yaml:"network"` // initially active network
	Networks   []NetworkOverride  `yaml:"networks"`
	Transfer   TransferConfig     `yaml:"transfer"`
	Submission SubmissionConfig   `yaml:"submission"`
	Seal       SealConfig         `yaml:"seal"`
	History    HistoryConfig      `yaml:"history"`
	Redis      redisclient.Config `yaml:"redis"`
	Logging    LoggingConfig      `yaml:"logging"`
	Database   postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP and gRPC server settings.
type ServerConfig struct {
	Port     int `yaml:"port"`
	GRPCPort int `yaml:"grpc_port"` // 0 = disabled
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// NetworkOverride replaces the default endpoints of one network.
type NetworkOverride struct {
	Name            string `yaml:"name"`
	AccessNode      string `yaml:"access_node"`
	DiscoveryWallet string `yaml:"discovery_wallet"`
	ChainID         string `yaml:"chain_id"`

	Contracts map[string]string `yaml:"contracts"` // merged onto the defaults
}

// TransferConfig controls batch validation and result display.
type TransferConfig struct {
	DwellInterval  time.Duration `yaml:"dwell_interval"`
	StrictReceiver bool          `yaml:"strict_receiver"` // receiver must classify into sender's network
}

// SubmissionConfig points at the wallet service that signs and sends batches.
type SubmissionConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SealConfig controls transaction result polling.
type SealConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Timeout        time.Duration `yaml:"timeout"` // whole wait for one transaction
}

// HistoryConfig controls transfer history retention.
type HistoryConfig struct {
	Retention time.Duration `yaml:"retention"` // 0 = keep forever
}

// NetworkConfigs merges the overrides onto the default endpoints.
func (c *AppConfig) NetworkConfigs() map[domain.NetworkID]domain.NetworkConfig {
	nets := domain.DefaultNetworkConfigs()
	for _, o := range c.Networks {
		id := domain.ParseNetworkID(o.Name)
		if id == domain.NetworkUnknown {
			continue
		}
		nc := nets[id]
		if o.AccessNode != "" {
			nc.AccessNode = o.AccessNode
		}
		if o.DiscoveryWallet != "" {
			nc.DiscoveryWallet = o.DiscoveryWallet
		}
		if o.ChainID != "" {
			nc.ChainID = o.ChainID
		}
		if len(o.Contracts) > 0 {
			merged := make(map[string]string, len(nc.Contracts)+len(o.Contracts))
			for k, v := range nc.Contracts {
				merged[k] = v
			}
			for k, v := range o.Contracts {
				merged[k] = v
			}
			nc.Contracts = merged
		}
		nets[id] = nc
	}
	return nets
}
