// Package config loads agentpay settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	agentpay "github.com/x402-foundation/agentpay"
	"github.com/x402-foundation/agentpay/mechanisms/evm"
	"github.com/x402-foundation/agentpay/mechanisms/svm"
)

// Environment variable names
const (
	EnvNetwork          = "AGENTPAY_NETWORK"
	EnvDefaultChain     = "AGENTPAY_DEFAULT_CHAIN"
	EnvBaseRPCURL       = "BASE_RPC_URL"
	EnvSolanaRPCURL     = "SOLANA_RPC_URL"
	EnvEVMPrivateKey    = "EVM_PRIVATE_KEY"
	EnvSolanaPrivateKey = "SOLANA_PRIVATE_KEY"
	EnvLogLevel         = "AGENTPAY_LOG_LEVEL"
	EnvHTTPAddr         = "AGENTPAY_HTTP_ADDR"
	EnvRequestTimeout   = "AGENTPAY_REQUEST_TIMEOUT"
)

// DefaultRequestTimeout bounds a single tool call
const DefaultRequestTimeout = 30 * time.Second

// Config holds every runtime setting
type Config struct {
	Network          string        `mapstructure:"agentpay_network" validate:"oneof=mainnet testnet"`
	DefaultChain     string        `mapstructure:"agentpay_default_chain" validate:"oneof=base solana"`
	BaseRPCURL       string        `mapstructure:"base_rpc_url" validate:"omitempty,url"`
	SolanaRPCURL     string        `mapstructure:"solana_rpc_url" validate:"omitempty,url"`
	EVMPrivateKey    string        `mapstructure:"evm_private_key"`
	SolanaPrivateKey string        `mapstructure:"solana_private_key"`
	LogLevel         string        `mapstructure:"agentpay_log_level" validate:"oneof=debug info warn error"`
	HTTPAddr         string        `mapstructure:"agentpay_http_addr" validate:"omitempty,hostname_port"`
	RequestTimeout   time.Duration `mapstructure:"agentpay_request_timeout" validate:"gt=0"`
}

var validate = validator.New()

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() *Config {
	return &Config{
		Network:        string(agentpay.NetworkTestnet),
		DefaultChain:   string(agentpay.ChainBase),
		LogLevel:       "info",
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Load reads envFiles (".env" when none are given) into the process
// environment, then builds and validates a Config from it. Missing env files
// are ignored; variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault(strings.ToLower(EnvNetwork), defaults.Network)
	v.SetDefault(strings.ToLower(EnvDefaultChain), defaults.DefaultChain)
	v.SetDefault(strings.ToLower(EnvBaseRPCURL), "")
	v.SetDefault(strings.ToLower(EnvSolanaRPCURL), "")
	v.SetDefault(strings.ToLower(EnvEVMPrivateKey), "")
	v.SetDefault(strings.ToLower(EnvSolanaPrivateKey), "")
	v.SetDefault(strings.ToLower(EnvLogLevel), defaults.LogLevel)
	v.SetDefault(strings.ToLower(EnvHTTPAddr), "")
	v.SetDefault(strings.ToLower(EnvRequestTimeout), defaults.RequestTimeout.String())

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Network = strings.ToLower(strings.TrimSpace(c.Network))
	c.DefaultChain = strings.ToLower(strings.TrimSpace(c.DefaultChain))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.BaseRPCURL = strings.TrimSpace(c.BaseRPCURL)
	c.SolanaRPCURL = strings.TrimSpace(c.SolanaRPCURL)
	c.EVMPrivateKey = strings.TrimSpace(c.EVMPrivateKey)
	c.SolanaPrivateKey = strings.TrimSpace(c.SolanaPrivateKey)
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// NetworkValue returns the configured network
func (c *Config) NetworkValue() agentpay.Network {
	return agentpay.Network(c.Network)
}

// Chain returns the configured default chain
func (c *Config) Chain() agentpay.Chain {
	return agentpay.Chain(c.DefaultChain)
}

// RPCURL returns the override for chain, or the network's public endpoint
func (c *Config) RPCURL(chain agentpay.Chain) (string, error) {
	switch chain {
	case agentpay.ChainBase:
		if c.BaseRPCURL != "" {
			return c.BaseRPCURL, nil
		}
		nc, err := evm.GetNetworkConfig(c.NetworkValue())
		if err != nil {
			return "", err
		}
		return nc.RPCURL, nil
	case agentpay.ChainSolana:
		if c.SolanaRPCURL != "" {
			return c.SolanaRPCURL, nil
		}
		nc, err := svm.GetNetworkConfig(c.NetworkValue())
		if err != nil {
			return "", err
		}
		return nc.RPCURL, nil
	default:
		return "", agentpay.ErrChainNotConfigured(chain)
	}
}

// PrivateKey returns the raw key material configured for chain, or ""
func (c *Config) PrivateKey(chain agentpay.Chain) string {
	switch chain {
	case agentpay.ChainBase:
		return c.EVMPrivateKey
	case agentpay.ChainSolana:
		return c.SolanaPrivateKey
	default:
		return ""
	}
}
