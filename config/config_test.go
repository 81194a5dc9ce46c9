package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentpay "github.com/x402-foundation/agentpay"
)

var allEnv = []string{
	EnvNetwork, EnvDefaultChain, EnvBaseRPCURL, EnvSolanaRPCURL, EnvEVMPrivateKey,
	EnvSolanaPrivateKey, EnvLogLevel, EnvHTTPAddr, EnvRequestTimeout,
}

// clearEnv unsets every agentpay variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnv {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, agentpay.NetworkTestnet, cfg.NetworkValue())
	assert.Equal(t, agentpay.ChainBase, cfg.Chain())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Empty(t, cfg.PrivateKey(agentpay.ChainBase))

	base, err := cfg.RPCURL(agentpay.ChainBase)
	require.NoError(t, err)
	assert.Equal(t, "https://sepolia.base.org", base)

	sol, err := cfg.RPCURL(agentpay.ChainSolana)
	require.NoError(t, err)
	assert.Equal(t, "https://api.devnet.solana.com", sol)

	_, err = cfg.RPCURL("tron")
	assert.True(t, agentpay.IsCode(err, agentpay.ErrCodeNotFound))
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvNetwork, "MAINNET")
	t.Setenv(EnvDefaultChain, "solana")
	t.Setenv(EnvBaseRPCURL, "https://base.example.com/rpc")
	t.Setenv(EnvEVMPrivateKey, " 0xabc ")
	t.Setenv(EnvSolanaPrivateKey, "solkey")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvHTTPAddr, "localhost:9090")
	t.Setenv(EnvRequestTimeout, "5s")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, agentpay.NetworkMainnet, cfg.NetworkValue())
	assert.Equal(t, agentpay.ChainSolana, cfg.Chain())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "localhost:9090", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "0xabc", cfg.PrivateKey(agentpay.ChainBase))
	assert.Equal(t, "solkey", cfg.PrivateKey(agentpay.ChainSolana))

	base, err := cfg.RPCURL(agentpay.ChainBase)
	require.NoError(t, err)
	assert.Equal(t, "https://base.example.com/rpc", base)

	sol, err := cfg.RPCURL(agentpay.ChainSolana)
	require.NoError(t, err)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", sol)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AGENTPAY_LOG_LEVEL=warn\nAGENTPAY_DEFAULT_CHAIN=solana\n"), 0o600))

	// Already set variables win over the file
	t.Setenv(EnvDefaultChain, "base")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, agentpay.ChainBase, cfg.Chain())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{EnvNetwork, "staging"},
		{EnvDefaultChain, "ethereum"},
		{EnvBaseRPCURL, "not a url"},
		{EnvLogLevel, "loud"},
		{EnvRequestTimeout, "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load(missingEnvFile(t))
			assert.Error(t, err)
		})
	}
}
