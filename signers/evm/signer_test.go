package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development key (anvil/hardhat account #0)
const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNewSignerFromPrivateKey(t *testing.T) {
	s, err := NewSignerFromPrivateKey(testKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), s.Address())

	noPrefix, err := NewSignerFromPrivateKey(testKey[2:])
	require.NoError(t, err)
	assert.Equal(t, s.Address(), noPrefix.Address())
}

func TestNewSignerFromPrivateKeyInvalid(t *testing.T) {
	for _, key := range []string{"", "0x1234", "not-hex"} {
		_, err := NewSignerFromPrivateKey(key)
		assert.Error(t, err, key)
	}
}

func TestSignTx(t *testing.T) {
	s, err := NewSignerFromPrivateKey(testKey)
	require.NoError(t, err)

	chainID := big.NewInt(84532)
	tx := types.NewTransaction(0, common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"), big.NewInt(0), 100000, big.NewInt(1), nil)
	signed, err := s.SignTx(tx, chainID)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), sender)
	assert.Equal(t, chainID, signed.ChainId())
}
