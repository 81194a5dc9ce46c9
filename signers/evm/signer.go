package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	agentevm "github.com/x402-foundation/agentpay/mechanisms/evm"
)

// Signer implements agentevm.TransactionSigner using an ECDSA private key
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSignerFromPrivateKey creates a signer from a hex-encoded private key.
//
// Args:
//
//	privateKeyHex: Hex-encoded private key (with or without "0x" prefix)
//
// Example:
//
//	signer, err := evm.NewSignerFromPrivateKey(os.Getenv("EVM_PRIVATE_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	provider, err := agentevm.NewProvider(agentevm.ProviderConfig{Client: client, Signer: signer})
func NewSignerFromPrivateKey(privateKeyHex string) (*Signer, error) {
	// Strip 0x prefix if present
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// Address returns the Ethereum address of the signer
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs tx with the latest signer for chainID
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

var _ agentevm.TransactionSigner = (*Signer)(nil)
