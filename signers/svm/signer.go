package svm

import (
	"context"
	"fmt"
	"strings"

	solana "github.com/gagliardetto/solana-go"

	agentsvm "github.com/x402-foundation/agentpay/mechanisms/svm"
)

// Signer implements agentsvm.TransactionSigner using an Ed25519 private key
type Signer struct {
	privateKey solana.PrivateKey
}

// NewSignerFromPrivateKey creates a signer from a base58-encoded private key.
//
// Example:
//
//	signer, err := svm.NewSignerFromPrivateKey(os.Getenv("SOLANA_PRIVATE_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewSignerFromPrivateKey(privateKeyBase58 string) (*Signer, error) {
	privateKey, err := solana.PrivateKeyFromBase58(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	if len(privateKey) != 64 {
		return nil, fmt.Errorf("invalid private key: expected 64 bytes, got %d", len(privateKey))
	}
	return &Signer{privateKey: privateKey}, nil
}

// PublicKey returns the Solana public key of the signer
func (s *Signer) PublicKey() solana.PublicKey {
	return s.privateKey.PublicKey()
}

// SignTransaction adds the signer's signature to tx at its account index
func (s *Signer) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	messageBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	signature, err := s.privateKey.Sign(messageBytes)
	if err != nil {
		return fmt.Errorf("failed to sign: %w", err)
	}

	accountIndex, err := tx.GetAccountIndex(s.PublicKey())
	if err != nil {
		return fmt.Errorf("failed to get account index: %w", err)
	}

	// Ensure signatures array is large enough
	if len(tx.Signatures) <= int(accountIndex) {
		newSignatures := make([]solana.Signature, accountIndex+1)
		copy(newSignatures, tx.Signatures)
		tx.Signatures = newSignatures
	}
	tx.Signatures[accountIndex] = signature

	return nil
}

var _ agentsvm.TransactionSigner = (*Signer)(nil)
