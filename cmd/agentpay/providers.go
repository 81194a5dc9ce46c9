package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gagliardetto/solana-go/rpc"

	agentpay "github.com/x402-foundation/agentpay"
	"github.com/x402-foundation/agentpay/config"
	"github.com/x402-foundation/agentpay/logger"
	"github.com/x402-foundation/agentpay/mechanisms/evm"
	"github.com/x402-foundation/agentpay/mechanisms/svm"
	evmsigner "github.com/x402-foundation/agentpay/signers/evm"
	svmsigner "github.com/x402-foundation/agentpay/signers/svm"
)

// buildProviders creates a provider for every supported chain. Chains
// without a key run read-only. The returned func closes the RPC clients.
func buildProviders(ctx context.Context, cfg *config.Config, log logger.Logger) ([]agentpay.ChainProvider, func(), error) {
	var (
		providers []agentpay.ChainProvider
		closers   []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	base, closeBase, err := buildEVMProvider(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	providers = append(providers, base)
	closers = append(closers, closeBase)

	sol, closeSol, err := buildSVMProvider(cfg, log)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	providers = append(providers, sol)
	closers = append(closers, closeSol)

	return providers, closeAll, nil
}

func buildEVMProvider(ctx context.Context, cfg *config.Config, log logger.Logger) (*evm.Provider, func(), error) {
	url, err := cfg.RPCURL(agentpay.ChainBase)
	if err != nil {
		return nil, nil, err
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial base rpc: %w", err)
	}

	pc := evm.ProviderConfig{
		Network: cfg.NetworkValue(),
		Client:  client,
		Logger:  log,
	}
	if key := cfg.PrivateKey(agentpay.ChainBase); key != "" {
		signer, err := evmsigner.NewSignerFromPrivateKey(key)
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("invalid %s: %w", config.EnvEVMPrivateKey, err)
		}
		pc.Signer = signer
	} else {
		log.Info("no evm key configured, base runs read-only", nil)
	}

	p, err := evm.NewProvider(pc)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return p, client.Close, nil
}

func buildSVMProvider(cfg *config.Config, log logger.Logger) (*svm.Provider, func(), error) {
	url, err := cfg.RPCURL(agentpay.ChainSolana)
	if err != nil {
		return nil, nil, err
	}
	client := rpc.New(url)
	closeClient := func() { _ = client.Close() }

	pc := svm.ProviderConfig{
		Network: cfg.NetworkValue(),
		Client:  client,
		Logger:  log,
	}
	if key := cfg.PrivateKey(agentpay.ChainSolana); key != "" {
		signer, err := svmsigner.NewSignerFromPrivateKey(key)
		if err != nil {
			closeClient()
			return nil, nil, fmt.Errorf("invalid %s: %w", config.EnvSolanaPrivateKey, err)
		}
		pc.Signer = signer
	} else {
		log.Info("no solana key configured, solana runs read-only", nil)
	}

	p, err := svm.NewProvider(pc)
	if err != nil {
		closeClient()
		return nil, nil, err
	}
	return p, closeClient, nil
}
