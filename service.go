package agentpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/x402-foundation/agentpay/logger"
	"github.com/x402-foundation/agentpay/metrics"
)

// Service is the operation surface shared by the MCP and HTTP adapters.
// It resolves chains to providers, owns the payment request store and
// runs reconciliation.
type Service struct {
	mu           sync.RWMutex
	providers    map[Chain]ChainProvider
	defaultChain Chain
	store        Store
	reconciler   *Reconciler
	log          logger.Logger
	metrics      metrics.Recorder
	now          func() time.Time

	confirmedHooks []ConfirmedHook
	createdHooks   []CreatedHook
	transferHooks  []TransferHook
}

// ServiceOption configures the service
type ServiceOption func(*Service)

// WithProvider registers a chain provider
func WithProvider(p ChainProvider) ServiceOption {
	return func(s *Service) {
		s.providers[p.Chain()] = p
	}
}

// WithStore replaces the default in-memory store
func WithStore(store Store) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithDefaultChain selects the chain used when a call omits one
func WithDefaultChain(chain Chain) ServiceOption {
	return func(s *Service) {
		s.defaultChain = chain
	}
}

// WithLogger sets the structured logger
func WithLogger(l logger.Logger) ServiceOption {
	return func(s *Service) {
		s.log = logger.OrNoop(l)
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(r metrics.Recorder) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics.OrNoop(r)
	}
}

// WithClock replaces the wall clock used for latency measurement
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a service. Without WithStore an InMemoryStore is used;
// without WithDefaultChain the default chain is base.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		providers:    make(map[Chain]ChainProvider),
		defaultChain: ChainBase,
		log:          logger.NoopLogger{},
		metrics:      metrics.NoopRecorder{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewInMemoryStore()
	}
	s.reconciler = NewReconciler(s.store, s.Provider, s.log, s.dispatchConfirmed)
	return s
}

// RegisterProvider adds or replaces the provider for p.Chain()
func (s *Service) RegisterProvider(p ChainProvider) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.Chain()] = p
	return s
}

// OnPaymentConfirmed registers a hook to run after a request is confirmed
func (s *Service) OnPaymentConfirmed(hook ConfirmedHook) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmedHooks = append(s.confirmedHooks, hook)
	return s
}

// OnPaymentCreated registers a hook to run after a request is created
func (s *Service) OnPaymentCreated(hook CreatedHook) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createdHooks = append(s.createdHooks, hook)
	return s
}

// OnTransferSent registers a hook to run after an outbound transfer is submitted
func (s *Service) OnTransferSent(hook TransferHook) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transferHooks = append(s.transferHooks, hook)
	return s
}

// Provider returns the registered provider for chain
func (s *Service) Provider(chain Chain) (ChainProvider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[chain]
	return p, ok
}

// DefaultChain returns the chain used when a call omits one
func (s *Service) DefaultChain() Chain {
	return s.defaultChain
}

// SupportedChains returns the chains with a registered provider, in
// SupportedChains order
func (s *Service) SupportedChains() []Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Chain, 0, len(s.providers))
	for _, c := range SupportedChains {
		if _, ok := s.providers[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// GetWalletAddress reports the wallet configured for chain
func (s *Service) GetWalletAddress(ctx context.Context, chain string) (*WalletInfo, error) {
	var info *WalletInfo
	err := s.observe(ctx, "get_wallet_address", chain, func(p ChainProvider) error {
		addr := p.WalletAddress()
		info = &WalletInfo{
			Chain:    p.Chain(),
			Address:  addr,
			ReadOnly: addr == "",
		}
		return nil
	})
	return info, err
}

// GetBalance returns the USDC balance of address, or of the configured
// wallet when address is empty
func (s *Service) GetBalance(ctx context.Context, address string, chain string) (*Balance, error) {
	var bal *Balance
	err := s.observe(ctx, "get_balance", chain, func(p ChainProvider) error {
		addr := strings.TrimSpace(address)
		if addr == "" {
			addr = p.WalletAddress()
		}
		if addr == "" {
			return ErrNoWalletConfigured(p.Chain())
		}
		var err error
		bal, err = p.GetBalance(ctx, addr)
		return err
	})
	return bal, err
}

// CreatePaymentRequest creates a pending request payable to the configured
// wallet of chain
func (s *Service) CreatePaymentRequest(ctx context.Context, amount string, chain string, memo string, expiresInMinutes *int) (*PaymentRequest, error) {
	var req *PaymentRequest
	err := s.observe(ctx, "create_payment_request", chain, func(p ChainProvider) error {
		recipient := p.WalletAddress()
		if recipient == "" {
			return ErrNoWalletConfigured(p.Chain())
		}
		var err error
		req, err = s.store.Create(p.Chain(), recipient, amount, memo, expiresInMinutes)
		if err != nil {
			return err
		}
		s.log.Info("payment request created", map[string]any{
			"payment_id": req.ID,
			"chain":      string(req.Chain),
			"amount":     req.Amount,
			"expires_at": req.ExpiresAt,
		})
		s.dispatchCreated(CreatedContext{Ctx: ctx, Request: *req})
		return nil
	})
	return req, err
}

// CheckPaymentStatus reconciles the request with its chain
func (s *Service) CheckPaymentStatus(ctx context.Context, id string) (*CheckResult, error) {
	start := s.now()
	res, err := s.reconciler.Check(ctx, id)
	labels := map[string]string{"chain": ""}
	if res != nil {
		labels["chain"] = string(res.Chain)
	}
	s.record("check_payment_status", start, labels, err)
	if err != nil {
		s.log.Warn("check payment status failed", map[string]any{
			"payment_id": id,
			"error":      err,
		})
		return nil, err
	}
	if res.Status == StatusConfirmed {
		s.metrics.IncCounter("payment_confirmed", labels)
	}
	return res, nil
}

// SendUSDC submits a single transfer from the configured wallet
func (s *Service) SendUSDC(ctx context.Context, to string, amount string, chain string) (*TransferResult, error) {
	var res *TransferResult
	err := s.observe(ctx, "send_usdc", chain, func(p ChainProvider) error {
		if p.WalletAddress() == "" {
			return ErrNoWalletConfigured(p.Chain())
		}
		start := s.now()
		var err error
		res, err = p.SendTransfer(ctx, strings.TrimSpace(to), amount)
		if err != nil {
			return err
		}
		s.log.Info("transfer submitted", map[string]any{
			"chain":   string(res.Chain),
			"tx_hash": res.TxHash,
			"to":      res.To,
			"amount":  res.Amount,
		})
		s.dispatchTransfer(TransferContext{Ctx: ctx, Result: *res, Duration: s.now().Sub(start)})
		return nil
	})
	return res, err
}

// GetTransactionStatus inspects txHash on chain
func (s *Service) GetTransactionStatus(ctx context.Context, txHash string, chain string) (*TransactionStatus, error) {
	var status *TransactionStatus
	err := s.observe(ctx, "get_transaction_status", chain, func(p ChainProvider) error {
		hash := strings.TrimSpace(txHash)
		if hash == "" {
			return NewError(ErrCodeInvalidRequest, "tx_hash is required", nil)
		}
		var err error
		status, err = p.GetTransactionStatus(ctx, hash)
		return err
	})
	return status, err
}

// GetPaymentRequest returns the stored request without reconciling it
func (s *Service) GetPaymentRequest(ctx context.Context, id string) (*PaymentRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get_payment_request: %w", err)
	}
	return s.store.Get(strings.TrimSpace(id))
}

// ListPaymentRequests lists stored requests, newest first.
// Empty status or chain match everything.
func (s *Service) ListPaymentRequests(ctx context.Context, status string, chain string) ([]*PaymentRequest, error) {
	start := s.now()
	filter := ListFilter{}
	if status != "" {
		st, err := ParsePaymentStatus(status)
		if err != nil {
			s.record("list_payment_requests", start, map[string]string{"chain": chain}, err)
			return nil, err
		}
		filter.Status = st
	}
	if chain != "" {
		c, err := ParseChain(chain)
		if err != nil {
			s.record("list_payment_requests", start, map[string]string{"chain": chain}, err)
			return nil, err
		}
		filter.Chain = c
	}

	s.log.Debug("listing payment requests", map[string]any{
		"status": string(filter.Status),
		"chain":  string(filter.Chain),
	})
	out := s.store.List(filter)
	s.record("list_payment_requests", start, map[string]string{"chain": string(filter.Chain)}, nil)
	return out, nil
}

// resolve maps an optional chain name onto its provider
func (s *Service) resolve(chain string) (ChainProvider, error) {
	c := s.defaultChain
	if strings.TrimSpace(chain) != "" {
		parsed, err := ParseChain(chain)
		if err != nil {
			return nil, err
		}
		c = parsed
	}
	p, ok := s.Provider(c)
	if !ok {
		return nil, ErrChainNotConfigured(c)
	}
	return p, nil
}

// observe resolves the chain, runs fn and records logs and metrics for op
func (s *Service) observe(ctx context.Context, op string, chain string, fn func(ChainProvider) error) error {
	start := s.now()
	p, err := s.resolve(chain)
	if err != nil {
		s.record(op, start, map[string]string{"chain": chain}, err)
		s.log.Warn(op+" failed", map[string]any{"chain": chain, "error": err})
		return err
	}

	labels := map[string]string{"chain": string(p.Chain())}
	s.log.Debug(op, map[string]any{"chain": labels["chain"]})

	if err := ctx.Err(); err != nil {
		s.record(op, start, labels, err)
		return fmt.Errorf("%s: %w", op, err)
	}

	err = fn(p)
	s.record(op, start, labels, err)
	if err != nil {
		s.log.Warn(op+" failed", map[string]any{"chain": labels["chain"], "error": err})
	}
	return err
}

func (s *Service) record(op string, start time.Time, labels map[string]string, err error) {
	s.metrics.ObserveLatency(op, s.now().Sub(start), labels)
	if err != nil {
		s.metrics.IncCounter(op+"_error", labels)
		return
	}
	s.metrics.IncCounter(op, labels)
}

func (s *Service) dispatchConfirmed(hc ConfirmedContext) error {
	s.mu.RLock()
	hooks := append([]ConfirmedHook(nil), s.confirmedHooks...)
	s.mu.RUnlock()

	var errs []error
	for _, hook := range hooks {
		if err := hook(hc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) dispatchCreated(hc CreatedContext) {
	s.mu.RLock()
	hooks := append([]CreatedHook(nil), s.createdHooks...)
	s.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(hc); err != nil {
			s.log.Warn("payment created hook failed", map[string]any{
				"payment_id": hc.Request.ID,
				"error":      err,
			})
		}
	}
}

func (s *Service) dispatchTransfer(hc TransferContext) {
	s.mu.RLock()
	hooks := append([]TransferHook(nil), s.transferHooks...)
	s.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(hc); err != nil {
			s.log.Warn("transfer sent hook failed", map[string]any{
				"tx_hash": hc.Result.TxHash,
				"error":   err,
			})
		}
	}
}
