package agentpay

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultExpiryMinutes is the payment window used when none is given
	DefaultExpiryMinutes = 30

	// MaxRequestAmount is the largest amount a payment request may ask for
	MaxRequestAmount = 1_000_000
)

var maxRequestAmount = decimal.NewFromInt(MaxRequestAmount)

// InMemoryStore keeps payment requests in a process-local map.
//
// Expiry is evaluated lazily: every Get, Confirm and List compares the
// stored ExpiresAt with the clock and moves pending requests to expired.
// No timer or goroutine is held per request.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*PaymentRequest
	now      func() time.Time
}

// StoreOption configures an InMemoryStore
type StoreOption func(*InMemoryStore)

// WithStoreClock replaces the wall clock used for timestamps and expiry
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// NewInMemoryStore creates an empty store
func NewInMemoryStore(opts ...StoreOption) *InMemoryStore {
	s := &InMemoryStore{
		requests: make(map[string]*PaymentRequest),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new pending payment request.
// expiresInMinutes nil selects DefaultExpiryMinutes; 0 expires immediately.
func (s *InMemoryStore) Create(chain Chain, recipient string, amount string, memo string, expiresInMinutes *int) (*PaymentRequest, error) {
	if err := validateRequestAmount(amount); err != nil {
		return nil, err
	}

	minutes := DefaultExpiryMinutes
	if expiresInMinutes != nil {
		minutes = *expiresInMinutes
	}
	if minutes < 0 {
		return nil, NewError(ErrCodeInvalidRequest, fmt.Sprintf("expires_in_minutes must not be negative, got %d", minutes), nil)
	}

	id := uuid.NewString()
	if memo == "" {
		memo = defaultMemo(id)
	}

	createdAt := s.now()
	window := time.Duration(minutes) * time.Minute
	if window == 0 {
		// ExpiresAt must stay strictly after CreatedAt
		window = time.Nanosecond
	}

	req := &PaymentRequest{
		ID:        id,
		Chain:     chain,
		Recipient: recipient,
		Amount:    amount,
		Memo:      memo,
		Status:    StatusPending,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(window),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[id] = req

	return req.clone(), nil
}

// Get returns a snapshot of the request after applying lazy expiry
func (s *InMemoryStore) Get(id string) (*PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrPaymentNotFound(id)
	}
	s.expireLocked(req, s.now())
	return req.clone(), nil
}

// Confirm records txHash as the payment of a pending request.
//
// On an already confirmed request the hash is overwritten (idempotent
// overwrite, not first-write-wins). A request that expired before being
// confirmed is terminal and is returned unchanged.
func (s *InMemoryStore) Confirm(id string, txHash string) (*PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrPaymentNotFound(id)
	}

	now := s.now()
	s.expireLocked(req, now)
	if req.Status == StatusExpired {
		return req.clone(), nil
	}

	req.Status = StatusConfirmed
	req.ConfirmedTxHash = txHash
	req.ConfirmedAt = &now

	return req.clone(), nil
}

// List applies lazy expiry to every request, filters, and returns the
// matches newest first
func (s *InMemoryStore) List(filter ListFilter) []*PaymentRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]*PaymentRequest, 0, len(s.requests))
	for _, req := range s.requests {
		s.expireLocked(req, now)
		if filter.Matches(req) {
			out = append(out, req.clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// expireLocked moves a pending request past its expiry to expired.
// Must be called with the lock held.
func (s *InMemoryStore) expireLocked(req *PaymentRequest, now time.Time) {
	if req.Status == StatusPending && !now.Before(req.ExpiresAt) {
		req.Status = StatusExpired
	}
}

func (r *PaymentRequest) clone() *PaymentRequest {
	c := *r
	if r.ConfirmedAt != nil {
		t := *r.ConfirmedAt
		c.ConfirmedAt = &t
	}
	return &c
}

func defaultMemo(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "Payment request " + short
}

func validateRequestAmount(amount string) error {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return ErrInvalidAmount(amount, "not a decimal number")
	}
	if !d.IsPositive() {
		return ErrInvalidAmount(amount, "must be greater than zero")
	}
	if d.GreaterThan(maxRequestAmount) {
		return ErrInvalidAmount(amount, fmt.Sprintf("must not exceed %d", MaxRequestAmount))
	}

	raw, err := ParseAmount(amount)
	if err != nil {
		return err
	}
	if raw.Sign() <= 0 {
		return ErrInvalidAmount(amount, fmt.Sprintf("smaller than the token precision of %d decimals", Decimals))
	}
	return nil
}

var _ Store = (*InMemoryStore)(nil)
