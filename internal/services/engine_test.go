package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sealed-auction/internal/domain"
	"sealed-auction/internal/homomorphic"
	"sealed-auction/pkg/logger"
)

const (
	manager  = "manager-1"
	verifier = "verifier-1"
	alice    = "alice"
	bob      = "bob"
	carol    = "carol"
)

// testClock is a controllable time source for expiry windows.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// capturingTransport records outgoing verification requests.
type capturingTransport struct {
	requests []*domain.VerificationRequest
	fail     bool
}

func (t *capturingTransport) Submit(ctx context.Context, req *domain.VerificationRequest) error {
	if t.fail {
		return context.DeadlineExceeded
	}
	t.requests = append(t.requests, req)
	return nil
}

type testHarness struct {
	engine    *Engine
	evaluator *homomorphic.LocalEvaluator
	clock     *testClock
	transport *capturingTransport
}

func newTestHarness(t *testing.T, opts Options) *testHarness {
	t.Helper()

	evaluator, err := homomorphic.NewLocalEvaluator()
	require.NoError(t, err)

	clock := newTestClock()
	transport := &capturingTransport{}

	engine := NewEngine(
		homomorphic.NewComparator(evaluator),
		opts,
		func(caller string) bool { return caller == manager },
		func(caller string) bool { return caller == verifier },
		transport,
		logger.NewNop(),
	)
	engine.SetClock(clock.Now)

	return &testHarness{
		engine:    engine,
		evaluator: evaluator,
		clock:     clock,
		transport: transport,
	}
}

func defaultOptions() Options {
	return Options{
		Capacity:        10,
		DefaultDuration: 300 * time.Second,
	}
}

// createPlainAuction opens a plaintext auction and returns its id.
func (h *testHarness) createPlainAuction(t *testing.T, creator string, reserve uint64, duration time.Duration) uint64 {
	t.Helper()
	receipt, err := h.engine.CreateAuction(
		context.Background(), creator, domain.GoodTypeCollectible,
		homomorphic.HandleFromPlain(reserve), nil, duration)
	require.NoError(t, err)
	require.False(t, receipt.Pending)
	return receipt.AuctionID
}

// createEncryptedAuction opens a direct-encrypted auction and returns its id.
func (h *testHarness) createEncryptedAuction(t *testing.T, creator string, reserve uint64, duration time.Duration) uint64 {
	t.Helper()
	handle, proof, err := h.evaluator.Encrypt(reserve)
	require.NoError(t, err)

	receipt, err := h.engine.CreateAuction(
		context.Background(), creator, domain.GoodTypeCollectible, handle, proof, duration)
	require.NoError(t, err)
	require.False(t, receipt.Pending)
	return receipt.AuctionID
}

func (h *testHarness) placePlainBid(t *testing.T, bidder string, auctionID, amount uint64) (*BidReceipt, error) {
	t.Helper()
	return h.engine.PlaceBid(context.Background(), bidder, auctionID,
		homomorphic.HandleFromPlain(amount), nil)
}

func (h *testHarness) placeEncryptedBid(t *testing.T, bidder string, auctionID, amount uint64) (*BidReceipt, error) {
	t.Helper()
	handle, proof, err := h.evaluator.Encrypt(amount)
	require.NoError(t, err)
	return h.engine.PlaceBid(context.Background(), bidder, auctionID, handle, proof)
}
