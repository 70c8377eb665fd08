package services

import (
	"context"
	"sync"
	"time"

	"sealed-auction/internal/domain"
	"sealed-auction/internal/homomorphic"
	"sealed-auction/pkg/logger"
)

// Options carries the fixed engine configuration constants.
type Options struct {
	// Capacity is the ceiling on concurrently active auctions.
	Capacity int
	// DefaultDuration applies when CreateAuction passes zero duration.
	DefaultDuration time.Duration
	// ClosedMarketplace gates CreateAuction behind the manager predicate.
	ClosedMarketplace bool
	// GatewayEnabled routes proof-carrying payloads to the external verifier.
	GatewayEnabled bool
	// ChainID tags outgoing verification requests.
	ChainID string
	// RequesterID identifies this engine instance to the verifier.
	RequesterID string
	// VerificationTTL bounds how long a pending verification may wait for
	// its callback before the abandon sweep consumes it.
	VerificationTTL time.Duration
}

// Engine owns all auction, bid, pending-verification and claim state. Every
// public operation takes the single mutex for its whole duration, so calls
// apply one at a time in a strict total order: a call either completes fully
// or fails with one sentinel error and no partial writes. "First strictly
// greater bid wins" is therefore decided by call arrival order, not by
// wall-clock bid time.
//
// The in-memory arena is authoritative. Repositories journal mutations for
// durability and the event publisher feeds the live push path; failures on
// either are logged and never roll back a committed transaction.
type Engine struct {
	mu sync.Mutex

	auctions     map[uint64]*domain.Auction
	bids         map[uint64]map[string][]*domain.Bid
	participants map[uint64]map[string]struct{}
	pending      map[string]*domain.PendingVerification
	claims       map[uint64]map[string]*domain.RewardClaim

	nextAuctionID uint64
	activeCount   int
	totalBids     int

	comparator   *homomorphic.Comparator
	opts         Options
	managerAuth  domain.AuthFunc
	verifierAuth domain.AuthFunc
	transport    domain.VerifierTransport

	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	claimRepo   domain.ClaimRepository
	eventPub    domain.EventPublisher

	log logger.Logger

	// now is swappable so expiry windows are controllable in tests.
	now func() time.Time
}

func NewEngine(
	comparator *homomorphic.Comparator,
	opts Options,
	managerAuth domain.AuthFunc,
	verifierAuth domain.AuthFunc,
	transport domain.VerifierTransport,
	log logger.Logger,
) *Engine {
	if opts.Capacity <= 0 {
		opts.Capacity = 10
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = 300 * time.Second
	}
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = 10 * time.Minute
	}

	return &Engine{
		auctions:     make(map[uint64]*domain.Auction),
		bids:         make(map[uint64]map[string][]*domain.Bid),
		participants: make(map[uint64]map[string]struct{}),
		pending:      make(map[string]*domain.PendingVerification),
		claims:       make(map[uint64]map[string]*domain.RewardClaim),
		comparator:   comparator,
		opts:         opts,
		managerAuth:  managerAuth,
		verifierAuth: verifierAuth,
		transport:    transport,
		log:          log,
		now:          time.Now,
	}
}

// SetPersistence attaches the write-through journal repositories.
func (e *Engine) SetPersistence(auctions domain.AuctionRepository, bids domain.BidRepository, claims domain.ClaimRepository) {
	e.auctionRepo = auctions
	e.bidRepo = bids
	e.claimRepo = claims
}

// SetEventPublisher attaches the live event feed.
func (e *Engine) SetEventPublisher(pub domain.EventPublisher) {
	e.eventPub = pub
}

// resolveValue classifies an incoming payload per the encryption mode rules.
// An empty proof is the plaintext fallback: the handle bytes are the value.
// A non-empty proof goes to the gateway when one is configured; otherwise it
// is validated in-line against the evaluator. A proof that fails validation
// is a hard rejection, never a silent downgrade to plaintext.
func (e *Engine) resolveValue(handle homomorphic.Handle, proof []byte) (domain.Value, bool, error) {
	if len(proof) == 0 {
		return domain.PlainValue(homomorphic.PlainFromHandle(handle)), false, nil
	}

	if e.opts.GatewayEnabled {
		return domain.Value{}, true, nil
	}

	if err := e.comparator.Evaluator().Verify(handle, proof); err != nil {
		e.log.Warn("Ciphertext proof failed validation, rejecting payload",
			"handle", handle.String(), "error", err)
		return domain.Value{}, false, domain.ErrBidRejected
	}

	return domain.EncryptedValue(handle), false, nil
}

// evaluableHandle maps a stored value onto a handle the evaluator can use.
// Plaintext values are imported on the fly so encrypted and plaintext
// operands can meet inside one comparison.
func (e *Engine) evaluableHandle(v domain.Value) (homomorphic.Handle, error) {
	if v.Mode == domain.ModePlaintext {
		return e.comparator.Evaluator().FromPlaintext(v.Plain)
	}
	return v.Handle, nil
}

func (e *Engine) getAuction(id uint64) (*domain.Auction, error) {
	a, ok := e.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return a, nil
}

func (e *Engine) registerParticipant(a *domain.Auction, bidder string) {
	set, ok := e.participants[a.ID]
	if !ok {
		set = make(map[string]struct{})
		e.participants[a.ID] = set
	}
	if _, seen := set[bidder]; seen {
		return
	}
	set[bidder] = struct{}{}
	a.Participants = append(a.Participants, bidder)
	a.ParticipantCount++
}

func (e *Engine) appendBid(b *domain.Bid) {
	byBidder, ok := e.bids[b.AuctionID]
	if !ok {
		byBidder = make(map[string][]*domain.Bid)
		e.bids[b.AuctionID] = byBidder
	}
	byBidder[b.Bidder] = append(byBidder[b.Bidder], b)
	e.totalBids++
}

// deactivateBids demotes every active bid the given bidder holds on the
// auction. History stays in place.
func (e *Engine) deactivateBids(auctionID uint64, bidder string) {
	for _, b := range e.bids[auctionID][bidder] {
		if b.IsActive {
			b.IsActive = false
			b.IsWinning = false
			e.persistBid(b)
		}
	}
}

func (e *Engine) persistAuction(a *domain.Auction) {
	if e.auctionRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.auctionRepo.SaveAuction(ctx, a); err != nil {
		e.log.Error("Failed to persist auction", "auction_id", a.ID, "error", err)
	}
}

func (e *Engine) persistBid(b *domain.Bid) {
	if e.bidRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.bidRepo.SaveBid(ctx, b); err != nil {
		e.log.Error("Failed to persist bid", "auction_id", b.AuctionID, "bidder", b.Bidder, "error", err)
	}
}

func (e *Engine) persistClaim(c *domain.RewardClaim) {
	if e.claimRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.claimRepo.SaveClaim(ctx, c); err != nil {
		e.log.Error("Failed to persist claim", "auction_id", c.AuctionID, "winner", c.Winner, "error", err)
	}
}

// publish emits an auction event. Events never carry bid amounts; the feed
// reveals who acted and when, not what any value was.
func (e *Engine) publish(eventType domain.AuctionEventType, auctionID uint64, actor string, mode domain.EncryptionMode) {
	if e.eventPub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	event := &domain.AuctionEvent{
		Type:      eventType,
		AuctionID: auctionID,
		Actor:     actor,
		Mode:      mode.String(),
		Timestamp: e.now(),
	}
	if err := e.eventPub.PublishAuctionEvent(ctx, event); err != nil {
		e.log.Error("Failed to publish event", "type", eventType, "auction_id", auctionID, "error", err)
	}
}
