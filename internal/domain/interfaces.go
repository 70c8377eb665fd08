package domain

import (
	"context"
)

// Repository interfaces. The in-memory engine state is authoritative;
// repositories journal mutations for durability and offline inspection.
type AuctionRepository interface {
	SaveAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID uint64) (*Auction, error)
	GetActiveAuctions(ctx context.Context) ([]*Auction, error)
}

type BidRepository interface {
	SaveBid(ctx context.Context, bid *Bid) error
	GetBidHistory(ctx context.Context, auctionID uint64) ([]*Bid, error)
}

type ClaimRepository interface {
	SaveClaim(ctx context.Context, claim *RewardClaim) error
	GetClaims(ctx context.Context, winner string) ([]*RewardClaim, error)
}

// Event interfaces
type EventPublisher interface {
	PublishAuctionEvent(ctx context.Context, event *AuctionEvent) error
}

type EventSubscriber interface {
	SubscribeToAuctionEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *AuctionEvent) error

// VerifierTransport forwards a verification request to the external gateway.
// The matching result arrives later as a separate callback transaction; the
// transport itself must return without waiting for it.
type VerifierTransport interface {
	Submit(ctx context.Context, req *VerificationRequest) error
}

type VerificationRequest struct {
	ChainID       string `json:"chain_id"`
	RequesterID   string `json:"requester_id"`
	SubmitterID   string `json:"submitter_id"`
	CorrelationID string `json:"correlation_id"`
	Payload       []byte `json:"payload"`
	ExtraData     []byte `json:"extra_data,omitempty"`
}

// AuthFunc is an authorization predicate injected per capability: manager
// operations and gateway callbacks each get their own predicate instead of
// consulting ambient role state.
type AuthFunc func(caller string) bool

// Notification interfaces
type AuctionBroadcaster interface {
	BroadcastToAuction(ctx context.Context, auctionID uint64, message interface{}) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	ClientID() string
	AuctionID() uint64
}

type ConnectionManager interface {
	RegisterConnection(clientID string, auctionID uint64, conn WebSocketConnection) error
	UnregisterConnection(clientID string, auctionID uint64) error
	BroadcastToAuction(auctionID uint64, message interface{}) error
	CloseAndUnregisterConnections(auctionID uint64) error
}
