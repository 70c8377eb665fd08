package domain

import (
	"time"

	"sealed-auction/internal/homomorphic"
)

// EncryptionMode classifies how an incoming payload's value is represented.
type EncryptionMode int

const (
	// ModePlaintext means the handle bytes are the cleartext integer.
	// No privacy guarantee; fallback and testing path.
	ModePlaintext EncryptionMode = iota
	// ModeDirectEncrypted means the proof was validated in-line against the
	// handle and the value is evaluable without ever being decrypted here.
	ModeDirectEncrypted
	// ModeGatewayPending means the payload was forwarded to the external
	// verification gateway and completion happens via a later callback.
	ModeGatewayPending
)

func (m EncryptionMode) String() string {
	switch m {
	case ModePlaintext:
		return "plaintext"
	case ModeDirectEncrypted:
		return "direct_encrypted"
	case ModeGatewayPending:
		return "gateway_pending"
	default:
		return "unknown"
	}
}

// GoodType is the small fixed enumeration of auctionable good categories.
type GoodType int

const (
	GoodTypeElectronics GoodType = iota + 1
	GoodTypeCollectible
	GoodTypeVehicle
	GoodTypeRealEstate
	GoodTypeOther
)

func (g GoodType) Valid() bool {
	return g >= GoodTypeElectronics && g <= GoodTypeOther
}

func (g GoodType) String() string {
	switch g {
	case GoodTypeElectronics:
		return "electronics"
	case GoodTypeCollectible:
		return "collectible"
	case GoodTypeVehicle:
		return "vehicle"
	case GoodTypeRealEstate:
		return "real_estate"
	case GoodTypeOther:
		return "other"
	default:
		return "unknown"
	}
}

// Value is a tagged variant: either a cleartext integer or an opaque handle.
// Exactly one representation is meaningful for a given mode, which removes
// the desync risk of carrying a ciphertext and a cleartext shadow side by
// side.
type Value struct {
	Mode   EncryptionMode
	Plain  uint64
	Handle homomorphic.Handle
}

func PlainValue(v uint64) Value {
	return Value{Mode: ModePlaintext, Plain: v, Handle: homomorphic.HandleFromPlain(v)}
}

func EncryptedValue(h homomorphic.Handle) Value {
	return Value{Mode: ModeDirectEncrypted, Handle: h}
}

// IsZero reports whether the value is the "nobody has bid" sentinel.
func (v Value) IsZero() bool {
	return v.Plain == 0 && v.Handle.IsZero()
}

// Auction is the unit of sale. Reserve and HighestBid stay opaque in
// encrypted mode; CurrentWinner is provisional and moves on every accepted
// bid, ResolvedWinner is frozen exactly once at resolution.
type Auction struct {
	ID               uint64
	GoodType         GoodType
	Creator          string
	Reserve          Value
	HighestBid       Value
	HighestBidder    homomorphic.Handle
	CurrentWinner    string
	ResolvedWinner   string
	HasWinner        bool
	StartTime        time.Time
	EndTime          time.Time
	IsActive         bool
	IsResolved       bool
	Mode             EncryptionMode
	Participants     []string
	ParticipantCount int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Bid is one bidder's offer on one auction. History is never deleted; a new
// accepted bid from the same bidder deactivates the previous one.
type Bid struct {
	AuctionID             uint64
	Bidder                string
	Amount                Value
	Timestamp             time.Time
	IsActive              bool
	IsWinning             bool
	Mode                  EncryptionMode
	IsPendingVerification bool
	CorrelationID         string
}

// ReserveSubmissionTarget is the sentinel auction id marking a pending
// verification that carries a reserve price for auction creation rather than
// a bid on an existing auction.
const ReserveSubmissionTarget = ^uint64(0)

// PendingVerification is the bookkeeping record for one in-flight gateway
// round trip. A correlation id is consumed at most once; callbacks for an
// unknown or consumed id are rejected without state change.
type PendingVerification struct {
	CorrelationID string
	AuctionID     uint64
	Submitter     string
	GoodType      GoodType
	Duration      time.Duration
	Payload       []byte
	Proof         []byte
	SubmittedAt   time.Time
	Deadline      time.Time
	Consumed      bool
}

// IsReserveSubmission reports whether this record creates an auction on
// verification instead of placing a bid.
func (p *PendingVerification) IsReserveSubmission() bool {
	return p.AuctionID == ReserveSubmissionTarget
}

// RewardClaim records that the resolved winner of an auction has claimed.
// The engine records the claim only; settlement happens elsewhere.
type RewardClaim struct {
	AuctionID uint64
	Winner    string
	ClaimedAt time.Time
}

// AuctionStats is the aggregate snapshot served by the stats endpoint.
type AuctionStats struct {
	TotalAuctions    int `json:"total_auctions"`
	ActiveAuctions   int `json:"active_auctions"`
	ResolvedAuctions int `json:"resolved_auctions"`
	TotalBids        int `json:"total_bids"`
	PendingCallbacks int `json:"pending_callbacks"`
}
