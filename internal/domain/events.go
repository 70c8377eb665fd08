package domain

import "time"

type AuctionEvent struct {
	Type      AuctionEventType `json:"type"`
	AuctionID uint64           `json:"auction_id"`
	Actor     string           `json:"actor,omitempty"`
	Mode      string           `json:"mode,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

type AuctionEventType string

const (
	EventAuctionCreated       AuctionEventType = "auction_created"
	EventBidAccepted          AuctionEventType = "bid_accepted"
	EventBidRejected          AuctionEventType = "bid_rejected"
	EventBidPending           AuctionEventType = "bid_pending"
	EventAuctionResolved      AuctionEventType = "auction_resolved"
	EventAuctionEmergencyEnd  AuctionEventType = "auction_emergency_ended"
	EventRewardClaimed        AuctionEventType = "reward_claimed"
	EventVerificationRejected AuctionEventType = "verification_rejected"
)
