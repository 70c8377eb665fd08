package services

import (
	"context"
	"crypto/sha256"
	"time"

	"sealed-auction/internal/domain"
	"sealed-auction/internal/homomorphic"
)

// BidReceipt is the synchronous result of PlaceBid. On the gateway path the
// bid has not been applied yet; only the correlation id comes back.
type BidReceipt struct {
	AuctionID     uint64 `json:"auction_id"`
	Accepted      bool   `json:"accepted"`
	Pending       bool   `json:"pending"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// PlaceBid submits a bid payload on an active auction. Plaintext and
// direct-encrypted payloads are applied immediately; gateway payloads are
// stashed and applied when the verifier calls back.
func (e *Engine) PlaceBid(
	ctx context.Context,
	caller string,
	auctionID uint64,
	bidHandle homomorphic.Handle,
	proof []byte,
) (*BidReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.getAuction(auctionID)
	if err != nil {
		return nil, err
	}
	if !a.IsActive || a.IsResolved {
		return nil, domain.ErrAuctionNotActive
	}
	now := e.now()
	if now.After(a.EndTime) {
		return nil, domain.ErrBidTooLate
	}

	val, pending, err := e.resolveValue(bidHandle, proof)
	if err != nil {
		e.publish(domain.EventBidRejected, auctionID, caller, a.Mode)
		return nil, err
	}

	if pending {
		correlationID, err := e.requestVerification(ctx, &domain.PendingVerification{
			AuctionID: auctionID,
			Submitter: caller,
			Payload:   bidHandle[:],
			Proof:     proof,
		})
		if err != nil {
			return nil, err
		}

		// The bid record exists but carries no weight: no participation,
		// no winner movement until the callback lands.
		e.appendBid(&domain.Bid{
			AuctionID:             auctionID,
			Bidder:                caller,
			Timestamp:             now,
			Mode:                  domain.ModeGatewayPending,
			IsPendingVerification: true,
			CorrelationID:         correlationID,
		})
		e.publish(domain.EventBidPending, auctionID, caller, domain.ModeGatewayPending)

		e.log.Info("Bid forwarded for verification",
			"auction_id", auctionID, "bidder", caller, "correlation_id", correlationID)
		return &BidReceipt{AuctionID: auctionID, Pending: true, CorrelationID: correlationID}, nil
	}

	if err := e.acceptBid(a, caller, val, now); err != nil {
		e.publish(domain.EventBidRejected, auctionID, caller, val.Mode)
		return nil, err
	}

	e.publish(domain.EventBidAccepted, auctionID, caller, val.Mode)
	return &BidReceipt{AuctionID: auctionID, Accepted: true}, nil
}

// acceptBid runs the acceptance decision and, when the bid wins, commits the
// winner swap. Caller holds the engine mutex and has already gated on the
// auction being active and unexpired.
//
// The whole comparison runs in plaintext arithmetic only when every operand
// is plaintext; as soon as one side is opaque the comparator protocol runs
// over handles, importing plaintext operands into the evaluator as needed.
func (e *Engine) acceptBid(a *domain.Auction, bidder string, val domain.Value, now time.Time) error {
	allPlain := a.Reserve.Mode == domain.ModePlaintext &&
		val.Mode == domain.ModePlaintext &&
		(a.HighestBid.IsZero() || a.HighestBid.Mode == domain.ModePlaintext)

	var newHighest domain.Value
	if allPlain {
		if val.Plain == 0 || val.Plain < a.Reserve.Plain {
			return domain.ErrBidRejected
		}
		if !a.HighestBid.IsZero() && val.Plain <= a.HighestBid.Plain {
			return domain.ErrBidRejected
		}
		newHighest = domain.PlainValue(val.Plain)
	} else {
		bidH, err := e.evaluableHandle(val)
		if err != nil {
			return err
		}
		reserveH, err := e.evaluableHandle(a.Reserve)
		if err != nil {
			return err
		}
		highestH := homomorphic.ZeroHandle
		if !a.HighestBid.IsZero() {
			if highestH, err = e.evaluableHandle(a.HighestBid); err != nil {
				return err
			}
		}

		result, err := e.comparator.EvaluateBid(bidH, reserveH, highestH)
		if err != nil {
			return err
		}
		if !result.Accepted {
			return domain.ErrBidRejected
		}
		newHighest = domain.EncryptedValue(result.NewHighest)
	}

	// Demote the previous winner's bid and any earlier bid of this bidder,
	// then promote the new bid. History is kept, only flags move.
	if a.CurrentWinner != "" && a.CurrentWinner != bidder {
		e.deactivateBids(a.ID, a.CurrentWinner)
	}
	e.deactivateBids(a.ID, bidder)

	bid := &domain.Bid{
		AuctionID: a.ID,
		Bidder:    bidder,
		Amount:    val,
		Timestamp: now,
		IsActive:  true,
		IsWinning: true,
		Mode:      val.Mode,
	}
	e.appendBid(bid)
	e.registerParticipant(a, bidder)

	a.HighestBid = newHighest
	a.HighestBidder = bidderHandle(bidder)
	a.CurrentWinner = bidder
	a.UpdatedAt = now

	e.persistBid(bid)
	e.persistAuction(a)

	e.log.Info("Bid accepted",
		"auction_id", a.ID, "bidder", bidder, "mode", val.Mode.String(),
		"participants", a.ParticipantCount)
	return nil
}

// bidderHandle is an opaque reference to a bidder identity, so the committed
// winner field mirrors the shape of the value handles.
func bidderHandle(bidder string) homomorphic.Handle {
	return homomorphic.Handle(sha256.Sum256([]byte(bidder)))
}

// GetBidHistory returns the user's bid records on the auction in submission
// order, superseded bids included. Records are copied so callers cannot reach
// into the arena.
func (e *Engine) GetBidHistory(ctx context.Context, auctionID uint64, user string) ([]*domain.Bid, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.getAuction(auctionID); err != nil {
		return nil, err
	}

	records := e.bids[auctionID][user]
	out := make([]*domain.Bid, 0, len(records))
	for _, b := range records {
		copied := *b
		out = append(out, &copied)
	}
	return out, nil
}
