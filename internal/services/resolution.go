package services

import (
	"context"
	"time"

	"sealed-auction/internal/domain"
)

// ResolveAuction finalizes an expired auction: the provisional winner is
// frozen as the resolved winner exactly once and the auction leaves the
// active set. Manager-gated.
func (e *Engine) ResolveAuction(ctx context.Context, caller string, auctionID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.authorizedManager(caller) {
		return domain.ErrNotAuthorized
	}
	return e.resolve(auctionID, false)
}

// BatchResolveAuctions applies the resolve transition to each id
// independently. Ids that do not satisfy the preconditions are skipped; one
// failing id never aborts the batch. Returns how many auctions resolved.
func (e *Engine) BatchResolveAuctions(ctx context.Context, caller string, auctionIDs []uint64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.authorizedManager(caller) {
		return 0, domain.ErrNotAuthorized
	}

	resolved := 0
	for _, id := range auctionIDs {
		if err := e.resolve(id, false); err != nil {
			e.log.Debug("Skipping auction in batch resolve", "auction_id", id, "reason", err)
			continue
		}
		resolved++
	}
	return resolved, nil
}

// EmergencyEndAuction forces the terminal transition immediately regardless
// of expiry, using now as the effective end time. Manager-gated.
func (e *Engine) EmergencyEndAuction(ctx context.Context, caller string, auctionID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.authorizedManager(caller) {
		return domain.ErrNotAuthorized
	}
	if err := e.resolve(auctionID, true); err != nil {
		return err
	}

	e.publish(domain.EventAuctionEmergencyEnd, auctionID, caller, e.auctions[auctionID].Mode)
	e.log.Warn("Auction emergency-ended", "auction_id", auctionID, "caller", caller)
	return nil
}

// ExpiredUnresolved lists auctions past their end time that still await
// resolution. Used by the background sweeper.
func (e *Engine) ExpiredUnresolved(ctx context.Context) []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var out []uint64
	for id := uint64(1); id <= e.nextAuctionID; id++ {
		if a, ok := e.auctions[id]; ok && !a.IsResolved && now.After(a.EndTime) {
			out = append(out, id)
		}
	}
	return out
}

// resolve performs the terminal transition. Caller holds the engine mutex
// and has already authorized the operation.
func (e *Engine) resolve(auctionID uint64, force bool) error {
	a, err := e.getAuction(auctionID)
	if err != nil {
		return err
	}
	if a.IsResolved {
		return domain.ErrAuctionAlreadyResolved
	}

	now := e.now()
	if force {
		a.EndTime = now
	} else if !now.After(a.EndTime) {
		return domain.ErrAuctionNotExpired
	}

	if a.IsActive {
		a.IsActive = false
		e.activeCount--
	}
	a.IsResolved = true
	a.UpdatedAt = now

	a.ResolvedWinner = a.CurrentWinner
	a.HasWinner = a.ResolvedWinner != ""
	if a.HasWinner {
		for _, b := range e.bids[a.ID][a.ResolvedWinner] {
			if b.IsActive {
				b.IsWinning = true
				e.persistBid(b)
			}
		}
	}

	e.persistAuction(a)
	e.publish(domain.EventAuctionResolved, a.ID, a.ResolvedWinner, a.Mode)

	e.log.Info("Auction resolved",
		"auction_id", a.ID, "has_winner", a.HasWinner, "winner", a.ResolvedWinner,
		"participants", a.ParticipantCount)
	return nil
}

// ClaimReward records the resolved winner's claim. The record is the whole
// effect; no value moves here.
func (e *Engine) ClaimReward(ctx context.Context, caller string, auctionID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.getAuction(auctionID)
	if err != nil {
		return err
	}
	if !a.IsResolved {
		return domain.ErrAuctionNotExpired
	}
	if !a.HasWinner || a.ResolvedWinner != caller {
		return domain.ErrNotWinner
	}
	if _, claimed := e.claims[auctionID][caller]; claimed {
		return domain.ErrRewardAlreadyClaimed
	}

	claim := &domain.RewardClaim{
		AuctionID: auctionID,
		Winner:    caller,
		ClaimedAt: e.now(),
	}
	byWinner, ok := e.claims[auctionID]
	if !ok {
		byWinner = make(map[string]*domain.RewardClaim)
		e.claims[auctionID] = byWinner
	}
	byWinner[caller] = claim

	e.persistClaim(claim)
	e.publish(domain.EventRewardClaimed, auctionID, caller, a.Mode)

	e.log.Info("Reward claimed", "auction_id", auctionID, "winner", caller)
	return nil
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}
