package services

import (
	"context"
	"time"

	"sealed-auction/internal/domain"
	"sealed-auction/internal/homomorphic"
)

// CreateReceipt is the synchronous result of CreateAuction. When the reserve
// went through the verification gateway no auction exists yet; the receipt
// carries only the correlation id of the in-flight submission.
type CreateReceipt struct {
	AuctionID     uint64 `json:"auction_id,omitempty"`
	Pending       bool   `json:"pending"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// CreateAuction opens a new auction with the given reserve payload. In a
// closed marketplace only manager callers may create; otherwise anyone can.
// A zero duration falls back to the configured default.
func (e *Engine) CreateAuction(
	ctx context.Context,
	caller string,
	goodType domain.GoodType,
	reserveHandle homomorphic.Handle,
	reserveProof []byte,
	duration time.Duration,
) (*CreateReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.opts.ClosedMarketplace && !e.authorizedManager(caller) {
		return nil, domain.ErrNotAuthorized
	}
	if !goodType.Valid() {
		return nil, domain.ErrInvalidGoodType
	}
	if e.activeCount >= e.opts.Capacity {
		return nil, domain.ErrCapacityExceeded
	}

	reserve, pending, err := e.resolveValue(reserveHandle, reserveProof)
	if err != nil {
		return nil, err
	}
	if pending {
		correlationID, err := e.requestVerification(ctx, &domain.PendingVerification{
			AuctionID: domain.ReserveSubmissionTarget,
			Submitter: caller,
			GoodType:  goodType,
			Duration:  duration,
			Payload:   reserveHandle[:],
			Proof:     reserveProof,
		})
		if err != nil {
			return nil, err
		}
		return &CreateReceipt{Pending: true, CorrelationID: correlationID}, nil
	}

	a := e.openAuction(caller, goodType, reserve, duration)
	e.publish(domain.EventAuctionCreated, a.ID, caller, a.Mode)

	e.log.Info("Auction created",
		"auction_id", a.ID, "good_type", goodType.String(), "mode", a.Mode.String(),
		"creator", caller, "end_time", a.EndTime)
	return &CreateReceipt{AuctionID: a.ID}, nil
}

// openAuction commits a fully resolved auction into the arena. Caller holds
// the engine mutex and has already checked capacity and good type.
func (e *Engine) openAuction(creator string, goodType domain.GoodType, reserve domain.Value, duration time.Duration) *domain.Auction {
	if duration <= 0 {
		duration = e.opts.DefaultDuration
	}

	e.nextAuctionID++
	now := e.now()
	a := &domain.Auction{
		ID:         e.nextAuctionID,
		GoodType:   goodType,
		Creator:    creator,
		Reserve:    reserve,
		HighestBid: domain.Value{Mode: reserve.Mode},
		Mode:       reserve.Mode,
		StartTime:  now,
		EndTime:    now.Add(duration),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	e.auctions[a.ID] = a
	e.activeCount++
	e.persistAuction(a)
	return a
}

func (e *Engine) authorizedManager(caller string) bool {
	return e.managerAuth != nil && e.managerAuth(caller)
}

// AuctionInfo is the read-model snapshot of one auction. Reserve and highest
// bid are exposed only on the plaintext path, which never promised privacy.
type AuctionInfo struct {
	ID               uint64    `json:"id"`
	GoodType         string    `json:"good_type"`
	Creator          string    `json:"creator"`
	Mode             string    `json:"mode"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	IsActive         bool      `json:"is_active"`
	IsResolved       bool      `json:"is_resolved"`
	ParticipantCount int       `json:"participant_count"`
	HasWinner        bool      `json:"has_winner"`
	ResolvedWinner   string    `json:"resolved_winner,omitempty"`
	Reserve          *uint64   `json:"reserve,omitempty"`
	HighestBid       *uint64   `json:"highest_bid,omitempty"`
}

func snapshotAuction(a *domain.Auction) *AuctionInfo {
	info := &AuctionInfo{
		ID:               a.ID,
		GoodType:         a.GoodType.String(),
		Creator:          a.Creator,
		Mode:             a.Mode.String(),
		StartTime:        a.StartTime,
		EndTime:          a.EndTime,
		IsActive:         a.IsActive,
		IsResolved:       a.IsResolved,
		ParticipantCount: a.ParticipantCount,
		HasWinner:        a.HasWinner,
		ResolvedWinner:   a.ResolvedWinner,
	}
	if a.Mode == domain.ModePlaintext {
		reserve := a.Reserve.Plain
		info.Reserve = &reserve
		if a.HighestBid.Mode == domain.ModePlaintext && !a.HighestBid.IsZero() {
			highest := a.HighestBid.Plain
			info.HighestBid = &highest
		}
	}
	return info
}

func (e *Engine) GetAuctionInfo(ctx context.Context, auctionID uint64) (*AuctionInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.getAuction(auctionID)
	if err != nil {
		return nil, err
	}
	return snapshotAuction(a), nil
}

func (e *Engine) GetActiveAuctions(ctx context.Context) []*AuctionInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*AuctionInfo
	for id := uint64(1); id <= e.nextAuctionID; id++ {
		if a, ok := e.auctions[id]; ok && a.IsActive {
			out = append(out, snapshotAuction(a))
		}
	}
	return out
}

func (e *Engine) GetAuctionStats(ctx context.Context) *domain.AuctionStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := &domain.AuctionStats{
		TotalAuctions:  len(e.auctions),
		ActiveAuctions: e.activeCount,
		TotalBids:      e.totalBids,
	}
	for _, a := range e.auctions {
		if a.IsResolved {
			stats.ResolvedAuctions++
		}
	}
	for _, p := range e.pending {
		if !p.Consumed {
			stats.PendingCallbacks++
		}
	}
	return stats
}

// GetMyWins lists the auctions the caller won, in id order.
func (e *Engine) GetMyWins(ctx context.Context, caller string) []*AuctionInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*AuctionInfo
	for id := uint64(1); id <= e.nextAuctionID; id++ {
		if a, ok := e.auctions[id]; ok && a.IsResolved && a.HasWinner && a.ResolvedWinner == caller {
			out = append(out, snapshotAuction(a))
		}
	}
	return out
}

// HasUserBid reports whether the user has any bid recorded on the auction,
// pending verification included.
func (e *Engine) HasUserBid(ctx context.Context, auctionID uint64, user string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.getAuction(auctionID); err != nil {
		return false, err
	}
	return len(e.bids[auctionID][user]) > 0, nil
}

func (e *Engine) HasClaimedReward(ctx context.Context, auctionID uint64, user string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.getAuction(auctionID); err != nil {
		return false, err
	}
	_, claimed := e.claims[auctionID][user]
	return claimed, nil
}
