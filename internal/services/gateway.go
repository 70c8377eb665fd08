package services

import (
	"context"

	"github.com/google/uuid"

	"sealed-auction/internal/domain"
	"sealed-auction/internal/homomorphic"
)

// requestVerification books a pending record and forwards the payload to the
// external verifier. The record is committed only after the transport accepts
// the request, so a transport failure leaves no trace. Caller holds the
// engine mutex.
func (e *Engine) requestVerification(ctx context.Context, p *domain.PendingVerification) (string, error) {
	p.CorrelationID = uuid.NewString()
	p.SubmittedAt = e.now()
	p.Deadline = p.SubmittedAt.Add(e.opts.VerificationTTL)

	if e.transport != nil {
		req := &domain.VerificationRequest{
			ChainID:       e.opts.ChainID,
			RequesterID:   e.opts.RequesterID,
			SubmitterID:   p.Submitter,
			CorrelationID: p.CorrelationID,
			Payload:       p.Payload,
			ExtraData:     p.Proof,
		}
		if err := e.transport.Submit(ctx, req); err != nil {
			return "", err
		}
	}

	e.pending[p.CorrelationID] = p
	return p.CorrelationID, nil
}

// OnVerified is the asynchronous completion half of the gateway protocol.
// Only the configured verifier identity may call it. The original payload is
// replayed through the normal acceptance path as if it had arrived now; an
// auction that went inactive or expired in the meantime fails the replay.
// The correlation id is consumed exactly once either way.
func (e *Engine) OnVerified(ctx context.Context, caller, correlationID string, verifiedHandles [][]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.verifierAuth == nil || !e.verifierAuth(caller) {
		return domain.ErrNotAuthorized
	}

	p, ok := e.pending[correlationID]
	if !ok {
		return domain.ErrNotAuthorized
	}
	if p.Consumed {
		return domain.ErrVerificationConsumed
	}
	p.Consumed = true

	handle := homomorphic.HandleFromBytes(p.Payload)
	if len(verifiedHandles) > 0 {
		handle = homomorphic.HandleFromBytes(verifiedHandles[0])
	}

	if err := e.comparator.Evaluator().Verify(handle, p.Proof); err != nil {
		e.log.Warn("Verified payload failed local decode, dropping",
			"correlation_id", correlationID, "error", err)
		e.settlePendingBid(p)
		return domain.ErrBidRejected
	}
	val := domain.EncryptedValue(handle)

	if p.IsReserveSubmission() {
		if e.activeCount >= e.opts.Capacity {
			return domain.ErrCapacityExceeded
		}
		a := e.openAuction(p.Submitter, p.GoodType, val, p.Duration)
		e.publish(domain.EventAuctionCreated, a.ID, p.Submitter, a.Mode)
		e.log.Info("Auction created from verified reserve",
			"auction_id", a.ID, "correlation_id", correlationID, "creator", p.Submitter)
		return nil
	}

	a, err := e.getAuction(p.AuctionID)
	if err != nil {
		e.settlePendingBid(p)
		return err
	}
	if !a.IsActive || a.IsResolved {
		e.settlePendingBid(p)
		return domain.ErrAuctionNotActive
	}
	now := e.now()
	if now.After(a.EndTime) {
		e.settlePendingBid(p)
		return domain.ErrBidTooLate
	}

	e.settlePendingBid(p)
	if err := e.acceptBid(a, p.Submitter, val, now); err != nil {
		e.publish(domain.EventBidRejected, a.ID, p.Submitter, val.Mode)
		return err
	}

	e.publish(domain.EventBidAccepted, a.ID, p.Submitter, val.Mode)
	e.log.Info("Verified bid applied",
		"auction_id", a.ID, "bidder", p.Submitter, "correlation_id", correlationID)
	return nil
}

// OnRejected consumes a correlation id with no further state change: the
// submitter's bid simply never materializes.
func (e *Engine) OnRejected(ctx context.Context, caller, correlationID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.verifierAuth == nil || !e.verifierAuth(caller) {
		return domain.ErrNotAuthorized
	}

	p, ok := e.pending[correlationID]
	if !ok {
		return domain.ErrNotAuthorized
	}
	if p.Consumed {
		return domain.ErrVerificationConsumed
	}
	p.Consumed = true
	e.settlePendingBid(p)

	if !p.IsReserveSubmission() {
		e.publish(domain.EventVerificationRejected, p.AuctionID, p.Submitter, domain.ModeGatewayPending)
	}
	e.log.Info("Verification rejected by gateway", "correlation_id", correlationID)
	return nil
}

// AbandonExpiredVerifications consumes every pending record whose callback
// deadline has passed, so the saga cannot stay open forever. Returns how many
// records were abandoned.
func (e *Engine) AbandonExpiredVerifications(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	abandoned := 0
	for _, p := range e.pending {
		if !p.Consumed && now.After(p.Deadline) {
			p.Consumed = true
			e.settlePendingBid(p)
			abandoned++
			e.log.Warn("Abandoned pending verification past deadline",
				"correlation_id", p.CorrelationID, "auction_id", p.AuctionID,
				"submitter", p.Submitter)
		}
	}
	return abandoned
}

// settlePendingBid clears the pending flag on the bid record booked when the
// payload was forwarded. Reserve submissions have no bid record.
func (e *Engine) settlePendingBid(p *domain.PendingVerification) {
	if p.IsReserveSubmission() {
		return
	}
	for _, b := range e.bids[p.AuctionID][p.Submitter] {
		if b.CorrelationID == p.CorrelationID {
			b.IsPendingVerification = false
		}
	}
}
