package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sealed-auction/internal/domain"
	"sealed-auction/internal/homomorphic"
)

func TestPlaceBid_PlaintextFlow(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 500, time.Hour)

	// Below reserve.
	_, err := h.placePlainBid(t, bob, id, 400)
	require.ErrorIs(t, err, domain.ErrBidRejected)

	// Meets reserve.
	receipt, err := h.placePlainBid(t, bob, id, 600)
	require.NoError(t, err)
	require.True(t, receipt.Accepted)

	info, err := h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 1, info.ParticipantCount)
	require.NotNil(t, info.HighestBid)
	require.Equal(t, uint64(600), *info.HighestBid)

	// Not strictly greater than the current highest.
	_, err = h.placePlainBid(t, carol, id, 550)
	require.ErrorIs(t, err, domain.ErrBidRejected)
	_, err = h.placePlainBid(t, carol, id, 600)
	require.ErrorIs(t, err, domain.ErrBidRejected)

	// Rejected bidders never become participants.
	info, err = h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 1, info.ParticipantCount)
}

func TestPlaceBid_ZeroAmountRejected(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 0, time.Hour)

	_, err := h.placePlainBid(t, bob, id, 0)
	require.ErrorIs(t, err, domain.ErrBidRejected)
}

func TestPlaceBid_FirstBidAtExactReserve(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 500, time.Hour)

	receipt, err := h.placePlainBid(t, bob, id, 500)
	require.NoError(t, err)
	require.True(t, receipt.Accepted)
}

func TestPlaceBid_SupersessionMovesWinner(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Hour)

	_, err := h.placePlainBid(t, bob, id, 200)
	require.NoError(t, err)
	_, err = h.placePlainBid(t, carol, id, 300)
	require.NoError(t, err)

	history, err := h.engine.GetBidHistory(context.Background(), id, bob)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.False(t, history[0].IsActive)
	require.False(t, history[0].IsWinning)

	history, err = h.engine.GetBidHistory(context.Background(), id, carol)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.True(t, history[0].IsActive)
	require.True(t, history[0].IsWinning)

	info, err := h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 2, info.ParticipantCount)
}

func TestPlaceBid_RebidKeepsHistoryAndParticipantCount(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Hour)

	_, err := h.placePlainBid(t, bob, id, 200)
	require.NoError(t, err)
	_, err = h.placePlainBid(t, bob, id, 250)
	require.NoError(t, err)

	history, err := h.engine.GetBidHistory(context.Background(), id, bob)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.False(t, history[0].IsActive)
	require.True(t, history[1].IsActive)

	info, err := h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 1, info.ParticipantCount)
}

func TestPlaceBid_TooLate(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Minute)

	h.clock.Advance(2 * time.Minute)
	_, err := h.placePlainBid(t, bob, id, 200)
	require.ErrorIs(t, err, domain.ErrBidTooLate)
}

func TestPlaceBid_UnknownAndResolvedAuction(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	_, err := h.placePlainBid(t, bob, 42, 200)
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)

	id := h.createPlainAuction(t, alice, 100, time.Minute)
	h.clock.Advance(2 * time.Minute)
	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, id))

	_, err = h.placePlainBid(t, bob, id, 200)
	require.ErrorIs(t, err, domain.ErrAuctionNotActive)
}

func TestPlaceBid_EncryptedFlow(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createEncryptedAuction(t, alice, 500, time.Hour)

	_, err := h.placeEncryptedBid(t, bob, id, 400)
	require.ErrorIs(t, err, domain.ErrBidRejected)

	receipt, err := h.placeEncryptedBid(t, bob, id, 600)
	require.NoError(t, err)
	require.True(t, receipt.Accepted)

	// Equal to the running highest loses on the strict-increase rule even
	// though the comparator only ever sees opaque handles.
	_, err = h.placeEncryptedBid(t, carol, id, 600)
	require.ErrorIs(t, err, domain.ErrBidRejected)

	receipt, err = h.placeEncryptedBid(t, carol, id, 601)
	require.NoError(t, err)
	require.True(t, receipt.Accepted)

	// The read model never leaks amounts on this path.
	info, err := h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.Nil(t, info.Reserve)
	require.Nil(t, info.HighestBid)
	require.Equal(t, 2, info.ParticipantCount)
}

func TestPlaceBid_MixedModes(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 500, time.Hour)

	// Encrypted bid against a plaintext reserve.
	receipt, err := h.placeEncryptedBid(t, bob, id, 600)
	require.NoError(t, err)
	require.True(t, receipt.Accepted)

	// Plaintext bid against the now-encrypted highest.
	receipt, err = h.placePlainBid(t, carol, id, 700)
	require.NoError(t, err)
	require.True(t, receipt.Accepted)

	_, err = h.placeEncryptedBid(t, bob, id, 650)
	require.ErrorIs(t, err, domain.ErrBidRejected)
}

func TestPlaceBid_TamperedProofRejected(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Hour)

	handle, proof, err := h.evaluator.Encrypt(200)
	require.NoError(t, err)
	proof[0] ^= 0xff

	_, err = h.engine.PlaceBid(context.Background(), bob, id, handle, proof)
	require.ErrorIs(t, err, domain.ErrBidRejected)

	got, err := h.engine.HasUserBid(context.Background(), id, bob)
	require.NoError(t, err)
	require.False(t, got)
}

func TestPlaceBid_CallOrderDecidesTies(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Hour)

	_, err := h.placePlainBid(t, bob, id, 300)
	require.NoError(t, err)
	_, err = h.placePlainBid(t, carol, id, 300)
	require.ErrorIs(t, err, domain.ErrBidRejected)

	h.clock.Advance(2 * time.Hour)
	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, id))

	info, err := h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, bob, info.ResolvedWinner)
}

func TestPlaceBid_HighestBidderIsOpaque(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Hour)

	_, err := h.placePlainBid(t, bob, id, 200)
	require.NoError(t, err)

	history, err := h.engine.GetBidHistory(context.Background(), id, bob)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotEqual(t, homomorphic.ZeroHandle, bidderHandle(bob))
	require.NotEqual(t, bidderHandle(bob), bidderHandle(carol))
}
