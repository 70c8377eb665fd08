package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sealed-auction/internal/domain"
)

func TestResolveAuction_NotExpired(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Hour)

	err := h.engine.ResolveAuction(context.Background(), manager, id)
	require.ErrorIs(t, err, domain.ErrAuctionNotExpired)

	// Exactly at the end time still counts as not expired.
	h.clock.Advance(time.Hour)
	err = h.engine.ResolveAuction(context.Background(), manager, id)
	require.ErrorIs(t, err, domain.ErrAuctionNotExpired)

	h.clock.Advance(time.Second)
	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, id))
}

func TestResolveAuction_ManagerOnly(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Minute)
	h.clock.Advance(2 * time.Minute)

	err := h.engine.ResolveAuction(context.Background(), bob, id)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, id))
}

func TestResolveAuction_ExactlyOnce(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Minute)

	_, err := h.placePlainBid(t, bob, id, 200)
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)
	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, id))

	err = h.engine.ResolveAuction(context.Background(), manager, id)
	require.ErrorIs(t, err, domain.ErrAuctionAlreadyResolved)

	info, err := h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.True(t, info.IsResolved)
	require.False(t, info.IsActive)
	require.True(t, info.HasWinner)
	require.Equal(t, bob, info.ResolvedWinner)
}

func TestResolveAuction_NoBidsNoWinner(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Minute)
	h.clock.Advance(2 * time.Minute)

	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, id))

	info, err := h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.True(t, info.IsResolved)
	require.False(t, info.HasWinner)
	require.Empty(t, info.ResolvedWinner)

	err = h.engine.ClaimReward(context.Background(), alice, id)
	require.ErrorIs(t, err, domain.ErrNotWinner)
}

func TestResolveAuction_NotFound(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	err := h.engine.ResolveAuction(context.Background(), manager, 42)
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestBatchResolveAuctions_PerIDIsolation(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	expired1 := h.createPlainAuction(t, alice, 100, time.Minute)
	expired2 := h.createPlainAuction(t, alice, 100, time.Minute)
	longRunning := h.createPlainAuction(t, alice, 100, time.Hour)
	h.clock.Advance(2 * time.Minute)

	resolved, err := h.engine.BatchResolveAuctions(context.Background(), manager,
		[]uint64{expired1, 42, longRunning, expired2})
	require.NoError(t, err)
	require.Equal(t, 2, resolved)

	info, err := h.engine.GetAuctionInfo(context.Background(), longRunning)
	require.NoError(t, err)
	require.False(t, info.IsResolved)

	// A second pass finds nothing left to do.
	resolved, err = h.engine.BatchResolveAuctions(context.Background(), manager,
		[]uint64{expired1, expired2})
	require.NoError(t, err)
	require.Zero(t, resolved)
}

func TestBatchResolveAuctions_ManagerOnly(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Minute)
	h.clock.Advance(2 * time.Minute)

	_, err := h.engine.BatchResolveAuctions(context.Background(), bob, []uint64{id})
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestEmergencyEndAuction_ForcesExpiry(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Hour)

	_, err := h.placePlainBid(t, bob, id, 200)
	require.NoError(t, err)

	err = h.engine.EmergencyEndAuction(context.Background(), bob, id)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	require.NoError(t, h.engine.EmergencyEndAuction(context.Background(), manager, id))

	info, err := h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.True(t, info.IsResolved)
	require.Equal(t, h.clock.Now(), info.EndTime)
	require.Equal(t, bob, info.ResolvedWinner)

	err = h.engine.EmergencyEndAuction(context.Background(), manager, id)
	require.ErrorIs(t, err, domain.ErrAuctionAlreadyResolved)
}

func TestExpiredUnresolved(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	short := h.createPlainAuction(t, alice, 100, time.Minute)
	h.createPlainAuction(t, alice, 100, time.Hour)
	h.clock.Advance(2 * time.Minute)

	require.Equal(t, []uint64{short}, h.engine.ExpiredUnresolved(context.Background()))

	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, short))
	require.Empty(t, h.engine.ExpiredUnresolved(context.Background()))
}

func TestClaimReward_WinnerExactlyOnce(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Minute)

	_, err := h.placePlainBid(t, bob, id, 200)
	require.NoError(t, err)
	_, err = h.placePlainBid(t, carol, id, 300)
	require.NoError(t, err)

	// Unresolved auctions have nothing to claim yet.
	err = h.engine.ClaimReward(context.Background(), carol, id)
	require.ErrorIs(t, err, domain.ErrAuctionNotExpired)

	h.clock.Advance(2 * time.Minute)
	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, id))

	// Superseded bidders are not winners.
	err = h.engine.ClaimReward(context.Background(), bob, id)
	require.ErrorIs(t, err, domain.ErrNotWinner)

	require.NoError(t, h.engine.ClaimReward(context.Background(), carol, id))

	err = h.engine.ClaimReward(context.Background(), carol, id)
	require.ErrorIs(t, err, domain.ErrRewardAlreadyClaimed)

	claimed, err := h.engine.HasClaimedReward(context.Background(), id, carol)
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestClaimReward_NotFound(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	err := h.engine.ClaimReward(context.Background(), bob, 42)
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestGetMyWins(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	won := h.createPlainAuction(t, alice, 100, time.Minute)
	lost := h.createPlainAuction(t, alice, 100, time.Minute)

	_, err := h.placePlainBid(t, bob, won, 200)
	require.NoError(t, err)
	_, err = h.placePlainBid(t, bob, lost, 200)
	require.NoError(t, err)
	_, err = h.placePlainBid(t, carol, lost, 300)
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)
	resolved, err := h.engine.BatchResolveAuctions(context.Background(), manager, []uint64{won, lost})
	require.NoError(t, err)
	require.Equal(t, 2, resolved)

	wins := h.engine.GetMyWins(context.Background(), bob)
	require.Len(t, wins, 1)
	require.Equal(t, won, wins[0].ID)

	wins = h.engine.GetMyWins(context.Background(), carol)
	require.Len(t, wins, 1)
	require.Equal(t, lost, wins[0].ID)

	require.Empty(t, h.engine.GetMyWins(context.Background(), alice))
}

func TestResolvedWinnerFrozenAgainstLaterState(t *testing.T) {
	h := newTestHarness(t, defaultOptions())
	id := h.createPlainAuction(t, alice, 100, time.Minute)

	_, err := h.placePlainBid(t, bob, id, 200)
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)
	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, id))

	// No bid can land after the terminal transition.
	_, err = h.placePlainBid(t, carol, id, 500)
	require.ErrorIs(t, err, domain.ErrAuctionNotActive)

	info, err := h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, bob, info.ResolvedWinner)
}
