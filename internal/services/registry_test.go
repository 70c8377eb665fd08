package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sealed-auction/internal/domain"
	"sealed-auction/internal/homomorphic"
)

func TestCreateAuction_PlaintextDefaults(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	start := h.clock.Now()
	id := h.createPlainAuction(t, alice, 500, 0)
	require.Equal(t, uint64(1), id)

	info, err := h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.True(t, info.IsActive)
	require.False(t, info.IsResolved)
	require.Equal(t, domain.ModePlaintext.String(), info.Mode)
	require.Equal(t, start.Add(300*time.Second), info.EndTime)
	require.NotNil(t, info.Reserve)
	require.Equal(t, uint64(500), *info.Reserve)
	require.Nil(t, info.HighestBid)
}

func TestCreateAuction_EncryptedHidesReserve(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	id := h.createEncryptedAuction(t, alice, 500, time.Minute)

	info, err := h.engine.GetAuctionInfo(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.ModeDirectEncrypted.String(), info.Mode)
	require.Nil(t, info.Reserve)
	require.Nil(t, info.HighestBid)
}

func TestCreateAuction_InvalidGoodType(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	_, err := h.engine.CreateAuction(context.Background(), alice, domain.GoodType(0),
		homomorphic.HandleFromPlain(100), nil, time.Minute)
	require.ErrorIs(t, err, domain.ErrInvalidGoodType)

	_, err = h.engine.CreateAuction(context.Background(), alice, domain.GoodType(6),
		homomorphic.HandleFromPlain(100), nil, time.Minute)
	require.ErrorIs(t, err, domain.ErrInvalidGoodType)
}

func TestCreateAuction_CapacityCeiling(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	for i := 0; i < 10; i++ {
		h.createPlainAuction(t, alice, 100, time.Minute)
	}

	_, err := h.engine.CreateAuction(context.Background(), alice, domain.GoodTypeCollectible,
		homomorphic.HandleFromPlain(100), nil, time.Minute)
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	// Resolving one frees a slot.
	h.clock.Advance(2 * time.Minute)
	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, 1))

	id := h.createPlainAuction(t, alice, 100, time.Minute)
	require.Equal(t, uint64(11), id)
}

func TestCreateAuction_ClosedMarketplace(t *testing.T) {
	opts := defaultOptions()
	opts.ClosedMarketplace = true
	h := newTestHarness(t, opts)

	_, err := h.engine.CreateAuction(context.Background(), alice, domain.GoodTypeCollectible,
		homomorphic.HandleFromPlain(100), nil, time.Minute)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	receipt, err := h.engine.CreateAuction(context.Background(), manager, domain.GoodTypeCollectible,
		homomorphic.HandleFromPlain(100), nil, time.Minute)
	require.NoError(t, err)
	require.Equal(t, uint64(1), receipt.AuctionID)
}

func TestCreateAuction_RejectsBadProof(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	handle, proof, err := h.evaluator.Encrypt(500)
	require.NoError(t, err)
	proof[len(proof)-1] ^= 0xff

	_, err = h.engine.CreateAuction(context.Background(), alice, domain.GoodTypeCollectible,
		handle, proof, time.Minute)
	require.ErrorIs(t, err, domain.ErrBidRejected)

	// Nothing was opened.
	require.Empty(t, h.engine.GetActiveAuctions(context.Background()))
}

func TestGetActiveAuctions_OrderAndFiltering(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	h.createPlainAuction(t, alice, 100, time.Minute)
	h.createPlainAuction(t, bob, 200, time.Hour)
	h.createPlainAuction(t, carol, 300, time.Hour)

	h.clock.Advance(2 * time.Minute)
	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, 1))

	active := h.engine.GetActiveAuctions(context.Background())
	require.Len(t, active, 2)
	require.Equal(t, uint64(2), active[0].ID)
	require.Equal(t, uint64(3), active[1].ID)
}

func TestGetAuctionStats(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	h.createPlainAuction(t, alice, 100, time.Minute)
	h.createPlainAuction(t, bob, 200, time.Hour)

	_, err := h.placePlainBid(t, carol, 1, 150)
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)
	require.NoError(t, h.engine.ResolveAuction(context.Background(), manager, 1))

	stats := h.engine.GetAuctionStats(context.Background())
	require.Equal(t, 2, stats.TotalAuctions)
	require.Equal(t, 1, stats.ActiveAuctions)
	require.Equal(t, 1, stats.ResolvedAuctions)
	require.Equal(t, 1, stats.TotalBids)
	require.Equal(t, 0, stats.PendingCallbacks)
}

func TestGetAuctionInfo_NotFound(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	_, err := h.engine.GetAuctionInfo(context.Background(), 42)
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestHasUserBid(t *testing.T) {
	h := newTestHarness(t, defaultOptions())

	id := h.createPlainAuction(t, alice, 100, time.Minute)

	got, err := h.engine.HasUserBid(context.Background(), id, bob)
	require.NoError(t, err)
	require.False(t, got)

	_, err = h.placePlainBid(t, bob, id, 150)
	require.NoError(t, err)

	got, err = h.engine.HasUserBid(context.Background(), id, bob)
	require.NoError(t, err)
	require.True(t, got)

	_, err = h.engine.HasUserBid(context.Background(), 99, bob)
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}
