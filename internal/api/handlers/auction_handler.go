package handlers

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"sealed-auction/internal/domain"
	"sealed-auction/internal/homomorphic"
	"sealed-auction/internal/services"
	"sealed-auction/pkg/logger"
)

// callerHeader names the principal making the request. Authentication of the
// principal is an upstream concern; the engine only needs an identity to
// authorize and attribute.
const callerHeader = "X-Caller-ID"

type AuctionHandler struct {
	engine *services.Engine
	log    logger.Logger
}

func NewAuctionHandler(engine *services.Engine, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		engine: engine,
		log:    log,
	}
}

// payloadRequest is the wire shape of an opaque value submission. Plaintext
// callers may pass amount directly; confidential callers pass the handle in
// hex plus the proof in base64.
type payloadRequest struct {
	Amount *uint64 `json:"amount,omitempty"`
	Handle string  `json:"handle,omitempty"`
	Proof  string  `json:"proof,omitempty"`
}

func (p *payloadRequest) decode() (homomorphic.Handle, []byte, error) {
	var proof []byte
	if p.Proof != "" {
		decoded, err := base64.StdEncoding.DecodeString(p.Proof)
		if err != nil {
			return homomorphic.ZeroHandle, nil, errors.New("proof must be base64")
		}
		proof = decoded
	}

	if p.Handle != "" {
		raw, err := hex.DecodeString(p.Handle)
		if err != nil || len(raw) != homomorphic.HandleSize {
			return homomorphic.ZeroHandle, nil, errors.New("handle must be 32 bytes of hex")
		}
		return homomorphic.HandleFromBytes(raw), proof, nil
	}

	if p.Amount == nil {
		return homomorphic.ZeroHandle, nil, errors.New("amount or handle required")
	}
	return homomorphic.HandleFromPlain(*p.Amount), proof, nil
}

type CreateAuctionRequest struct {
	GoodType        int `json:"good_type"`
	DurationSeconds int `json:"duration_seconds"`
	payloadRequest
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)
	if caller == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "caller identity required"})
	}

	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	handle, proof, err := req.decode()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	receipt, err := h.engine.CreateAuction(
		c.Request().Context(), caller, domain.GoodType(req.GoodType),
		handle, proof, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusCreated, receipt)
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)
	if caller == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "caller identity required"})
	}

	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid auction id"})
	}

	var req payloadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	handle, proof, err := req.decode()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	receipt, err := h.engine.PlaceBid(c.Request().Context(), caller, auctionID, handle, proof)
	if err != nil {
		return h.fail(c, err)
	}

	status := http.StatusOK
	if receipt.Pending {
		status = http.StatusAccepted
	}
	return c.JSON(status, receipt)
}

func (h *AuctionHandler) ResolveAuction(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)
	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid auction id"})
	}

	if err := h.engine.ResolveAuction(c.Request().Context(), caller, auctionID); err != nil {
		return h.fail(c, err)
	}

	info, err := h.engine.GetAuctionInfo(c.Request().Context(), auctionID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

type BatchResolveRequest struct {
	AuctionIDs []uint64 `json:"auction_ids"`
}

func (h *AuctionHandler) BatchResolveAuctions(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)

	var req BatchResolveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resolved, err := h.engine.BatchResolveAuctions(c.Request().Context(), caller, req.AuctionIDs)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"resolved": resolved})
}

func (h *AuctionHandler) EmergencyEndAuction(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)
	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid auction id"})
	}

	if err := h.engine.EmergencyEndAuction(c.Request().Context(), caller, auctionID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ended"})
}

func (h *AuctionHandler) ClaimReward(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)
	if caller == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "caller identity required"})
	}

	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid auction id"})
	}

	if err := h.engine.ClaimReward(c.Request().Context(), caller, auctionID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"auction_id": auctionID, "claimed": true})
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid auction id"})
	}

	info, err := h.engine.GetAuctionInfo(c.Request().Context(), auctionID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (h *AuctionHandler) GetActiveAuctions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.GetActiveAuctions(c.Request().Context()))
}

func (h *AuctionHandler) GetAuctionStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.GetAuctionStats(c.Request().Context()))
}

func (h *AuctionHandler) GetMyWins(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)
	if caller == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "caller identity required"})
	}
	return c.JSON(http.StatusOK, h.engine.GetMyWins(c.Request().Context(), caller))
}

func (h *AuctionHandler) HasUserBid(c echo.Context) error {
	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid auction id"})
	}

	hasBid, err := h.engine.HasUserBid(c.Request().Context(), auctionID, c.Param("user"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"has_bid": hasBid})
}

// bidRecord is the wire shape of one ledger entry. Amount is present only on
// plaintext bids.
type bidRecord struct {
	AuctionID uint64    `json:"auction_id"`
	Bidder    string    `json:"bidder"`
	Amount    *uint64   `json:"amount,omitempty"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
	IsActive  bool      `json:"is_active"`
	IsWinning bool      `json:"is_winning"`
	IsPending bool      `json:"is_pending"`
}

func (h *AuctionHandler) GetBidHistory(c echo.Context) error {
	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid auction id"})
	}

	bids, err := h.engine.GetBidHistory(c.Request().Context(), auctionID, c.Param("user"))
	if err != nil {
		return h.fail(c, err)
	}

	out := make([]*bidRecord, 0, len(bids))
	for _, b := range bids {
		rec := &bidRecord{
			AuctionID: b.AuctionID,
			Bidder:    b.Bidder,
			Mode:      b.Mode.String(),
			Timestamp: b.Timestamp,
			IsActive:  b.IsActive,
			IsWinning: b.IsWinning,
			IsPending: b.IsPendingVerification,
		}
		if b.Mode == domain.ModePlaintext {
			amount := b.Amount.Plain
			rec.Amount = &amount
		}
		out = append(out, rec)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuctionHandler) HasClaimedReward(c echo.Context) error {
	auctionID, err := parseAuctionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid auction id"})
	}

	claimed, err := h.engine.HasClaimedReward(c.Request().Context(), auctionID, c.Param("user"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"claimed": claimed})
}

type VerifiedCallbackRequest struct {
	CorrelationID string   `json:"correlation_id"`
	Handles       []string `json:"handles,omitempty"`
}

func (h *AuctionHandler) GatewayVerified(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)

	var req VerifiedCallbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	var handles [][]byte
	for _, s := range req.Handles {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "handles must be hex"})
		}
		handles = append(handles, raw)
	}

	if err := h.engine.OnVerified(c.Request().Context(), caller, req.CorrelationID, handles); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "applied"})
}

type RejectedCallbackRequest struct {
	CorrelationID string `json:"correlation_id"`
}

func (h *AuctionHandler) GatewayRejected(c echo.Context) error {
	caller := c.Request().Header.Get(callerHeader)

	var req RejectedCallbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if err := h.engine.OnRejected(c.Request().Context(), caller, req.CorrelationID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "rejected"})
}

func parseAuctionID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// fail maps a sentinel engine error onto a status code, keeping the kind
// visible to the caller rather than collapsing everything into one failure.
func (h *AuctionHandler) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotAuthorized), errors.Is(err, domain.ErrNotWinner):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidGoodType):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAuctionNotActive),
		errors.Is(err, domain.ErrAuctionAlreadyResolved),
		errors.Is(err, domain.ErrAuctionNotExpired),
		errors.Is(err, domain.ErrBidTooLate),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrBidRejected),
		errors.Is(err, domain.ErrRewardAlreadyClaimed):
		status = http.StatusConflict
	default:
		h.log.Error("Unexpected engine error", "error", err)
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
