package domain

import (
	"errors"
	"fmt"
)

// Operation errors. Every public operation either completes fully or fails
// with exactly one of these; there are no partial writes and no generic
// failures surfaced to callers.
var (
	ErrAuctionNotFound        = errors.New("auction not found")
	ErrAuctionNotActive       = errors.New("auction not active")
	ErrAuctionAlreadyResolved = errors.New("auction already resolved")
	ErrAuctionNotExpired      = errors.New("auction not expired")
	ErrBidTooLate             = errors.New("bidding window closed")
	ErrCapacityExceeded       = errors.New("active auction capacity exceeded")
	ErrInvalidGoodType        = errors.New("invalid good type")
	ErrBidRejected            = errors.New("bid rejected")
	ErrNotAuthorized          = errors.New("not authorized")
	ErrNotWinner              = errors.New("caller is not the resolved winner")
	ErrRewardAlreadyClaimed   = errors.New("reward already claimed")
)

// ErrVerificationConsumed marks a gateway callback replaying an already
// consumed correlation id. It wraps ErrNotAuthorized so callers cannot
// distinguish a replayed id from one that never existed, while logs can.
var ErrVerificationConsumed = fmt.Errorf("verification already consumed: %w", ErrNotAuthorized)
