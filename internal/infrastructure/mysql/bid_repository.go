package mysql

import (
	"context"
	"database/sql"
	"encoding/hex"
	"time"

	"sealed-auction/internal/domain"
)

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

// SaveBid upserts one bid row keyed by (auction, bidder, timestamp). The same
// row is rewritten when supersession or resolution flips its flags.
func (r *MySQLBidRepository) SaveBid(ctx context.Context, b *domain.Bid) error {
	query := `
        INSERT INTO bids
            (auction_id, bidder, mode, amount_plain, amount_handle, bid_time,
             is_active, is_winning, is_pending, correlation_id, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            is_active = VALUES(is_active),
            is_winning = VALUES(is_winning),
            is_pending = VALUES(is_pending)
    `
	_, err := r.db.ExecContext(ctx, query,
		b.AuctionID, b.Bidder, int(b.Mode),
		b.Amount.Plain, hex.EncodeToString(b.Amount.Handle[:]), b.Timestamp,
		b.IsActive, b.IsWinning, b.IsPendingVerification, b.CorrelationID,
		time.Now())
	return err
}

func (r *MySQLBidRepository) GetBidHistory(ctx context.Context, auctionID uint64) ([]*domain.Bid, error) {
	query := `
        SELECT auction_id, bidder, mode, amount_plain, amount_handle, bid_time,
               is_active, is_winning, is_pending, correlation_id
        FROM bids
        WHERE auction_id = ?
        ORDER BY bid_time ASC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var b domain.Bid
		var mode int
		var handle string

		err := rows.Scan(&b.AuctionID, &b.Bidder, &mode,
			&b.Amount.Plain, &handle, &b.Timestamp,
			&b.IsActive, &b.IsWinning, &b.IsPendingVerification, &b.CorrelationID)
		if err != nil {
			return nil, err
		}

		b.Mode = domain.EncryptionMode(mode)
		b.Amount.Mode = b.Mode
		b.Amount.Handle = decodeHandle(handle)
		bids = append(bids, &b)
	}
	return bids, rows.Err()
}
