package mysql

import (
	"context"
	"database/sql"
	"encoding/hex"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"sealed-auction/internal/domain"
	"sealed-auction/internal/homomorphic"
)

type MySQLAuctionRepository struct {
	db *sql.DB
}

func NewMySQLAuctionRepository(db *sql.DB) *MySQLAuctionRepository {
	return &MySQLAuctionRepository{db: db}
}

// SaveAuction upserts the auction journal row. The engine's in-memory state
// is authoritative; this table exists for durability and offline inspection.
func (r *MySQLAuctionRepository) SaveAuction(ctx context.Context, a *domain.Auction) error {
	query := `
        INSERT INTO auctions
            (id, good_type, creator, mode, reserve_mode, reserve_plain, reserve_handle,
             highest_mode, highest_plain, highest_handle, current_winner, resolved_winner,
             has_winner, start_time, end_time, is_active, is_resolved, participant_count,
             created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            highest_mode = VALUES(highest_mode),
            highest_plain = VALUES(highest_plain),
            highest_handle = VALUES(highest_handle),
            current_winner = VALUES(current_winner),
            resolved_winner = VALUES(resolved_winner),
            has_winner = VALUES(has_winner),
            end_time = VALUES(end_time),
            is_active = VALUES(is_active),
            is_resolved = VALUES(is_resolved),
            participant_count = VALUES(participant_count),
            updated_at = VALUES(updated_at)
    `
	_, err := r.db.ExecContext(ctx, query,
		a.ID, int(a.GoodType), a.Creator, int(a.Mode),
		int(a.Reserve.Mode), a.Reserve.Plain, hex.EncodeToString(a.Reserve.Handle[:]),
		int(a.HighestBid.Mode), a.HighestBid.Plain, hex.EncodeToString(a.HighestBid.Handle[:]),
		a.CurrentWinner, a.ResolvedWinner, a.HasWinner,
		a.StartTime, a.EndTime, a.IsActive, a.IsResolved, a.ParticipantCount,
		a.CreatedAt, time.Now())
	return err
}

func (r *MySQLAuctionRepository) GetAuction(ctx context.Context, auctionID uint64) (*domain.Auction, error) {
	query := `
        SELECT id, good_type, creator, mode, reserve_mode, reserve_plain, reserve_handle,
               highest_mode, highest_plain, highest_handle, current_winner, resolved_winner,
               has_winner, start_time, end_time, is_active, is_resolved, participant_count,
               created_at, updated_at
        FROM auctions WHERE id = ?
    `
	return scanAuction(r.db.QueryRowContext(ctx, query, auctionID))
}

func (r *MySQLAuctionRepository) GetActiveAuctions(ctx context.Context) ([]*domain.Auction, error) {
	query := `
        SELECT id, good_type, creator, mode, reserve_mode, reserve_plain, reserve_handle,
               highest_mode, highest_plain, highest_handle, current_winner, resolved_winner,
               has_winner, start_time, end_time, is_active, is_resolved, participant_count,
               created_at, updated_at
        FROM auctions WHERE is_active = 1 ORDER BY id ASC
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var a domain.Auction
	var goodType, mode, reserveMode, highestMode int
	var reserveHandle, highestHandle string

	err := row.Scan(&a.ID, &goodType, &a.Creator, &mode,
		&reserveMode, &a.Reserve.Plain, &reserveHandle,
		&highestMode, &a.HighestBid.Plain, &highestHandle,
		&a.CurrentWinner, &a.ResolvedWinner, &a.HasWinner,
		&a.StartTime, &a.EndTime, &a.IsActive, &a.IsResolved, &a.ParticipantCount,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.GoodType = domain.GoodType(goodType)
	a.Mode = domain.EncryptionMode(mode)
	a.Reserve.Mode = domain.EncryptionMode(reserveMode)
	a.HighestBid.Mode = domain.EncryptionMode(highestMode)
	a.Reserve.Handle = decodeHandle(reserveHandle)
	a.HighestBid.Handle = decodeHandle(highestHandle)
	return &a, nil
}

func decodeHandle(s string) homomorphic.Handle {
	b, err := hex.DecodeString(s)
	if err != nil {
		return homomorphic.ZeroHandle
	}
	return homomorphic.HandleFromBytes(b)
}
