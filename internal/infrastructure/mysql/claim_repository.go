package mysql

import (
	"context"
	"database/sql"

	"sealed-auction/internal/domain"
)

type MySQLClaimRepository struct {
	db *sql.DB
}

func NewMySQLClaimRepository(db *sql.DB) *MySQLClaimRepository {
	return &MySQLClaimRepository{db: db}
}

func (r *MySQLClaimRepository) SaveClaim(ctx context.Context, c *domain.RewardClaim) error {
	query := `
        INSERT IGNORE INTO reward_claims (auction_id, winner, claimed_at)
        VALUES (?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query, c.AuctionID, c.Winner, c.ClaimedAt)
	return err
}

func (r *MySQLClaimRepository) GetClaims(ctx context.Context, winner string) ([]*domain.RewardClaim, error) {
	query := `
        SELECT auction_id, winner, claimed_at
        FROM reward_claims
        WHERE winner = ?
        ORDER BY claimed_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, winner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []*domain.RewardClaim
	for rows.Next() {
		var c domain.RewardClaim
		if err := rows.Scan(&c.AuctionID, &c.Winner, &c.ClaimedAt); err != nil {
			return nil, err
		}
		claims = append(claims, &c)
	}
	return claims, rows.Err()
}
