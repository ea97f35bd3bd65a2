// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-bingo-bot/internal/model"
)

// PrivilegeRepository persists VIP users and per-game bonus grants.
// These are the only durable parts of the game session; everything else
// lives in memory and is rebuilt on restart.
type PrivilegeRepository struct {
	pool *pgxpool.Pool
}

// NewPrivilegeRepository creates a new PrivilegeRepository instance.
func NewPrivilegeRepository(pool *pgxpool.Pool) *PrivilegeRepository {
	return &PrivilegeRepository{pool: pool}
}

// LoadVIPs returns all VIP users ordered by user ID.
func (r *PrivilegeRepository) LoadVIPs(ctx context.Context) ([]model.VIPUser, error) {
	const query = `
		SELECT user_id, username
		FROM vip_users
		ORDER BY user_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load vip users: %w", err)
	}
	defer rows.Close()

	var vips []model.VIPUser
	for rows.Next() {
		var vip model.VIPUser
		if err := rows.Scan(&vip.UserID, &vip.Username); err != nil {
			return nil, fmt.Errorf("failed to scan vip user: %w", err)
		}
		vips = append(vips, vip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vip users: %w", err)
	}

	return vips, nil
}

// LoadBonuses returns all bonus grants keyed by user ID.
func (r *PrivilegeRepository) LoadBonuses(ctx context.Context) (map[int64]int, error) {
	const query = `
		SELECT user_id, bonus_count
		FROM bonus_users
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load bonus users: %w", err)
	}
	defer rows.Close()

	bonuses := make(map[int64]int)
	for rows.Next() {
		var grant model.BonusGrant
		if err := rows.Scan(&grant.UserID, &grant.BonusCount); err != nil {
			return nil, fmt.Errorf("failed to scan bonus user: %w", err)
		}
		bonuses[grant.UserID] = grant.BonusCount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bonus users: %w", err)
	}

	return bonuses, nil
}

// Save implements the session store's saver contract.
func (r *PrivilegeRepository) Save(ctx context.Context, vips []model.VIPUser, bonuses map[int64]int) error {
	return r.ReplaceAll(ctx, vips, bonuses)
}

// ReplaceAll rewrites both tables so they exactly match the given in-memory
// state. The rewrite runs in a single transaction; a failed save never leaves
// a half-emptied table behind.
func (r *PrivilegeRepository) ReplaceAll(ctx context.Context, vips []model.VIPUser, bonuses map[int64]int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM vip_users`); err != nil {
		return fmt.Errorf("failed to clear vip users: %w", err)
	}
	for _, vip := range vips {
		_, err := tx.Exec(ctx,
			`INSERT INTO vip_users (user_id, username) VALUES ($1, $2)`,
			vip.UserID, vip.Username,
		)
		if err != nil {
			return fmt.Errorf("failed to insert vip user %d: %w", vip.UserID, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM bonus_users`); err != nil {
		return fmt.Errorf("failed to clear bonus users: %w", err)
	}
	for userID, count := range bonuses {
		_, err := tx.Exec(ctx,
			`INSERT INTO bonus_users (user_id, bonus_count) VALUES ($1, $2)`,
			userID, count,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bonus user %d: %w", userID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit save transaction: %w", err)
	}

	return nil
}
