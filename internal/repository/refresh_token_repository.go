package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/commerce-dashboard-api/internal/models"
)

const insertRefreshToken = `INSERT INTO refresh_tokens (customer_id, token, expires_at, created_at) VALUES (?, ?, ?, ?)`

// RefreshTokenRepository stores server-side refresh token sessions.
type RefreshTokenRepository struct {
	db *sqlx.DB
}

func NewRefreshTokenRepository(db *sqlx.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// ReplaceForCustomer drops every session of the customer and stores token as the only one.
func (r *RefreshTokenRepository) ReplaceForCustomer(ctx context.Context, token *models.RefreshToken) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace refresh tokens: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM refresh_tokens WHERE customer_id = ?`), token.CustomerID); err != nil {
		return fmt.Errorf("clear refresh tokens: %w", err)
	}
	if err = insertToken(ctx, tx, token); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace refresh tokens: %w", err)
	}
	return nil
}

// FindByToken returns sql.ErrNoRows for unknown or revoked tokens.
func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := r.db.Rebind(`SELECT refresh_token_id, customer_id, token, expires_at, created_at FROM refresh_tokens WHERE token = ? LIMIT 1`)
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// Rotate consumes the session consumedID and stores next in its place.
// It returns sql.ErrNoRows when the session was already consumed, which lets
// exactly one of several concurrent rotations win.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, consumedID int64, next *models.RefreshToken) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotate refresh token: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM refresh_tokens WHERE refresh_token_id = ?`), consumedID)
	if err != nil {
		return fmt.Errorf("consume refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume refresh token: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = insertToken(ctx, tx, next); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit rotate refresh token: %w", err)
	}
	return nil
}

// DeleteByTokenAndCustomer reports whether a session owned by customerID was removed.
func (r *RefreshTokenRepository) DeleteByTokenAndCustomer(ctx context.Context, token string, customerID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM refresh_tokens WHERE token = ? AND customer_id = ?`), token, customerID)
	if err != nil {
		return false, fmt.Errorf("delete refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete refresh token: %w", err)
	}
	return affected > 0, nil
}

// DeleteAllByCustomer revokes every session of the customer.
func (r *RefreshTokenRepository) DeleteAllByCustomer(ctx context.Context, customerID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM refresh_tokens WHERE customer_id = ?`), customerID)
	if err != nil {
		return 0, fmt.Errorf("delete customer refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpired removes sessions whose expiry is before now.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM refresh_tokens WHERE expires_at < ?`), now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

func insertToken(ctx context.Context, tx *sqlx.Tx, token *models.RefreshToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	id, err := insertReturningID(ctx, tx, insertRefreshToken, "refresh_token_id",
		token.CustomerID, token.Token, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	token.ID = id
	return nil
}
