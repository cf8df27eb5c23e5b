package models

import "time"

// TokenKind distinguishes access tokens from refresh tokens in the "type" claim.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// RefreshToken is a persisted, single-use refresh credential.
type RefreshToken struct {
	ID         int64     `db:"refresh_token_id" json:"refresh_token_id"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	Token      string    `db:"token" json:"-"`
	ExpiresAt  time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
