package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/commerce-dashboard-api/internal/dto"
	"github.com/noah-isme/commerce-dashboard-api/internal/models"
)

// ErrInvalidToken covers bad signatures, malformed input and expired tokens alike.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenConfig defines signing material and lifetimes.
type TokenConfig struct {
	Secret     string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenClaims is the signed payload of access and refresh tokens.
type TokenClaims struct {
	Type models.TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HMAC signed JWTs.
type TokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if cfg.Algorithm == "" {
		method = jwt.SigningMethodHS256
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	return &TokenService{
		secret:     []byte(cfg.Secret),
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// Issue signs {sub, type, exp, iat, jti}. The random jti keeps tokens minted in the same second distinct.
func (s *TokenService) Issue(subject string, kind models.TokenKind, ttl time.Duration) (string, error) {
	issuedAt := s.now().UTC()
	claims := TokenClaims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// IssuePair mints an access and a refresh token for subject and returns the refresh expiry.
func (s *TokenService) IssuePair(subject string) (*dto.TokenPair, time.Time, error) {
	access, err := s.Issue(subject, models.TokenAccess, s.accessTTL)
	if err != nil {
		return nil, time.Time{}, err
	}
	refreshExpiry := s.now().UTC().Add(s.refreshTTL)
	refresh, err := s.Issue(subject, models.TokenRefresh, s.refreshTTL)
	if err != nil {
		return nil, time.Time{}, err
	}
	return &dto.TokenPair{AccessToken: access, RefreshToken: refresh}, refreshExpiry, nil
}

// Verify checks signature, algorithm and expiry and returns the claims untouched.
func (s *TokenService) Verify(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
