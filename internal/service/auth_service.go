package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/commerce-dashboard-api/internal/dto"
	"github.com/noah-isme/commerce-dashboard-api/internal/models"
	"github.com/noah-isme/commerce-dashboard-api/internal/repository"
	"github.com/noah-isme/commerce-dashboard-api/pkg/events"
	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
)

const minPasswordLength = 8

type customerStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	CreateWithSite(ctx context.Context, customer *models.Customer, site *models.Site) error
}

type refreshTokenStore interface {
	ReplaceForCustomer(ctx context.Context, token *models.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	Rotate(ctx context.Context, consumedID int64, next *models.RefreshToken) error
	DeleteByTokenAndCustomer(ctx context.Context, token string, customerID int64) (bool, error)
	DeleteAllByCustomer(ctx context.Context, customerID int64) (int64, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

// AuthServiceParams groups constructor dependencies.
type AuthServiceParams struct {
	Customers     customerStore
	RefreshTokens refreshTokenStore
	Tokens        *TokenService
	Hasher        *PasswordHasher
	Validator     *validator.Validate
	Publisher     eventPublisher
	Metrics       *MetricsService
	Logger        *zap.Logger
}

// AuthService runs signup, login, token rotation and logout.
type AuthService struct {
	customers     customerStore
	refreshTokens refreshTokenStore
	tokens        *TokenService
	hasher        *PasswordHasher
	validator     *validator.Validate
	publisher     eventPublisher
	metrics       *MetricsService
	logger        *zap.Logger
}

func NewAuthService(params AuthServiceParams) *AuthService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hasher := params.Hasher
	if hasher == nil {
		hasher = NewPasswordHasher(0)
	}
	return &AuthService{
		customers:     params.Customers,
		refreshTokens: params.RefreshTokens,
		tokens:        params.Tokens,
		hasher:        hasher,
		validator:     validate,
		publisher:     params.Publisher,
		metrics:       params.Metrics,
		logger:        logger,
	}
}

// Signup creates a customer and their first site atomically.
func (s *AuthService) Signup(ctx context.Context, req dto.SignupRequest) (*dto.CustomerSummary, error) {
	summary, err := s.signup(ctx, req)
	s.record("signup", err)
	return summary, err
}

func (s *AuthService) signup(ctx context.Context, req dto.SignupRequest) (*dto.CustomerSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password must be at least 8 characters")
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password must be at most 72 bytes")
	}
	if !req.AgreePrivacy {
		return nil, appErrors.Clone(appErrors.ErrValidation, "privacy policy must be accepted")
	}

	if _, err := s.customers.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	customer := &models.Customer{
		Name:     req.LastName + req.FirstName,
		Email:    req.Email,
		Password: hash,
		Category: req.SiteType,
	}
	site := &models.Site{
		URL:      req.SiteURL,
		Name:     req.SiteName,
		Category: req.SiteCategory,
		Timezone: req.SiteTZ,
	}
	if err := s.customers.CreateWithSite(ctx, customer, site); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.ErrEmailTaken
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create customer")
	}

	s.publishRegistered(ctx, customer, site)

	return &dto.CustomerSummary{CustomerID: customer.ID, Name: customer.Name, Email: customer.Email}, nil
}

// Login checks credentials and starts a fresh session, dropping any previous ones.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenPair, error) {
	pair, err := s.login(ctx, req)
	s.record("login", err)
	return pair, err
}

func (s *AuthService) login(ctx context.Context, req dto.LoginRequest) (*dto.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	customer, err := s.customers.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch customer")
	}
	if !s.hasher.Verify(req.Password, customer.Password) {
		return nil, appErrors.ErrInvalidCredentials
	}

	pair, expiresAt, err := s.tokens.IssuePair(strconv.FormatInt(customer.ID, 10))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue tokens")
	}

	session := &models.RefreshToken{CustomerID: customer.ID, Token: pair.RefreshToken, ExpiresAt: expiresAt}
	if err := s.refreshTokens.ReplaceForCustomer(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}
	return pair, nil
}

// RefreshToken consumes a refresh token and returns a rotated pair. Replays fail.
func (s *AuthService) RefreshToken(ctx context.Context, req dto.RefreshRequest) (*dto.TokenPair, error) {
	pair, err := s.refresh(ctx, req)
	s.record("refresh", err)
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, req dto.RefreshRequest) (*dto.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	customerID, err := s.subject(req.RefreshToken, models.TokenRefresh)
	if err != nil {
		return nil, err
	}

	stored, err := s.refreshTokens.FindByToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found or revoked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch refresh token")
	}
	if stored.CustomerID != customerID {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found or revoked")
	}

	pair, expiresAt, err := s.tokens.IssuePair(strconv.FormatInt(customerID, 10))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue tokens")
	}

	next := &models.RefreshToken{CustomerID: customerID, Token: pair.RefreshToken, ExpiresAt: expiresAt}
	if err := s.refreshTokens.Rotate(ctx, stored.ID, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found or revoked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate refresh token")
	}
	return pair, nil
}

// Logout deletes one refresh token owned by customerID.
func (s *AuthService) Logout(ctx context.Context, customerID int64, req dto.LogoutRequest) (*dto.DetailResponse, error) {
	resp, err := s.logout(ctx, customerID, req)
	s.record("logout", err)
	return resp, err
}

func (s *AuthService) logout(ctx context.Context, customerID int64, req dto.LogoutRequest) (*dto.DetailResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid logout payload")
	}
	deleted, err := s.refreshTokens.DeleteByTokenAndCustomer(ctx, req.RefreshToken, customerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete refresh token")
	}
	if !deleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "refresh token not found")
	}
	return &dto.DetailResponse{Detail: "Successfully logged out"}, nil
}

// RevokeAll ends every session of the customer.
func (s *AuthService) RevokeAll(ctx context.Context, customerID int64) (*dto.DetailResponse, error) {
	removed, err := s.refreshTokens.DeleteAllByCustomer(ctx, customerID)
	s.record("logout_all", err)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke sessions")
	}
	s.logger.Info("customer sessions revoked", zap.Int64("customer_id", customerID), zap.Int64("sessions", removed))
	return &dto.DetailResponse{Detail: "Successfully logged out from all sessions"}, nil
}

// Authenticate resolves an access token to its customer id without touching storage.
func (s *AuthService) Authenticate(accessToken string) (int64, error) {
	return s.subject(accessToken, models.TokenAccess)
}

func (s *AuthService) subject(token string, kind models.TokenKind) (int64, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired token")
	}
	if claims.Type != kind {
		return 0, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token type")
	}
	if claims.Subject == "" {
		return 0, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token payload")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrUnauthorized, "invalid subject in token")
	}
	return id, nil
}

func (s *AuthService) publishRegistered(ctx context.Context, customer *models.Customer, site *models.Site) {
	if s.publisher == nil {
		return
	}
	evt := events.Event{
		Name:       events.CustomerRegistered,
		OccurredAt: time.Now().UTC(),
		Payload: events.CustomerRegisteredPayload{
			CustomerID: customer.ID,
			Name:       customer.Name,
			Email:      customer.Email,
			SiteName:   site.Name,
			SiteURL:    site.URL,
		},
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish customer registered event", zap.Int64("customer_id", customer.ID), zap.Error(err))
	}
}

func (s *AuthService) record(event string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		if appErr := appErrors.FromError(err); appErr.Status >= 500 {
			outcome = "error"
			s.logger.Error("auth flow failed", zap.String("event", event), zap.Error(err))
		}
	}
	s.metrics.RecordAuthEvent(event, outcome)
}
