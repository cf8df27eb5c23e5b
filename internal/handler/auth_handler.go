package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/commerce-dashboard-api/internal/dto"
	"github.com/noah-isme/commerce-dashboard-api/internal/middleware"
	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
	"github.com/noah-isme/commerce-dashboard-api/pkg/response"
)

type authService interface {
	Signup(ctx context.Context, req dto.SignupRequest) (*dto.CustomerSummary, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenPair, error)
	RefreshToken(ctx context.Context, req dto.RefreshRequest) (*dto.TokenPair, error)
	Logout(ctx context.Context, customerID int64, req dto.LogoutRequest) (*dto.DetailResponse, error)
	RevokeAll(ctx context.Context, customerID int64) (*dto.DetailResponse, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Register godoc
// @Summary Register customer
// @Description Create a customer account together with its first site
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.SignupRequest true "Signup payload"
// @Success 201 {object} dto.CustomerSummary
// @Failure 400 {object} response.ErrorBody
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signup payload"))
		return
	}

	res, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Login godoc
// @Summary Authenticate customer
// @Description Exchange email and password for a token pair. Any previous session is replaced.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} dto.TokenPair
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 429 {object} response.ErrorBody
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Refresh godoc
// @Summary Rotate refresh token
// @Description Exchange a refresh token for a new token pair. The presented token stops working.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.RefreshRequest true "Refresh payload"
// @Success 200 {object} dto.TokenPair
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 429 {object} response.ErrorBody
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refresh payload"))
		return
	}

	res, err := h.service.RefreshToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke one refresh token owned by the caller
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.LogoutRequest true "Refresh token"
// @Success 200 {object} dto.DetailResponse
// @Failure 401 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid logout payload"))
		return
	}

	res, err := h.service.Logout(c.Request.Context(), customerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Detail(c, http.StatusOK, res.Detail)
}

// LogoutAll godoc
// @Summary Logout everywhere
// @Description Revoke every refresh token of the caller
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DetailResponse
// @Failure 401 {object} response.ErrorBody
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	customerID, ok := middleware.CustomerID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.RevokeAll(c.Request.Context(), customerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Detail(c, http.StatusOK, res.Detail)
}
