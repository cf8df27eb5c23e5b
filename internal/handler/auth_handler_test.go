package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/commerce-dashboard-api/internal/dto"
	"github.com/noah-isme/commerce-dashboard-api/internal/middleware"
	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
)

type fakeAuthSrv struct {
	signupReq    dto.SignupRequest
	loginErr     error
	logoutErr    error
	lastCustomer int64
	lastLogout   dto.LogoutRequest
}

func (f *fakeAuthSrv) Signup(_ context.Context, req dto.SignupRequest) (*dto.CustomerSummary, error) {
	f.signupReq = req
	return &dto.CustomerSummary{CustomerID: 1, Name: req.LastName + req.FirstName, Email: req.Email}, nil
}

func (f *fakeAuthSrv) Login(context.Context, dto.LoginRequest) (*dto.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &dto.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeAuthSrv) RefreshToken(context.Context, dto.RefreshRequest) (*dto.TokenPair, error) {
	return &dto.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (f *fakeAuthSrv) Logout(_ context.Context, customerID int64, req dto.LogoutRequest) (*dto.DetailResponse, error) {
	f.lastCustomer = customerID
	f.lastLogout = req
	if f.logoutErr != nil {
		return nil, f.logoutErr
	}
	return &dto.DetailResponse{Detail: "Successfully logged out"}, nil
}

func (f *fakeAuthSrv) RevokeAll(_ context.Context, customerID int64) (*dto.DetailResponse, error) {
	f.lastCustomer = customerID
	return &dto.DetailResponse{Detail: "Successfully logged out from all sessions"}, nil
}

func jsonContext(method, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, path, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func TestAuthHandlerRegister(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)

	c, rec := jsonContext(http.MethodPost, "/auth/register", `{"first_name":"Taro","last_name":"Yamada","email":"t@example.com","password":"secret123","agree_privacy":true}`)
	handler.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"customer_id":1,"name":"YamadaTaro","email":"t@example.com"}`, rec.Body.String())
	assert.True(t, srv.signupReq.AgreePrivacy)
}

func TestAuthHandlerRejectsMalformedJSON(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})

	c, rec := jsonContext(http.MethodPost, "/auth/login", `{"email":`)
	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"VALIDATION_ERROR"`)
}

func TestAuthHandlerLoginFailure(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{loginErr: appErrors.ErrInvalidCredentials})

	c, rec := jsonContext(http.MethodPost, "/auth/login", `{"email":"t@example.com","password":"wrong"}`)
	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"invalid email or password","code":"INVALID_CREDENTIALS"}`, rec.Body.String())
}

func TestAuthHandlerRefresh(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})

	c, rec := jsonContext(http.MethodPost, "/auth/refresh", `{"refresh_token":"r"}`)
	handler.Refresh(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"access_token":"a2","refresh_token":"r2"}`, rec.Body.String())
}

func TestAuthHandlerLogoutRequiresCustomer(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})

	c, rec := jsonContext(http.MethodPost, "/auth/logout", `{"refresh_token":"r"}`)
	handler.Logout(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLogout(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)

	c, rec := jsonContext(http.MethodPost, "/auth/logout", `{"refresh_token":"r"}`)
	c.Set(middleware.ContextCustomerKey, int64(9))
	handler.Logout(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"detail":"Successfully logged out"}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, int64(9), srv.lastCustomer)
	assert.Equal(t, "r", srv.lastLogout.RefreshToken)
}

func TestAuthHandlerLogoutUnknownToken(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{logoutErr: appErrors.Clone(appErrors.ErrNotFound, "refresh token not found")})

	c, rec := jsonContext(http.MethodPost, "/auth/logout", `{"refresh_token":"other"}`)
	c.Set(middleware.ContextCustomerKey, int64(9))
	handler.Logout(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "refresh token not found")
}

func TestAuthHandlerLogoutAll(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)

	c, rec := jsonContext(http.MethodPost, "/auth/logout-all", "")
	c.Set(middleware.ContextCustomerKey, int64(3))
	handler.LogoutAll(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), srv.lastCustomer)
	assert.JSONEq(t, `{"detail":"Successfully logged out from all sessions"}`, rec.Body.String())
}
