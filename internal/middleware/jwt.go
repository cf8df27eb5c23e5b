package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
	"github.com/noah-isme/commerce-dashboard-api/pkg/response"
)

// ContextCustomerKey is the gin context key storing the authenticated customer id.
const ContextCustomerKey = "customerID"

// Authenticator resolves an access token to the customer it was issued for.
type Authenticator interface {
	Authenticate(accessToken string) (int64, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing authorization header"))
			c.Abort()
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		customerID, err := auth.Authenticate(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextCustomerKey, customerID)
		c.Next()
	}
}

// OptionalJWT attaches the customer id when a valid token is present but does not block.
func OptionalJWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if customerID, err := auth.Authenticate(token); err == nil {
				c.Set(ContextCustomerKey, customerID)
			}
		}
		c.Next()
	}
}

// CustomerID returns the id stored by JWT or OptionalJWT.
func CustomerID(c *gin.Context) (int64, bool) {
	value, exists := c.Get(ContextCustomerKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(int64)
	return id, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
