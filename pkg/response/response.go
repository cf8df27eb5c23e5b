package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
)

// ErrorBody is the error contract returned to clients.
type ErrorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// DetailBody carries a plain acknowledgement message.
type DetailBody struct {
	Detail string `json:"detail"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends a success response with the payload as the body.
func JSON(c *gin.Context, status int, data interface{}) {
	noStore(c)
	c.JSON(status, data)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Detail responds with a {"detail": message} body.
func Detail(c *gin.Context, status int, message string) {
	JSON(c, status, DetailBody{Detail: message})
}

// Error sends an error response converting the error to the common structure.
// Internal causes are never echoed back.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, ErrorBody{Detail: appErr.Message, Code: appErr.Code})
}

// Attachment streams a rendered file for download.
func Attachment(c *gin.Context, filename, contentType string, data []byte) {
	noStore(c)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
