package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestErrorUsesTypedStatus(t *testing.T) {
	c, rec := newContext()

	Error(c, appErrors.Clone(appErrors.ErrNotFound, "refresh token not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "refresh token not found", body.Detail)
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestErrorHidesInternalCause(t *testing.T) {
	c, rec := newContext()

	Error(c, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
}

func TestAttachmentSetsDisposition(t *testing.T) {
	c, rec := newContext()

	Attachment(c, "top-products.csv", "text/csv", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="top-products.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", rec.Body.String())
}

func TestDetailWritesAcknowledgement(t *testing.T) {
	c, rec := newContext()

	Detail(c, http.StatusOK, "Successfully logged out")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body DetailBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Successfully logged out", body.Detail)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
