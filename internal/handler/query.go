package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
)

const queryDateLayout = "2006-01-02"

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be an integer", name))
	}
	return value, nil
}

func optionalIDQuery(c *gin.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be an integer", name))
	}
	return &value, nil
}

// optionalDateQuery parses a YYYY-MM-DD parameter as a UTC date.
func optionalDateQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	value, err := time.ParseInLocation(queryDateLayout, raw, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", name))
	}
	return &value, nil
}

func dateRangeQuery(c *gin.Context) (from, to *time.Time, err error) {
	if from, err = optionalDateQuery(c, "from_date"); err != nil {
		return nil, nil, err
	}
	if to, err = optionalDateQuery(c, "to_date"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
