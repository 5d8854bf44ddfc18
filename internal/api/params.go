package api

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"trendscout/internal/intent"
)

var errNegative = errors.New("must not be negative")

// parseOverrides reads the optional numeric query parameters. Absent or empty
// parameters leave the resolved value in place.
func parseOverrides(c *gin.Context) (intent.Overrides, error) {
	var o intent.Overrides
	var errs []error

	if v, ok := query(c, "minVph"); ok {
		f, err := parseFloat(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("minVph: %w", err))
		}
		o.MinViewsPerHour = &f
	}
	if v, ok := query(c, "vphRatio"); ok {
		f, err := parseFloat(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("vphRatio: %w", err))
		}
		o.MinViewsPerHourRatio = &f
	}
	if v, ok := query(c, "minViews"); ok {
		n, err := parseInt(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("minViews: %w", err))
		}
		o.MinViews = &n
	}
	if v, ok := query(c, "maxAgeMonths"); ok {
		n, err := parseInt(v, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("maxAgeMonths: %w", err))
		}
		months := int(n)
		o.MaxAgeMonths = &months
	}
	if v, ok := query(c, "maxResults"); ok {
		n, err := parseInt(v, 32)
		if err == nil && n == 0 {
			err = errors.New("must be at least 1")
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("maxResults: %w", err))
		}
		limit := int(n)
		o.ResultLimit = &limit
	}

	if err := errors.Join(errs...); err != nil {
		return intent.Overrides{}, err
	}
	return o, nil
}

func query(c *gin.Context, key string) (string, bool) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if f < 0 {
		return 0, errNegative
	}
	return f, nil
}

func parseInt(s string, bits int) (int64, error) {
	n, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	if n < 0 {
		return 0, errNegative
	}
	return n, nil
}
