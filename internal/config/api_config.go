package config

import (
	"strconv"
	"strings"
	"time"
)

const (
	baseURLVar   = "API_BASE_URL"
	timeoutVar   = "API_TIMEOUT"
	rateLimitVar = "API_RATE_LIMIT"

	DefaultBaseURL = "http://localhost:8000/api"
)

type API struct{}

var _ APIConfig = API{}

// GetBaseURL returns the backend API root without a trailing slash
func (API) GetBaseURL() string {
	return strings.TrimSuffix(GetEnv(baseURLVar, DefaultBaseURL), "/")
}

func (API) GetRequestTimeout() time.Duration {
	return GetDuration(timeoutVar, 30*time.Second)
}

// GetRateLimit returns the maximum requests per second, 0 means unlimited
func (API) GetRateLimit() float64 {
	v, err := strconv.ParseFloat(GetEnv(rateLimitVar, "0"), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// GetDuration parses a Go duration from the environment, returning defaultValue when
// the variable is unset or malformed.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
