package data

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"supply-forecast/internal/model"
)

// DriverClient fetches driver path documents published over HTTP, e.g.
// historical price and usage series exported by an analytics job.
type DriverClient struct {
	// Token is sent as a bearer token when set.
	Token  string
	Client *http.Client
	Logger zerolog.Logger
}

// NewDriverClient creates a client with a 30s timeout.
func NewDriverClient(token string, logger zerolog.Logger) *DriverClient {
	return &DriverClient{
		Token:  token,
		Client: &http.Client{Timeout: 30 * time.Second},
		Logger: logger,
	}
}

// RemoteError is a non-200 reply from a driver source.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Fetch downloads and decodes one driver path document.
func (c *DriverClient) Fetch(ctx context.Context, url string) (model.DriverVector, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.DriverVector{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	start := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.Logger.Warn().Err(err).Str("url", url).Dur("duration", duration).Msg("driver fetch failed")
		return model.DriverVector{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	c.Logger.Debug().Str("url", url).Int("status", resp.StatusCode).Dur("duration", duration).Msg("driver fetch")

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.DriverVector{}, &RemoteError{
			StatusCode: resp.StatusCode,
			Code:       "UNAUTHORIZED",
			Message:    fmt.Sprintf("driver source rejected credentials (%d)", resp.StatusCode),
		}
	case http.StatusNotFound:
		return model.DriverVector{}, &RemoteError{
			StatusCode: resp.StatusCode,
			Code:       "NOT_FOUND",
			Message:    fmt.Sprintf("driver document %s not found", url),
		}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return model.DriverVector{}, &RemoteError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return model.DriverVector{}, &RemoteError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("driver source returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	v, err := DecodeDrivers(resp.Body)
	if err != nil {
		return model.DriverVector{}, err
	}
	c.Logger.Info().Str("url", url).Int("days", v.Len()).Msg("fetched drivers")
	return v, nil
}

// IsURL reports whether src names an HTTP(S) resource rather than a file.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// OpenDrivers loads a driver path from a local file or an HTTP(S) URL.
func OpenDrivers(ctx context.Context, c *DriverClient, src string) (model.DriverVector, error) {
	if IsURL(src) {
		return c.Fetch(ctx, src)
	}
	return LoadDriversJSON(src)
}
