package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxResponseSize is the maximum accepted response body from a channel API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxErrorText bounds the raw body quoted in an error when no message field is found
const maxErrorText = 300

// apiClient is the HTTP plumbing shared by the channel adapters: rate
// limiting, authorization, bounded body reads and error mapping.
type apiClient struct {
	channel    channel.Channel
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	authorize  func(req *http.Request) error
	logger     *zap.Logger
}

func newAPIClient(ch channel.Channel, baseURL string, timeout time.Duration, perSecond float64, logger *zap.Logger) *apiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &apiClient{
		channel:    ch,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		authorize:  func(*http.Request) error { return nil },
		logger:     logger.With(zap.String("channel", string(ch))),
	}
}

// do sends one request. body is JSON-encoded when non-nil; out receives the
// decoded response when non-nil.
func (c *apiClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", integration.ErrPlatformRateLimited, c.channel, err)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", c.channel, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.channel, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	}
	if err := c.authorize(req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s %s: %v", integration.ErrPlatformRequestFailed, c.channel, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: %s: read response: %v", integration.ErrPlatformRequestFailed, c.channel, err)
	}

	c.logger.Debug("Channel API call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return c.statusError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", integration.ErrPlatformInvalidResponse, c.channel, err)
	}
	return nil
}

// statusError keeps the channel's own message text in the error
func (c *apiClient) statusError(status int, body []byte) error {
	msg := errorMessage(body)
	base := integration.ErrPlatformRequestFailed
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w: %s HTTP %d: %s", base, integration.ErrPlatformAuthFailed, c.channel, status, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: %s HTTP %d: %s", base, integration.ErrPlatformRateLimited, c.channel, status, msg)
	}
	return fmt.Errorf("%w: %s HTTP %d: %s", base, c.channel, status, msg)
}

// errorMessage pulls the human readable message out of the error shapes the
// three channels use, falling back to the raw body.
func errorMessage(body []byte) string {
	var shape struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &shape); err == nil {
		switch e := shape.Error.(type) {
		case map[string]any:
			if m, ok := e["message"].(string); ok && m != "" {
				return m
			}
		case string:
			if e != "" && shape.Message == "" {
				return e
			}
		}
		if shape.Message != "" {
			return shape.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorText {
		text = text[:maxErrorText]
	}
	if text == "" {
		return "empty response"
	}
	return text
}
