// Package api is the client for the lumagen image-generation HTTP API. Every
// outbound call passes through a request gate (local payload-size ceiling) and
// a response gate (content-type check before parsing, status-code mapping to a
// closed set of categories).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lumagen/lumagen/internal/errs"
	"github.com/lumagen/lumagen/internal/imagefile"
	"github.com/rs/zerolog"
)

// Timeout covers a full API round trip. Generation can be slow, so this is
// deliberately longer than the download timeout.
const Timeout = 120 * time.Second

const maxErrorDetail = 512

// Client calls the generation API. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	hardened   bool
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient returns a Client. In hardened mode upstream error detail beyond
// the category is suppressed from returned errors.
func NewClient(baseURL, apiKey string, hardened bool, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		hardened:   hardened,
		httpClient: &http.Client{Timeout: Timeout},
		logger:     logger,
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(errs.KindFormat, "failed to encode request", err)
	}
	return c.post(ctx, path, "application/json", bytes.NewReader(body), int64(len(body)), out)
}

func (c *Client) postMultipart(ctx context.Context, path, contentType string, body *bytes.Buffer, out any) error {
	return c.post(ctx, path, contentType, bytes.NewReader(body.Bytes()), int64(body.Len()), out)
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, size int64, out any) error {
	// Reject oversized payloads locally instead of burning the upload.
	if size > imagefile.MaxBytes {
		return errs.Newf(errs.KindSecurity,
			"request payload too large: %d bytes (max %d)", size, imagefile.MaxBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return errs.Wrap(errs.KindFormat, "failed to build request", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Request-Id", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return errs.Wrap(errs.KindSecurity, fmt.Sprintf("API call timed out after %s", Timeout), err)
		}
		return errs.Wrap(errs.KindIO, "network error calling API", err)
	}
	defer resp.Body.Close()

	// Read one byte past the ceiling so truncation is detectable instead of
	// surfacing later as a garbled parse failure.
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, imagefile.MaxBytes+1))
	if err != nil {
		return errs.Wrap(errs.KindIO, "failed to read API response", err)
	}
	if len(respBody) > imagefile.MaxBytes {
		return errs.Newf(errs.KindSecurity,
			"response too large: exceeds %d bytes", imagefile.MaxBytes)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapErrorResponse(resp.StatusCode, respBody)
	}

	// Never parse a response the server did not declare as JSON.
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errs.Newf(errs.KindSecurity,
			"unexpected response content type %q, refusing to parse", resp.Header.Get("Content-Type"))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errs.Wrap(errs.KindUpstream, "failed to parse API response", err)
	}
	return nil
}

func (c *Client) mapErrorResponse(status int, body []byte) error {
	var category errs.Category
	switch status {
	case http.StatusBadRequest:
		category = errs.CategoryInvalidInput
	case http.StatusUnauthorized:
		category = errs.CategoryAuthFailed
	case http.StatusForbidden:
		category = errs.CategoryNotAuthorized
	case http.StatusUnprocessableEntity:
		category = errs.CategoryValidationFailed
	case http.StatusTooManyRequests:
		category = errs.CategoryRateLimited
	default:
		category = errs.CategoryGeneric
	}

	if c.hardened {
		return errs.Upstream(category, fmt.Sprintf("API request failed (%s)", category))
	}

	detail := errorDetail(body)
	if detail == "" {
		return errs.Upstream(category, fmt.Sprintf("API request failed with status %d", status))
	}
	return errs.Upstream(category, fmt.Sprintf("API request failed with status %d: %s", status, detail))
}

func errorDetail(body []byte) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if d := parsed.detail(); d != "" {
			return d
		}
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > maxErrorDetail {
		detail = detail[:maxErrorDetail]
	}
	return detail
}
