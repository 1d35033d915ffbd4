// Package fetch downloads remote images through a bounded gate: size ceiling,
// redirect ceiling, timeout, and a response content-type allow-list. It only
// accepts URLs that already passed the security validator.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/lumagen/lumagen/internal/errs"
	"github.com/lumagen/lumagen/internal/imagefile"
	"github.com/lumagen/lumagen/internal/security"
	"github.com/rs/zerolog"
)

const (
	// Timeout covers the whole download, connect included.
	Timeout = 60 * time.Second
	// MaxRedirects is the redirect-chain ceiling.
	MaxRedirects = 3

	userAgent = "lumagen/1.0"
)

var errRedirectLimit = errs.Newf(errs.KindSecurity, "redirect limit exceeded (max %d)", MaxRedirects)

// Fetcher performs bounded downloads. Safe for concurrent use.
type Fetcher struct {
	client *http.Client
	logger zerolog.Logger
}

// NewFetcher returns a Fetcher with the standard limits applied.
func NewFetcher(logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= MaxRedirects {
					return errRedirectLimit
				}
				return nil
			},
		},
		logger: logger,
	}
}

// Fetch downloads the image at u. Requiring a security.ValidatedURL keeps raw
// strings out of this path; the URL has already been resolved and checked at
// validation time and is not re-verified here.
func (f *Fetcher) Fetch(ctx context.Context, u security.ValidatedURL) ([]byte, imagefile.Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", errs.Wrap(errs.KindFormat, "failed to build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", f.mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errs.Upstream(errs.CategoryGeneric,
			fmt.Sprintf("HTTP %d fetching image", resp.StatusCode))
	}

	if resp.ContentLength > imagefile.MaxBytes {
		return nil, "", errs.Newf(errs.KindSecurity,
			"response too large: %d bytes (max %d)", resp.ContentLength, imagefile.MaxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, imagefile.MaxBytes+1))
	if err != nil {
		return nil, "", f.mapTransportError(err)
	}
	if len(body) > imagefile.MaxBytes {
		return nil, "", errs.Newf(errs.KindSecurity,
			"response too large: exceeds %d bytes", imagefile.MaxBytes)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !imagefile.AllowedMIME(mediaType) {
			return nil, "", errs.Newf(errs.KindSecurity,
				"response content type %q is not an allowed image type", ct)
		}
	}

	// The format tag comes from the bytes, never from the header.
	format, err := imagefile.Sniff(body)
	if err != nil {
		return nil, "", err
	}

	f.logger.Debug().
		Str("url", u.String()).
		Int("bytes", len(body)).
		Str("format", string(format)).
		Msg("fetched image")

	return body, format, nil
}

func (f *Fetcher) mapTransportError(err error) error {
	var tagged *errs.Error
	if errors.As(err, &tagged) {
		return tagged
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errs.Wrap(errs.KindSecurity, fmt.Sprintf("download timed out after %s", Timeout), err)
	}
	return errs.Wrap(errs.KindIO, "network error fetching image", err)
}
