// Package security validates user-supplied URLs before any outbound request
// is made on their behalf. The validator defends against SSRF via literal
// internal addresses, IPv4-mapped-IPv6 literals, and DNS entries pointing at
// internal ranges.
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/lumagen/lumagen/internal/errs"
	"github.com/rs/zerolog"
)

// ValidatedURL is a URL string that has passed every validation stage. It is
// the only form of remote reference the fetch layer accepts.
type ValidatedURL string

func (u ValidatedURL) String() string { return string(u) }

// mappedLiteralRe matches an IPv4-mapped-IPv6 bracket literal in the raw URL
// text. This must be scanned before url.Parse, which may normalize the
// literal into a form the hostname checks no longer recognize.
var mappedLiteralRe = regexp.MustCompile(`(?i)\[::ffff:(\d{1,3}(?:\.\d{1,3}){3})\]`)

// ResolveFunc resolves a hostname to its addresses. Swapped out in tests.
type ResolveFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

// Validator runs the URL validation pipeline. Zero shared state between
// calls; safe for concurrent use.
type Validator struct {
	resolve ResolveFunc
	logger  zerolog.Logger
}

// NewValidator returns a Validator using the system resolver.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{
		resolve: func(ctx context.Context, host string) ([]net.IPAddr, error) {
			return net.DefaultResolver.LookupIPAddr(ctx, host)
		},
		logger: logger,
	}
}

// NewValidatorWithResolver returns a Validator with a custom resolver.
func NewValidatorWithResolver(logger zerolog.Logger, resolve ResolveFunc) *Validator {
	return &Validator{resolve: resolve, logger: logger}
}

// urlCheck carries intermediate state between pipeline stages.
type urlCheck struct {
	raw     string
	parsed  *url.URL
	host    string
	literal bool
}

// stages run in this order. The order is a correctness requirement: the
// mapped-literal scan inspects the raw string and must precede parsing.
var stages = []struct {
	name string
	run  func(*Validator, context.Context, *urlCheck) error
}{
	{"mapped_literal", (*Validator).checkMappedLiteral},
	{"parse", (*Validator).parseURL},
	{"scheme", (*Validator).checkScheme},
	{"hostname", (*Validator).extractHostname},
	{"blocked_host", (*Validator).checkBlockedHost},
	{"literal_ip", (*Validator).checkLiteralIP},
	{"resolve", (*Validator).checkResolved},
}

// Validate runs the full pipeline over a raw URL string. On success the
// original string is returned unchanged as a ValidatedURL. The DNS result is
// used only for the accept/reject decision; the address is not pinned for the
// later connect, leaving a narrow check-to-use rebinding window that is an
// accepted residual risk.
func (v *Validator) Validate(ctx context.Context, raw string) (ValidatedURL, error) {
	check := &urlCheck{raw: raw}
	for _, stage := range stages {
		if err := stage.run(v, ctx, check); err != nil {
			v.logger.Warn().
				Str("stage", stage.name).
				Str("url", raw).
				Err(err).
				Msg("url rejected")
			return "", err
		}
	}
	return ValidatedURL(raw), nil
}

func (v *Validator) checkMappedLiteral(_ context.Context, c *urlCheck) error {
	m := mappedLiteralRe.FindStringSubmatch(c.raw)
	if m == nil {
		return nil
	}
	quad := m[1]
	if reason, blocked := IsBlockedHost(quad); blocked {
		return errs.Newf(errs.KindSecurity, "IPv4-mapped IPv6 address is blocked: %s", reason)
	}
	if IsBlockedIP(quad) {
		return errs.Newf(errs.KindSecurity, "IPv4-mapped IPv6 address targets an internal address: %s", quad)
	}
	return nil
}

// parseURL only checks that the string parses at all. Host presence is not
// examined here: a parseable non-https URL (file:///etc/passwd) must reach the
// scheme stage and fail there, and an empty hostname is caught after it.
func (v *Validator) parseURL(_ context.Context, c *urlCheck) error {
	parsed, err := url.Parse(c.raw)
	if err != nil {
		return errs.Wrap(errs.KindFormat, "invalid URL", err)
	}
	c.parsed = parsed
	return nil
}

func (v *Validator) checkScheme(_ context.Context, c *urlCheck) error {
	if c.parsed.Scheme != "https" {
		return errs.Newf(errs.KindSecurity, "only https URLs are allowed, got %q", c.parsed.Scheme)
	}
	return nil
}

func (v *Validator) extractHostname(_ context.Context, c *urlCheck) error {
	host := strings.ToLower(c.parsed.Hostname())
	host = strings.Trim(host, "[]")
	if host == "" {
		return errs.New(errs.KindFormat, "invalid URL: empty hostname")
	}
	c.host = host
	return nil
}

func (v *Validator) checkBlockedHost(_ context.Context, c *urlCheck) error {
	if reason, blocked := IsBlockedHost(c.host); blocked {
		return errs.Newf(errs.KindSecurity, "blocked host %q: %s", c.host, reason)
	}
	return nil
}

func (v *Validator) checkLiteralIP(_ context.Context, c *urlCheck) error {
	ip := net.ParseIP(c.host)
	if ip == nil {
		return nil
	}
	if isBlockedIP(ip) {
		return errs.Newf(errs.KindSecurity, "URL host is a private or internal address: %s", c.host)
	}
	// Literal public IP: nothing to resolve, skip the domain branch.
	c.literal = true
	return nil
}

func (v *Validator) checkResolved(ctx context.Context, c *urlCheck) error {
	if c.literal {
		return nil
	}
	addrs, err := v.resolve(ctx, c.host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return errs.Newf(errs.KindResolution, "hostname %q could not be resolved", c.host)
		}
		return errs.Wrap(errs.KindResolution, fmt.Sprintf("failed to resolve hostname %q", c.host), err)
	}
	for _, addr := range addrs {
		if isBlockedIP(addr.IP) {
			return errs.Newf(errs.KindSecurity,
				"hostname %q resolves to internal address %s", c.host, addr.IP)
		}
	}
	return nil
}
