package security

import (
	"net"
	"strings"
)

// blockedHosts are rejected by exact match before any parsing or resolution.
var blockedHosts = map[string]string{
	"localhost":                "localhost is not allowed",
	"127.0.0.1":                "loopback address is not allowed",
	"::1":                      "loopback address is not allowed",
	"metadata.google.internal": "metadata endpoint is not allowed",
	"metadata":                 "metadata endpoint is not allowed",
	"169.254.169.254":          "metadata endpoint is not allowed",
}

// IsBlockedHost reports whether host matches the exact-match blocklist and, if
// so, returns the reason. host must already be lower-cased with any IPv6
// brackets stripped.
func IsBlockedHost(host string) (string, bool) {
	reason, ok := blockedHosts[host]
	return reason, ok
}

// IsBlockedIP reports whether the textual IP address falls in a range that
// outbound requests must never reach: loopback, RFC 1918 private, link-local
// (including the cloud metadata service), reserved 0.0.0.0/8, and the IPv6
// equivalents. It is a pure predicate; no network access occurs.
func IsBlockedIP(addr string) bool {
	addr = strings.Trim(addr, "[]")
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	return isBlockedIP(ip)
}

func isBlockedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() {
		return true
	}

	// IPv4 ranges as numeric octet comparisons. An IPv4-mapped IPv6 address
	// (::ffff:a.b.c.d) converts via To4 and is checked against the same ranges.
	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 127: // loopback
			return true
		case ip4[0] == 10: // RFC 1918
			return true
		case ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31: // RFC 1918
			return true
		case ip4[0] == 192 && ip4[1] == 168: // RFC 1918
			return true
		case ip4[0] == 169 && ip4[1] == 254: // link-local / cloud metadata
			return true
		case ip4[0] == 0: // "this" network
			return true
		}
		return false
	}

	// IPv6: link-local fe80::/10, unique-local fc00::/7 (covers fd00::/8).
	if len(ip) == net.IPv6len {
		if ip[0] == 0xfe && (ip[1]&0xc0) == 0x80 {
			return true
		}
		if (ip[0] & 0xfe) == 0xfc {
			return true
		}
	}

	return false
}
