// Package network extracts client addresses for rate limiting, audit events
// and ledger entries.
package network

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address of the client without its port.
//
// Behind a proxy the router's RealIP middleware has already copied
// True-Client-IP, X-Real-IP or the first X-Forwarded-For hop into
// RemoteAddr; handlers reached without it (tests, direct mounts) get the
// same answer from the headers here.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
