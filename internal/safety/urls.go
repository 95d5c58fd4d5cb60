// Package safety holds the policy checks tools apply before touching the network.
package safety

import (
	"encoding/json"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
)

// ToolError is a machine-readable error body for surfacing back to the model as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string to keep tool results small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

const (
	CodeInvalidURL  = "ERR_INVALID_URL"
	CodeBadScheme   = "ERR_UNSUPPORTED_SCHEME"
	CodeHostDenied  = "ERR_HOST_DENIED"
	CodeTooLarge    = "ERR_RESPONSE_TOO_LARGE"
	CodeFetchFailed = "ERR_FETCH_FAILED"
)

// URLPolicy decides which URLs a fetching tool may visit.
type URLPolicy struct {
	// AllowPrivate permits loopback, private, link-local and unspecified addresses.
	AllowPrivate bool
}

// Validate parses raw and checks it against the policy. Only literal hosts are
// inspected here; names are checked after resolution by Control.
func (p URLPolicy) Validate(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ToolError{Code: CodeInvalidURL, Message: "url is empty"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, ToolError{Code: CodeInvalidURL, Message: "url must be absolute, e.g. https://example.com"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ToolError{Code: CodeBadScheme, Message: "only http and https are supported"}
	}
	if u.User != nil {
		return nil, ToolError{Code: CodeInvalidURL, Message: "credentials in urls are not allowed"}
	}
	if !p.AllowPrivate && isInternalHost(u.Hostname()) {
		return nil, ToolError{Code: CodeHostDenied, Message: "requests to local or private addresses are not allowed"}
	}
	return u, nil
}

// Control is a net.Dialer Control hook. It sees the resolved address of every
// connection attempt, so names that resolve to internal addresses are refused too.
func (p URLPolicy) Control(network, address string, _ syscall.RawConn) error {
	if p.AllowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || IsInternalAddr(addr) {
		return ToolError{Code: CodeHostDenied, Message: "requests to local or private addresses are not allowed"}
	}
	return nil
}

// IsInternalAddr reports whether addr is loopback, private, link-local or unspecified.
func IsInternalAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified()
}

func isInternalHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return IsInternalAddr(addr)
}
