package transport

import (
	"net"
	"net/url"
	"strings"
	"time"
)

// DialProbe implements ports.ConnectivityProbe by attempting a TCP dial to
// the configured endpoints. Online when any endpoint accepts.
type DialProbe struct {
	addrs   []string
	timeout time.Duration
}

// NewDialProbe builds a probe from endpoint URLs (relay or mint URLs) or raw
// host:port pairs.
func NewDialProbe(endpoints []string, timeout time.Duration) *DialProbe {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	addrs := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		if addr := dialAddr(e); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return &DialProbe{addrs: addrs, timeout: timeout}
}

// Online reports whether any probe endpoint is currently reachable.
func (p *DialProbe) Online() bool {
	for _, addr := range p.addrs {
		conn, err := net.DialTimeout("tcp", addr, p.timeout)
		if err == nil {
			_ = conn.Close()
			return true
		}
	}
	return false
}

// dialAddr reduces an endpoint to a dialable host:port. Unparseable entries
// are skipped rather than failing the probe setup.
func dialAddr(endpoint string) string {
	if !strings.Contains(endpoint, "://") {
		if _, _, err := net.SplitHostPort(endpoint); err == nil {
			return endpoint
		}
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Port() != "" {
		return u.Host
	}
	switch u.Scheme {
	case "ws", "http":
		return net.JoinHostPort(u.Hostname(), "80")
	default:
		return net.JoinHostPort(u.Hostname(), "443")
	}
}
