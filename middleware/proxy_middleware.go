package middleware

import (
	"net/http"
	"strings"
)

const (
	xForwardedForHeader = "X-Forwarded-For"
	xRealIPHeader       = "X-Real-Ip"
	forwardedHeader     = "Forwarded"
)

// ProxyConfig controls how ProxyMiddleware recovers a client's real
// address when nimbus-director itself sits behind a load balancer.
type ProxyConfig struct {
	Enable bool
	Header string
}

// ProxyMiddleware overwrites a request's RemoteAddr with the client
// address reported by an upstream proxy, so the handlers after it see the
// real client rather than the balancer.
type ProxyMiddleware struct {
	proxy ProxyConfig

	next http.Handler
}

func NewProxyMiddleware(proxy ProxyConfig, next http.Handler) *ProxyMiddleware {
	return &ProxyMiddleware{
		proxy: proxy,
		next:  next,
	}
}

func (m *ProxyMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.RemoteAddr = m.getIP(r)
	m.next.ServeHTTP(w, r)
}

func (m *ProxyMiddleware) getIP(r *http.Request) string {
	if m.proxy.Enable {
		if m.proxy.Header != "" {
			return r.Header.Get(m.proxy.Header)
		} else {
			return parseDefaultProxyHeaders(r)
		}
	}

	return r.RemoteAddr
}

func parseDefaultProxyHeaders(r *http.Request) string {
	var addr string

	if fwd := r.Header.Get(xForwardedForHeader); fwd != "" {
		addr = extractFirstMatchFromIPList(fwd)
	} else if fwd := r.Header.Get(xRealIPHeader); fwd != "" {
		addr = extractFirstMatchFromIPList(fwd)
	} else if fwd := r.Header.Get(forwardedHeader); fwd != "" {
		// See: https://tools.ietf.org/html/rfc7239.
		addr = parseForwardedHeader(fwd)
	}

	return addr
}

func extractFirstMatchFromIPList(ipList string) string {
	if ipList == "" {
		return ""
	}
	s := strings.Index(ipList, ", ")
	if s == -1 {
		s = len(ipList)
	}

	return ipList[:s]
}

func parseForwardedHeader(fwd string) string {
	splits := strings.Split(fwd, ";")
	if len(splits) == 0 {
		return ""
	}

	for _, split := range splits {
		trimmed := strings.TrimSpace(split)
		if strings.HasPrefix(trimmed, "for=") {
			forSplits := strings.Split(trimmed, ", ")
			if len(forSplits) == 0 {
				return ""
			}

			return forSplits[0][4:]
		}
	}

	return ""
}
