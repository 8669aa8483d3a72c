package middleware

import (
	"net/http"
	"strings"

	"github.com/Suhaibinator/SWire/pkg/scontext"
)

// IPSourceType defines the source for client IP addresses
type IPSourceType string

const (
	// IPSourceRemoteAddr uses the request's RemoteAddr field
	IPSourceRemoteAddr IPSourceType = "remote_addr"

	// IPSourceXForwardedFor uses the leftmost address of the X-Forwarded-For header
	IPSourceXForwardedFor IPSourceType = "x_forwarded_for"

	// IPSourceXRealIP uses the X-Real-IP header
	IPSourceXRealIP IPSourceType = "x_real_ip"

	// IPSourceCustomHeader uses the header named by IPConfig.CustomHeader
	IPSourceCustomHeader IPSourceType = "custom_header"
)

// IPConfig defines configuration for IP extraction
type IPConfig struct {
	// Source specifies where to extract the client IP from
	Source IPSourceType

	// CustomHeader is the name of the custom header to use when Source is IPSourceCustomHeader
	CustomHeader string

	// TrustProxy determines whether to trust proxy headers like X-Forwarded-For.
	// If false, RemoteAddr is used whatever the source.
	TrustProxy bool
}

// DefaultIPConfig returns the default IP configuration
func DefaultIPConfig() *IPConfig {
	return &IPConfig{
		Source:     IPSourceXForwardedFor,
		TrustProxy: true,
	}
}

// ClientIP records the client address of every request in the SWire context, where Logging
// picks it up.
func ClientIP(config *IPConfig) Middleware {
	if config == nil {
		config = DefaultIPConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := scontext.WithClientIP(r.Context(), extractClientIP(r, config))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractClientIP extracts the client IP from the request based on the configuration
func extractClientIP(r *http.Request, config *IPConfig) string {
	var ip string

	switch config.Source {
	case IPSourceXRealIP:
		ip = r.Header.Get("X-Real-IP")
	case IPSourceCustomHeader:
		ip = r.Header.Get(config.CustomHeader)
	case IPSourceRemoteAddr:
		ip = r.RemoteAddr
	default:
		ip = extractIPFromXForwardedFor(r)
	}

	if !config.TrustProxy || ip == "" {
		ip = r.RemoteAddr
	}
	return cleanIP(ip)
}

// extractIPFromXForwardedFor returns the leftmost, original client address of X-Forwarded-For.
func extractIPFromXForwardedFor(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return ""
	}
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}

// cleanIP removes the port from an IP address if present
func cleanIP(ip string) string {
	// IPv6 addresses with ports are formatted as [IPv6]:port
	if strings.HasPrefix(ip, "[") {
		if end := strings.LastIndex(ip, "]"); end > 0 {
			return ip[:end+1]
		}
		return ip
	}

	// Bare IPv6 addresses carry no port.
	if strings.Count(ip, ":") > 1 {
		return ip
	}

	if end := strings.LastIndex(ip, ":"); end > 0 {
		return ip[:end]
	}
	return ip
}
