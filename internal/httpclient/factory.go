// Package httpclient builds the HTTP clients used to replay finding requests
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SecureClientConfig configures the replay client. The zero value leaves
// SSRF blocking off and reports redirects rather than following them, since
// findings are frequently against internal hosts the operator may test.
// Request deadlines come from the caller's context.
type SecureClientConfig struct {
	EnableSSRF      bool // If true, blocks requests to private IPs
	FollowRedirects bool
	MaxRedirects    int
}

// NewSecureClient creates an HTTP client with:
// - context-aware dialing, optionally refusing private addresses
// - OpenTelemetry spans for every request
// - a configurable redirect policy
func NewSecureClient(config SecureClientConfig) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if config.EnableSSRF {
				if err := validateAddress(ctx, addr); err != nil {
					return nil, fmt.Errorf("SSRF protection: %w", err)
				}
			}

			var dialer net.Dialer
			return dialer.DialContext(ctx, network, addr)
		},

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := &http.Client{
		Transport: otelhttp.NewTransport(transport),
	}

	if !config.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if config.MaxRedirects > 0 && len(via) >= config.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", config.MaxRedirects)
			}

			if config.EnableSSRF {
				if err := validateURL(req.Context(), req.URL.String()); err != nil {
					return fmt.Errorf("SSRF protection on redirect: %w", err)
				}
			}

			return nil
		}
	}

	return client
}

// validateAddress checks if a host:port resolves to a private IP
func validateAddress(ctx context.Context, addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("blocked private IP: %s", ip)
		}
		return nil
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", host, err)
	}

	for _, ip := range ips {
		if isPrivateIP(ip.IP) {
			return fmt.Errorf("blocked private IP: %s (%s)", ip.IP, host)
		}
	}

	return nil
}

// validateURL applies validateAddress to the host of a URL
func validateURL(ctx context.Context, urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", urlStr, err)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("URL %q has no host", urlStr)
	}
	return validateAddress(ctx, u.Hostname())
}

// isPrivateIP checks if an IP address is private, loopback, link-local or unspecified
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() ||
		ip.IsUnspecified()
}

// CloseBody drains and closes a response body so the connection can be reused
func CloseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
