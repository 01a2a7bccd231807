// Package identity turns identity configurations into request headers and
// knows which headers carry credentials.
package identity

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderCookie        = "Cookie"
	HeaderAPIKey        = "X-API-Key"

	redacted = "[REDACTED]"
)

var (
	ErrUnsupportedAuthType = errors.New("unsupported auth type")
	ErrMissingCredential   = errors.New("missing credential")
)

// AuthHeaderNames lists the headers treated as credentials
var AuthHeaderNames = []string{HeaderAuthorization, HeaderCookie, HeaderAPIKey}

// IsAuthHeader reports whether name is a credential header, ignoring case
func IsAuthHeader(name string) bool {
	for _, h := range AuthHeaderNames {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

// Headers renders the headers an identity authenticates with
func Headers(cfg types.IdentityConfig) (map[string]string, error) {
	switch cfg.AuthType {
	case types.AuthBearer:
		token := strings.TrimSpace(cfg.AuthHeader)
		if token == "" {
			return nil, fmt.Errorf("identity %q: %w: auth_header", cfg.IdentityID, ErrMissingCredential)
		}
		if !strings.Contains(token, " ") {
			token = "Bearer " + token
		}
		return map[string]string{HeaderAuthorization: token}, nil

	case types.AuthBasic:
		value := strings.TrimSpace(cfg.AuthHeader)
		if value == "" {
			if cfg.Username == "" && cfg.Password == "" {
				return nil, fmt.Errorf("identity %q: %w: auth_header or username/password", cfg.IdentityID, ErrMissingCredential)
			}
			value = "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.Username+":"+cfg.Password))
		}
		return map[string]string{HeaderAuthorization: value}, nil

	case types.AuthAPIKey:
		if cfg.AuthHeader == "" {
			return nil, fmt.Errorf("identity %q: %w: auth_header", cfg.IdentityID, ErrMissingCredential)
		}
		return map[string]string{HeaderAPIKey: cfg.AuthHeader}, nil

	case types.AuthCookie:
		if len(cfg.Cookies) == 0 {
			return nil, fmt.Errorf("identity %q: %w: cookies", cfg.IdentityID, ErrMissingCredential)
		}
		return map[string]string{HeaderCookie: cfg.Cookies.Header()}, nil

	default:
		return nil, fmt.Errorf("identity %q: %w: %q", cfg.IdentityID, ErrUnsupportedAuthType, cfg.AuthType)
	}
}

// StripAuth returns a copy of headers without any credential header
func StripAuth(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if IsAuthHeader(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// Redact returns a copy of headers safe to log
func Redact(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if IsAuthHeader(k) {
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}

// Merge copies overlay onto a copy of base. Keys in overlay replace keys in
// base that differ only in case, so the result never carries both
// "authorization" and "Authorization".
func Merge(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		for existing := range out {
			if existing != k && strings.EqualFold(existing, k) {
				delete(out, existing)
			}
		}
		out[k] = v
	}
	return out
}
