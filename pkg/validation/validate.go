package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/identity"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

// ValidateFinding checks that a finding can be replayed
func ValidateFinding(f types.Finding) error {
	if strings.TrimSpace(f.FindingID) == "" {
		return newValidationError(KindMissingField, "finding_id", "finding_id is required")
	}
	if strings.TrimSpace(f.Request.Method) == "" {
		return newValidationError(KindMissingField, "request.method", "request method is required")
	}
	if !httpguts.ValidHeaderFieldName(f.Request.Method) {
		return newValidationError(KindInvalidArgument, "request.method", "%q is not a valid HTTP method", f.Request.Method)
	}
	if strings.TrimSpace(f.Request.URL) == "" {
		return newValidationError(KindMissingField, "request.url", "request url is required")
	}
	if err := validateTargetURL(f.Request.URL); err != nil {
		return err
	}
	if err := validateHeaders("request.headers", f.Request.Headers); err != nil {
		return err
	}
	if _, err := newMatcher(f.Expected); err != nil {
		return err
	}
	return nil
}

func validateTargetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return newValidationError(KindInvalidArgument, "request.url", "failed to parse url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newValidationError(KindInvalidArgument, "request.url", "scheme must be http or https, got %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return newValidationError(KindInvalidArgument, "request.url", "url has no host")
	}
	return nil
}

func validateHeaders(field string, headers map[string]string) error {
	for name, value := range headers {
		if !httpguts.ValidHeaderFieldName(name) {
			return newValidationError(KindInvalidArgument, field, "invalid header name %q", name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return newValidationError(KindInvalidArgument, field, "invalid value for header %q", name)
		}
	}
	return nil
}

// ValidateNegativeControl checks a negative control configuration
func ValidateNegativeControl(cfg types.NegativeControlConfig) error {
	if cfg.ControlType == "" {
		return newValidationError(KindMissingField, "control_type", "control_type is required")
	}
	if !cfg.ControlType.IsValid() {
		return newValidationError(KindInvalidControlType, "control_type", "unknown control type %q", cfg.ControlType)
	}
	if cfg.ControlType == types.ControlDifferentUser && len(cfg.ModifiedHeaders) == 0 {
		return newValidationError(KindMissingField, "modified_headers",
			"different_user control needs the other user's credentials in modified_headers")
	}
	if err := validateHeaders("modified_headers", cfg.ModifiedHeaders); err != nil {
		return err
	}
	if cfg.ExpectedStatus != nil && (*cfg.ExpectedStatus < 100 || *cfg.ExpectedStatus > 599) {
		return newValidationError(KindInvalidArgument, "expected_status", "%d is not an HTTP status code", *cfg.ExpectedStatus)
	}
	return nil
}

// ValidateIdentities checks a cross-identity identity list
func ValidateIdentities(identities []types.IdentityConfig) error {
	if len(identities) == 0 {
		return newValidationError(KindMissingField, "identities", "at least one identity is required")
	}

	seen := make(map[string]struct{}, len(identities))
	for i, id := range identities {
		field := fmt.Sprintf("identities[%d]", i)

		if strings.TrimSpace(id.IdentityID) == "" {
			return newValidationError(KindMissingField, field+".identity_id", "identity_id is required")
		}
		if _, dup := seen[id.IdentityID]; dup {
			return newValidationError(KindInvalidArgument, field+".identity_id", "duplicate identity %q", id.IdentityID)
		}
		seen[id.IdentityID] = struct{}{}

		if id.AuthType == "" {
			return newValidationError(KindMissingField, field+".auth_type", "auth_type is required")
		}
		if !id.AuthType.IsValid() {
			return newValidationError(KindInvalidAuthType, field+".auth_type", "unknown auth type %q", id.AuthType)
		}
		if id.ShouldHaveAccess == nil {
			return newValidationError(KindMissingField, field+".should_have_access", "should_have_access is required")
		}

		headers, err := identity.Headers(id)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrUnsupportedAuthType):
				return newValidationError(KindInvalidAuthType, field+".auth_type", "%v", err)
			default:
				return newValidationError(KindMissingField, field, "%v", err)
			}
		}
		if err := validateHeaders(field, headers); err != nil {
			return err
		}
	}
	return nil
}
