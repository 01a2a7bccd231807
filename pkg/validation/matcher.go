package validation

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/twmb/murmur3"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

// matcher decides whether a replayed response reproduces the finding.
// Every configured criterion must hold.
type matcher struct {
	expected *types.ExpectedResponse
	regex    *regexp.Regexp
}

func newMatcher(expected *types.ExpectedResponse) (*matcher, error) {
	m := &matcher{expected: expected}
	if expected != nil && expected.BodyRegex != "" {
		re, err := regexp.Compile(expected.BodyRegex)
		if err != nil {
			return nil, newValidationError(KindInvalidArgument, "expected.body_regex", "failed to compile: %v", err)
		}
		m.regex = re
	}
	return m, nil
}

func (m *matcher) matches(resp *types.HTTPResponse) bool {
	if resp == nil {
		return false
	}
	exp := m.expected
	if exp.IsEmpty() {
		return true
	}

	if exp.StatusCode != nil && resp.StatusCode != *exp.StatusCode {
		return false
	}
	for _, s := range exp.BodyContains {
		if !bytes.Contains(resp.Body, []byte(s)) {
			return false
		}
	}
	for _, s := range exp.BodyNotContains {
		if bytes.Contains(resp.Body, []byte(s)) {
			return false
		}
	}
	if m.regex != nil && !m.regex.Match(resp.Body) {
		return false
	}
	return true
}

// fingerprint hashes a response body so attempts can be compared
func fingerprint(body []byte) string {
	return fmt.Sprintf("%08x", murmur3.Sum32(body))
}
