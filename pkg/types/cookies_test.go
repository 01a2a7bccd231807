package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCookies_JSONObjectKeepsOrder(t *testing.T) {
	var identity IdentityConfig
	err := json.Unmarshal([]byte(`{
		"identity_id": "victim",
		"auth_type": "cookie",
		"cookies": {"zeta": "1", "alpha": "2", "mid": "3"},
		"should_have_access": false
	}`), &identity)
	require.NoError(t, err)

	assert.Equal(t, "zeta=1; alpha=2; mid=3", identity.Cookies.Header())
	require.NotNil(t, identity.ShouldHaveAccess)
	assert.False(t, *identity.ShouldHaveAccess)
}

func TestCookies_JSONList(t *testing.T) {
	var cookies Cookies
	err := json.Unmarshal([]byte(`[{"name":"b","value":"2"},{"name":"a","value":"1"}]`), &cookies)
	require.NoError(t, err)

	assert.Equal(t, "b=2; a=1", cookies.Header())
}

func TestCookies_JSONRejectsNonStringValue(t *testing.T) {
	var cookies Cookies
	err := json.Unmarshal([]byte(`{"session": 42}`), &cookies)
	assert.Error(t, err)
}

func TestCookies_JSONRoundTripOrder(t *testing.T) {
	cookies := Cookies{{Name: "z", Value: "1"}, {Name: "a", Value: "2"}}

	data, err := json.Marshal(cookies)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"2"}`, string(data))
}

func TestCookies_YAMLMappingKeepsOrder(t *testing.T) {
	doc := `
identity_id: attacker
auth_type: cookie
cookies:
  session: abc
  csrf: def
  locale: en
should_have_access: true
`
	var identity IdentityConfig
	require.NoError(t, yaml.Unmarshal([]byte(doc), &identity))

	assert.Equal(t, "session=abc; csrf=def; locale=en", identity.Cookies.Header())
	assert.True(t, identity.Expects())
}

func TestCookies_YAMLRejectsScalar(t *testing.T) {
	var identity IdentityConfig
	err := yaml.Unmarshal([]byte("cookies: nope\n"), &identity)
	assert.Error(t, err)
}

func TestControlType_IsValid(t *testing.T) {
	for _, ct := range AllControlTypes() {
		assert.True(t, ct.IsValid(), string(ct))
	}
	assert.False(t, ControlType("replay").IsValid())
	assert.False(t, ControlType("").IsValid())
}

func TestExpectedResponse_IsEmpty(t *testing.T) {
	var nilExpected *ExpectedResponse
	status := 200

	assert.True(t, nilExpected.IsEmpty())
	assert.True(t, (&ExpectedResponse{}).IsEmpty())
	assert.False(t, (&ExpectedResponse{StatusCode: &status}).IsEmpty())
	assert.False(t, (&ExpectedResponse{BodyRegex: "ok"}).IsEmpty())
}
