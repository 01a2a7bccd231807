package types

type ControlType string

const (
	ControlUnauthenticated ControlType = "unauthenticated"
	ControlInvalidToken    ControlType = "invalid_token"
	ControlDifferentUser   ControlType = "different_user"
	ControlModifiedRequest ControlType = "modified_request"
)

// AllControlTypes returns every negative control type in a stable order
func AllControlTypes() []ControlType {
	return []ControlType{
		ControlUnauthenticated,
		ControlInvalidToken,
		ControlDifferentUser,
		ControlModifiedRequest,
	}
}

// IsValid returns true if the control type is a recognized value.
func (c ControlType) IsValid() bool {
	switch c {
	case ControlUnauthenticated, ControlInvalidToken, ControlDifferentUser, ControlModifiedRequest:
		return true
	default:
		return false
	}
}

type AuthType string

const (
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	AuthAPIKey AuthType = "api_key"
	AuthCookie AuthType = "cookie"
)

func (a AuthType) IsValid() bool {
	switch a {
	case AuthBearer, AuthBasic, AuthAPIKey, AuthCookie:
		return true
	default:
		return false
	}
}

type Recommendation string

const (
	RecommendationPromote     Recommendation = "promote"
	RecommendationInvestigate Recommendation = "investigate"
	RecommendationDismiss     Recommendation = "dismiss"
)

// Finding is a candidate security defect handed over by other tooling.
// It is immutable input and never persisted here.
type Finding struct {
	FindingID string            `json:"finding_id" yaml:"finding_id"`
	Title     string            `json:"title,omitempty" yaml:"title,omitempty"`
	Request   FindingRequest    `json:"request" yaml:"request"`
	Expected  *ExpectedResponse `json:"expected,omitempty" yaml:"expected,omitempty"`
}

type FindingRequest struct {
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    *string           `json:"body,omitempty" yaml:"body,omitempty"`
}

// ExpectedResponse holds the criteria a replay must meet to count as a
// successful reproduction. Every criterion that is set must hold.
type ExpectedResponse struct {
	StatusCode      *int     `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	BodyContains    []string `json:"body_contains,omitempty" yaml:"body_contains,omitempty"`
	BodyNotContains []string `json:"body_not_contains,omitempty" yaml:"body_not_contains,omitempty"`
	BodyRegex       string   `json:"body_regex,omitempty" yaml:"body_regex,omitempty"`
}

// IsEmpty reports whether no criterion is configured
func (e *ExpectedResponse) IsEmpty() bool {
	return e == nil || (e.StatusCode == nil && len(e.BodyContains) == 0 && len(e.BodyNotContains) == 0 && e.BodyRegex == "")
}

type ReproAttempt struct {
	Attempt         int    `json:"attempt" yaml:"attempt"`
	StatusCode      int    `json:"status_code" yaml:"status_code"`
	MatchedExpected bool   `json:"matched_expected" yaml:"matched_expected"`
	LatencyMS       int64  `json:"latency_ms" yaml:"latency_ms"`
	ResponseHash    string `json:"response_hash,omitempty" yaml:"response_hash,omitempty"`
	Error           string `json:"error,omitempty" yaml:"error,omitempty"`
}

type ReproResult struct {
	FindingID          string         `json:"finding_id" yaml:"finding_id"`
	TotalAttempts      int            `json:"total_attempts" yaml:"total_attempts"`
	SuccessfulAttempts int            `json:"successful_attempts" yaml:"successful_attempts"`
	FailedAttempts     int            `json:"failed_attempts" yaml:"failed_attempts"`
	SuccessRate        float64        `json:"success_rate" yaml:"success_rate"`
	Consistent         bool           `json:"consistent" yaml:"consistent"`
	DistinctResponses  int            `json:"distinct_responses,omitempty" yaml:"distinct_responses,omitempty"`
	Attempts           []ReproAttempt `json:"attempts" yaml:"attempts"`
}

type NegativeControlConfig struct {
	ControlType     ControlType       `json:"control_type" yaml:"control_type"`
	ModifiedHeaders map[string]string `json:"modified_headers,omitempty" yaml:"modified_headers,omitempty"`
	ModifiedBody    *string           `json:"modified_body,omitempty" yaml:"modified_body,omitempty"`
	RemoveAuth      bool              `json:"remove_auth,omitempty" yaml:"remove_auth,omitempty"`
	ExpectedStatus  *int              `json:"expected_status,omitempty" yaml:"expected_status,omitempty"`
}

type NegativeControlResult struct {
	FindingID        string      `json:"finding_id" yaml:"finding_id"`
	ControlType      ControlType `json:"control_type" yaml:"control_type"`
	Passed           bool        `json:"passed" yaml:"passed"`
	ExpectedBehavior string      `json:"expected_behavior" yaml:"expected_behavior"`
	ActualStatus     int         `json:"actual_status" yaml:"actual_status"`
	ActualBehavior   string      `json:"actual_behavior" yaml:"actual_behavior"`
	Message          string      `json:"message" yaml:"message"`
}

// IdentityConfig describes one identity used in a cross-identity test.
// ShouldHaveAccess is a pointer so that a missing value can be rejected.
type IdentityConfig struct {
	IdentityID       string   `json:"identity_id" yaml:"identity_id"`
	AuthHeader       string   `json:"auth_header,omitempty" yaml:"auth_header,omitempty"`
	AuthType         AuthType `json:"auth_type" yaml:"auth_type"`
	Cookies          Cookies  `json:"cookies,omitempty" yaml:"cookies,omitempty"`
	Username         string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password         string   `json:"password,omitempty" yaml:"password,omitempty"`
	ShouldHaveAccess *bool    `json:"should_have_access" yaml:"should_have_access"`
}

// Expects reports the identity's expected access, false when unset
func (i IdentityConfig) Expects() bool {
	return i.ShouldHaveAccess != nil && *i.ShouldHaveAccess
}

type IdentityAccess struct {
	IdentityID       string `json:"identity_id" yaml:"identity_id"`
	StatusCode       int    `json:"status_code" yaml:"status_code"`
	Granted          bool   `json:"granted" yaml:"granted"`
	ShouldHaveAccess bool   `json:"should_have_access" yaml:"should_have_access"`
	Error            string `json:"error,omitempty" yaml:"error,omitempty"`
}

type CrossIdentityResult struct {
	FindingID             string           `json:"finding_id" yaml:"finding_id"`
	IdentitiesTested      []string         `json:"identities_tested" yaml:"identities_tested"`
	Results               []IdentityAccess `json:"results" yaml:"results"`
	AuthorizationEnforced bool             `json:"authorization_enforced" yaml:"authorization_enforced"`
	Violations            []string         `json:"violations" yaml:"violations"`
	Message               string           `json:"message" yaml:"message"`
}

// ValidationInputs is the scorer's only input. Any of the results may be nil.
type ValidationInputs struct {
	FindingID             string                 `json:"finding_id" yaml:"finding_id"`
	ReproResult           *ReproResult           `json:"repro_result,omitempty" yaml:"repro_result,omitempty"`
	NegativeControlResult *NegativeControlResult `json:"negative_control_result,omitempty" yaml:"negative_control_result,omitempty"`
	CrossIdentityResult   *CrossIdentityResult   `json:"cross_identity_result,omitempty" yaml:"cross_identity_result,omitempty"`
}

type ConfidenceResult struct {
	FindingID            string         `json:"finding_id" yaml:"finding_id"`
	ReproScore           float64        `json:"repro_score" yaml:"repro_score"`
	NegativeControlScore float64        `json:"negative_control_score" yaml:"negative_control_score"`
	CrossIdentityScore   float64        `json:"cross_identity_score" yaml:"cross_identity_score"`
	OverallScore         float64        `json:"overall_score" yaml:"overall_score"`
	Recommendation       Recommendation `json:"recommendation" yaml:"recommendation"`
	Factors              []string       `json:"factors" yaml:"factors"`
}
