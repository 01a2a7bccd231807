package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

const (
	consistencyBonus    = 1.10
	fewAttemptsPenalty  = 0.70
	minReliableAttempts = 3

	unauthorizedPenalty = 0.6
	deniedPenalty       = 0.3

	weightTolerance = 1e-6

	violationUnauthorized = "Gained unauthorized access"
	violationDenied       = "Denied expected access"
)

// Score a failed negative control earns, by control type. The closer the
// control is to the original request, the more its failure says about the
// finding.
var controlFailureScores = map[types.ControlType]float64{
	types.ControlUnauthenticated: 0.1,
	types.ControlInvalidToken:    0.2,
	types.ControlDifferentUser:   0.2,
	types.ControlModifiedRequest: 0.3,
}

// ScoreWeights sets how much each validation contributes to the overall score
type ScoreWeights struct {
	Repro           float64 `json:"repro" yaml:"repro"`
	NegativeControl float64 `json:"negative_control" yaml:"negative_control"`
	CrossIdentity   float64 `json:"cross_identity" yaml:"cross_identity"`
}

// ScorerConfig contains scorer configuration
type ScorerConfig struct {
	Weights              ScoreWeights
	PromoteThreshold     float64 // Scores at or above promote (default: 0.8)
	InvestigateThreshold float64 // Scores below this are dismissed (default: 0.5)

	// RequireNegativeControl caps findings without a negative control at investigate
	RequireNegativeControl bool
}

func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights: ScoreWeights{
			Repro:           0.40,
			NegativeControl: 0.35,
			CrossIdentity:   0.25,
		},
		PromoteThreshold:     0.8,
		InvestigateThreshold: 0.5,
	}
}

// Scorer turns validation results into a confidence score and a
// recommendation. It holds only immutable configuration and is safe for
// concurrent use.
type Scorer struct {
	config ScorerConfig
}

// NewScorer rejects negative or non-finite weights, weights that do not sum
// to 1, and out-of-order thresholds.
func NewScorer(config ScorerConfig) (*Scorer, error) {
	// Comparisons are written so that NaN fails them
	w := config.Weights
	if !(w.Repro >= 0 && w.NegativeControl >= 0 && w.CrossIdentity >= 0) {
		return nil, newValidationError(KindInvalidArgument, "weights", "weights must be non-negative numbers")
	}
	if sum := w.Repro + w.NegativeControl + w.CrossIdentity; !(math.Abs(sum-1.0) <= weightTolerance) {
		return nil, newValidationError(KindInvalidArgument, "weights", "weights must sum to 1.0, got %.6f", sum)
	}
	t := config
	if !(0 <= t.InvestigateThreshold && t.InvestigateThreshold <= t.PromoteThreshold && t.PromoteThreshold <= 1) {
		return nil, newValidationError(KindInvalidArgument, "thresholds",
			"need 0 <= investigate (%.2f) <= promote (%.2f) <= 1", config.InvestigateThreshold, config.PromoteThreshold)
	}
	return &Scorer{config: config}, nil
}

// CalculateConfidence scores inputs. Missing results contribute 0.
func (s *Scorer) CalculateConfidence(inputs types.ValidationInputs) *types.ConfidenceResult {
	result := &types.ConfidenceResult{
		FindingID: inputs.FindingID,
		Factors:   []string{},
	}

	if r := inputs.ReproResult; r != nil {
		result.ReproScore = ReproScore(r)
		result.Factors = append(result.Factors, reproFactor(r))
		if r.DistinctResponses > 1 {
			result.Factors = append(result.Factors,
				fmt.Sprintf("Note: reproduction saw %d distinct response bodies", r.DistinctResponses))
		}
		result.Factors = append(result.Factors, mismatchFactor("reproduction", inputs.FindingID, r.FindingID)...)
	} else {
		result.Factors = append(result.Factors, "Not tested: reproduction")
	}

	if n := inputs.NegativeControlResult; n != nil {
		result.NegativeControlScore = NegativeControlScore(n)
		if n.Passed {
			result.Factors = append(result.Factors, fmt.Sprintf("Negative control passed (%s)", n.ControlType))
		} else {
			result.Factors = append(result.Factors,
				fmt.Sprintf("Negative control failed (%s, status %d)", n.ControlType, n.ActualStatus))
		}
		result.Factors = append(result.Factors, mismatchFactor("negative control", inputs.FindingID, n.FindingID)...)
	} else {
		result.Factors = append(result.Factors, "Not tested: negative control")
	}

	if c := inputs.CrossIdentityResult; c != nil {
		result.CrossIdentityScore = CrossIdentityScore(c)
		result.Factors = append(result.Factors, crossIdentityFactor(c))
		result.Factors = append(result.Factors, mismatchFactor("cross-identity", inputs.FindingID, c.FindingID)...)
	} else {
		result.Factors = append(result.Factors, "Not tested: cross-identity")
	}

	w := s.config.Weights
	result.OverallScore = clamp(w.Repro*result.ReproScore +
		w.NegativeControl*result.NegativeControlScore +
		w.CrossIdentity*result.CrossIdentityScore)

	result.Recommendation = s.GetRecommendation(result.OverallScore)

	if s.config.RequireNegativeControl && inputs.NegativeControlResult == nil &&
		result.Recommendation == types.RecommendationPromote {
		result.Recommendation = types.RecommendationInvestigate
		result.Factors = append(result.Factors, "Promotion requires a negative control; downgraded to investigate")
	}

	return result
}

// GetRecommendation maps a score onto the configured thresholds
func (s *Scorer) GetRecommendation(score float64) types.Recommendation {
	switch {
	case score >= s.config.PromoteThreshold:
		return types.RecommendationPromote
	case score < s.config.InvestigateThreshold:
		return types.RecommendationDismiss
	default:
		return types.RecommendationInvestigate
	}
}

// ReproScore rewards a high, consistent success rate and discounts runs
// with too few attempts to be trusted.
func ReproScore(r *types.ReproResult) float64 {
	if r == nil || r.TotalAttempts == 0 {
		return 0
	}

	score := r.SuccessRate
	if r.Consistent {
		score *= consistencyBonus
	}
	score = math.Min(1.0, score)

	if r.TotalAttempts < minReliableAttempts {
		score *= fewAttemptsPenalty
	}
	return clamp(score)
}

// NegativeControlScore is 1 for a passed control and a per-type penalty score otherwise
func NegativeControlScore(n *types.NegativeControlResult) float64 {
	if n == nil {
		return 0
	}
	if n.Passed {
		return 1.0
	}
	return controlFailureScores[n.ControlType]
}

// CrossIdentityScore is 1 when authorization held and drops 0.6 per unauthorized
// and 0.3 per denied access.
func CrossIdentityScore(c *types.CrossIdentityResult) float64 {
	if c == nil || len(c.IdentitiesTested) == 0 {
		return 0
	}
	if c.AuthorizationEnforced {
		return 1.0
	}

	unauthorized, denied := countViolations(c)
	// Not enforced but nothing classifiable: assume the worse kind
	if unauthorized == 0 && denied == 0 {
		unauthorized = 1
	}

	return clamp(1.0 - unauthorizedPenalty*float64(unauthorized) - deniedPenalty*float64(denied))
}

// countViolations prefers per-identity results and falls back to the
// violation messages when only those are present.
func countViolations(c *types.CrossIdentityResult) (unauthorized, denied int) {
	if len(c.Results) > 0 {
		for _, r := range c.Results {
			switch {
			case !r.ShouldHaveAccess && r.Granted:
				unauthorized++
			case r.ShouldHaveAccess && !r.Granted:
				denied++
			}
		}
		return unauthorized, denied
	}

	for _, v := range c.Violations {
		switch {
		case strings.Contains(v, violationUnauthorized):
			unauthorized++
		case strings.Contains(v, violationDenied):
			denied++
		default:
			unauthorized++
		}
	}
	return unauthorized, denied
}

func reproFactor(r *types.ReproResult) string {
	if r.TotalAttempts == 0 {
		return "Reproduction: no attempts made"
	}
	consistency := "inconsistent"
	if r.Consistent {
		consistency = "consistent"
	}
	factor := fmt.Sprintf("Reproduction: %d/%d attempts succeeded (%s)", r.SuccessfulAttempts, r.TotalAttempts, consistency)
	if r.TotalAttempts < minReliableAttempts {
		factor += fmt.Sprintf(", fewer than %d attempts", minReliableAttempts)
	}
	return factor
}

func crossIdentityFactor(c *types.CrossIdentityResult) string {
	switch {
	case len(c.IdentitiesTested) == 0:
		return "Cross-identity: no identities tested"
	case c.AuthorizationEnforced:
		return fmt.Sprintf("Cross-identity: authorization enforced across %d identities", len(c.IdentitiesTested))
	default:
		return fmt.Sprintf("Cross-identity: %d violation(s) across %d identities", len(c.Violations), len(c.IdentitiesTested))
	}
}

func mismatchFactor(what, want, got string) []string {
	if got == "" || got == want {
		return nil
	}
	return []string{fmt.Sprintf("Warning: %s result is for finding %q, not %q", what, got, want)}
}

// clamp maps v into [0,1]. NaN, which only arrives through hand-written
// results, scores 0.
func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
