package validation

import (
	"math"
	"sync"
	"testing"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultScorerConfig())
	require.NoError(t, err)
	return s
}

func repro(total, successful int, consistent bool) *types.ReproResult {
	rate := 0.0
	if total > 0 {
		rate = float64(successful) / float64(total)
	}
	return &types.ReproResult{
		FindingID:          "F-1",
		TotalAttempts:      total,
		SuccessfulAttempts: successful,
		FailedAttempts:     total - successful,
		SuccessRate:        rate,
		Consistent:         consistent,
	}
}

func TestReproScore_MonotonicInSuccessRate(t *testing.T) {
	for _, consistent := range []bool{true, false} {
		for _, total := range []int{1, 2, 3, 5, 10} {
			prev := -1.0
			for successful := 0; successful <= total; successful++ {
				score := ReproScore(repro(total, successful, consistent))
				assert.GreaterOrEqual(t, score, prev, "total=%d successful=%d consistent=%v", total, successful, consistent)
				prev = score
			}
		}
	}
}

func TestReproScore_ConsistencyBonus(t *testing.T) {
	consistent := ReproScore(repro(5, 4, true))
	inconsistent := ReproScore(repro(5, 4, false))

	assert.GreaterOrEqual(t, consistent, inconsistent)
	assert.InDelta(t, 0.88, consistent, 1e-9)
	assert.InDelta(t, 0.80, inconsistent, 1e-9)
}

func TestReproScore_FewAttemptsPenalty(t *testing.T) {
	few := ReproScore(repro(2, 2, true))
	enough := ReproScore(repro(5, 5, true))

	assert.Less(t, few, enough)
	assert.InDelta(t, 0.70, few, 1e-9)
	assert.InDelta(t, 1.0, enough, 1e-9)
}

func TestReproScore_Bounds(t *testing.T) {
	assert.Equal(t, 0.0, ReproScore(nil))
	assert.Equal(t, 0.0, ReproScore(repro(0, 0, false)))
	assert.LessOrEqual(t, ReproScore(repro(10, 10, true)), 1.0)
}

func TestNegativeControlScore(t *testing.T) {
	failed := func(ct types.ControlType) float64 {
		return NegativeControlScore(&types.NegativeControlResult{ControlType: ct, Passed: false})
	}

	for _, ct := range types.AllControlTypes() {
		assert.Equal(t, 1.0, NegativeControlScore(&types.NegativeControlResult{ControlType: ct, Passed: true}), string(ct))
		assert.Less(t, failed(ct), 1.0, string(ct))
	}

	assert.Less(t, failed(types.ControlUnauthenticated), failed(types.ControlInvalidToken))
	assert.Equal(t, failed(types.ControlInvalidToken), failed(types.ControlDifferentUser))
	assert.Less(t, failed(types.ControlDifferentUser), failed(types.ControlModifiedRequest))

	assert.Equal(t, 0.0, failed("unknown"))
	assert.Equal(t, 0.0, NegativeControlScore(nil))
}

func TestCrossIdentityScore(t *testing.T) {
	t.Run("nothing tested", func(t *testing.T) {
		assert.Equal(t, 0.0, CrossIdentityScore(&types.CrossIdentityResult{AuthorizationEnforced: true}))
	})

	t.Run("enforced", func(t *testing.T) {
		assert.Equal(t, 1.0, CrossIdentityScore(&types.CrossIdentityResult{
			IdentitiesTested:      []string{"a", "b"},
			AuthorizationEnforced: true,
		}))
	})

	t.Run("unauthorized access drops below half", func(t *testing.T) {
		score := CrossIdentityScore(&types.CrossIdentityResult{
			IdentitiesTested: []string{"owner", "victim"},
			Results: []types.IdentityAccess{
				{IdentityID: "owner", StatusCode: 200, Granted: true, ShouldHaveAccess: true},
				{IdentityID: "victim", StatusCode: 200, Granted: true, ShouldHaveAccess: false},
			},
			Violations: []string{"victim: Gained unauthorized access (status 200)"},
		})
		assert.Less(t, score, 0.5)
	})

	t.Run("denied only follows the penalty formula", func(t *testing.T) {
		tests := []struct {
			denied int
			want   float64
		}{
			{denied: 1, want: 0.7},
			{denied: 2, want: 0.4},
			{denied: 3, want: 0.1},
			{denied: 4, want: 0.0},
		}

		for _, tt := range tests {
			result := &types.CrossIdentityResult{}
			for i := 0; i < tt.denied; i++ {
				id := string(rune('a' + i))
				result.IdentitiesTested = append(result.IdentitiesTested, id)
				result.Results = append(result.Results, types.IdentityAccess{IdentityID: id, StatusCode: 403, ShouldHaveAccess: true})
				result.Violations = append(result.Violations, id+": Denied expected access (status 403)")
			}
			assert.InDelta(t, tt.want, CrossIdentityScore(result), 1e-9, "denied=%d", tt.denied)
		}
	})

	t.Run("single denied access keeps at least 0.3", func(t *testing.T) {
		score := CrossIdentityScore(&types.CrossIdentityResult{
			IdentitiesTested: []string{"owner"},
			Results:          []types.IdentityAccess{{IdentityID: "owner", StatusCode: 403, ShouldHaveAccess: true}},
		})
		assert.GreaterOrEqual(t, score, 0.3)
	})

	t.Run("falls back to violation text", func(t *testing.T) {
		unauthorized := CrossIdentityScore(&types.CrossIdentityResult{
			IdentitiesTested: []string{"a"},
			Violations:       []string{"a: Gained unauthorized access (status 200)"},
		})
		denied := CrossIdentityScore(&types.CrossIdentityResult{
			IdentitiesTested: []string{"a"},
			Violations:       []string{"a: Denied expected access (status 403)"},
		})

		assert.InDelta(t, 0.4, unauthorized, 1e-9)
		assert.InDelta(t, 0.7, denied, 1e-9)
	})

	t.Run("never negative", func(t *testing.T) {
		result := &types.CrossIdentityResult{IdentitiesTested: []string{"a", "b", "c"}}
		for _, id := range result.IdentitiesTested {
			result.Results = append(result.Results, types.IdentityAccess{IdentityID: id, StatusCode: 200, Granted: true})
		}
		assert.Equal(t, 0.0, CrossIdentityScore(result))
	})
}

func TestGetRecommendation(t *testing.T) {
	s := defaultScorer(t)

	assert.Equal(t, types.RecommendationPromote, s.GetRecommendation(0.85))
	assert.Equal(t, types.RecommendationPromote, s.GetRecommendation(0.8))
	assert.Equal(t, types.RecommendationInvestigate, s.GetRecommendation(0.6))
	assert.Equal(t, types.RecommendationInvestigate, s.GetRecommendation(0.5))
	assert.Equal(t, types.RecommendationDismiss, s.GetRecommendation(0.3))

	cfg := DefaultScorerConfig()
	cfg.PromoteThreshold = 0.9
	cfg.InvestigateThreshold = 0.7
	custom, err := NewScorer(cfg)
	require.NoError(t, err)

	assert.Equal(t, types.RecommendationInvestigate, custom.GetRecommendation(0.85))
	assert.Equal(t, types.RecommendationPromote, custom.GetRecommendation(0.95))
	assert.Equal(t, types.RecommendationDismiss, custom.GetRecommendation(0.6))
}

func TestNewScorer_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *ScorerConfig)
	}{
		{"weights sum above one", func(c *ScorerConfig) { c.Weights.Repro = 0.5 }},
		{"weights sum below one", func(c *ScorerConfig) { c.Weights = ScoreWeights{0.3, 0.3, 0.3} }},
		{"negative weight", func(c *ScorerConfig) { c.Weights = ScoreWeights{1.1, -0.1, 0} }},
		{"inverted thresholds", func(c *ScorerConfig) { c.PromoteThreshold, c.InvestigateThreshold = 0.4, 0.6 }},
		{"promote above one", func(c *ScorerConfig) { c.PromoteThreshold = 1.5 }},
		{"investigate below zero", func(c *ScorerConfig) { c.InvestigateThreshold = -0.1 }},
		{"NaN weight", func(c *ScorerConfig) { c.Weights.CrossIdentity = math.NaN() }},
		{"infinite weight", func(c *ScorerConfig) { c.Weights.Repro = math.Inf(1) }},
		{"NaN threshold", func(c *ScorerConfig) { c.PromoteThreshold = math.NaN() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultScorerConfig()
			tt.mutate(&cfg)

			_, err := NewScorer(cfg)
			assert.True(t, IsKind(err, KindInvalidArgument), "got %v", err)
		})
	}
}

func TestCalculateConfidence_NoResults(t *testing.T) {
	result := defaultScorer(t).CalculateConfidence(types.ValidationInputs{FindingID: "F-1"})

	assert.Equal(t, "F-1", result.FindingID)
	assert.Equal(t, 0.0, result.OverallScore)
	assert.Equal(t, types.RecommendationDismiss, result.Recommendation)
	assert.Equal(t, []string{
		"Not tested: reproduction",
		"Not tested: negative control",
		"Not tested: cross-identity",
	}, result.Factors)
}

func TestCalculateConfidence_ReproOnly(t *testing.T) {
	result := defaultScorer(t).CalculateConfidence(types.ValidationInputs{
		FindingID:   "F-1",
		ReproResult: repro(3, 3, true),
	})

	assert.Equal(t, 0.0, result.NegativeControlScore)
	assert.Equal(t, 0.0, result.CrossIdentityScore)
	assert.Greater(t, result.OverallScore, 0.0)
	assert.InDelta(t, 0.40, result.OverallScore, 1e-9)
	assert.Contains(t, result.Factors, "Reproduction: 3/3 attempts succeeded (consistent)")
	assert.Contains(t, result.Factors, "Not tested: negative control")
}

func TestCalculateConfidence_StrongFindingIsPromoted(t *testing.T) {
	result := defaultScorer(t).CalculateConfidence(types.ValidationInputs{
		FindingID:   "F-1",
		ReproResult: repro(3, 3, true),
		NegativeControlResult: &types.NegativeControlResult{
			FindingID:   "F-1",
			ControlType: types.ControlUnauthenticated,
			Passed:      true,
		},
		CrossIdentityResult: &types.CrossIdentityResult{
			FindingID:             "F-1",
			IdentitiesTested:      []string{"owner", "other"},
			AuthorizationEnforced: true,
		},
	})

	assert.Greater(t, result.OverallScore, 0.8)
	assert.Equal(t, types.RecommendationPromote, result.Recommendation)
	assert.Len(t, result.Factors, 3)
}

func TestCalculateConfidence_WeakFindingIsDismissed(t *testing.T) {
	result := defaultScorer(t).CalculateConfidence(types.ValidationInputs{
		FindingID:   "F-1",
		ReproResult: repro(3, 0, false),
		NegativeControlResult: &types.NegativeControlResult{
			FindingID:    "F-1",
			ControlType:  types.ControlUnauthenticated,
			Passed:       false,
			ActualStatus: 200,
		},
	})

	assert.Less(t, result.OverallScore, 0.5)
	assert.Equal(t, types.RecommendationDismiss, result.Recommendation)
	assert.Contains(t, result.Factors, "Negative control failed (unauthenticated, status 200)")
}

func TestCalculateConfidence_RequireNegativeControl(t *testing.T) {
	cfg := DefaultScorerConfig()
	cfg.Weights = ScoreWeights{Repro: 0.6, NegativeControl: 0.1, CrossIdentity: 0.3}
	cfg.RequireNegativeControl = true
	s, err := NewScorer(cfg)
	require.NoError(t, err)

	result := s.CalculateConfidence(types.ValidationInputs{
		FindingID:   "F-1",
		ReproResult: repro(5, 5, true),
		CrossIdentityResult: &types.CrossIdentityResult{
			IdentitiesTested:      []string{"a"},
			AuthorizationEnforced: true,
		},
	})

	assert.InDelta(t, 0.9, result.OverallScore, 1e-9)
	assert.Equal(t, types.RecommendationInvestigate, result.Recommendation)
	assert.Contains(t, result.Factors, "Promotion requires a negative control; downgraded to investigate")
}

func TestCalculateConfidence_FindingIDMismatch(t *testing.T) {
	r := repro(3, 3, true)
	r.FindingID = "F-2"

	result := defaultScorer(t).CalculateConfidence(types.ValidationInputs{FindingID: "F-1", ReproResult: r})

	assert.Contains(t, result.Factors, `Warning: reproduction result is for finding "F-2", not "F-1"`)
}

func TestCalculateConfidence_DriftNote(t *testing.T) {
	r := repro(3, 3, true)
	r.DistinctResponses = 3

	result := defaultScorer(t).CalculateConfidence(types.ValidationInputs{FindingID: "F-1", ReproResult: r})

	assert.Contains(t, result.Factors, "Note: reproduction saw 3 distinct response bodies")
}

func TestCalculateConfidence_Deterministic(t *testing.T) {
	s := defaultScorer(t)
	inputs := types.ValidationInputs{
		FindingID:   "F-1",
		ReproResult: repro(4, 3, false),
		NegativeControlResult: &types.NegativeControlResult{
			ControlType: types.ControlModifiedRequest,
		},
	}
	want := s.CalculateConfidence(inputs)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, s.CalculateConfidence(inputs))
		}()
	}
	wg.Wait()
}

func TestCalculateConfidence_NonFiniteSuccessRate(t *testing.T) {
	s := defaultScorer(t)

	for _, rate := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		result := s.CalculateConfidence(types.ValidationInputs{
			FindingID:   "F-1",
			ReproResult: &types.ReproResult{FindingID: "F-1", TotalAttempts: 3, SuccessRate: rate, Consistent: true},
		})

		for name, score := range map[string]float64{"repro": result.ReproScore, "overall": result.OverallScore} {
			assert.False(t, math.IsNaN(score), "%s score for rate %v", name, rate)
			assert.GreaterOrEqual(t, score, 0.0, "%s score for rate %v", name, rate)
			assert.LessOrEqual(t, score, 1.0, "%s score for rate %v", name, rate)
		}
	}

	nan := s.CalculateConfidence(types.ValidationInputs{
		FindingID:   "F-1",
		ReproResult: &types.ReproResult{FindingID: "F-1", TotalAttempts: 3, SuccessRate: math.NaN()},
	})
	assert.Equal(t, 0.0, nan.ReproScore)
	assert.Equal(t, types.RecommendationDismiss, nan.Recommendation)
}
