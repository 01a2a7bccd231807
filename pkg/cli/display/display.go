// Package display provides the colored terminal rendering used by the verdict commands.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/worker"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/validation"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ColorRecommendation returns a colorized recommendation string
func ColorRecommendation(rec types.Recommendation) string {
	switch rec {
	case types.RecommendationPromote:
		return color.New(color.FgRed, color.Bold).Sprint("PROMOTE")
	case types.RecommendationInvestigate:
		return color.New(color.FgYellow).Sprint("INVESTIGATE")
	case types.RecommendationDismiss:
		return color.New(color.FgGreen).Sprint("DISMISS")
	default:
		return string(rec)
	}
}

// ColorScore colors a [0,1] score by the band it falls in
func ColorScore(score float64) string {
	text := fmt.Sprintf("%.2f", score)
	switch {
	case score >= 0.8:
		return color.New(color.FgRed, color.Bold).Sprint(text)
	case score >= 0.5:
		return color.New(color.FgYellow).Sprint(text)
	default:
		return color.New(color.FgGreen).Sprint(text)
	}
}

// ColorPassed returns a check or cross icon
func ColorPassed(passed bool) string {
	if passed {
		return color.New(color.FgGreen).Sprint("✓")
	}
	return color.New(color.FgRed).Sprint("✗")
}

// CountRecommendations groups batch results by recommendation. Failed
// findings are counted under the empty recommendation.
func CountRecommendations(results []worker.BatchResult) map[types.Recommendation]int {
	counts := make(map[types.Recommendation]int)
	for _, r := range results {
		if r.Report == nil || r.Report.Confidence == nil {
			counts[""]++
			continue
		}
		counts[r.Report.Confidence.Recommendation]++
	}
	return counts
}

func header(w io.Writer, title string) {
	cyan := color.New(color.FgCyan)
	cyan.Fprintf(w, "\n%s\n", title)
	cyan.Fprintf(w, "%s\n", rule)
}

func PrintRepro(w io.Writer, r *types.ReproResult) {
	if r == nil {
		return
	}
	header(w, "Reproduction: "+r.FindingID)
	fmt.Fprintf(w, "  %s %d/%d attempts reproduced (%.0f%%)\n",
		ColorPassed(r.SuccessfulAttempts > 0), r.SuccessfulAttempts, r.TotalAttempts, r.SuccessRate*100)
	if r.Consistent {
		fmt.Fprintf(w, "  Outcome consistent across attempts\n")
	} else {
		color.New(color.FgYellow).Fprintf(w, "  Outcome varied across attempts\n")
	}

	for _, a := range r.Attempts {
		status := fmt.Sprintf("%d", a.StatusCode)
		if a.Error != "" {
			status = a.Error
		}
		fmt.Fprintf(w, "    #%d %s %s %s\n", a.Attempt, ColorPassed(a.MatchedExpected), status,
			color.HiBlackString("%dms", a.LatencyMS))
	}
}

func PrintNegativeControl(w io.Writer, r *types.NegativeControlResult) {
	if r == nil {
		return
	}
	header(w, fmt.Sprintf("Negative control (%s): %s", r.ControlType, r.FindingID))
	fmt.Fprintf(w, "  %s %s\n", ColorPassed(r.Passed), r.Message)
	fmt.Fprintf(w, "    expected: %s\n", r.ExpectedBehavior)
	fmt.Fprintf(w, "    actual:   %s\n", r.ActualBehavior)
}

func PrintCrossIdentity(w io.Writer, r *types.CrossIdentityResult) {
	if r == nil {
		return
	}
	header(w, "Cross-identity: "+r.FindingID)
	fmt.Fprintf(w, "  %s %s\n", ColorPassed(r.AuthorizationEnforced), r.Message)

	for _, access := range r.Results {
		ok := access.Granted == access.ShouldHaveAccess
		fmt.Fprintf(w, "    %s %-20s status=%d granted=%t expected=%t\n",
			ColorPassed(ok), access.IdentityID, access.StatusCode, access.Granted, access.ShouldHaveAccess)
	}
	for _, v := range r.Violations {
		color.New(color.FgRed).Fprintf(w, "    ! %s\n", v)
	}
}

func PrintConfidence(w io.Writer, c *types.ConfidenceResult) {
	if c == nil {
		return
	}
	header(w, "Confidence: "+c.FindingID)
	fmt.Fprintf(w, "  Overall:          %s  %s\n", ColorScore(c.OverallScore), ColorRecommendation(c.Recommendation))
	fmt.Fprintf(w, "  Reproduction:     %.2f\n", c.ReproScore)
	fmt.Fprintf(w, "  Negative control: %.2f\n", c.NegativeControlScore)
	fmt.Fprintf(w, "  Cross-identity:   %.2f\n", c.CrossIdentityScore)
	if len(c.Factors) > 0 {
		fmt.Fprintf(w, "  Factors:\n")
		for _, f := range c.Factors {
			fmt.Fprintf(w, "    • %s\n", f)
		}
	}
}

// PrintReport renders every section a pipeline run produced
func PrintReport(w io.Writer, report *validation.PipelineReport) {
	if report == nil {
		return
	}
	PrintRepro(w, report.Repro)
	PrintNegativeControl(w, report.NegativeControl)
	PrintCrossIdentity(w, report.CrossIdentity)
	PrintConfidence(w, report.Confidence)
	fmt.Fprintf(w, "%s\n", color.HiBlackString("run %s, %s", report.RunID, report.CompletedAt.Sub(report.StartedAt).Round(time.Millisecond)))
}

// PrintBatch prints one line per finding followed by a recommendation summary
func PrintBatch(w io.Writer, results []worker.BatchResult) {
	header(w, fmt.Sprintf("Validated %d findings", len(results)))

	for _, r := range results {
		if r.Report == nil || r.Report.Confidence == nil {
			fmt.Fprintf(w, "  %s %-24s %s\n", ColorPassed(false), r.FindingID, color.RedString("error: %s", r.Error))
			continue
		}
		c := r.Report.Confidence
		fmt.Fprintf(w, "  %-24s %s  %s\n", r.FindingID, ColorScore(c.OverallScore), ColorRecommendation(c.Recommendation))
	}

	counts := CountRecommendations(results)
	parts := make([]string, 0, 4)
	for _, rec := range []types.Recommendation{
		types.RecommendationPromote,
		types.RecommendationInvestigate,
		types.RecommendationDismiss,
	} {
		parts = append(parts, fmt.Sprintf("%s=%d", rec, counts[rec]))
	}
	if counts[""] > 0 {
		parts = append(parts, fmt.Sprintf("failed=%d", counts[""]))
	}
	fmt.Fprintf(w, "%s\n  %s\n", rule, strings.Join(parts, "  "))
}
