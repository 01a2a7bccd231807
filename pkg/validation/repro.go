package validation

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/core"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/identity"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

const (
	defaultReproCount = 3

	// count comes from callers, so only this many slots are reserved up front
	maxPreallocatedAttempts = 64
)

// ReproConfig configures the reproduction runner
type ReproConfig struct {
	DefaultCount int // Attempts made by RunRepro (default: 3)
}

// ReproRunner replays a finding's request to check that it reproduces deterministically
type ReproRunner struct {
	requester
	config ReproConfig
}

// NewReproRunner creates a runner that sends every attempt through executor
func NewReproRunner(executor core.RequestExecutor, config ReproConfig, logger Logger) *ReproRunner {
	if config.DefaultCount <= 0 {
		config.DefaultCount = defaultReproCount
	}
	return &ReproRunner{
		requester: newRequester(executor, logger),
		config:    config,
	}
}

// WithTelemetry records every attempt on t
func (r *ReproRunner) WithTelemetry(t core.Telemetry) *ReproRunner {
	if t != nil {
		r.telemetry = t
	}
	return r
}

// RunRepro replays the finding the configured default number of times
func (r *ReproRunner) RunRepro(ctx context.Context, finding types.Finding) (*types.ReproResult, error) {
	return r.RunReproN(ctx, finding, r.config.DefaultCount)
}

// RunReproN replays the finding count times, one attempt after another.
// Transport failures are recorded as failed attempts. If ctx ends, the
// attempts completed so far are returned together with ctx's error.
func (r *ReproRunner) RunReproN(ctx context.Context, finding types.Finding, count int) (*types.ReproResult, error) {
	if count < 0 {
		return nil, newValidationError(KindInvalidArgument, "count", "must not be negative, got %d", count)
	}
	if err := ValidateFinding(finding); err != nil {
		return nil, err
	}
	m, err := newMatcher(finding.Expected)
	if err != nil {
		return nil, err
	}

	result := &types.ReproResult{
		FindingID: finding.FindingID,
		Attempts:  make([]types.ReproAttempt, 0, min(count, maxPreallocatedAttempts)),
	}
	if count == 0 {
		return result, nil
	}

	r.logger.Debug("Starting reproduction",
		"finding_id", finding.FindingID,
		"attempts", count,
		"method", finding.Request.Method,
		"url", finding.Request.URL,
		"headers", identity.Redact(finding.Request.Headers),
	)

	req := finding.Request.HTTPRequest()
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return summarize(result), err
		}

		resp, err := r.send(ctx, core.AttemptRepro, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				r.logger.Warn("Reproduction cancelled",
					"finding_id", finding.FindingID,
					"completed_attempts", len(result.Attempts),
				)
				return summarize(result), ctxErr
			}
			result.Attempts = append(result.Attempts, types.ReproAttempt{
				Attempt: i,
				Error:   err.Error(),
			})
			r.logger.Debug("Reproduction attempt failed", "finding_id", finding.FindingID, "attempt", i, "error", err)
			continue
		}

		attempt := types.ReproAttempt{
			Attempt:         i,
			StatusCode:      resp.StatusCode,
			MatchedExpected: m.matches(resp),
			LatencyMS:       resp.Latency.Milliseconds(),
			ResponseHash:    fingerprint(resp.Body),
		}
		result.Attempts = append(result.Attempts, attempt)

		r.logger.Debug("Reproduction attempt completed",
			"finding_id", finding.FindingID,
			"attempt", i,
			"status_code", resp.StatusCode,
			"matched", attempt.MatchedExpected,
		)
	}

	summarize(result)

	r.logger.Info("Reproduction finished",
		"finding_id", finding.FindingID,
		"successful", result.SuccessfulAttempts,
		"total", result.TotalAttempts,
		"consistent", result.Consistent,
	)

	return result, nil
}

// summarize derives the aggregate fields from the recorded attempts
func summarize(result *types.ReproResult) *types.ReproResult {
	result.TotalAttempts = len(result.Attempts)
	result.SuccessfulAttempts = 0
	hashes := make(map[string]struct{})

	for _, a := range result.Attempts {
		if a.MatchedExpected {
			result.SuccessfulAttempts++
		}
		if a.ResponseHash != "" {
			hashes[a.ResponseHash] = struct{}{}
		}
	}

	result.FailedAttempts = result.TotalAttempts - result.SuccessfulAttempts
	result.DistinctResponses = len(hashes)

	if result.TotalAttempts == 0 {
		result.SuccessRate = 0
		result.Consistent = false
		return result
	}

	result.SuccessRate = float64(result.SuccessfulAttempts) / float64(result.TotalAttempts)
	// Either every attempt matched or none did
	result.Consistent = result.SuccessfulAttempts == 0 || result.SuccessfulAttempts == result.TotalAttempts
	return result
}
