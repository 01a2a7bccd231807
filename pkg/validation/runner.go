// Package validation replays findings, runs negative controls and
// cross-identity checks against them, and scores the combined evidence.
package validation

import (
	"context"
	"errors"
	"time"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/core"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

// Logger interface for structured logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

// requester is the request path shared by the runners
type requester struct {
	executor  core.RequestExecutor
	logger    Logger
	telemetry core.Telemetry
}

func newRequester(executor core.RequestExecutor, logger Logger) requester {
	if logger == nil {
		logger = nopLogger{}
	}
	return requester{
		executor:  executor,
		logger:    logger,
		telemetry: telemetry.Noop(),
	}
}

// send executes req. It returns the caller's context error if the context
// ended; any other failure is folded into a TransportError so runners can
// record it as evidence.
func (r *requester) send(ctx context.Context, kind core.AttemptKind, req types.HTTPRequest) (*types.HTTPResponse, error) {
	start := time.Now()
	resp, err := r.executor.Execute(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.telemetry.RecordAttempt(kind, false, latency)

		var transportErr *types.TransportError
		if !errors.As(err, &transportErr) {
			transportErr = &types.TransportError{Op: req.Method, URL: req.URL, Err: err}
		}
		return nil, transportErr
	}

	if resp.Latency == 0 {
		resp.Latency = latency
	}
	r.telemetry.RecordAttempt(kind, true, resp.Latency)
	return resp, nil
}
