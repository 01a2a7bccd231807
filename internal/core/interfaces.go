package core

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

// RequestExecutor sends one HTTP request and reports the response. A request
// that never produced a response comes back as a *types.TransportError; a
// cancelled context comes back as the context's error.
type RequestExecutor interface {
	Execute(ctx context.Context, req types.HTTPRequest) (*types.HTTPResponse, error)
}

// RequestExecutorFunc adapts a plain function to RequestExecutor
type RequestExecutorFunc func(ctx context.Context, req types.HTTPRequest) (*types.HTTPResponse, error)

func (f RequestExecutorFunc) Execute(ctx context.Context, req types.HTTPRequest) (*types.HTTPResponse, error) {
	return f(ctx, req)
}

// AttemptKind labels what a request was sent for
type AttemptKind string

const (
	AttemptRepro           AttemptKind = "repro"
	AttemptNegativeControl AttemptKind = "negative_control"
	AttemptCrossIdentity   AttemptKind = "cross_identity"
)

type Telemetry interface {
	RecordAttempt(kind AttemptKind, success bool, latency time.Duration)
	RecordConfidence(score float64, recommendation types.Recommendation)
	Close() error
}
