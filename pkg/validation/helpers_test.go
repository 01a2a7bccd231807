package validation

import (
	"context"
	"errors"
	"sync"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

// scriptedExecutor answers requests from a script and records what it was sent
type scriptedExecutor struct {
	mu       sync.Mutex
	requests []types.HTTPRequest
	respond  func(n int, req types.HTTPRequest) (*types.HTTPResponse, error)
}

func (s *scriptedExecutor) Execute(ctx context.Context, req types.HTTPRequest) (*types.HTTPResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	n := len(s.requests)
	s.mu.Unlock()
	return s.respond(n, req)
}

func (s *scriptedExecutor) sent() []types.HTTPRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.HTTPRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func statusSequence(codes ...int) *scriptedExecutor {
	return &scriptedExecutor{
		respond: func(n int, _ types.HTTPRequest) (*types.HTTPResponse, error) {
			code := codes[(n-1)%len(codes)]
			if code == 0 {
				return nil, &types.TransportError{Op: "GET", URL: "http://target", Err: errors.New("connection refused")}
			}
			return &types.HTTPResponse{StatusCode: code, Body: []byte("body")}, nil
		},
	}
}

func fixedStatus(code int) *scriptedExecutor {
	return statusSequence(code)
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func testFinding() types.Finding {
	return types.Finding{
		FindingID: "F-1",
		Title:     "IDOR on order lookup",
		Request: types.FindingRequest{
			Method: "GET",
			URL:    "https://api.example.com/orders/42",
			Headers: map[string]string{
				"Authorization": "Bearer attacker-token",
				"Accept":        "application/json",
			},
		},
		Expected: &types.ExpectedResponse{StatusCode: intPtr(200)},
	}
}
