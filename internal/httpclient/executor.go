package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/config"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/logger"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

const (
	defaultUserAgent    = "verdict-validator/1.0"
	defaultMaxBodyBytes = 1 << 20
	defaultTimeout      = 10 * time.Second
)

// Executor replays requests over HTTP. It implements core.RequestExecutor.
type Executor struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	timeout      time.Duration
	logger       *logger.Logger
}

// NewExecutor builds an executor from the http config section. timeout bounds
// each request including reading the body.
func NewExecutor(cfg config.HTTPConfig, timeout time.Duration, log *logger.Logger) *Executor {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}

	client := NewSecureClient(SecureClientConfig{
		EnableSSRF:      cfg.EnableSSRF,
		FollowRedirects: cfg.FollowRedirects,
		MaxRedirects:    cfg.MaxRedirects,
	})

	return &Executor{
		client:       client,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		timeout:      timeout,
		logger:       log.WithComponent("http-executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, req types.HTTPRequest) (*types.HTTPResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = strings.NewReader(*req.Body)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, &types.TransportError{Op: req.Method, URL: req.URL, Err: fmt.Errorf("failed to build request: %w", err)}
	}

	for name, value := range req.Headers {
		if strings.EqualFold(name, "Host") {
			httpReq.Host = value
			continue
		}
		httpReq.Header.Set(name, value)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", e.userAgent)
	}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, e.transportError(ctx, reqCtx, req, err)
	}
	defer CloseBody(resp)

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBodyBytes))
	if err != nil {
		return nil, e.transportError(ctx, reqCtx, req, fmt.Errorf("failed to read response body: %w", err))
	}
	latency := time.Since(start)

	e.logger.LogHTTPRequest(ctx, req.Method, req.URL, resp.StatusCode, latency, "body_bytes", len(data))

	return &types.HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
		Latency:    latency,
	}, nil
}

// transportError separates caller cancellation, which is returned as-is,
// from failures of the request itself.
func (e *Executor) transportError(parent, reqCtx context.Context, req types.HTTPRequest, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}

	timeout := errors.Is(reqCtx.Err(), context.DeadlineExceeded)
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}

	e.logger.Debugw("Request failed", "method", req.Method, "url", req.URL, "timeout", timeout, "error", err)

	return &types.TransportError{
		Op:      req.Method,
		URL:     req.URL,
		Timeout: timeout,
		Err:     err,
	}
}
