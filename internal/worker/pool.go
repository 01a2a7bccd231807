package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/logger"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/validation"
)

const defaultWorkers = 4

// Validator runs the full validation flow for one finding
type Validator interface {
	Validate(ctx context.Context, req validation.PipelineRequest) (*validation.PipelineReport, error)
}

// BatchResult is the outcome for one request of a batch. Exactly one of
// Report and Error is set.
type BatchResult struct {
	Index     int                        `json:"index" yaml:"index"`
	FindingID string                     `json:"finding_id" yaml:"finding_id"`
	Report    *validation.PipelineReport `json:"report,omitempty" yaml:"report,omitempty"`
	Error     string                     `json:"error,omitempty" yaml:"error,omitempty"`
	Err       error                      `json:"-" yaml:"-"`
}

// Pool validates a batch of findings with bounded concurrency. Each finding
// is handled by one worker, so the requests of a single finding are never
// interleaved with themselves.
type Pool struct {
	validator Validator
	workers   int
	logger    *logger.Logger
}

func NewPool(validator Validator, workers int, log *logger.Logger) *Pool {
	if workers < 1 {
		workers = defaultWorkers
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pool{
		validator: validator,
		workers:   workers,
		logger:    log.WithComponent("worker-pool"),
	}
}

// Run validates every request and returns results in input order. A failed
// finding records its error and does not stop the rest of the batch.
func (p *Pool) Run(ctx context.Context, requests []validation.PipelineRequest) []BatchResult {
	start := time.Now()
	ctx, span := p.logger.StartOperation(ctx, "worker.Pool.Run",
		"findings", len(requests),
		"workers", p.workers,
	)

	results := make([]BatchResult, len(requests))

	g := new(errgroup.Group)
	g.SetLimit(p.workers)

	for i := range requests {
		i := i
		req := requests[i]
		g.Go(func() error {
			results[i] = p.runOne(ctx, i, req)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	var batchErr error
	if failed > 0 {
		batchErr = fmt.Errorf("%d of %d findings failed validation", failed, len(requests))
	}
	p.logger.FinishOperation(ctx, span, "worker.Pool.Run", start, batchErr,
		"findings", len(requests),
		"failed", failed,
	)

	return results
}

func (p *Pool) runOne(ctx context.Context, index int, req validation.PipelineRequest) BatchResult {
	result := BatchResult{Index: index, FindingID: req.Finding.FindingID}
	log := p.logger.WithFinding(req.Finding.FindingID)

	report, err := p.validator.Validate(ctx, req)
	if err != nil {
		log.LogError(ctx, err, "worker.validate", "index", index)
		result.Err = err
		result.Error = err.Error()
		return result
	}

	result.Report = report
	if report.Confidence != nil {
		log.WithRunID(report.RunID).LogValidationOutcome(ctx, report.FindingID,
			string(report.Confidence.Recommendation), report.Confidence.OverallScore, "index", index)
	}
	return result
}
