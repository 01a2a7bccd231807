package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/core"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

// PipelineRequest describes every experiment to run for one finding
type PipelineRequest struct {
	Finding         types.Finding                `json:"finding" yaml:"finding"`
	ReproCount      *int                         `json:"repro_count,omitempty" yaml:"repro_count,omitempty"`
	SkipRepro       bool                         `json:"skip_repro,omitempty" yaml:"skip_repro,omitempty"`
	NegativeControl *types.NegativeControlConfig `json:"negative_control,omitempty" yaml:"negative_control,omitempty"`
	Identities      []types.IdentityConfig       `json:"identities,omitempty" yaml:"identities,omitempty"`
}

// PipelineReport collects everything a pipeline run produced
type PipelineReport struct {
	RunID           string                       `json:"run_id" yaml:"run_id"`
	FindingID       string                       `json:"finding_id" yaml:"finding_id"`
	Repro           *types.ReproResult           `json:"repro,omitempty" yaml:"repro,omitempty"`
	NegativeControl *types.NegativeControlResult `json:"negative_control,omitempty" yaml:"negative_control,omitempty"`
	CrossIdentity   *types.CrossIdentityResult   `json:"cross_identity,omitempty" yaml:"cross_identity,omitempty"`
	Confidence      *types.ConfidenceResult      `json:"confidence" yaml:"confidence"`
	StartedAt       time.Time                    `json:"started_at" yaml:"started_at"`
	CompletedAt     time.Time                    `json:"completed_at" yaml:"completed_at"`
}

// Pipeline runs reproduction, then the negative control and cross-identity
// experiments side by side, then scores the results.
type Pipeline struct {
	repro     *ReproRunner
	control   *ControlRunner
	scorer    *Scorer
	logger    Logger
	telemetry core.Telemetry
	tracer    trace.Tracer
}

func NewPipeline(repro *ReproRunner, control *ControlRunner, scorer *Scorer, logger Logger) *Pipeline {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Pipeline{
		repro:     repro,
		control:   control,
		scorer:    scorer,
		logger:    logger,
		telemetry: telemetry.Noop(),
		tracer:    otel.Tracer("verdict/validation"),
	}
}

// WithTelemetry records confidence scores on t and passes t on to both runners
func (p *Pipeline) WithTelemetry(t core.Telemetry) *Pipeline {
	if t != nil {
		p.telemetry = t
		p.repro.WithTelemetry(t)
		p.control.WithTelemetry(t)
	}
	return p
}

// CheckRequest validates every input of req without sending anything
func CheckRequest(req PipelineRequest) error {
	if err := ValidateFinding(req.Finding); err != nil {
		return err
	}
	if req.ReproCount != nil && *req.ReproCount < 0 {
		return newValidationError(KindInvalidArgument, "repro_count", "must not be negative, got %d", *req.ReproCount)
	}
	if req.NegativeControl != nil {
		if err := ValidateNegativeControl(*req.NegativeControl); err != nil {
			return err
		}
	}
	if len(req.Identities) > 0 {
		if err := ValidateIdentities(req.Identities); err != nil {
			return err
		}
	}
	return nil
}

// Validate runs the experiments req asks for and scores them. Input errors
// are reported before any request is sent.
func (p *Pipeline) Validate(ctx context.Context, req PipelineRequest) (*PipelineReport, error) {
	if err := CheckRequest(req); err != nil {
		return nil, err
	}

	report := &PipelineReport{
		RunID:     uuid.New().String(),
		FindingID: req.Finding.FindingID,
		StartedAt: time.Now().UTC(),
	}

	ctx, span := p.tracer.Start(ctx, "validation.pipeline", trace.WithAttributes(
		attribute.String("verdict.run_id", report.RunID),
		attribute.String("verdict.finding_id", report.FindingID),
	))
	defer span.End()

	p.logger.Info("Validating finding",
		"run_id", report.RunID,
		"finding_id", report.FindingID,
		"repro", !req.SkipRepro,
		"negative_control", req.NegativeControl != nil,
		"identities", len(req.Identities),
	)

	if !req.SkipRepro {
		var (
			result *types.ReproResult
			err    error
		)
		if req.ReproCount != nil {
			result, err = p.repro.RunReproN(ctx, req.Finding, *req.ReproCount)
		} else {
			result, err = p.repro.RunRepro(ctx, req.Finding)
		}
		if err != nil {
			return nil, p.fail(span, report, "reproduction", err)
		}
		report.Repro = result
	}

	g, gctx := errgroup.WithContext(ctx)

	if req.NegativeControl != nil {
		cfg := *req.NegativeControl
		g.Go(func() error {
			result, err := p.control.RunNegativeControl(gctx, req.Finding, cfg)
			if err != nil {
				return fmt.Errorf("negative control: %w", err)
			}
			report.NegativeControl = result
			return nil
		})
	}

	if len(req.Identities) > 0 {
		g.Go(func() error {
			result, err := p.control.RunCrossIdentity(gctx, req.Finding, req.Identities)
			if err != nil {
				return fmt.Errorf("cross-identity: %w", err)
			}
			report.CrossIdentity = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, p.fail(span, report, "controls", err)
	}

	report.Confidence = p.scorer.CalculateConfidence(types.ValidationInputs{
		FindingID:             report.FindingID,
		ReproResult:           report.Repro,
		NegativeControlResult: report.NegativeControl,
		CrossIdentityResult:   report.CrossIdentity,
	})
	report.CompletedAt = time.Now().UTC()

	p.telemetry.RecordConfidence(report.Confidence.OverallScore, report.Confidence.Recommendation)

	span.SetAttributes(
		attribute.Float64("verdict.overall_score", report.Confidence.OverallScore),
		attribute.String("verdict.recommendation", string(report.Confidence.Recommendation)),
	)
	span.SetStatus(codes.Ok, "validated")

	p.logger.Info("Finding scored",
		"run_id", report.RunID,
		"finding_id", report.FindingID,
		"overall_score", report.Confidence.OverallScore,
		"recommendation", report.Confidence.Recommendation,
		"duration", report.CompletedAt.Sub(report.StartedAt).String(),
	)

	return report, nil
}

func (p *Pipeline) fail(span trace.Span, report *PipelineReport, stage string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.logger.Error("Validation run failed",
		"run_id", report.RunID,
		"finding_id", report.FindingID,
		"stage", stage,
		"error", err,
	)
	return fmt.Errorf("run %s: %w", report.RunID, err)
}
