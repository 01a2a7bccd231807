package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/config"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/core"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledIsNoop(t *testing.T) {
	tel, err := New(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)

	tel.RecordAttempt(core.AttemptRepro, true, 10*time.Millisecond)
	tel.RecordConfidence(0.9, types.RecommendationPromote)
	assert.NoError(t, tel.Close())
}

func TestNew_UnsupportedExporter(t *testing.T) {
	_, err := New(context.Background(), config.TelemetryConfig{
		Enabled:      true,
		ServiceName:  "verdict-test",
		ExporterType: "zipkin",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter type")
}
