package config

import (
	"fmt"
	"math"
	"time"
)

type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Validation ValidationConfig `mapstructure:"validation"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	ExporterType string  `mapstructure:"exporter_type"`
	Endpoint     string  `mapstructure:"endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// HTTPConfig configures the client used to replay finding requests
type HTTPConfig struct {
	UserAgent       string `mapstructure:"user_agent"`
	EnableSSRF      bool   `mapstructure:"enable_ssrf"`
	FollowRedirects bool   `mapstructure:"follow_redirects"`
	MaxRedirects    int    `mapstructure:"max_redirects"`
	MaxBodyBytes    int64  `mapstructure:"max_body_bytes"`
}

type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BurstSize         int           `mapstructure:"burst_size"`
	MinDelay          time.Duration `mapstructure:"min_delay"`
}

// ValidationConfig holds the recognized options of the validation core
type ValidationConfig struct {
	DefaultReproCount      int           `mapstructure:"default_repro_count"`
	RequireNegativeControl bool          `mapstructure:"require_negative_control"`
	PromoteThreshold       float64       `mapstructure:"promote_threshold"`
	InvestigateThreshold   float64       `mapstructure:"investigate_threshold"`
	RequestTimeout         time.Duration `mapstructure:"request_timeout"`
	Weights                WeightsConfig `mapstructure:"weights"`
}

// WeightsConfig must sum to 1.0
type WeightsConfig struct {
	Repro           float64 `mapstructure:"repro"`
	NegativeControl float64 `mapstructure:"negative_control"`
	CrossIdentity   float64 `mapstructure:"cross_identity"`
}

func (w WeightsConfig) Sum() float64 {
	return w.Repro + w.NegativeControl + w.CrossIdentity
}

type WorkerConfig struct {
	Count int `mapstructure:"count"`
}

// Validate checks ranges that would otherwise surface as confusing runtime behaviour
func (c *Config) Validate() error {
	v := c.Validation

	if v.DefaultReproCount < 1 {
		return fmt.Errorf("validation.default_repro_count must be >= 1, got %d", v.DefaultReproCount)
	}
	if v.RequestTimeout <= 0 {
		return fmt.Errorf("validation.request_timeout must be positive, got %s", v.RequestTimeout)
	}
	if v.InvestigateThreshold < 0 || v.PromoteThreshold > 1 || v.InvestigateThreshold > v.PromoteThreshold {
		return fmt.Errorf("validation thresholds must satisfy 0 <= investigate (%.2f) <= promote (%.2f) <= 1",
			v.InvestigateThreshold, v.PromoteThreshold)
	}
	if v.Weights.Repro < 0 || v.Weights.NegativeControl < 0 || v.Weights.CrossIdentity < 0 {
		return fmt.Errorf("validation.weights must not be negative")
	}
	if math.Abs(v.Weights.Sum()-1.0) > 1e-6 {
		return fmt.Errorf("validation.weights must sum to 1.0, got %.4f", v.Weights.Sum())
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker.count must be >= 1, got %d", c.Worker.Count)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive, got %d", c.HTTP.MaxBodyBytes)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive when rate limiting is enabled")
	}

	return nil
}

// DefaultConfig returns the configuration used when no flags, env vars or
// config file override a value. cmd/root.go mirrors these as viper defaults.
func DefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ServiceName:  "verdict",
			ExporterType: "otlp",
			Endpoint:     "localhost:4318",
			SampleRate:   1.0,
		},
		HTTP: HTTPConfig{
			UserAgent:       "verdict-validator/1.0",
			EnableSSRF:      false,
			FollowRedirects: false,
			MaxRedirects:    0,
			MaxBodyBytes:    1 << 20, // 1MB
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5.0,
			BurstSize:         1,
			MinDelay:          200 * time.Millisecond,
		},
		Validation: ValidationConfig{
			DefaultReproCount:      3,
			RequireNegativeControl: false,
			PromoteThreshold:       0.8,
			InvestigateThreshold:   0.5,
			RequestTimeout:         10 * time.Second,
			Weights: WeightsConfig{
				Repro:           0.40,
				NegativeControl: 0.35,
				CrossIdentity:   0.25,
			},
		},
		Worker: WorkerConfig{
			Count: 4,
		},
	}
}
