package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/config"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/core"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/httpclient"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/logger"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/ratelimit"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/cli/adapters"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/validation"
)

var (
	cfg *config.Config
	log *logger.Logger
	tel core.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "verdict",
	Short: "Validate security findings before they reach a human",
	Long: `Verdict - Security Finding Validation

Replays a candidate finding against its target and measures how much the
evidence supports it:

  1. Reproduction: the original request is replayed N times and every
     response is checked against the finding's expected response.
  2. Negative control: a degraded copy of the request (no auth, an invalid
     token, another user, a modified request) must be rejected.
  3. Cross-identity: the request is sent once per configured identity and
     the observed access is compared with the expected access.

The results are combined into a confidence score in [0, 1] and a
recommendation: promote, investigate or dismiss.

Input documents are YAML, or JSON when the file ends in .json. Use "-" to
read from stdin.

COMMANDS:
  verdict repro -f finding.yaml           - Reproduction only
  verdict control -f finding.yaml         - Negative control only
  verdict cross-identity -f finding.yaml  - Cross-identity only
  verdict score -f results.yaml           - Score existing results offline
  verdict validate -f finding.yaml        - Full pipeline
  verdict validate --batch -f all.yaml    - Full pipeline over many findings`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(cmd); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		var err error
		log, err = logger.New(cfg.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		tel, err = telemetry.New(cmd.Context(), cfg.Telemetry)
		if err != nil {
			log.Warnw("Telemetry disabled", "error", err)
			tel = telemetry.Noop()
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if tel != nil {
			if err := tel.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to flush telemetry: %v\n", err)
			}
		}
		if log != nil {
			// Sync errors on stdout/stderr are expected on Linux and can be safely ignored
			if err := log.Sync(); err != nil {
				if err.Error() != "sync /dev/stdout: invalid argument" && err.Error() != "sync /dev/stderr: invalid argument" {
					fmt.Fprintf(os.Stderr, "Warning: failed to sync logger: %v\n", err)
				}
			}
		}
	},
}

// Execute runs the root command with a context that is cancelled on SIGINT or SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "output format (text, json, yaml)")

	// Logging configuration
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (json, console)")
	viper.BindPFlag("logger.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logger.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindEnv("logger.level", "VERDICT_LOG_LEVEL")
	viper.BindEnv("logger.format", "VERDICT_LOG_FORMAT")

	// Validation
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "per-request timeout")
	rootCmd.PersistentFlags().Bool("require-negative-control", false, "never promote a finding without a negative control")
	viper.BindPFlag("validation.request_timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("validation.require_negative_control", rootCmd.PersistentFlags().Lookup("require-negative-control"))
	viper.BindEnv("validation.request_timeout", "VERDICT_TIMEOUT")
	viper.BindEnv("validation.require_negative_control", "VERDICT_REQUIRE_NEGATIVE_CONTROL")

	// Worker configuration
	rootCmd.PersistentFlags().Int("workers", 4, "findings validated concurrently in batch mode")
	viper.BindPFlag("worker.count", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindEnv("worker.count", "VERDICT_WORKERS")

	// Security/Rate limiting
	rootCmd.PersistentFlags().Float64("rate-limit", 5, "requests per second per host")
	rootCmd.PersistentFlags().Int("rate-burst", 1, "rate limit burst size")
	rootCmd.PersistentFlags().Bool("no-rate-limit", false, "disable per-host rate limiting")
	rootCmd.PersistentFlags().Bool("block-private", false, "refuse to connect to private, loopback and link-local addresses")
	viper.BindPFlag("rate_limit.requests_per_second", rootCmd.PersistentFlags().Lookup("rate-limit"))
	viper.BindPFlag("rate_limit.burst_size", rootCmd.PersistentFlags().Lookup("rate-burst"))
	viper.BindPFlag("http.enable_ssrf", rootCmd.PersistentFlags().Lookup("block-private"))
	viper.BindEnv("rate_limit.requests_per_second", "VERDICT_RATE_LIMIT")
	viper.BindEnv("http.enable_ssrf", "VERDICT_BLOCK_PRIVATE")

	setDefaults(viper.GetViper(), config.DefaultConfig())
}

// setDefaults mirrors config.DefaultConfig so that partial config files and
// env vars are layered over the same values the library uses.
func setDefaults(v *viper.Viper, d *config.Config) {
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.output_paths", d.Logger.OutputPaths)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.exporter_type", d.Telemetry.ExporterType)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.sample_rate", d.Telemetry.SampleRate)

	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.enable_ssrf", d.HTTP.EnableSSRF)
	v.SetDefault("http.follow_redirects", d.HTTP.FollowRedirects)
	v.SetDefault("http.max_redirects", d.HTTP.MaxRedirects)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst_size", d.RateLimit.BurstSize)
	v.SetDefault("rate_limit.min_delay", d.RateLimit.MinDelay)

	v.SetDefault("validation.default_repro_count", d.Validation.DefaultReproCount)
	v.SetDefault("validation.require_negative_control", d.Validation.RequireNegativeControl)
	v.SetDefault("validation.promote_threshold", d.Validation.PromoteThreshold)
	v.SetDefault("validation.investigate_threshold", d.Validation.InvestigateThreshold)
	v.SetDefault("validation.request_timeout", d.Validation.RequestTimeout)
	v.SetDefault("validation.weights.repro", d.Validation.Weights.Repro)
	v.SetDefault("validation.weights.negative_control", d.Validation.Weights.NegativeControl)
	v.SetDefault("validation.weights.cross_identity", d.Validation.Weights.CrossIdentity)

	v.SetDefault("worker.count", d.Worker.Count)
}

// initConfig layers the config file, VERDICT_* env vars and cmd's flags over
// the defaults and stores the result in cfg.
func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("VERDICT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if noLimit, _ := cmd.Flags().GetBool("no-rate-limit"); noLimit {
		cfg.RateLimit.Enabled = false
	}

	return nil
}

// newExecutor builds the request path shared by every command: the HTTP
// executor, behind the per-host limiter when rate limiting is enabled.
func newExecutor() core.RequestExecutor {
	var exec core.RequestExecutor = httpclient.NewExecutor(cfg.HTTP, cfg.Validation.RequestTimeout, log.WithComponent("http"))
	if cfg.RateLimit.Enabled {
		exec = ratelimit.NewExecutor(exec, ratelimit.NewLimiter(ratelimit.FromConfig(cfg.RateLimit)))
	}
	return exec
}

func newScorer() (*validation.Scorer, error) {
	v := cfg.Validation
	return validation.NewScorer(validation.ScorerConfig{
		Weights: validation.ScoreWeights{
			Repro:           v.Weights.Repro,
			NegativeControl: v.Weights.NegativeControl,
			CrossIdentity:   v.Weights.CrossIdentity,
		},
		PromoteThreshold:       v.PromoteThreshold,
		InvestigateThreshold:   v.InvestigateThreshold,
		RequireNegativeControl: v.RequireNegativeControl,
	})
}

func newReproRunner(exec core.RequestExecutor) *validation.ReproRunner {
	return validation.NewReproRunner(exec,
		validation.ReproConfig{DefaultCount: cfg.Validation.DefaultReproCount},
		adapters.NewValidationLogger(log.WithComponent("repro")),
	).WithTelemetry(tel)
}

func newControlRunner(exec core.RequestExecutor) *validation.ControlRunner {
	return validation.NewControlRunner(exec,
		adapters.NewValidationLogger(log.WithComponent("control")),
	).WithTelemetry(tel)
}

func newPipeline() (*validation.Pipeline, error) {
	scorer, err := newScorer()
	if err != nil {
		return nil, err
	}
	exec := newExecutor()
	return validation.NewPipeline(
		newReproRunner(exec),
		newControlRunner(exec),
		scorer,
		adapters.NewValidationLogger(log.WithComponent("pipeline")),
	).WithTelemetry(tel), nil
}
