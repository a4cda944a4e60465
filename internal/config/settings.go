// Package config loads request profiles from YAML files and resolves the
// runtime settings of the poi command line.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Color modes accepted by --color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// EnvPrefix is prepended to every setting read from the environment,
// e.g. POI_TIMEOUT or POI_OTEL_ENDPOINT.
const EnvPrefix = "POI"

// Settings are the runtime knobs that are not part of a profile.
type Settings struct {
	ConfigFile  string
	Timeout     time.Duration
	Concurrency int
	KeepGoing   bool
	LogErrors   bool
	Color       string
	JSONSummary bool
	Progress    bool
	Tracing     TracingConfig
}

// TracingConfig configures optional OpenTelemetry export.
type TracingConfig struct {
	Endpoint    string
	Protocol    string
	ServiceName string
	SampleRate  float64
	Insecure    bool
	// Propagate overrides whether W3C trace headers are injected. Nil means
	// propagate whenever tracing is enabled.
	Propagate *bool
}

// Enabled reports whether an OTLP endpoint is configured.
func (c TracingConfig) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether outgoing requests carry trace headers.
func (c TracingConfig) ShouldPropagate() bool {
	if c.Propagate != nil {
		return *c.Propagate
	}
	return c.Enabled()
}

// RegisterFlags adds the flags shared by every subcommand.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", DefaultConfigFile, "Path to the profile file (YAML or JSON)")
	flags.Duration("timeout", 0, "Per-request timeout (0 means no timeout)")
	flags.String("color", ColorAuto, "Colorize output: auto, always or never")
	flags.Bool("log-errors", false, "Log each failed row to stderr")

	flags.String("otel-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("otel-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("otel-service-name", "poi", "Service name reported in traces")
	flags.Float64("otel-sample-rate", 1.0, "Trace sampling ratio between 0 and 1")
	flags.Bool("otel-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("otel-propagate", true, "Inject W3C trace headers into requests")
}

// RegisterBatchFlags adds the flags that only apply to batch runs.
func RegisterBatchFlags(flags *pflag.FlagSet) {
	flags.Int("concurrency", 0, "Maximum rows in flight (0 means all at once)")
	flags.Bool("keep-going", false, "Skip failed rows instead of aborting the batch")
	flags.Bool("json-summary", false, "Print the batch summary as JSON")
	flags.Bool("progress", false, "Report progress on stderr while the batch runs")
}

// LoadSettings resolves settings from flags, POI_* environment variables and
// defaults, in that order of precedence.
func LoadSettings(flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("config", DefaultConfigFile)
	v.SetDefault("color", ColorAuto)
	v.SetDefault("otel-protocol", "grpc")
	v.SetDefault("otel-sample-rate", 1.0)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Settings{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	s := Settings{
		ConfigFile:  strings.TrimSpace(v.GetString("config")),
		Timeout:     v.GetDuration("timeout"),
		Concurrency: v.GetInt("concurrency"),
		KeepGoing:   v.GetBool("keep-going"),
		LogErrors:   v.GetBool("log-errors"),
		Color:       strings.ToLower(strings.TrimSpace(v.GetString("color"))),
		JSONSummary: v.GetBool("json-summary"),
		Progress:    v.GetBool("progress"),
		Tracing: TracingConfig{
			Endpoint:    strings.TrimSpace(v.GetString("otel-endpoint")),
			Protocol:    strings.ToLower(strings.TrimSpace(v.GetString("otel-protocol"))),
			ServiceName: v.GetString("otel-service-name"),
			SampleRate:  v.GetFloat64("otel-sample-rate"),
			Insecure:    v.GetBool("otel-insecure"),
		},
	}
	if v.IsSet("otel-propagate") {
		propagate := v.GetBool("otel-propagate")
		s.Tracing.Propagate = &propagate
	}
	if s.ConfigFile == "" {
		s.ConfigFile = DefaultConfigFile
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate reports every invalid setting at once.
func (s Settings) Validate() error {
	var issues []string
	if s.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if s.Concurrency < 0 {
		issues = append(issues, "concurrency must be >= 0")
	}
	switch s.Color {
	case "", ColorAuto, ColorAlways, ColorNever:
	default:
		issues = append(issues, fmt.Sprintf("color must be auto, always or never, got %q", s.Color))
	}
	if s.Tracing.SampleRate < 0 || s.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("otel-sample-rate must be between 0 and 1, got %g", s.Tracing.SampleRate))
	}
	switch s.Tracing.Protocol {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("otel-protocol must be grpc or http, got %q", s.Tracing.Protocol))
	}
	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
