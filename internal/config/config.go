// Package config handles loading, validating, and applying
// configuration for coreversion.  Configuration is read from an optional
// YAML file and can be overridden by CLI flags.  The output header path
// is deliberately absent: it always follows the entry point.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/terrpan/coreversion/internal/describe"
	"github.com/terrpan/coreversion/internal/otel"
)

// ---------------------------------------------------------------------------
// Top-level config
// ---------------------------------------------------------------------------

// Config is the root configuration structure.
type Config struct {
	VCS     VCSConfig     `yaml:"vcs"`
	Logging LoggingConfig `yaml:"logging"`
	OTel    OTelConfig    `yaml:"otel"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ---------------------------------------------------------------------------
// Version control
// ---------------------------------------------------------------------------

// VCSConfig selects how the describe query is run.
type VCSConfig struct {
	// Backend selects the query backend: "git" or "docker".  Default: "git".
	Backend string `yaml:"backend"`

	// Dir is the repository directory.  Default: "" (process working
	// directory).
	Dir string `yaml:"dir"`

	// Git holds settings for the local git backend.  Only read when
	// Backend == "git".
	Git GitConfig `yaml:"git"`

	// Docker holds settings for the container backend.  Only read when
	// Backend == "docker".
	Docker DockerConfig `yaml:"docker"`
}

// GitConfig holds local git backend settings.
type GitConfig struct {
	// Binary is the git executable name or path.  Default: "git".
	Binary string `yaml:"binary"`
}

// DockerConfig holds container backend settings.
type DockerConfig struct {
	// Image must provide git.  Default: "alpine/git:latest".
	Image string `yaml:"image"`
}

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

// LoggingConfig controls structured logging output.
type LoggingConfig struct {
	// Level: debug, info, warn, error.  Default: info.
	Level string `yaml:"level"`
	// Format: text, json.  Default: text.
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// OpenTelemetry
// ---------------------------------------------------------------------------

// OTelConfig controls OpenTelemetry tracing and metrics.
type OTelConfig struct {
	// Enabled controls whether OTLP push is active.  Default: false.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP HTTP endpoint (e.g. "localhost:4318").
	// If empty, falls back to OTEL_EXPORTER_OTLP_ENDPOINT env var.
	Endpoint string `yaml:"endpoint"`

	// Insecure enables plain HTTP (no TLS) for OTLP export.
	Insecure bool `yaml:"insecure"`

	// StdOut also prints traces and metrics (for debugging).  Default: false.
	StdOut bool `yaml:"stdout"`
}

// MetricsConfig controls the Prometheus textfile output.
type MetricsConfig struct {
	// Textfile, when set, is the path of a Prometheus text-format file
	// written on exit for node_exporter's textfile collector.
	Textfile string `yaml:"textfile"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads a YAML config file from path and returns the parsed Config.
// A missing file is not an error; the zero Config is returned and
// ApplyDefaults fills it in.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional -- the defaults describe the
			// working directory with git.
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// ---------------------------------------------------------------------------
// Defaults & validation
// ---------------------------------------------------------------------------

// ApplyDefaults fills in defaults for any unset fields.
func (c *Config) ApplyDefaults() {
	if c.VCS.Backend == "" {
		c.VCS.Backend = "git"
	}
	if c.VCS.Git.Binary == "" {
		c.VCS.Git.Binary = "git"
	}
	if c.VCS.Docker.Image == "" {
		c.VCS.Docker.Image = describe.DefaultImage
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all fields are present and consistent.
func (c *Config) Validate() error {
	c.ApplyDefaults()

	switch c.VCS.Backend {
	case "git", "docker":
		// OK
	default:
		return fmt.Errorf("vcs.backend %q is not supported (supported: git, docker)", c.VCS.Backend)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported (supported: debug, info, warn, error)", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (supported: text, json)", c.Logging.Format)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Factories
// ---------------------------------------------------------------------------

// NewLogger creates a *slog.Logger writing to w from the Logging
// configuration.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: c.slogLevel() == slog.LevelDebug,
		Level:     c.slogLevel(),
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

func (c *Config) slogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewDescriber creates the describe backend selected by vcs.backend.
func (c *Config) NewDescriber(logger *slog.Logger) (describe.Describer, error) {
	switch c.VCS.Backend {
	case "git":
		return &describe.Git{
			Binary: c.VCS.Git.Binary,
			Dir:    c.VCS.Dir,
		}, nil
	case "docker":
		return describe.NewDocker(describe.DockerConfig{
			Image: c.VCS.Docker.Image,
			Dir:   c.VCS.Dir,
		}, logger.WithGroup("describe.docker")), nil
	default:
		return nil, fmt.Errorf("unsupported vcs backend: %s", c.VCS.Backend)
	}
}

// TelemetryConfig maps the otel and metrics sections onto otel.Config.
func (c *Config) TelemetryConfig() otel.Config {
	return otel.Config{
		Enabled:            c.OTel.Enabled,
		Endpoint:           c.OTel.Endpoint,
		Insecure:           c.OTel.Insecure,
		StdOut:             c.OTel.StdOut,
		PrometheusTextfile: c.Metrics.Textfile,
	}
}
