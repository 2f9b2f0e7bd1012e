package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/terrpan/coreversion/internal/buildinfo"
	"github.com/terrpan/coreversion/internal/config"
	"github.com/terrpan/coreversion/internal/otel"
	"github.com/terrpan/coreversion/internal/stamp"
)

const defaultConfigPath = "coreversion.yaml"

var (
	cfgPath       string
	flagOverrides config.Config

	// entryPoint anchors the header path: <dir(entryPoint)>/core/core_version.h.
	entryPoint = func() string { return os.Args[0] }
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "coreversion",
	Short: "Stamp the version-control descriptor into core/core_version.h",
	Long: `coreversion runs "git describe --abbrev=4 --dirty --always --tags" and
writes the result as

    #define CORE_VERSION "<descriptor>"

to core/core_version.h next to the coreversion executable.  If the query
fails for any reason the descriptor is "unknown" and the run still
succeeds; only a failed write exits non-zero.

Positional arguments and unrecognised flags are ignored; a malformed
flag drops all flag overrides and stamps with the defaults.  --help and
--version print and exit without stamping.`,
	Version:      buildinfo.String(),
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{
		UnknownFlags: true,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
		defer cancel()
		return run(ctx, entryPoint(), cmd.ErrOrStderr())
	},
}

// ignoreFlagError stamps with default settings when the command line
// cannot be parsed.
func ignoreFlagError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "ignoring arguments: %v\n", err)
	cfgPath = defaultConfigPath
	flagOverrides = config.Config{}
	return cmd.RunE(cmd, nil)
}

func init() {
	rootCmd.SetFlagErrorFunc(ignoreFlagError)

	f := rootCmd.Flags()

	// Config file
	f.StringVar(&cfgPath, "config", defaultConfigPath, "Path to optional YAML configuration file")

	// VCS overrides
	f.StringVar(&flagOverrides.VCS.Backend, "backend", "", "Describe backend (git, docker)")
	f.StringVar(&flagOverrides.VCS.Dir, "repo", "", "Repository directory (default: working directory)")
	f.StringVar(&flagOverrides.VCS.Git.Binary, "git-binary", "", "git executable for the git backend")
	f.StringVar(&flagOverrides.VCS.Docker.Image, "docker-image", "", "Image providing git for the docker backend")

	// Logging overrides
	f.StringVar(&flagOverrides.Logging.Level, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&flagOverrides.Logging.Format, "log-format", "", "Log format (text, json)")

	// Metrics overrides
	f.StringVar(&flagOverrides.Metrics.Textfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")
}

// applyFlagOverrides merges non-zero CLI flag values into the loaded config.
func applyFlagOverrides(cfg *config.Config) {
	if flagOverrides.VCS.Backend != "" {
		cfg.VCS.Backend = flagOverrides.VCS.Backend
	}
	if flagOverrides.VCS.Dir != "" {
		cfg.VCS.Dir = flagOverrides.VCS.Dir
	}
	if flagOverrides.VCS.Git.Binary != "" {
		cfg.VCS.Git.Binary = flagOverrides.VCS.Git.Binary
	}
	if flagOverrides.VCS.Docker.Image != "" {
		cfg.VCS.Docker.Image = flagOverrides.VCS.Docker.Image
	}
	if flagOverrides.Logging.Level != "" {
		cfg.Logging.Level = flagOverrides.Logging.Level
	}
	if flagOverrides.Logging.Format != "" {
		cfg.Logging.Format = flagOverrides.Logging.Format
	}
	if flagOverrides.Metrics.Textfile != "" {
		cfg.Metrics.Textfile = flagOverrides.Metrics.Textfile
	}
}

func run(ctx context.Context, entry string, logOut io.Writer) error {
	// ---------------------------------------------------------------
	// 1. Load configuration
	// ---------------------------------------------------------------
	// Nothing before the write may stop the stamp: a broken config
	// falls back to the defaults.
	cfg, cfgErr := loadConfig()
	if cfgErr != nil {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}

	// ---------------------------------------------------------------
	// 2. Create logger
	// ---------------------------------------------------------------
	logger := cfg.NewLogger(logOut)
	if cfgErr != nil {
		logger.Warn("ignoring configuration, using defaults",
			slog.String("configFile", cfgPath),
			slog.String("error", cfgErr.Error()),
		)
	}
	logger.Debug("configuration loaded",
		slog.String("configFile", cfgPath),
		slog.String("backend", cfg.VCS.Backend),
		slog.String("repo", cfg.VCS.Dir),
		slog.String("entry", entry),
	)

	// ---------------------------------------------------------------
	// 3. Telemetry
	// ---------------------------------------------------------------
	if tc := cfg.TelemetryConfig(); tc.Active() {
		shutdown, err := otel.SetupOTelSDK(ctx, "coreversion", tc)
		if err != nil {
			logger.Warn("telemetry disabled", slog.String("error", err.Error()))
		} else {
			defer func() {
				if err := shutdown(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
				}
			}()
		}
	}

	// ---------------------------------------------------------------
	// 4. Resolve and write
	// ---------------------------------------------------------------
	describer, err := cfg.NewDescriber(logger)
	if err != nil {
		return fmt.Errorf("creating describer: %w", err)
	}

	s, err := stamp.New(stamp.Config{
		Describer: describer,
		Entry:     entry,
		Logger:    logger.WithGroup("stamp"),
	})
	if err != nil {
		return fmt.Errorf("creating stamper: %w", err)
	}

	if _, err := s.Run(ctx); err != nil {
		return err
	}
	return nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
