// Package stamp ties version resolution to header emission: it resolves
// a descriptor (falling back to describe.Fallback on any query failure)
// and writes it to the generated header next to the entry point.
package stamp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/terrpan/coreversion/internal/describe"
	"github.com/terrpan/coreversion/internal/header"
)

const instrumentationName = "github.com/terrpan/coreversion/internal/stamp"

// Config holds the stamper dependencies.
type Config struct {
	// Describer is the repository handle queried for the descriptor.
	Describer describe.Describer

	// Entry is the invocation path (os.Args[0]); the header is written
	// to <dir(Entry)>/core/core_version.h.
	Entry string

	Logger *slog.Logger
}

// Result reports what a run wrote.
type Result struct {
	Descriptor string
	Path       string
	// Fallback is true when the descriptor is describe.Fallback because
	// the query failed.
	Fallback bool
}

// Stamper resolves and writes the version header.
type Stamper struct {
	describer describe.Describer
	path      string
	logger    *slog.Logger

	tracer      trace.Tracer
	resolutions metric.Int64Counter
	duration    metric.Float64Histogram
}

// New creates a Stamper.  Instruments are taken from the global
// OpenTelemetry providers, which are no-ops unless telemetry is set up.
func New(cfg Config) (*Stamper, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	meter := otel.Meter(instrumentationName)
	resolutions, err := meter.Int64Counter("coreversion.resolutions",
		metric.WithDescription("Version resolutions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolutions counter: %w", err)
	}
	duration, err := meter.Float64Histogram("coreversion.resolve.duration",
		metric.WithDescription("Time spent querying version control"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolve duration histogram: %w", err)
	}

	return &Stamper{
		describer:   cfg.Describer,
		path:        header.Path(cfg.Entry),
		logger:      logger,
		tracer:      otel.Tracer(instrumentationName),
		resolutions: resolutions,
		duration:    duration,
	}, nil
}

// Path returns the header path this Stamper writes.
func (s *Stamper) Path() string { return s.path }

// Run resolves the descriptor and writes the header.  Only the write can
// fail.
func (s *Stamper) Run(ctx context.Context) (Result, error) {
	res := Result{Path: s.path}
	res.Descriptor, res.Fallback = s.resolve(ctx)

	if err := s.emit(ctx, res.Descriptor); err != nil {
		return res, err
	}

	s.logger.Info("version header written",
		slog.String("path", s.path),
		slog.String("version", res.Descriptor),
		slog.Bool("fallback", res.Fallback),
	)
	return res, nil
}

func (s *Stamper) resolve(ctx context.Context) (string, bool) {
	ctx, span := s.tracer.Start(ctx, "stamp.resolve")
	defer span.End()

	start := time.Now()
	desc, err := describe.Resolve(ctx, s.describer)
	elapsed := time.Since(start).Seconds()

	outcome := "described"
	if err != nil {
		outcome = "fallback"
		s.logger.Debug("version query failed, using fallback",
			slog.String("fallback", describe.Fallback),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	s.resolutions.Add(ctx, 1, attrs)
	s.duration.Record(ctx, elapsed, attrs)
	span.SetAttributes(
		attribute.String("coreversion.version", desc),
		attribute.String("coreversion.outcome", outcome),
	)

	return desc, err != nil
}

func (s *Stamper) emit(ctx context.Context, desc string) error {
	_, span := s.tracer.Start(ctx, "stamp.emit",
		trace.WithAttributes(attribute.String("coreversion.path", s.path)),
	)
	defer span.End()

	if err := header.Write(s.path, desc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
