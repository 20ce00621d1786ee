package core

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/tier-analyzer/internal/logging"
	"github.com/signalsfoundry/tier-analyzer/model"
)

const tracerName = "github.com/signalsfoundry/tier-analyzer/core"

// RunResult is the single value an analysis run publishes: either a
// record sequence or an error, never both, never partial.
type RunResult struct {
	Method  model.Method
	Records []model.TierRecord
	Err     error
	Elapsed time.Duration
}

// RunObserver receives the outcome of completed runs; the metrics
// collector implements it.
type RunObserver interface {
	ObserveRun(method model.Method, status string, elapsed time.Duration, records int)
}

// RunnerOption customizes an AnalysisRunner.
type RunnerOption func(*AnalysisRunner)

// WithRunObserver attaches an observer notified after every run.
func WithRunObserver(o RunObserver) RunnerOption {
	return func(r *AnalysisRunner) { r.observer = o }
}

// AnalysisRunner executes engines off the caller's goroutine so an
// interactive surface stays responsive. The worker receives the
// immutable index snapshot plus the engine and runs to completion or
// to a reported failure; cancellation through ctx is cooperative and
// guarantees no records are published once observed.
type AnalysisRunner struct {
	log      logging.Logger
	observer RunObserver
	tracer   trace.Tracer
}

func NewAnalysisRunner(log logging.Logger, opts ...RunnerOption) *AnalysisRunner {
	if log == nil {
		log = logging.Noop()
	}
	r := &AnalysisRunner{
		log:    log,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the engine in a background goroutine and returns a
// buffered channel that receives exactly one RunResult before being
// closed. The caller may abandon the channel after cancelling ctx.
func (r *AnalysisRunner) Start(ctx context.Context, engine NeighborEngine, idx *SiteIndex) <-chan RunResult {
	out := make(chan RunResult, 1)
	go func() {
		defer close(out)
		out <- r.run(ctx, engine, idx)
	}()
	return out
}

// Run executes the engine synchronously with the same observability
// as Start.
func (r *AnalysisRunner) Run(ctx context.Context, engine NeighborEngine, idx *SiteIndex) RunResult {
	return r.run(ctx, engine, idx)
}

func (r *AnalysisRunner) run(ctx context.Context, engine NeighborEngine, idx *SiteIndex) RunResult {
	if ctx == nil {
		ctx = context.Background()
	}
	method := engine.Method()

	ctx, runID := logging.EnsureRunID(ctx)
	log := r.log.With(
		logging.String("run_id", runID),
		logging.String("method", string(method)),
	)

	attrs := []attribute.KeyValue{
		attribute.String("analysis.method", string(method)),
	}
	if idx != nil {
		attrs = append(attrs,
			attribute.Int("analysis.sites", idx.NumSites()),
			attribute.Int("analysis.sectors", idx.NumSectors()),
		)
	}
	ctx, span := r.tracer.Start(ctx, "analysis.run", trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	records, err := engine.Run(ctx, idx)
	elapsed := time.Since(start)

	status := "ok"
	switch {
	case err != nil:
		// A failed or cancelled run publishes no records at all.
		records = nil
		status = "error"
		if ctx.Err() != nil {
			status = "cancelled"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error(ctx, "analysis run failed",
			logging.String("status", status),
			logging.String("error", err.Error()),
			logging.Any("elapsed", elapsed),
		)
	default:
		span.SetAttributes(attribute.Int("analysis.records", len(records)))
		log.Info(ctx, "analysis run finished",
			logging.Int("records", len(records)),
			logging.Any("elapsed", elapsed),
		)
	}

	if r.observer != nil {
		r.observer.ObserveRun(method, status, elapsed, len(records))
	}
	return RunResult{Method: method, Records: records, Err: err, Elapsed: elapsed}
}
