// Package pipeline runs the canonical processing sequence: project raw
// records, order stars by distance, build the distance matrix, then write
// each artifact independently. A failed artifact is reported in the run
// summary and does not stop the others.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/distmatrix"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/matrixio"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/output"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/projection"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/tracing"
)

// Artifact kinds.
const (
	KindTSP         = "tsp"
	KindGrid        = "grid"
	KindRaw         = "raw"
	KindProcessed   = "processed"
	KindCoordinates = "coordinates"
)

// Run statuses.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Sink receives the summary of every finished run.
type Sink interface {
	Deliver(ctx context.Context, summary Summary) error
}

// Input is one batch of raw records to process.
type Input struct {
	// Source labels where the records came from (file path, archive, batch).
	Source  string
	Records []catalog.RawRecord
	// OutputDir overrides the configured output directory when set.
	OutputDir string
}

// Result carries the in-memory products of a run alongside its summary.
type Result struct {
	Summary Summary
	Report  projection.Report
	Stars   []projection.Star
	Matrix  *distmatrix.Matrix
}

// Pipeline holds the configuration shared by all runs.
type Pipeline struct {
	matrixCfg config.MatrixConfig
	outputCfg config.OutputConfig
	metrics   *metrics.Metrics
	sinks     []Sink
	progress  func(distmatrix.ChunkProgress)
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records run metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithSinks delivers each run summary to sinks.
func WithSinks(sinks ...Sink) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, sinks...) }
}

// WithProgress reports matrix build progress per chunk.
func WithProgress(fn func(distmatrix.ChunkProgress)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New creates a Pipeline.
func New(matrixCfg config.MatrixConfig, outputCfg config.OutputConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		matrixCfg: matrixCfg,
		outputCfg: outputCfg,
		logger:    logger.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process projects, orders and builds the matrix without any I/O.
func Process(records []catalog.RawRecord, opts distmatrix.Options) (projection.Report, []projection.Star, *distmatrix.Matrix) {
	report := projection.Project(records)
	stars := projection.SortByDistance(report.Stars)
	return report, stars, distmatrix.FromStars(stars, opts)
}

// Run processes in and writes every artifact. The returned error joins the
// artifact failures; the Result is populated even then. An empty batch is
// not an error and yields degenerate artifacts.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	ctx, root := tracing.Start(ctx, "run", runID)
	log := logger.FromContext(ctx).With("component", "pipeline")

	summary := Summary{
		RunID:     runID,
		Source:    in.Source,
		ChunkSize: p.chunkSize(),
		StartedAt: time.Now().UTC(),
	}
	log.Info("run started", "source", in.Source, "records", len(in.Records))

	span := root.Child("project")
	report := projection.Project(in.Records)
	span.Set("valid", report.Valid())
	span.End()
	p.recordProjection(log, report)

	span = root.Child("order")
	stars := projection.SortByDistance(report.Stars)
	span.End()

	span = root.Child("build")
	buildStart := time.Now()
	m := distmatrix.FromStars(stars, distmatrix.Options{
		ChunkSize: p.matrixCfg.ChunkSize,
		OnChunk: func(cp distmatrix.ChunkProgress) {
			summary.Chunks = cp.Total
			if p.metrics != nil {
				p.metrics.MatrixChunksTotal.Inc()
			}
			log.Debug("matrix chunk done", "start", cp.Start, "end", cp.End, "chunk", cp.Done, "of", cp.Total)
			if p.progress != nil {
				p.progress(cp)
			}
		},
	})
	span.Set("dimension", m.Len())
	span.End()
	if p.metrics != nil {
		p.metrics.MatrixBuildDuration.Observe(time.Since(buildStart).Seconds())
		p.metrics.MatrixDimension.Set(float64(m.Len()))
	}

	summary.fill(report, stars, m)
	if m.Empty() {
		log.Warn("no valid stars; writing empty outputs", "total", report.Total)
	} else {
		log.Info("matrix built",
			"dimension", m.Len(),
			"chunks", summary.Chunks,
			"min_pc", summary.Matrix.Min,
			"max_pc", summary.Matrix.Max,
			"mean_pc", summary.Matrix.Mean,
		)
	}

	dir := in.OutputDir
	if dir == "" {
		dir = p.outputCfg.Dir
	}
	w := output.NewWriter(dir)
	var errs []error
	for _, a := range p.artifacts(stars, m) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("run cancelled before %s: %w", a.kind, err))
			summary.Artifacts = append(summary.Artifacts, Artifact{Kind: a.kind, Error: err.Error()})
			continue
		}
		span := root.Child("write_" + a.kind)
		path, err := w.WriteFile(a.name, a.encode)
		span.End()

		art := Artifact{Kind: a.kind, Path: path}
		status := "ok"
		if err != nil {
			status = "error"
			art.Path = w.Path(a.name)
			art.Error = err.Error()
			errs = append(errs, fmt.Errorf("writing %s: %w", a.kind, err))
			log.Error("artifact failed", "kind", a.kind, "path", art.Path, "error", err)
		} else {
			log.Info("artifact written", "kind", a.kind, "path", path)
		}
		if p.metrics != nil {
			p.metrics.ArtifactsWrittenTotal.WithLabelValues(a.kind, status).Inc()
		}
		summary.Artifacts = append(summary.Artifacts, art)
	}

	root.End()
	summary.Stages = root.Stages()
	summary.FinishedAt = time.Now().UTC()
	summary.Status = statusFor(len(errs), len(summary.Artifacts))
	log.Debug("run trace", "trace", root)
	if p.metrics != nil {
		p.metrics.RunsTotal.WithLabelValues(summary.Status).Inc()
	}
	log.Info("run finished",
		"status", summary.Status,
		"valid", summary.Valid,
		"total", summary.Total,
		"duration_ms", summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	)

	p.deliver(ctx, log, summary)

	return &Result{Summary: summary, Report: report, Stars: stars, Matrix: m}, errors.Join(errs...)
}

func (p *Pipeline) chunkSize() int {
	if p.matrixCfg.ChunkSize <= 0 {
		return distmatrix.DefaultChunkSize
	}
	return p.matrixCfg.ChunkSize
}

func (p *Pipeline) recordProjection(log *slog.Logger, report projection.Report) {
	for _, rej := range report.Rejections {
		log.Debug("record rejected", "detail", rej.String())
	}
	byReason := report.RejectedBy()
	log.Info("records projected",
		"valid", report.Valid(),
		"total", report.Total,
		"rejected", report.Rejected(),
		"degraded", report.Degraded,
	)
	if p.metrics == nil {
		return
	}
	p.metrics.RecordsTotal.WithLabelValues("valid").Add(float64(report.Valid() - report.Degraded))
	p.metrics.RecordsTotal.WithLabelValues("degraded").Add(float64(report.Degraded))
	p.metrics.RecordsTotal.WithLabelValues("rejected").Add(float64(report.Rejected()))
	for reason, n := range byReason {
		p.metrics.RejectionsTotal.WithLabelValues(reason.String()).Add(float64(n))
	}
}

type artifact struct {
	kind   string
	name   string
	encode func(io.Writer) error
}

// artifacts lists the files a run writes, in write order.
func (p *Pipeline) artifacts(stars []projection.Star, m *distmatrix.Matrix) []artifact {
	cfg := p.outputCfg
	n := m.Len()
	list := []artifact{
		{KindTSP, cfg.TSPFile, func(w io.Writer) error { return matrixio.WriteTSP(w, cfg.TSPName, m) }},
		{KindGrid, fmt.Sprintf(cfg.FormattedFile, n), func(w io.Writer) error { return matrixio.WriteGrid(w, m) }},
		{KindRaw, fmt.Sprintf(cfg.RawFile, n), func(w io.Writer) error { return matrixio.WriteRaw(w, stars, m) }},
	}
	if cfg.WriteProcessed {
		list = append(list, artifact{KindProcessed, cfg.ProcessedFile, func(w io.Writer) error {
			return matrixio.WriteStars(w, stars)
		}})
	}
	if cfg.WriteCoordinates {
		list = append(list, artifact{KindCoordinates, cfg.CoordinatesFile, func(w io.Writer) error {
			return matrixio.WriteCoordinates(w, stars)
		}})
	}
	return list
}

func (p *Pipeline) deliver(ctx context.Context, log *slog.Logger, summary Summary) {
	for _, sink := range p.sinks {
		if err := sink.Deliver(ctx, summary); err != nil {
			log.Error("summary delivery failed", "sink", fmt.Sprintf("%T", sink), "error", err)
		}
	}
}

func statusFor(failed, total int) string {
	switch {
	case failed == 0:
		return StatusOK
	case failed < total:
		return StatusPartial
	default:
		return StatusFailed
	}
}
