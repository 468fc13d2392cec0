// Package events connects pipeline runs to Kafka: finished runs are
// announced on the run-events topic, and catalog batches consumed from the
// batches topic are fed through the pipeline.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/kafka"
)

// RunCompleted is published once per finished pipeline run.
type RunCompleted struct {
	RunID      string            `json:"run_id"`
	Source     string            `json:"source"`
	Status     string            `json:"status"`
	Total      int               `json:"total"`
	Valid      int               `json:"valid"`
	Rejected   int               `json:"rejected"`
	Dimension  int               `json:"dimension"`
	MinPC      float64           `json:"min_pc"`
	MaxPC      float64           `json:"max_pc"`
	MeanPC     float64           `json:"mean_pc"`
	Artifacts  map[string]string `json:"artifacts"`
	FinishedAt time.Time         `json:"finished_at"`
}

// NewRunCompleted builds the event for summary. Failed artifacts are left
// out of Artifacts.
func NewRunCompleted(summary pipeline.Summary) RunCompleted {
	artifacts := make(map[string]string, len(summary.Artifacts))
	for _, a := range summary.Artifacts {
		if !a.Failed() {
			artifacts[a.Kind] = a.Path
		}
	}
	return RunCompleted{
		RunID:      summary.RunID,
		Source:     summary.Source,
		Status:     summary.Status,
		Total:      summary.Total,
		Valid:      summary.Valid,
		Rejected:   summary.Rejected,
		Dimension:  summary.Dimension,
		MinPC:      summary.Matrix.Min,
		MaxPC:      summary.Matrix.Max,
		MeanPC:     summary.Matrix.Mean,
		Artifacts:  artifacts,
		FinishedAt: summary.FinishedAt,
	}
}

// Publisher is the subset of kafka.Producer the run publisher needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// RunPublisher announces finished runs. It is a pipeline.Sink.
type RunPublisher struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewRunPublisher creates a RunPublisher writing through p.
func NewRunPublisher(p Publisher) *RunPublisher {
	return &RunPublisher{
		publisher: p,
		logger:    slog.Default().With("component", "run-publisher"),
	}
}

// Deliver publishes a RunCompleted event keyed by run id.
func (rp *RunPublisher) Deliver(ctx context.Context, summary pipeline.Summary) error {
	event := kafka.Event{
		Key:   summary.RunID,
		Value: NewRunCompleted(summary),
		Headers: map[string]string{
			"run_id": summary.RunID,
			"status": summary.Status,
		},
	}
	if err := rp.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("publishing run %s: %w", summary.RunID, err)
	}
	rp.logger.Debug("run event published", "run_id", summary.RunID, "status", summary.Status)
	return nil
}
