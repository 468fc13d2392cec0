package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/events"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/pipeline"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/metrics"
)

func consumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Process catalog batches from Kafka until interrupted",
		Long: `Consume reads {"name", "records"} catalog batches from the configured
Kafka topic and runs the pipeline for each one into <out>/<name>/. Metrics
and health probes are served on the metrics port while it runs.`,
		Args: cobra.NoArgs,
		RunE: runConsume,
	}
	cmd.Flags().StringP("out", "o", "", "base output directory (overrides output.dir)")
	cmd.Flags().String("topic", "", "catalog batch topic (overrides kafka.topics.catalogBatches)")
	return cmd
}

func runConsume(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		cfg.Output.Dir = out
	}
	topic, _ := cmd.Flags().GetString("topic")
	if topic == "" {
		topic = cfg.Kafka.Topics.CatalogBatches
	}
	if len(cfg.Kafka.Brokers) == 0 || topic == "" {
		return apperrors.New(apperrors.ErrInvalidInput, 0, "consume needs kafka brokers and a catalog batch topic")
	}

	var cl closers
	defer cl.Close()

	m := processMetrics()
	p := pipeline.New(cfg.Matrix, cfg.Output,
		pipeline.WithMetrics(m),
		pipeline.WithSinks(openSinks(ctx, &cl)...),
	)

	checker := health.NewChecker(health.DefaultTimeout)
	checker.Register("output", health.WritableDir(cfg.Output.Dir))
	checker.Register("kafka", health.FromPing(func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	}, false))
	shutdown, err := metrics.StartServer(cfg.Metrics.Port, map[string]http.Handler{
		"/health/live":  checker.LiveHandler(),
		"/health/ready": checker.ReadyHandler(),
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", "error", err)
		}
	}()

	consumer := kafka.NewConsumer(cfg.Kafka, topic, events.HandleCatalogBatches(p, cfg.Output.Dir, m))
	slog.Info("consuming catalog batches",
		"topic", topic,
		"group", cfg.Kafka.ConsumerGroup,
		"output_dir", cfg.Output.Dir,
	)
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("consuming %s: %w", topic, err)
	}
	stats := consumer.Stats()
	slog.Info("consumer stopped", "handled", stats.Handled, "failed", stats.Failed)
	return nil
}
