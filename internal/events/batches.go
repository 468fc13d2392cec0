package events

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/metrics"
)

// CatalogBatch is a set of raw records submitted for processing. Each batch
// is written to its own directory under the consumer's base directory.
type CatalogBatch struct {
	Name    string              `json:"name"`
	Records []catalog.RawRecord `json:"records"`
}

// Runner runs one pipeline input. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
}

// HandleCatalogBatches returns a MessageHandler that runs each batch through
// r, writing into baseDir/<name>. Undecodable messages are logged and
// skipped so they are committed; artifact failures are returned so the
// message is retried on the next fetch.
func HandleCatalogBatches(r Runner, baseDir string, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "batch-consumer")
	count := func(status string) {
		if m != nil {
			m.BatchesConsumedTotal.WithLabelValues(status).Inc()
		}
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		batch, err := kafka.DecodeJSON[CatalogBatch](value)
		if err != nil {
			logger.Error("failed to decode catalog batch",
				"error", err,
				"key", string(key),
			)
			count("invalid")
			return nil
		}

		name := BatchDir(batch.Name, string(key))
		dir := filepath.Join(baseDir, name)
		logger.Info("processing catalog batch", "name", name, "records", len(batch.Records))

		res, err := r.Run(ctx, pipeline.Input{
			Source:    "kafka:" + name,
			Records:   batch.Records,
			OutputDir: dir,
		})
		if err != nil {
			count("error")
			return fmt.Errorf("processing batch %s: %w", name, err)
		}
		count("ok")
		logger.Info("catalog batch processed",
			"name", name,
			"run_id", res.Summary.RunID,
			"dimension", res.Summary.Dimension,
		)
		return nil
	}
}

// BatchDir turns a batch name into a single safe path element. It falls
// back to key, then to "batch".
func BatchDir(name, key string) string {
	for _, candidate := range []string{name, key} {
		if s := sanitize(candidate); s != "" {
			return s
		}
	}
	return "batch"
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
