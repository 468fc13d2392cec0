package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog/archive"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog/cache"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/events"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/ledger"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/postgres"
)

// closers releases resources in reverse order of acquisition.
type closers []func() error

func (c *closers) add(fn func() error) {
	*c = append(*c, fn)
}

func (c *closers) Close() error {
	var errs []error
	for i := len(*c) - 1; i >= 0; i-- {
		if err := (*c)[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newArchiveClient(m *metrics.Metrics) *archive.Client {
	return archive.New(cfg.Archive, &http.Client{}, m)
}

// openArchive returns the archive client wrapped in the configured cache.
// refresh drops cached record sets first.
func openArchive(ctx context.Context, m *metrics.Metrics, refresh bool, cl *closers) (catalog.Source, error) {
	client := newArchiveClient(m)
	store, closeStore, err := cache.Open(ctx, cfg.Cache, cfg.Redis)
	if err != nil {
		return nil, err
	}
	cl.add(closeStore)
	if store == nil {
		return client, nil
	}
	if refresh {
		n, err := store.Clear(ctx)
		if err != nil {
			return nil, err
		}
		slog.Info("catalog cache cleared", "backend", cfg.Cache.Backend, "entries", n)
	}
	return cache.NewCachedSource(client, store, client.CacheKey, m), nil
}

// openSource picks the catalog file when input is set, else the archive.
func openSource(ctx context.Context, input string, m *metrics.Metrics, refresh bool, cl *closers) (catalog.Source, string, error) {
	if input != "" {
		return catalog.FileSource{Path: input}, input, nil
	}
	src, err := openArchive(ctx, m, refresh, cl)
	if err != nil {
		return nil, "", err
	}
	return src, "archive:" + cfg.Archive.Table, nil
}

// openLedger connects to PostgreSQL and ensures the ledger schema.
func openLedger(ctx context.Context, cl *closers) (*ledger.Store, error) {
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("run ledger unavailable: %w", err)
	}
	cl.add(db.Close)
	store := ledger.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// openSinks returns the enabled run sinks. A sink that cannot be opened is
// skipped with a warning so the run still produces its artifacts.
func openSinks(ctx context.Context, cl *closers) []pipeline.Sink {
	var sinks []pipeline.Sink
	if cfg.Postgres.Enabled {
		store, err := openLedger(ctx, cl)
		if err != nil {
			slog.Warn("run ledger disabled", "error", err)
		} else {
			sinks = append(sinks, store)
		}
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RunEvents)
		cl.add(producer.Close)
		sinks = append(sinks, events.NewRunPublisher(producer))
	}
	return sinks
}

func fetchRecords(ctx context.Context, src catalog.Source, limit int) ([]catalog.RawRecord, error) {
	records, err := src.Fetch(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	return records, nil
}
