package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/redis"
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the archive, output directory and enabled backends",
		Long: `Check verifies that the output directory is writable and the Gaia archive
answers a one-row query. Redis, PostgreSQL and Kafka are probed when the
configuration enables them. Optional backends that fail mark the result
degraded; the command fails only when a required dependency is down.`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
	cmd.Flags().Bool("skip-archive", false, "do not query the archive")
	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	checker := health.NewChecker(health.DefaultTimeout)
	checker.Register("output", health.WritableDir(cfg.Output.Dir))
	if skip, _ := cmd.Flags().GetBool("skip-archive"); !skip {
		checker.Register("archive", health.FromPing(newArchiveClient(nil).Ping, false))
	}
	if cfg.Cache.Backend == "redis" {
		checker.Register("redis", health.FromPing(func(ctx context.Context) error {
			client, err := pkgredis.Dial(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			return client.Close()
		}, true))
	}
	if cfg.Postgres.Enabled {
		checker.Register("postgres", health.FromPing(func(ctx context.Context) error {
			db, err := postgres.Open(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			return db.Close()
		}, true))
	}
	if cfg.Kafka.Enabled {
		checker.Register("kafka", health.FromPing(func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		}, true))
	}

	report := checker.Run(ctx)
	if err := report.Write(cmd.OutOrStdout()); err != nil {
		return err
	}
	if report.Status == health.StatusDown {
		return apperrors.New(apperrors.ErrArchiveUnavailable, 0, "required dependency is down")
	}
	return nil
}
