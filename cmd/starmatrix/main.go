package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/metrics"
)

var (
	cfgFile string
	cfg     *config.Config
	version = "dev"

	metricsOnce sync.Once
	appMetrics  *metrics.Metrics
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "starmatrix",
		Short: "Build pairwise distance matrices for nearby stars",
		Long: `starmatrix turns a Gaia-style star catalog into 3D Cartesian positions and
writes the pairwise distance matrix as a TSPLIB instance, a comma-separated
grid and an annotated raw text file.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text, json)")

	root.AddCommand(processCmd())
	root.AddCommand(fetchCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(tourCmd())
	root.AddCommand(consumeCmd())
	root.AddCommand(runsCmd())
	root.AddCommand(checkCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err, "loading config")
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		loaded.Logging.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		loaded.Logging.Format = v
	}
	cfg = loaded
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("config loaded", "path", cfgFile, "chunk_size", cfg.Matrix.ChunkSize, "output_dir", cfg.Output.Dir)
	return nil
}

// processMetrics returns the collectors registered on the default registry.
func processMetrics() *metrics.Metrics {
	metricsOnce.Do(func() {
		appMetrics = metrics.New(nil)
	})
	return appMetrics
}
