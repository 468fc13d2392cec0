package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/pipeline"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Project a catalog and write the distance matrix artifacts",
		Long: `Process loads raw star records from a catalog JSON file (or the Gaia archive
when --input is omitted), projects them to Cartesian coordinates, orders them by
distance and writes the TSPLIB, formatted grid and raw matrix files.

An artifact that fails to write is reported and does not stop the others; the
command then exits non-zero.`,
		Example: `  starmatrix process --input stars.json --out output
  starmatrix process --limit 500 --progress
  starmatrix process --sizes 1000,2000,5000 --out sweeps`,
		Args: cobra.NoArgs,
		RunE: runProcess,
	}

	cmd.Flags().StringP("input", "i", "", "catalog JSON file (default: query the archive)")
	cmd.Flags().IntP("limit", "n", 0, "maximum number of records to use (0: config archive.limit for the archive, all for files)")
	cmd.Flags().StringP("out", "o", "", "output directory (overrides output.dir)")
	cmd.Flags().Int("chunk-size", 0, "matrix rows per build chunk (overrides matrix.chunkSize)")
	cmd.Flags().Bool("refresh", false, "drop cached archive results before fetching")
	cmd.Flags().Bool("progress", false, "show a progress bar while building the matrix")
	cmd.Flags().Bool("no-processed", false, "skip processed_stars.json")
	cmd.Flags().Bool("no-coordinates", false, "skip the coordinates file")
	cmd.Flags().IntSlice("sizes", nil, "run once per record limit, each into <out>/stars_<size>")
	cmd.Flags().Bool("json", false, "print the run summary as JSON")

	return cmd
}

func runProcess(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	input, _ := flags.GetString("input")
	limit, _ := flags.GetInt("limit")
	if out, _ := flags.GetString("out"); out != "" {
		cfg.Output.Dir = out
	}
	if chunk, _ := flags.GetInt("chunk-size"); chunk != 0 {
		if chunk < 0 {
			return apperrors.Newf(apperrors.ErrInvalidInput, 0, "--chunk-size must be positive, got %d", chunk)
		}
		cfg.Matrix.ChunkSize = chunk
	}
	if skip, _ := flags.GetBool("no-processed"); skip {
		cfg.Output.WriteProcessed = false
	}
	if skip, _ := flags.GetBool("no-coordinates"); skip {
		cfg.Output.WriteCoordinates = false
	}
	if limit < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "--limit must not be negative, got %d", limit)
	}

	var cl closers
	defer cl.Close()

	m := processMetrics()
	refresh, _ := flags.GetBool("refresh")
	src, label, err := openSource(ctx, input, m, refresh, &cl)
	if err != nil {
		return err
	}
	opts := []pipeline.Option{
		pipeline.WithMetrics(m),
		pipeline.WithSinks(openSinks(ctx, &cl)...),
	}
	if show, _ := flags.GetBool("progress"); show {
		opts = append(opts, pipeline.WithProgress(newChunkBar(os.Stderr).update))
	}
	p := pipeline.New(cfg.Matrix, cfg.Output, opts...)
	asJSON, _ := flags.GetBool("json")

	sizes, _ := flags.GetIntSlice("sizes")
	if len(sizes) == 0 {
		return processOnce(cmd, p, src, pipeline.Input{Source: label}, limit, asJSON)
	}

	// Sizes run in order; a failed size is reported and the next one runs.
	var errs []error
	for _, size := range sizes {
		if size <= 0 {
			errs = append(errs, apperrors.Newf(apperrors.ErrInvalidInput, 0, "--sizes entries must be positive, got %d", size))
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		in := pipeline.Input{
			Source:    fmt.Sprintf("%s (limit %d)", label, size),
			OutputDir: filepath.Join(cfg.Output.Dir, fmt.Sprintf("stars_%d", size)),
		}
		if err := processOnce(cmd, p, src, in, size, asJSON); err != nil {
			slog.Error("size failed", "size", size, "error", err)
			errs = append(errs, fmt.Errorf("size %d: %w", size, err))
		}
	}
	return errors.Join(errs...)
}

func processOnce(cmd *cobra.Command, p *pipeline.Pipeline, src catalog.Source, in pipeline.Input, limit int, asJSON bool) error {
	records, err := fetchRecords(cmd.Context(), src, limit)
	if err != nil {
		return err
	}
	in.Records = records
	res, runErr := p.Run(cmd.Context(), in)
	if err := printSummary(cmd.OutOrStdout(), res.Summary, asJSON); err != nil {
		return err
	}
	return runErr
}

func printSummary(w io.Writer, s pipeline.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Fprintf(w, "run %s: %s\n", s.RunID, s.Status)
	fmt.Fprintf(w, "  stars:    %d valid of %d (%d rejected, %d degraded)\n", s.Valid, s.Total, s.Rejected, s.Degraded)
	if s.Dimension > 0 {
		fmt.Fprintf(w, "  matrix:   %dx%d in %d chunks, %.3f to %.3f pc (mean %.3f)\n",
			s.Dimension, s.Dimension, s.Chunks, s.Matrix.Min, s.Matrix.Max, s.Matrix.Mean)
	}
	for _, a := range s.Artifacts {
		if a.Failed() {
			fmt.Fprintf(w, "  %-12s FAILED %s\n", a.Kind, a.Error)
			continue
		}
		fmt.Fprintf(w, "  %-12s %s\n", a.Kind, a.Path)
	}
	return nil
}
